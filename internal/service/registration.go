package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"dashboard_sync/internal/logger"
	"dashboard_sync/internal/models"
	"dashboard_sync/internal/queue"
	"dashboard_sync/internal/remote"
)

// RegistrationResult reports the spawner entry of the gameplay config.
type RegistrationResult struct {
	Entry   string   `json:"entry"`
	Added   bool     `json:"added"`
	Entries []string `json:"entries"`
}

// RegistrationService makes sure the game server loads the spawner document
// by listing it in the gameplay config.
type RegistrationService struct {
	queue  *queue.Keyed
	stores remote.Factory
	log    *logger.Logger
}

func NewRegistrationService(q *queue.Keyed, stores remote.Factory, log *logger.Logger) *RegistrationService {
	if log == nil {
		log = logger.Nop()
	}
	return &RegistrationService{queue: q, stores: stores, log: log}
}

// Register appends inst's spawner path to WorldsData.objectSpawnersArr unless
// it is already listed. The config document is rewritten only when it changes.
func (s *RegistrationService) Register(ctx context.Context, inst models.ManagedInstance) (RegistrationResult, error) {
	if strings.TrimSpace(inst.GameplayConfigPath) == "" {
		return RegistrationResult{}, errNoGameplayConfig
	}
	return queue.Do(ctx, s.queue, queueKey(inst.ID), func(ctx context.Context) (RegistrationResult, error) {
		return s.register(ctx, inst)
	})
}

func (s *RegistrationService) register(ctx context.Context, inst models.ManagedInstance) (RegistrationResult, error) {
	store := s.stores(credentialsOf(inst))
	data, err := store.Get(ctx, inst.GameplayConfigPath)
	if err != nil {
		return RegistrationResult{}, fmt.Errorf("download gameplay config %q: %w", inst.GameplayConfigPath, err)
	}

	doc, err := decodeObject(data)
	if err != nil {
		return RegistrationResult{}, fmt.Errorf("%w: gameplay config: %v", ErrResourceParse, err)
	}

	entry := spawnerEntry(inst.GameplayConfigPath, inst.SpawnerPath)
	updated, entries, added := addSpawnerEntry(doc, entry)
	res := RegistrationResult{Entry: entry, Added: added, Entries: entries}
	if !added {
		return res, nil
	}

	out, err := json.MarshalIndent(updated, "", "    ")
	if err != nil {
		return RegistrationResult{}, err
	}
	if err := store.Put(ctx, inst.GameplayConfigPath, out); err != nil {
		return RegistrationResult{}, fmt.Errorf("upload gameplay config %q: %w", inst.GameplayConfigPath, err)
	}
	s.log.ForInstance(inst.ID).Infow("spawner_registered", "entry", entry, "config", inst.GameplayConfigPath)
	return res, nil
}

// decodeObject decodes a JSON object keeping numbers verbatim so untouched
// keys are written back unchanged.
func decodeObject(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("document is not an object")
	}
	return doc, nil
}

// addSpawnerEntry appends entry to WorldsData.objectSpawnersArr when absent.
func addSpawnerEntry(doc map[string]any, entry string) (map[string]any, []string, bool) {
	worlds, _ := doc["WorldsData"].(map[string]any)
	if worlds == nil {
		worlds = map[string]any{}
		doc["WorldsData"] = worlds
	}
	raw, _ := worlds["objectSpawnersArr"].([]any)

	var entries []string
	for _, v := range raw {
		if s, ok := v.(string); ok {
			entries = append(entries, s)
			if s == entry {
				return doc, entries, false
			}
		}
	}
	worlds["objectSpawnersArr"] = append(raw, entry)
	return doc, append(entries, entry), true
}

// spawnerEntry expresses the spawner path relative to the gameplay config's
// directory, the way the game resolves it.
func spawnerEntry(configPath, spawnerPath string) string {
	dir := path.Dir(strings.ReplaceAll(configPath, "\\", "/"))
	sp := path.Clean(strings.ReplaceAll(spawnerPath, "\\", "/"))
	if dir != "." && dir != "/" {
		prefix := strings.TrimSuffix(dir, "/") + "/"
		if strings.HasPrefix(sp, prefix) {
			return strings.TrimPrefix(sp, prefix)
		}
	}
	return strings.TrimPrefix(sp, "/")
}
