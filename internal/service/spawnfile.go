package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"dashboard_sync/internal/models"
	"dashboard_sync/internal/remote"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const spawnerSchemaURL = "spawner.schema.json"

const spawnerSchema = `{
  "type": "object",
  "required": ["Objects"],
  "properties": {
    "Objects": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "pos"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "pos": {"type": "array", "items": {"type": "number"}, "minItems": 3, "maxItems": 3},
          "ypr": {"type": "array", "items": {"type": "number"}, "minItems": 3, "maxItems": 3},
          "scale": {"type": "number"},
          "enableCEPersistency": {"type": "integer"},
          "customString": {"type": "string"}
        }
      }
    }
  }
}`

var spawnerValidator = jsonschema.MustCompileString(spawnerSchemaURL, spawnerSchema)

// decodeSpawnResource validates and decodes a spawner document.
func decodeSpawnResource(data []byte) (models.SpawnResource, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return models.SpawnResource{}, fmt.Errorf("%w: empty document", ErrResourceParse)
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return models.SpawnResource{}, fmt.Errorf("%w: %v", ErrResourceParse, err)
	}
	if err := spawnerValidator.Validate(generic); err != nil {
		return models.SpawnResource{}, fmt.Errorf("%w: %v", ErrResourceParse, err)
	}
	var res models.SpawnResource
	if err := json.Unmarshal(data, &res); err != nil {
		return models.SpawnResource{}, fmt.Errorf("%w: %v", ErrResourceParse, err)
	}
	return res, nil
}

func encodeSpawnResource(res models.SpawnResource) ([]byte, error) {
	if res.Objects == nil {
		res.Objects = []models.SpawnObject{}
	}
	return json.MarshalIndent(res, "", "    ")
}

// loadSpawnResource downloads path. A missing or unparsable document yields an
// empty resource and a non-nil emptyReason; the caller proceeds and creates it.
// Every other download failure comes back as err so the caller aborts without
// overwriting remote state it failed to read.
func loadSpawnResource(ctx context.Context, store remote.FileStore, path string) (res models.SpawnResource, emptyReason, err error) {
	data, err := store.Get(ctx, path)
	if errors.Is(err, remote.ErrNotFound) {
		return models.SpawnResource{}, err, nil
	}
	if err != nil {
		return models.SpawnResource{}, nil, err
	}
	res, perr := decodeSpawnResource(data)
	if perr != nil {
		return models.SpawnResource{}, perr, nil
	}
	return res, nil, nil
}

func storeSpawnResource(ctx context.Context, store remote.FileStore, path string, res models.SpawnResource) error {
	data, err := encodeSpawnResource(res)
	if err != nil {
		return err
	}
	return store.Put(ctx, path, data)
}
