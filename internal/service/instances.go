package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"dashboard_sync/internal/logger"
	"dashboard_sync/internal/models"
	"dashboard_sync/internal/repository"
)

// InstanceService registers and looks up managed instances.
type InstanceService struct {
	repo repository.InstanceRepo
	log  *logger.Logger
}

func NewInstanceService(repo repository.InstanceRepo, log *logger.Logger) *InstanceService {
	if log == nil {
		log = logger.Nop()
	}
	return &InstanceService{repo: repo, log: log}
}

// Register validates inst and stores it. The returned instance carries its id.
func (s *InstanceService) Register(ctx context.Context, inst models.ManagedInstance) (models.ManagedInstance, error) {
	if err := validateInstance(&inst); err != nil {
		return models.ManagedInstance{}, err
	}
	if inst.CreatedAt.IsZero() {
		inst.CreatedAt = time.Now().UTC()
	}
	id, err := s.repo.Create(ctx, inst)
	if err != nil {
		return models.ManagedInstance{}, err
	}
	inst.ID = id
	s.log.ForInstance(id).Infow("instance_registered", "name", inst.Name, "map", inst.MapName,
		"restart_hours", inst.RestartHours)
	return inst, nil
}

func (s *InstanceService) List(ctx context.Context) ([]models.ManagedInstance, error) {
	return s.repo.List(ctx)
}

// Get returns ErrInstanceNotFound for an unknown id.
func (s *InstanceService) Get(ctx context.Context, id int64) (models.ManagedInstance, error) {
	inst, err := s.repo.Get(ctx, id)
	if err != nil {
		return models.ManagedInstance{}, err
	}
	if inst == nil {
		return models.ManagedInstance{}, fmt.Errorf("%w: %d", ErrInstanceNotFound, id)
	}
	return *inst, nil
}

func validateInstance(inst *models.ManagedInstance) error {
	inst.Name = strings.TrimSpace(inst.Name)
	inst.ServiceID = strings.TrimSpace(inst.ServiceID)
	inst.Platform = strings.ToLower(strings.TrimSpace(inst.Platform))

	var missing []string
	for field, v := range map[string]string{
		"name":         inst.Name,
		"service_id":   inst.ServiceID,
		"api_token":    inst.APIToken,
		"log_dir":      inst.LogDir,
		"spawner_path": inst.SpawnerPath,
	} {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("%w: missing %s", ErrInvalidInput, strings.Join(missing, ", "))
	}

	switch inst.Platform {
	case "":
		inst.Platform = models.PlatformPC
	case models.PlatformPC, models.PlatformXbox, models.PlatformPlayStation:
	default:
		return fmt.Errorf("%w: unknown platform %q", ErrInvalidInput, inst.Platform)
	}

	for _, h := range inst.RestartHours {
		if h < 0 || h > 23 {
			return fmt.Errorf("%w: restart hour %d out of range 0..23", ErrInvalidInput, h)
		}
	}
	return nil
}
