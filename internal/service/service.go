package service

import (
	"context"
	"time"

	"dashboard_sync/internal/logger"
	"dashboard_sync/internal/models"
	"dashboard_sync/internal/queue"
	"dashboard_sync/internal/remote"
	"dashboard_sync/internal/repository"
)

type Authorization interface {
	SignUp(ctx context.Context, username, password string) (int64, error)
	GenerateToken(ctx context.Context, username, password string) (string, error)
	ParseToken(accessToken string) (int64, error)
}

// EventSink receives freshly tailed events of one instance, in log order.
// Delivery is fire-and-forget: implementations log their own failures.
type EventSink interface {
	Deliver(ctx context.Context, inst models.ManagedInstance, events []models.LogEvent)
}

// Instances manages registered game-server instances.
type Instances interface {
	Register(ctx context.Context, inst models.ManagedInstance) (models.ManagedInstance, error)
	List(ctx context.Context) ([]models.ManagedInstance, error)
	Get(ctx context.Context, id int64) (models.ManagedInstance, error)
}

// Purchases accepts store purchases and reports their placement.
type Purchases interface {
	Submit(ctx context.Context, instanceID int64, req PurchaseRequest) (models.PurchaseRecord, error)
	ListPurchases(ctx context.Context, instanceID int64) ([]models.PurchaseRecord, error)
}

// Locations exposes the last known player positions.
type Locations interface {
	ListLocations(ctx context.Context, instanceID int64) ([]models.PlayerLocation, error)
}

// Maintenance exposes operator-triggered spawn resource operations.
type Maintenance interface {
	RegisterSpawner(ctx context.Context, instanceID int64) (RegistrationResult, error)
	CollectNow(ctx context.Context, instanceID int64) (GCResult, error)
}

// Scheduler runs the background poll and GC loop.
// Stop via context cancellation in main() for graceful shutdown.
type Scheduler interface {
	Run(ctx context.Context, tick time.Duration)
}

// Service aggregates the sub-services behind the HTTP API and the scheduler.
type Service struct {
	Instances
	Purchases
	Locations
	Maintenance
	Scheduler
	Authorization
}

// Deps are the collaborators that do not come from the repository layer.
type Deps struct {
	State  *StateStore
	Queue  *queue.Keyed
	Stores remote.Factory
	Sink   EventSink
	Log    *logger.Logger
	Config Config
}

// NewService wires repositories and remote access into concrete services.
func NewService(repos *repository.Repository, deps Deps) *Service {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	state := deps.State
	if state == nil {
		state = NewStateStore()
	}
	cfg := deps.Config

	instances := NewInstanceService(repos.Instances, log)
	placement := NewPlacementService(deps.Queue, repos.Locations, deps.Stores, cfg.Placement, log)
	purchases := NewPurchaseService(repos.Instances, repos.Purchases, placement, log)
	poll := NewPollService(state, repos.Cursors, repos.Locations, deps.Stores, deps.Sink, cfg.Poll, log)
	gc := NewGCService(state, repos.Cursors, deps.Queue, deps.Stores, purchases, cfg.GC, log)
	registration := NewRegistrationService(deps.Queue, deps.Stores, log)
	scheduler := NewSchedulerService(repos.Instances, poll, gc, cfg.Poll, log)

	return &Service{
		Instances:     instances,
		Purchases:     purchases,
		Locations:     &locationService{instances: instances, repo: repos.Locations},
		Maintenance:   &maintenanceService{instances: instances, registration: registration, gc: gc, gate: scheduler.gate},
		Scheduler:     scheduler,
		Authorization: NewAuthService(repos.Auth, cfg.Auth),
	}
}

type locationService struct {
	instances *InstanceService
	repo      repository.LocationRepo
}

func (s *locationService) ListLocations(ctx context.Context, instanceID int64) ([]models.PlayerLocation, error) {
	if _, err := s.instances.Get(ctx, instanceID); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, instanceID)
}

type maintenanceService struct {
	instances    *InstanceService
	registration *RegistrationService
	gc           *GCService
	gate         *instanceGate
	now          func() time.Time
}

func (s *maintenanceService) RegisterSpawner(ctx context.Context, instanceID int64) (RegistrationResult, error) {
	inst, err := s.instances.Get(ctx, instanceID)
	if err != nil {
		return RegistrationResult{}, err
	}
	return s.registration.Register(ctx, inst)
}

// CollectNow prunes against the most recent restart boundary, ignoring the
// window and the guard. It waits for a running scheduler cycle of the
// instance to finish first.
func (s *maintenanceService) CollectNow(ctx context.Context, instanceID int64) (GCResult, error) {
	inst, err := s.instances.Get(ctx, instanceID)
	if err != nil {
		return GCResult{}, err
	}
	if s.gate != nil {
		if err := s.gate.Acquire(ctx, inst.ID); err != nil {
			return GCResult{}, err
		}
		defer s.gate.Release(inst.ID)
	}
	now := time.Now()
	if s.now != nil {
		now = s.now()
	}
	boundary, ok := lastBoundary(inst.RestartHours, now)
	if !ok {
		return GCResult{}, nil
	}
	return s.gc.Collect(ctx, inst, boundary, now)
}
