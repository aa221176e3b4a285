package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"dashboard_sync/internal/logger"
	"dashboard_sync/internal/models"
	"dashboard_sync/internal/queue"
	"dashboard_sync/internal/remote"
	"dashboard_sync/internal/repository"

	"github.com/google/uuid"
)

// PurchaseRequest is a store purchase to place into the world.
type PurchaseRequest struct {
	ActorName string `json:"actor_name"`
	ItemClass string `json:"item_class"`
	// Deferred purchases stay pending until the next GC flush.
	Deferred bool `json:"deferred"`
}

// Placer computes and writes the position of one purchase.
type Placer interface {
	Place(ctx context.Context, inst models.ManagedInstance, p models.PurchaseRecord) (models.Vec3, error)
}

// PurchaseService records purchases and drives them through placement.
type PurchaseService struct {
	instances repository.InstanceRepo
	purchases repository.PurchaseRepo
	placer    Placer
	now       func() time.Time
	log       *logger.Logger
}

func NewPurchaseService(instances repository.InstanceRepo, purchases repository.PurchaseRepo, placer Placer,
	log *logger.Logger) *PurchaseService {
	if log == nil {
		log = logger.Nop()
	}
	return &PurchaseService{
		instances: instances,
		purchases: purchases,
		placer:    placer,
		now:       time.Now,
		log:       log,
	}
}

// Submit records a purchase and, unless deferred, places it right away.
// A placement failure marks the purchase FAILED and is returned to the caller
// together with the record.
func (s *PurchaseService) Submit(ctx context.Context, instanceID int64, req PurchaseRequest) (models.PurchaseRecord, error) {
	req.ActorName = strings.TrimSpace(req.ActorName)
	req.ItemClass = strings.TrimSpace(req.ItemClass)
	if req.ActorName == "" || req.ItemClass == "" {
		return models.PurchaseRecord{}, fmt.Errorf("%w: actor_name and item_class are required", ErrInvalidInput)
	}
	inst, err := s.instance(ctx, instanceID)
	if err != nil {
		return models.PurchaseRecord{}, err
	}

	p := models.PurchaseRecord{
		ID:         uuid.NewString(),
		InstanceID: inst.ID,
		ActorName:  req.ActorName,
		ItemClass:  req.ItemClass,
		Status:     models.PurchasePending,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.purchases.Create(ctx, p); err != nil {
		return models.PurchaseRecord{}, err
	}
	if req.Deferred {
		s.log.ForInstance(inst.ID).Infow("purchase_deferred", "purchase", p.ID, "actor", p.ActorName, "class", p.ItemClass)
		return p, nil
	}

	return s.fulfil(ctx, *inst, p)
}

// ListPurchases returns the purchases of an instance, newest first.
func (s *PurchaseService) ListPurchases(ctx context.Context, instanceID int64) ([]models.PurchaseRecord, error) {
	if _, err := s.instance(ctx, instanceID); err != nil {
		return nil, err
	}
	return s.purchases.List(ctx, instanceID)
}

// FlushPending places every pending purchase of inst in creation order and
// returns how many were fulfilled. Purchases hitting a transient remote error
// stay pending for the next flush; any other failure marks them FAILED.
func (s *PurchaseService) FlushPending(ctx context.Context, inst models.ManagedInstance) (int, error) {
	pending, err := s.purchases.ListPending(ctx, inst.ID)
	if err != nil {
		return 0, err
	}
	var (
		placed int
		errs   []error
	)
	for _, p := range pending {
		if _, err := s.fulfil(ctx, inst, p); err != nil {
			if retryable(err) {
				errs = append(errs, err)
			}
			continue
		}
		placed++
	}
	return placed, errors.Join(errs...)
}

func (s *PurchaseService) fulfil(ctx context.Context, inst models.ManagedInstance, p models.PurchaseRecord) (models.PurchaseRecord, error) {
	log := s.log.ForInstance(inst.ID)

	pos, err := s.placer.Place(ctx, inst, p)
	if err != nil {
		if retryable(err) {
			log.Warnw("purchase_placement_retry_later", "purchase", p.ID, "err", err)
			return p, err
		}
		p.Status = models.PurchaseFailed
		p.Error = err.Error()
		if merr := s.purchases.MarkFailed(ctx, p.ID, p.Error); merr != nil {
			log.Errorw("purchase_mark_failed", "purchase", p.ID, "err", merr)
		}
		log.Warnw("purchase_failed", "purchase", p.ID, "actor", p.ActorName, "err", err)
		return p, err
	}

	at := s.now().UTC()
	if err := s.purchases.MarkFulfilled(ctx, p.ID, pos, at); err != nil {
		// the item is already in the spawner; only bookkeeping is missing
		log.Errorw("purchase_mark_fulfilled", "purchase", p.ID, "err", err)
		return p, err
	}
	p.Status = models.PurchaseFulfilled
	p.Position = &pos
	p.FulfilledAt = &at
	p.Error = ""
	return p, nil
}

// retryable reports errors after which a purchase stays pending.
func retryable(err error) bool {
	if errors.Is(err, ErrLocationUnknown) {
		return false
	}
	return remote.IsTransient(err) || errors.Is(err, queue.ErrClosed) || errors.Is(err, context.Canceled)
}

func (s *PurchaseService) instance(ctx context.Context, id int64) (*models.ManagedInstance, error) {
	inst, err := s.instances.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if inst == nil {
		return nil, fmt.Errorf("%w: %d", ErrInstanceNotFound, id)
	}
	return inst, nil
}
