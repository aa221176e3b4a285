package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"dashboard_sync/internal/logger"
	"dashboard_sync/internal/models"
	"dashboard_sync/internal/queue"
	"dashboard_sync/internal/remote"
	"dashboard_sync/internal/repository"
)

func newWiredService(t *testing.T) (*Service, *remote.MemoryStore, *fakeLocations) {
	t.Helper()
	q := queue.New(5 * time.Second)
	t.Cleanup(q.Close)
	store := remote.NewMemoryStore()
	locs := newFakeLocations()
	repos := &repository.Repository{
		Instances: &fakeInstances{},
		Cursors:   newFakeCursors(),
		Locations: locs,
		Purchases: newFakePurchases(),
		Auth:      &mockAuthRepo{},
	}
	cfg := DefaultConfig()
	cfg.Auth.SigningKey = "k"
	svc := NewService(repos, Deps{
		State:  NewStateStore(),
		Queue:  q,
		Stores: storeFactory(store),
		Sink:   &recordingSink{},
		Log:    logger.Nop(),
		Config: cfg,
	})
	return svc, store, locs
}

func TestService_PurchaseThenCollect(t *testing.T) {
	svc, store, locs := newWiredService(t)
	ctx := context.Background()

	in := testInstance()
	in.ID = 0
	inst, err := svc.Register(ctx, in)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	locs.set(inst.ID, "Alice", models.Vec3{X: 10, Y: 1, Z: 10})

	p, err := svc.Submit(ctx, inst.ID, PurchaseRequest{ActorName: "Alice", ItemClass: "AKM"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if p.Status != models.PurchaseFulfilled {
		t.Fatalf("status: %q", p.Status)
	}
	if _, ok := store.Snapshot(inst.SpawnerPath); !ok {
		t.Fatalf("spawner not written")
	}

	list, err := svc.ListPurchases(ctx, inst.ID)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListPurchases: %v, %v", list, err)
	}
	seen, err := svc.ListLocations(ctx, inst.ID)
	if err != nil || len(seen) != 1 {
		t.Fatalf("ListLocations: %v, %v", seen, err)
	}

	// the item was created now, after the last restart, so it survives
	res, err := svc.CollectNow(ctx, inst.ID)
	if err != nil {
		t.Fatalf("CollectNow: %v", err)
	}
	if !res.Ran || res.Removed != 0 || res.Kept != 1 {
		t.Errorf("CollectNow: %+v", res)
	}
}

func TestService_UnknownInstance(t *testing.T) {
	svc, _, _ := newWiredService(t)
	ctx := context.Background()
	if _, err := svc.RegisterSpawner(ctx, 9); !errors.Is(err, ErrInstanceNotFound) {
		t.Errorf("RegisterSpawner: %v", err)
	}
	if _, err := svc.CollectNow(ctx, 9); !errors.Is(err, ErrInstanceNotFound) {
		t.Errorf("CollectNow: %v", err)
	}
	if _, err := svc.ListLocations(ctx, 9); !errors.Is(err, ErrInstanceNotFound) {
		t.Errorf("ListLocations: %v", err)
	}
}
