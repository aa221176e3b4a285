package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"dashboard_sync/internal/logger"
	"dashboard_sync/internal/models"
	"dashboard_sync/internal/remote"
)

// stubPlacer returns canned placement results per actor.
type stubPlacer struct {
	errs  map[string]error
	calls []string
}

func (s *stubPlacer) Place(_ context.Context, _ models.ManagedInstance, p models.PurchaseRecord) (models.Vec3, error) {
	s.calls = append(s.calls, p.ID)
	if err := s.errs[p.ActorName]; err != nil {
		return models.Vec3{}, err
	}
	return models.Vec3{X: 1, Y: 2, Z: 3}, nil
}

func newPurchaseFixture(t *testing.T) (*PurchaseService, *fakePurchases, *stubPlacer) {
	t.Helper()
	insts := &fakeInstances{}
	if _, err := insts.Create(context.Background(), testInstance()); err != nil {
		t.Fatalf("seed instance: %v", err)
	}
	repo := newFakePurchases()
	placer := &stubPlacer{errs: map[string]error{}}
	svc := NewPurchaseService(insts, repo, placer, logger.Nop())
	svc.now = func() time.Time { return t0 }
	return svc, repo, placer
}

func TestSubmit_ImmediatePlacement(t *testing.T) {
	svc, repo, _ := newPurchaseFixture(t)

	p, err := svc.Submit(context.Background(), 1, PurchaseRequest{ActorName: " Alice ", ItemClass: "AKM"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if p.ID == "" || p.Status != models.PurchaseFulfilled || p.Position == nil || p.ActorName != "Alice" {
		t.Errorf("unexpected record: %+v", p)
	}
	if stored := repo.get(p.ID); stored.Status != models.PurchaseFulfilled {
		t.Errorf("stored status: %q", stored.Status)
	}
}

func TestSubmit_UnknownLocationFailsPurchase(t *testing.T) {
	svc, repo, placer := newPurchaseFixture(t)
	placer.errs["Ghost"] = ErrLocationUnknown

	p, err := svc.Submit(context.Background(), 1, PurchaseRequest{ActorName: "Ghost", ItemClass: "AKM"})
	if !errors.Is(err, ErrLocationUnknown) {
		t.Fatalf("want ErrLocationUnknown, got %v", err)
	}
	if stored := repo.get(p.ID); stored.Status != models.PurchaseFailed || stored.Error == "" {
		t.Errorf("purchase must be FAILED with a reason, got %+v", stored)
	}
}

func TestSubmit_DeferredStaysPending(t *testing.T) {
	svc, repo, placer := newPurchaseFixture(t)

	p, err := svc.Submit(context.Background(), 1, PurchaseRequest{ActorName: "Alice", ItemClass: "Kit", Deferred: true})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if p.Status != models.PurchasePending || len(placer.calls) != 0 {
		t.Errorf("deferred purchase was placed: %+v", p)
	}
	if pending, _ := repo.ListPending(context.Background(), 1); len(pending) != 1 {
		t.Errorf("want 1 pending, got %d", len(pending))
	}
}

func TestSubmit_Validation(t *testing.T) {
	svc, _, _ := newPurchaseFixture(t)
	ctx := context.Background()

	if _, err := svc.Submit(ctx, 1, PurchaseRequest{ActorName: "Alice"}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("missing class: got %v", err)
	}
	if _, err := svc.Submit(ctx, 99, PurchaseRequest{ActorName: "Alice", ItemClass: "AKM"}); !errors.Is(err, ErrInstanceNotFound) {
		t.Errorf("unknown instance: got %v", err)
	}
	if _, err := svc.ListPurchases(ctx, 99); !errors.Is(err, ErrInstanceNotFound) {
		t.Errorf("list unknown instance: got %v", err)
	}
}

func TestFlushPending(t *testing.T) {
	svc, repo, placer := newPurchaseFixture(t)
	ctx := context.Background()
	placer.errs["Ghost"] = ErrLocationUnknown
	placer.errs["Laggy"] = &remote.APIError{StatusCode: 502}

	var ids = map[string]string{}
	for _, actor := range []string{"Alice", "Ghost", "Laggy", "Bob"} {
		p, err := svc.Submit(ctx, 1, PurchaseRequest{ActorName: actor, ItemClass: "Kit", Deferred: true})
		if err != nil {
			t.Fatalf("Submit %s: %v", actor, err)
		}
		ids[actor] = p.ID
	}

	placed, err := svc.FlushPending(ctx, testInstance())
	if placed != 2 {
		t.Errorf("want 2 placed, got %d", placed)
	}
	if !remote.IsTransient(err) {
		t.Errorf("want the transient failure reported, got %v", err)
	}
	if len(placer.calls) != 4 || placer.calls[0] != ids["Alice"] || placer.calls[3] != ids["Bob"] {
		t.Errorf("flush order: %v", placer.calls)
	}

	want := map[string]string{
		"Alice": models.PurchaseFulfilled,
		"Ghost": models.PurchaseFailed,
		"Laggy": models.PurchasePending,
		"Bob":   models.PurchaseFulfilled,
	}
	for actor, status := range want {
		if got := repo.get(ids[actor]).Status; got != status {
			t.Errorf("%s: want %s, got %s", actor, status, got)
		}
	}
}
