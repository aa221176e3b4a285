package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"time"

	"dashboard_sync/internal/models"
	"dashboard_sync/internal/remote"
)

// fakeCursors is an in-memory repository.CursorRepo.
type fakeCursors struct {
	mu      sync.Mutex
	saved   map[int64]models.InstanceCursor
	saveErr error
}

func newFakeCursors() *fakeCursors {
	return &fakeCursors{saved: map[int64]models.InstanceCursor{}}
}

func (f *fakeCursors) Save(_ context.Context, c models.InstanceCursor) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved[c.InstanceID] = c
	return nil
}

func (f *fakeCursors) LoadAll(context.Context) ([]models.InstanceCursor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.InstanceCursor, 0, len(f.saved))
	for _, c := range f.saved {
		out = append(out, c)
	}
	return out, nil
}

// fakeLocations is an in-memory repository.LocationRepo.
type fakeLocations struct {
	mu   sync.Mutex
	locs map[int64]map[string]models.PlayerLocation
}

func newFakeLocations() *fakeLocations {
	return &fakeLocations{locs: map[int64]map[string]models.PlayerLocation{}}
}

func (f *fakeLocations) set(instanceID int64, actor string, p models.Vec3) {
	_ = f.Upsert(context.Background(), []models.PlayerLocation{{InstanceID: instanceID, Actor: actor, Position: p}})
}

func (f *fakeLocations) Upsert(_ context.Context, locs []models.PlayerLocation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range locs {
		if f.locs[l.InstanceID] == nil {
			f.locs[l.InstanceID] = map[string]models.PlayerLocation{}
		}
		f.locs[l.InstanceID][l.Actor] = l
	}
	return nil
}

func (f *fakeLocations) Get(_ context.Context, instanceID int64, actor string) (*models.PlayerLocation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.locs[instanceID][actor]
	if !ok {
		return nil, nil
	}
	return &l, nil
}

func (f *fakeLocations) List(_ context.Context, instanceID int64) ([]models.PlayerLocation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.PlayerLocation
	for _, l := range f.locs[instanceID] {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Actor < out[j].Actor })
	return out, nil
}

// fakePurchases is an in-memory repository.PurchaseRepo.
type fakePurchases struct {
	mu    sync.Mutex
	order []string
	byID  map[string]models.PurchaseRecord
}

func newFakePurchases() *fakePurchases {
	return &fakePurchases{byID: map[string]models.PurchaseRecord{}}
}

func (f *fakePurchases) Create(_ context.Context, p models.PurchaseRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.order = append(f.order, p.ID)
	f.byID[p.ID] = p
	return nil
}

func (f *fakePurchases) MarkFulfilled(_ context.Context, id string, pos models.Vec3, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[id]
	if !ok {
		return sql.ErrNoRows
	}
	p.Status = models.PurchaseFulfilled
	p.Position = &pos
	p.FulfilledAt = &at
	f.byID[id] = p
	return nil
}

func (f *fakePurchases) MarkFailed(_ context.Context, id, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[id]
	if !ok {
		return sql.ErrNoRows
	}
	p.Status = models.PurchaseFailed
	p.Error = reason
	f.byID[id] = p
	return nil
}

func (f *fakePurchases) ListPending(_ context.Context, instanceID int64) ([]models.PurchaseRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.PurchaseRecord
	for _, id := range f.order {
		if p := f.byID[id]; p.InstanceID == instanceID && p.Status == models.PurchasePending {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePurchases) List(_ context.Context, instanceID int64) ([]models.PurchaseRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.PurchaseRecord
	for i := len(f.order) - 1; i >= 0; i-- {
		if p := f.byID[f.order[i]]; p.InstanceID == instanceID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePurchases) get(id string) models.PurchaseRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byID[id]
}

// fakeInstances is an in-memory repository.InstanceRepo.
type fakeInstances struct {
	mu      sync.Mutex
	items   []models.ManagedInstance
	listErr error
}

func (f *fakeInstances) Create(_ context.Context, inst models.ManagedInstance) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inst.ID = int64(len(f.items) + 1)
	f.items = append(f.items, inst)
	return inst.ID, nil
}

func (f *fakeInstances) Get(_ context.Context, id int64) (*models.ManagedInstance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, inst := range f.items {
		if inst.ID == id {
			return &inst, nil
		}
	}
	return nil, nil
}

func (f *fakeInstances) List(context.Context) ([]models.ManagedInstance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]models.ManagedInstance(nil), f.items...), nil
}

// recordingSink collects delivered events.
type recordingSink struct {
	mu     sync.Mutex
	events []models.LogEvent
	calls  int
}

func (r *recordingSink) Deliver(_ context.Context, _ models.ManagedInstance, events []models.LogEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.events = append(r.events, events...)
}

func (r *recordingSink) delivered() []models.LogEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.LogEvent(nil), r.events...)
}

// storeFactory hands out one shared MemoryStore regardless of credentials.
func storeFactory(m *remote.MemoryStore) remote.Factory {
	return func(remote.Credentials) remote.FileStore { return m }
}

var errBoom = errors.New("boom")

func testInstance() models.ManagedInstance {
	return models.ManagedInstance{
		ID:                 1,
		Name:               "chernarus-1",
		ServiceID:          "svc-1",
		APIToken:           "token",
		MapName:            "chernarusplus",
		RestartHours:       []int{3, 9, 15, 21},
		Platform:           models.PlatformPC,
		LogDir:             "/games/dayz/config",
		SpawnerPath:        "/games/dayz/mpmissions/custom/spawner.json",
		GameplayConfigPath: "/games/dayz/mpmissions/cfggameplay.json",
	}
}
