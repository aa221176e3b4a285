package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"dashboard_sync/internal/logger"
	"dashboard_sync/internal/models"
	"dashboard_sync/internal/queue"
	"dashboard_sync/internal/remote"
	"dashboard_sync/internal/repository"
)

// PlacementService appends purchased items to an instance's spawner document,
// clustering them on a table near the buyer.
type PlacementService struct {
	queue     *queue.Keyed
	locations repository.LocationRepo
	stores    remote.Factory
	cfg       PlacementConfig
	now       func() time.Time
	log       *logger.Logger
}

func NewPlacementService(q *queue.Keyed, locations repository.LocationRepo, stores remote.Factory,
	cfg PlacementConfig, log *logger.Logger) *PlacementService {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.ItemsPerRow <= 0 {
		cfg.ItemsPerRow = 1
	}
	return &PlacementService{
		queue:     q,
		locations: locations,
		stores:    stores,
		cfg:       cfg,
		now:       time.Now,
		log:       log,
	}
}

// queueKey is the serialization key of everything touching one instance's
// remote spawn state.
func queueKey(instanceID int64) string {
	return "instance:" + strconv.FormatInt(instanceID, 10)
}

// Place runs the placement for p as one operation on inst's write queue and
// returns the item position.
func (s *PlacementService) Place(ctx context.Context, inst models.ManagedInstance, p models.PurchaseRecord) (models.Vec3, error) {
	return queue.Do(ctx, s.queue, queueKey(inst.ID), func(ctx context.Context) (models.Vec3, error) {
		return s.place(ctx, inst, p)
	})
}

// place is the read-modify-write body. It must only run on the write queue.
func (s *PlacementService) place(ctx context.Context, inst models.ManagedInstance, p models.PurchaseRecord) (models.Vec3, error) {
	log := s.log.ForInstance(inst.ID)

	loc, err := s.locations.Get(ctx, inst.ID, p.ActorName)
	if err != nil {
		return models.Vec3{}, fmt.Errorf("lookup location of %q: %w", p.ActorName, err)
	}
	if loc == nil {
		return models.Vec3{}, fmt.Errorf("%w: %q", ErrLocationUnknown, p.ActorName)
	}

	store := s.stores(credentialsOf(inst))
	res, emptyReason, err := loadSpawnResource(ctx, store, inst.SpawnerPath)
	if err != nil {
		return models.Vec3{}, fmt.Errorf("download spawner %q: %w", inst.SpawnerPath, err)
	}
	if emptyReason != nil {
		log.Warnw("spawner_starting_empty", "path", inst.SpawnerPath, "reason", emptyReason)
	}

	if pos, ok := placedItem(res, p.ID); ok {
		log.Infow("item_already_placed", "purchase", p.ID, "pos", pos)
		return pos, nil
	}

	tableIdx := s.findTable(res, loc.Position)
	if tableIdx < 0 {
		res.Objects = append(res.Objects, models.NewSpawnObject(s.cfg.TableClass, loc.Position,
			models.SpawnMeta{Kind: models.MetaKindTable, Owner: p.ActorName}))
		tableIdx = len(res.Objects) - 1
		log.Infow("table_created", "actor", p.ActorName, "pos", loc.Position)
	}

	table := &res.Objects[tableIdx]
	meta, _ := table.Meta()
	pos := s.slotPosition(table.Position(), meta.ItemCount, p.ItemClass)

	res.Objects = append(res.Objects, models.NewSpawnObject(p.ItemClass, pos, models.SpawnMeta{
		Kind:       models.MetaKindItem,
		Owner:      p.ActorName,
		CreatedAt:  s.now().Unix(),
		PurchaseID: p.ID,
	}))
	// res.Objects may have been reallocated by append
	table = &res.Objects[tableIdx]
	meta.ItemCount++
	table.SetMeta(meta)

	if err := storeSpawnResource(ctx, store, inst.SpawnerPath, res); err != nil {
		return models.Vec3{}, fmt.Errorf("upload spawner %q: %w", inst.SpawnerPath, err)
	}
	log.Infow("item_placed", "purchase", p.ID, "class", p.ItemClass, "pos", pos, "slot", meta.ItemCount-1)
	return pos, nil
}

// placedItem returns the position of the item already written for purchaseID.
func placedItem(res models.SpawnResource, purchaseID string) (models.Vec3, bool) {
	if purchaseID == "" {
		return models.Vec3{}, false
	}
	for _, o := range res.Objects {
		m, ok := o.Meta()
		if ok && m.Kind == models.MetaKindItem && m.PurchaseID == purchaseID {
			return o.Position(), true
		}
	}
	return models.Vec3{}, false
}

// findTable returns the index of the first table strictly within Radius of
// pos on the horizontal plane, or -1. Any table in range serves equally, so
// the first one found is used rather than the nearest.
func (s *PlacementService) findTable(res models.SpawnResource, pos models.Vec3) int {
	for i, o := range res.Objects {
		m, ok := o.Meta()
		if !ok || m.Kind != models.MetaKindTable {
			continue
		}
		if o.Position().PlanarDistance(pos) < s.cfg.Radius {
			return i
		}
	}
	return -1
}

// slotPosition maps the n-th item of a table onto its grid.
func (s *PlacementService) slotPosition(table models.Vec3, n int, class string) models.Vec3 {
	row := n / s.cfg.ItemsPerRow
	col := n % s.cfg.ItemsPerRow
	p := table.Add(s.cfg.BaseOffset)
	p.X += float64(col) * s.cfg.ColumnSpacing
	p.Z += float64(row) * s.cfg.RowSpacing
	p.Y += s.cfg.YOffset(class)
	return p
}
