package service

import (
	"context"
	"fmt"
	"time"

	"dashboard_sync/internal/logger"
	"dashboard_sync/internal/models"
	"dashboard_sync/internal/queue"
	"dashboard_sync/internal/remote"
	"dashboard_sync/internal/repository"
)

// PendingFlusher places every pending purchase of an instance.
type PendingFlusher interface {
	FlushPending(ctx context.Context, inst models.ManagedInstance) (int, error)
}

// GCResult summarizes one MaybeCollect call.
type GCResult struct {
	Ran      bool      `json:"ran"`
	Boundary time.Time `json:"boundary,omitempty"`
	Flushed  int       `json:"flushed"`
	Removed  int       `json:"removed"`
	Kept     int       `json:"kept"`
}

// GCService prunes spawned items from the spawner document shortly after
// every scheduled restart of an instance.
type GCService struct {
	state   *StateStore
	cursors repository.CursorRepo
	queue   *queue.Keyed
	stores  remote.Factory
	flusher PendingFlusher
	cfg     GCConfig
	log     *logger.Logger
}

func NewGCService(state *StateStore, cursors repository.CursorRepo, q *queue.Keyed, stores remote.Factory,
	flusher PendingFlusher, cfg GCConfig, log *logger.Logger) *GCService {
	if log == nil {
		log = logger.Nop()
	}
	return &GCService{
		state:   state,
		cursors: cursors,
		queue:   q,
		stores:  stores,
		flusher: flusher,
		cfg:     cfg,
		log:     log,
	}
}

// MaybeCollect prunes inst's spawner if now lies in a GC window and no GC ran
// within the guard interval. Outside a window it returns a zero result.
func (s *GCService) MaybeCollect(ctx context.Context, inst models.ManagedInstance, now time.Time) (GCResult, error) {
	boundary, ok := activeBoundary(inst.RestartHours, now, s.cfg)
	if !ok {
		return GCResult{}, nil
	}
	cur := s.state.Get(inst.ID)
	if !cur.LastGCAt.IsZero() && now.Sub(cur.LastGCAt) < s.cfg.Guard {
		return GCResult{}, nil
	}
	return s.collect(ctx, inst, boundary, now)
}

// Collect runs a GC against an explicit boundary, bypassing the window and
// guard checks.
func (s *GCService) Collect(ctx context.Context, inst models.ManagedInstance, boundary, now time.Time) (GCResult, error) {
	return s.collect(ctx, inst, boundary, now)
}

func (s *GCService) collect(ctx context.Context, inst models.ManagedInstance, boundary, now time.Time) (GCResult, error) {
	log := s.log.ForInstance(inst.ID)
	res := GCResult{Ran: true, Boundary: boundary}

	if s.flusher != nil {
		n, err := s.flusher.FlushPending(ctx, inst)
		res.Flushed = n
		if err != nil {
			log.Warnw("gc_flush_incomplete", "err", err, "flushed", n)
		}
	}

	type pruned struct{ removed, kept int }
	out, err := queue.Do(ctx, s.queue, queueKey(inst.ID), func(ctx context.Context) (pruned, error) {
		removed, kept, err := s.prune(ctx, inst, boundary)
		return pruned{removed, kept}, err
	})
	if err != nil {
		return res, fmt.Errorf("prune spawner: %w", err)
	}
	res.Removed, res.Kept = out.removed, out.kept

	next := s.state.Get(inst.ID)
	next.LastGCAt = now.UTC()
	if err := s.cursors.Save(ctx, next); err != nil {
		return res, err
	}
	s.state.Set(next)

	log.Infow("gc_completed", "boundary", boundary, "flushed", res.Flushed,
		"removed", res.Removed, "kept", res.Kept)
	return res, nil
}

// prune drops items created at or before boundary. Tables and foreign objects
// are always kept. It must only run on the write queue.
func (s *GCService) prune(ctx context.Context, inst models.ManagedInstance, boundary time.Time) (removed, kept int, err error) {
	store := s.stores(credentialsOf(inst))
	doc, emptyReason, err := loadSpawnResource(ctx, store, inst.SpawnerPath)
	if err != nil {
		return 0, 0, fmt.Errorf("download spawner %q: %w", inst.SpawnerPath, err)
	}
	if emptyReason != nil {
		s.log.ForInstance(inst.ID).Infow("gc_nothing_to_prune", "path", inst.SpawnerPath, "reason", emptyReason)
		return 0, 0, nil
	}

	cutoff := boundary.Unix()
	objs := doc.Objects[:0]
	for _, o := range doc.Objects {
		m, ok := o.Meta()
		if ok && m.Kind == models.MetaKindItem {
			if m.CreatedAt <= cutoff {
				removed++
				continue
			}
			kept++
		}
		objs = append(objs, o)
	}
	doc.Objects = objs

	if removed == 0 {
		return 0, kept, nil
	}
	if err := storeSpawnResource(ctx, store, inst.SpawnerPath, doc); err != nil {
		return 0, 0, fmt.Errorf("upload spawner %q: %w", inst.SpawnerPath, err)
	}
	return removed, kept, nil
}

// activeBoundary returns the restart moment whose GC window contains now.
// Yesterday's restarts are considered too so a window may span midnight.
func activeBoundary(hours []int, now time.Time, cfg GCConfig) (time.Time, bool) {
	now = now.UTC()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	for _, d := range []time.Time{day, day.AddDate(0, 0, -1)} {
		for _, h := range hours {
			if h < 0 || h > 23 {
				continue
			}
			b := d.Add(time.Duration(h) * time.Hour)
			if !now.Before(b.Add(cfg.WindowStart)) && !now.After(b.Add(cfg.WindowEnd)) {
				return b, true
			}
		}
	}
	return time.Time{}, false
}

// lastBoundary returns the most recent restart moment at or before now.
func lastBoundary(hours []int, now time.Time) (time.Time, bool) {
	now = now.UTC()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	var best time.Time
	for _, d := range []time.Time{day, day.AddDate(0, 0, -1)} {
		for _, h := range hours {
			if h < 0 || h > 23 {
				continue
			}
			b := d.Add(time.Duration(h) * time.Hour)
			if !b.After(now) && b.After(best) {
				best = b
			}
		}
	}
	return best, !best.IsZero()
}
