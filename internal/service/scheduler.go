package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"dashboard_sync/internal/logger"
	"dashboard_sync/internal/models"
	"dashboard_sync/internal/repository"
)

// Poller runs one tailing cycle for an instance.
type Poller interface {
	PollOnce(ctx context.Context, inst models.ManagedInstance, now time.Time) (PollResult, error)
}

// Collector runs the restart-window GC check for an instance.
type Collector interface {
	MaybeCollect(ctx context.Context, inst models.ManagedInstance, now time.Time) (GCResult, error)
}

// SchedulerService drives poll and GC cycles for every registered instance.
// Instances run in parallel; a slow instance only delays its own next cycle.
type SchedulerService struct {
	instances    repository.InstanceRepo
	poller       Poller
	collector    Collector
	cycleTimeout time.Duration
	log          *logger.Logger

	gate *instanceGate
	wg   sync.WaitGroup
}

func NewSchedulerService(instances repository.InstanceRepo, poller Poller, collector Collector,
	cfg PollConfig, log *logger.Logger) *SchedulerService {
	if log == nil {
		log = logger.Nop()
	}
	return &SchedulerService{
		instances:    instances,
		poller:       poller,
		collector:    collector,
		cycleTimeout: cfg.CycleTimeout,
		log:          log,
		gate:         newInstanceGate(),
	}
}

// Run ticks at the given interval until ctx is canceled, then waits for the
// cycles still running.
func (s *SchedulerService) Run(ctx context.Context, tick time.Duration) {
	t := time.NewTicker(tick)
	defer t.Stop()
	defer s.Wait()

	s.Tick(ctx, time.Now())
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			s.Tick(ctx, now)
		}
	}
}

// Tick starts one cycle per instance that has none in flight and returns how
// many were started.
func (s *SchedulerService) Tick(ctx context.Context, now time.Time) int {
	insts, err := s.instances.List(ctx)
	if err != nil {
		s.log.Errorw("scheduler_list_instances", "err", err)
		return 0
	}
	started := 0
	for _, inst := range insts {
		if !s.gate.TryAcquire(inst.ID) {
			s.log.ForInstance(inst.ID).Debugw("cycle_still_running")
			continue
		}
		started++
		s.wg.Add(1)
		go func(inst models.ManagedInstance) {
			defer s.wg.Done()
			defer s.gate.Release(inst.ID)
			s.cycle(ctx, inst, now)
		}(inst)
	}
	return started
}

// Wait blocks until every started cycle has returned.
func (s *SchedulerService) Wait() { s.wg.Wait() }

// cycle polls then checks GC. GC runs even when the poll failed: the two
// touch independent remote files.
func (s *SchedulerService) cycle(ctx context.Context, inst models.ManagedInstance, now time.Time) {
	log := s.log.ForInstance(inst.ID)
	defer func() {
		if r := recover(); r != nil {
			log.Errorw("cycle_panic", "panic", fmt.Sprint(r))
		}
	}()

	if s.cycleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cycleTimeout)
		defer cancel()
	}

	res, err := s.poller.PollOnce(ctx, inst, now)
	if err != nil {
		log.Warnw("poll_failed", "err", err)
	} else if len(res.Emitted) > 0 {
		log.Debugw("poll_delivered", "log", res.LogPath, "events", len(res.Emitted))
	}

	if s.collector == nil {
		return
	}
	if _, err := s.collector.MaybeCollect(ctx, inst, now); err != nil {
		log.Warnw("gc_failed", "err", err)
	}
}
