package service

import (
	"context"
	"sync"
)

// instanceGate admits one poll/GC cycle per instance at a time. The
// scheduler skips an instance whose slot is taken; operator-triggered GC
// waits for it.
type instanceGate struct {
	mu    sync.Mutex
	slots map[int64]chan struct{}
}

func newInstanceGate() *instanceGate {
	return &instanceGate{slots: map[int64]chan struct{}{}}
}

func (g *instanceGate) slot(id int64) chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.slots[id]
	if !ok {
		s = make(chan struct{}, 1)
		g.slots[id] = s
	}
	return s
}

// TryAcquire takes the slot of id without blocking.
func (g *instanceGate) TryAcquire(id int64) bool {
	select {
	case g.slot(id) <- struct{}{}:
		return true
	default:
		return false
	}
}

// Acquire blocks until the slot of id is free or ctx is done.
func (g *instanceGate) Acquire(ctx context.Context, id int64) error {
	select {
	case g.slot(id) <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *instanceGate) Release(id int64) {
	<-g.slot(id)
}
