package sink

import (
	"context"
	"sync"
	"time"

	"dashboard_sync/internal/logger"
	"dashboard_sync/internal/models"
)

// Router delivers events to the instance's configured channel per category
// and to live subscribers.
type Router struct {
	poster  Poster
	hub     *Hub
	timeout time.Duration
	log     *logger.Logger
	wg      sync.WaitGroup

	mu sync.Mutex
	// tails holds, per instance, a channel closed when its latest delivery finishes.
	tails map[int64]chan struct{}
}

// NewRouter accepts a nil poster (no chat output) or a nil hub.
func NewRouter(poster Poster, hub *Hub, timeout time.Duration, log *logger.Logger) *Router {
	if log == nil {
		log = logger.Nop()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Router{poster: poster, hub: hub, timeout: timeout, log: log, tails: map[int64]chan struct{}{}}
}

// ChannelFor returns the channel id configured for ev's category, or "".
func ChannelFor(ch models.Channels, kind models.EventKind) string {
	switch kind {
	case models.KindKill, models.KindHit:
		return ch.Combat
	case models.KindConnect, models.KindDisconnect:
		return ch.Session
	case models.KindSuicide:
		return ch.Suicide
	case models.KindBuild:
		return ch.Build
	}
	return ""
}

// Deliver returns immediately. Chat posts go out on a background goroutine in
// log order: a delivery for an instance starts only after the previous one for
// that instance has finished. Failures are only logged.
func (r *Router) Deliver(ctx context.Context, inst models.ManagedInstance, events []models.LogEvent) {
	if len(events) == 0 {
		return
	}
	if r.hub != nil {
		r.hub.Broadcast(inst.ID, events)
	}
	if r.poster == nil {
		return
	}

	r.mu.Lock()
	prev := r.tails[inst.ID]
	done := make(chan struct{})
	r.tails[inst.ID] = done
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.finish(inst.ID, done)
		if prev != nil {
			<-prev
		}
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()

		log := r.log.ForInstance(inst.ID)
		for _, ev := range events {
			channel := ChannelFor(inst.Channels, ev.Kind)
			if channel == "" {
				continue
			}
			if err := r.poster.Post(ctx, channel, ev); err != nil {
				log.Warnw("event_post_failed", "err", err, "channel", channel, "kind", ev.Kind)
			}
		}
	}()
}

func (r *Router) finish(instanceID int64, done chan struct{}) {
	close(done)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tails[instanceID] == done {
		delete(r.tails, instanceID)
	}
}

// Wait blocks until every background post has finished.
func (r *Router) Wait() { r.wg.Wait() }
