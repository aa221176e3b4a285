package sink

import (
	"sync"

	"dashboard_sync/internal/models"
)

const subscriberBuffer = 64

// Subscription receives the live events of one instance.
type Subscription struct {
	C <-chan models.LogEvent

	c          chan models.LogEvent
	instanceID int64
	hub        *Hub
	once       sync.Once
}

// Close detaches the subscription and closes C.
func (s *Subscription) Close() {
	s.once.Do(func() { s.hub.remove(s) })
}

// Hub fans delivered events out to websocket subscribers.
type Hub struct {
	mu      sync.Mutex
	subs    map[int64]map[*Subscription]struct{}
	dropped int
}

func NewHub() *Hub {
	return &Hub{subs: map[int64]map[*Subscription]struct{}{}}
}

// Subscribe registers a subscriber for instanceID.
func (h *Hub) Subscribe(instanceID int64) *Subscription {
	c := make(chan models.LogEvent, subscriberBuffer)
	s := &Subscription{C: c, c: c, instanceID: instanceID, hub: h}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[instanceID] == nil {
		h.subs[instanceID] = map[*Subscription]struct{}{}
	}
	h.subs[instanceID][s] = struct{}{}
	return s
}

// Broadcast never blocks: a subscriber whose buffer is full misses the event.
func (h *Hub) Broadcast(instanceID int64, events []models.LogEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs[instanceID] {
		for _, ev := range events {
			select {
			case s.c <- ev:
			default:
				h.dropped++
			}
		}
	}
}

// Subscribers returns the number of live subscriptions for instanceID.
func (h *Hub) Subscribers(instanceID int64) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[instanceID])
}

// Dropped returns how many events were skipped for slow subscribers.
func (h *Hub) Dropped() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}

func (h *Hub) remove(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set := h.subs[s.instanceID]; set != nil {
		delete(set, s)
		if len(set) == 0 {
			delete(h.subs, s.instanceID)
		}
	}
	close(s.c)
}
