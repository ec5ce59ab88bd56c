package comments

import (
	"log/slog"
	"sync"
)

// Hub fans thread events out to subscribers keyed by classification.
// Publishing never blocks: a subscriber whose buffer is full misses the event.
type Hub struct {
	mu     sync.RWMutex
	closed bool
	subs   map[string]map[*Subscription]struct{}
	buffer int
	logger *slog.Logger
}

// Subscription receives the events of one thread until closed.
type Subscription struct {
	hub    *Hub
	key    string
	events chan Event
	once   sync.Once
}

// NewHub creates a Hub whose subscriptions buffer up to buffer events.
func NewHub(buffer int, logger *slog.Logger) *Hub {
	if buffer < 1 {
		buffer = 1
	}
	return &Hub{
		subs:   make(map[string]map[*Subscription]struct{}),
		buffer: buffer,
		logger: logger.With("system", "comment-hub"),
	}
}

// Subscribe registers a subscription for classificationID.
func (h *Hub) Subscribe(classificationID string) *Subscription {
	s := &Subscription{
		hub:    h,
		key:    classificationID,
		events: make(chan Event, h.buffer),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		s.Close()
		return s
	}
	defer h.mu.Unlock()

	set, ok := h.subs[classificationID]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[classificationID] = set
	}
	set[s] = struct{}{}
	return s
}

// Publish delivers e to every subscriber of its classification.
func (h *Hub) Publish(e Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for s := range h.subs[e.Comment.ClassificationID] {
		select {
		case s.events <- e:
		default:
			h.logger.Warn("subscriber lagging, event dropped",
				"classification_id", s.key,
				"type", e.Type,
				"comment_id", e.Comment.ID,
			)
		}
	}
}

// Close ends every subscription. Later subscriptions are returned closed.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	var open []*Subscription
	for _, set := range h.subs {
		for s := range set {
			open = append(open, s)
		}
	}
	h.mu.Unlock()

	for _, s := range open {
		s.Close()
	}
	h.logger.Info("comment hub closed", "subscriptions", len(open))
}

// Subscribers returns the number of open subscriptions for classificationID.
func (h *Hub) Subscribers(classificationID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[classificationID])
}

// Events returns the channel of thread changes. It is closed by Close.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Close unregisters the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		h := s.hub
		h.mu.Lock()
		defer h.mu.Unlock()

		if set, ok := h.subs[s.key]; ok {
			delete(set, s)
			if len(set) == 0 {
				delete(h.subs, s.key)
			}
		}
		close(s.events)
	})
}
