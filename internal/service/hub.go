package service

import (
	"context"
	"sync"

	"extruder_monitor/internal/logger"
)

const subscriberBuffer = 256

type subscriber struct {
	ch chan Envelope
}

// Hub fans envelopes out to live subscribers. A subscriber whose buffer is
// full is dropped and its channel closed; it has to resubscribe.
type Hub struct {
	mu   sync.RWMutex
	subs map[*subscriber]struct{}
	log  *logger.Logger
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{subs: make(map[*subscriber]struct{}), log: log}
}

func (h *Hub) Subscribe() (<-chan Envelope, func()) {
	sub := &subscriber{ch: make(chan Envelope, subscriberBuffer)}

	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return sub.ch, func() { once.Do(func() { h.remove(sub) }) }
}

func (h *Hub) remove(sub *subscriber) {
	h.mu.Lock()
	if _, ok := h.subs[sub]; ok {
		delete(h.subs, sub)
		close(sub.ch)
	}
	h.mu.Unlock()
}

func (h *Hub) Consume(_ context.Context, env Envelope) {
	var slow []*subscriber

	h.mu.RLock()
	for sub := range h.subs {
		select {
		case sub.ch <- env:
		default:
			slow = append(slow, sub)
		}
	}
	h.mu.RUnlock()

	for _, sub := range slow {
		if h.log != nil {
			h.log.Warnw("hub_subscriber_dropped", "type", env.Type)
		}
		h.remove(sub)
	}
}

func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
