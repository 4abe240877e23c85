package realtime

import (
	"sync"
)

// Hub is an in-process Stream. Publish runs handlers on the caller's goroutine.
type Hub struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[string]map[uint64]Handler
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[uint64]Handler)}
}

func (h *Hub) Subscribe(table string, fn Handler) (Subscription, error) {
	if table == "" {
		return Subscription{}, ErrEmptyTable
	}
	if fn == nil {
		return Subscription{}, ErrNilHandler
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	if h.subs[table] == nil {
		h.subs[table] = make(map[uint64]Handler)
	}
	h.subs[table][h.nextID] = fn
	return Subscription{id: h.nextID, table: table}, nil
}

func (h *Hub) Unsubscribe(sub Subscription) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	handlers := h.subs[sub.table]
	if _, ok := handlers[sub.id]; !ok {
		return ErrNotSubscribed
	}
	delete(handlers, sub.id)
	if len(handlers) == 0 {
		delete(h.subs, sub.table)
	}
	return nil
}

// Publish delivers ev to every subscriber of ev.Table and returns how many ran.
func (h *Hub) Publish(ev Event) int {
	h.mu.RLock()
	handlers := make([]Handler, 0, len(h.subs[ev.Table]))
	for _, fn := range h.subs[ev.Table] {
		handlers = append(handlers, fn)
	}
	h.mu.RUnlock()
	for _, fn := range handlers {
		fn(ev)
	}
	return len(handlers)
}
