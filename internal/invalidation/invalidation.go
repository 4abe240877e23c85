// Package invalidation maps realtime table changes onto cache keys.
package invalidation

import (
	"sort"
	"strings"
	"sync"

	"github.com/leonardcser/electives-mcp/internal/logger"
	"github.com/leonardcser/electives-mcp/internal/realtime"
)

// Table maps a watched table name to the cache key patterns it owns.
// A pattern ending in "*" matches every key with that prefix; any other
// pattern is an exact key.
type Table map[string][]string

// Tables returns the watched table names in sorted order.
func (t Table) Tables() []string {
	out := make([]string, 0, len(t))
	for name := range t {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Invalidator is the subset of the cache store used on change events.
type Invalidator interface {
	Invalidate(key string)
	InvalidatePrefix(prefix string)
}

// Listener invalidates cache keys when a mapped table changes.
type Listener struct {
	table Table
	store Invalidator

	mu   sync.Mutex
	subs []realtime.Subscription
	from realtime.Stream
}

func NewListener(table Table, store Invalidator) *Listener {
	return &Listener{table: table, store: store}
}

// Handle invalidates every pattern mapped to ev.Table. Unmapped tables are ignored.
func (l *Listener) Handle(ev realtime.Event) {
	patterns, ok := l.table[ev.Table]
	if !ok {
		return
	}
	for _, p := range patterns {
		if prefix, found := strings.CutSuffix(p, "*"); found {
			l.store.InvalidatePrefix(prefix)
			continue
		}
		l.store.Invalidate(p)
	}
	logger.Infof("invalidated %d pattern(s) on %s %s", len(patterns), ev.Type, ev.Table)
}

// Start subscribes to every mapped table on stream. On error, subscriptions
// made so far are released.
func (l *Listener) Start(stream realtime.Stream) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.from != nil {
		return nil
	}
	for _, name := range l.table.Tables() {
		sub, err := stream.Subscribe(name, l.Handle)
		if err != nil {
			for _, s := range l.subs {
				_ = stream.Unsubscribe(s)
			}
			l.subs = nil
			return err
		}
		l.subs = append(l.subs, sub)
	}
	l.from = stream
	return nil
}

// Stop releases every subscription made by Start.
func (l *Listener) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.from == nil {
		return
	}
	for _, s := range l.subs {
		if err := l.from.Unsubscribe(s); err != nil {
			logger.Warnf("unsubscribe %s: %v", s.Table(), err)
		}
	}
	l.subs = nil
	l.from = nil
}
