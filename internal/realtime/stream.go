// Package realtime delivers table change notifications to subscribers.
package realtime

import (
	"errors"
	"strings"
)

// EventType is the kind of row mutation behind an Event.
type EventType string

const (
	Insert EventType = "insert"
	Update EventType = "update"
	Delete EventType = "delete"
)

// ParseEventType accepts upper or lower case names.
func ParseEventType(s string) (EventType, bool) {
	switch t := EventType(strings.ToLower(strings.TrimSpace(s))); t {
	case Insert, Update, Delete:
		return t, true
	}
	return "", false
}

// Event reports that a row of Table changed.
type Event struct {
	Table string    `json:"table"`
	Type  EventType `json:"type"`
}

// Handler is called zero or more times per subscription, in no guaranteed
// order relative to in-flight queries.
type Handler func(Event)

// Subscription identifies one Subscribe call.
type Subscription struct {
	id    uint64
	table string
}

func (s Subscription) Table() string { return s.table }

// Stream is a source of change notifications scoped by table.
type Stream interface {
	Subscribe(table string, h Handler) (Subscription, error)
	Unsubscribe(sub Subscription) error
}

var (
	ErrEmptyTable    = errors.New("realtime: empty table")
	ErrNilHandler    = errors.New("realtime: nil handler")
	ErrNotSubscribed = errors.New("realtime: not subscribed")
	ErrClosed        = errors.New("realtime: stream closed")
)
