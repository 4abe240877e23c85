package realtime

import (
	"errors"
	"testing"
)

func TestHubDeliversByTable(t *testing.T) {
	h := NewHub()
	var courses, degrees []Event
	if _, err := h.Subscribe("courses", func(e Event) { courses = append(courses, e) }); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if _, err := h.Subscribe("degrees", func(e Event) { degrees = append(degrees, e) }); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if n := h.Publish(Event{Table: "courses", Type: Update}); n != 1 {
		t.Errorf("delivered to %d handlers, want 1", n)
	}
	if n := h.Publish(Event{Table: "groups", Type: Insert}); n != 0 {
		t.Errorf("unwatched table delivered to %d handlers", n)
	}
	if len(courses) != 1 || courses[0].Type != Update || len(degrees) != 0 {
		t.Errorf("courses=%v degrees=%v", courses, degrees)
	}
}

func TestHubUnsubscribe(t *testing.T) {
	h := NewHub()
	calls := 0
	sub, err := h.Subscribe("courses", func(Event) { calls++ })
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if sub.Table() != "courses" {
		t.Errorf("table = %q", sub.Table())
	}
	if err := h.Unsubscribe(sub); err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}
	if err := h.Unsubscribe(sub); !errors.Is(err, ErrNotSubscribed) {
		t.Errorf("second unsubscribe: %v", err)
	}
	h.Publish(Event{Table: "courses", Type: Delete})
	if calls != 0 {
		t.Errorf("handler ran %d times after unsubscribe", calls)
	}
}

func TestHubRejectsBadSubscriptions(t *testing.T) {
	h := NewHub()
	if _, err := h.Subscribe("", func(Event) {}); !errors.Is(err, ErrEmptyTable) {
		t.Errorf("empty table: %v", err)
	}
	if _, err := h.Subscribe("courses", nil); !errors.Is(err, ErrNilHandler) {
		t.Errorf("nil handler: %v", err)
	}
}

func TestParseEventType(t *testing.T) {
	tests := []struct {
		in   string
		want EventType
		ok   bool
	}{
		{"INSERT", Insert, true},
		{"update", Update, true},
		{" Delete ", Delete, true},
		{"TRUNCATE", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseEventType(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseEventType(%q) = %q, %v", tt.in, got, ok)
		}
	}
}
