package invalidation

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/leonardcser/electives-mcp/internal/cache"
	"github.com/leonardcser/electives-mcp/internal/logger"
	"github.com/leonardcser/electives-mcp/internal/realtime"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "invalidation-test")
	if err == nil {
		_ = logger.Init(filepath.Join(dir, "test.log"))
	}
	code := m.Run()
	_ = logger.Close()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

type recorder struct {
	keys     []string
	prefixes []string
}

func (r *recorder) Invalidate(key string)          { r.keys = append(r.keys, key) }
func (r *recorder) InvalidatePrefix(prefix string) { r.prefixes = append(r.prefixes, prefix) }

var testTable = Table{
	"degrees": {"degrees_*", "groups_*"},
	"courses": {"courses_*"},
	"config":  {"settings"},
}

func TestHandleMapsTableToPatterns(t *testing.T) {
	r := &recorder{}
	l := NewListener(testTable, r)

	l.Handle(realtime.Event{Table: "degrees", Type: realtime.Update})
	l.Handle(realtime.Event{Table: "config", Type: realtime.Delete})
	l.Handle(realtime.Event{Table: "unknown", Type: realtime.Insert})

	if !reflect.DeepEqual(r.prefixes, []string{"degrees_", "groups_"}) {
		t.Errorf("prefixes = %v", r.prefixes)
	}
	if !reflect.DeepEqual(r.keys, []string{"settings"}) {
		t.Errorf("keys = %v", r.keys)
	}
}

func TestListenerOverHubInvalidatesStore(t *testing.T) {
	store := cache.NewStore(cache.NewMemoryKV(), cache.Options{})
	store.Set("courses_group=1", []string{"A"})
	store.Set("degrees_institution=1", []string{"BSc"})

	hub := realtime.NewHub()
	l := NewListener(testTable, store)
	if err := l.Start(hub); err != nil {
		t.Fatalf("start: %v", err)
	}

	hub.Publish(realtime.Event{Table: "courses", Type: realtime.Insert})
	if _, ok := store.Get("courses_group=1", time.Hour); ok {
		t.Error("courses entry should be invalidated")
	}
	if _, ok := store.Get("degrees_institution=1", time.Hour); !ok {
		t.Error("degrees entry should survive a courses event")
	}

	l.Stop()
	store.Set("courses_group=1", []string{"B"})
	if n := hub.Publish(realtime.Event{Table: "courses", Type: realtime.Update}); n != 0 {
		t.Errorf("%d handlers still subscribed after stop", n)
	}
	if _, ok := store.Get("courses_group=1", time.Hour); !ok {
		t.Error("stopped listener should not invalidate")
	}
}

type failingStream struct {
	hub    *realtime.Hub
	failOn string
}

func (f *failingStream) Subscribe(table string, h realtime.Handler) (realtime.Subscription, error) {
	if table == f.failOn {
		return realtime.Subscription{}, errors.New("join refused")
	}
	return f.hub.Subscribe(table, h)
}

func (f *failingStream) Unsubscribe(sub realtime.Subscription) error {
	return f.hub.Unsubscribe(sub)
}

func TestStartRollsBackOnError(t *testing.T) {
	hub := realtime.NewHub()
	l := NewListener(testTable, &recorder{})
	if err := l.Start(&failingStream{hub: hub, failOn: "degrees"}); err == nil {
		t.Fatal("expected start error")
	}
	if n := hub.Publish(realtime.Event{Table: "config", Type: realtime.Update}); n != 0 {
		t.Errorf("%d subscriptions leaked", n)
	}
}

func TestTables(t *testing.T) {
	want := []string{"config", "courses", "degrees"}
	if got := testTable.Tables(); !reflect.DeepEqual(got, want) {
		t.Errorf("tables = %v, want %v", got, want)
	}
}
