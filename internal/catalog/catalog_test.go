package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/leonardcser/electives-mcp/internal/cache"
	"github.com/leonardcser/electives-mcp/internal/invalidation"
	"github.com/leonardcser/electives-mcp/internal/logger"
	"github.com/leonardcser/electives-mcp/internal/realtime"
	"github.com/leonardcser/electives-mcp/internal/remote"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "catalog-test")
	if err == nil {
		_ = logger.Init(filepath.Join(dir, "test.log"))
	}
	code := m.Run()
	_ = logger.Close()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

// fakeSource serves canned rows per table and records every query.
type fakeSource struct {
	mu      sync.Mutex
	rows    map[string]string
	err     error
	queries []string
}

func (f *fakeSource) Query(_ context.Context, table string, q remote.Query) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, cache.Key(table, q.Scope()))
	if f.err != nil {
		return nil, f.err
	}
	return json.RawMessage(f.rows[table]), nil
}

func (f *fakeSource) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func newTestCatalog(opts Options) (*Catalog, *fakeSource, *cache.Store, *clock) {
	clk := &clock{now: time.Date(2025, 2, 3, 9, 0, 0, 0, time.UTC)}
	src := &fakeSource{rows: map[string]string{
		TableDegrees:          `[{"id":1,"name":"BSc Informatics"}]`,
		TableUniversities:     `[{"id":4,"name":"TU Delft","country":"NL"}]`,
		TableGroups:           `[{"id":7,"name":"INF-22","degree_id":1,"year":3}]`,
		TableCourses:          `[{"id":11,"name":"Databases","group_id":7,"description":"<p>SQL <b>basics</b></p>"}]`,
		TableExchangePrograms: `[{"id":21,"name":"Erasmus 2025","group_id":7,"university_ids":[4]}]`,
	}}
	store := cache.NewStore(cache.NewMemoryKV(), cache.Options{Now: clk.Now})
	return New(store, src, opts), src, store, clk
}

func TestDegreesAreCachedForTheirTTL(t *testing.T) {
	c, src, _, clk := newTestCatalog(Options{InstitutionID: "1"})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := c.Degrees(ctx)
		if err != nil {
			t.Fatalf("degrees: %v", err)
		}
		if len(res.Items) != 1 || res.Items[0].Name != "BSc Informatics" || res.Stale {
			t.Fatalf("result = %+v", res)
		}
	}
	if src.calls() != 1 {
		t.Errorf("source called %d times, want 1", src.calls())
	}

	clk.now = clk.now.Add(DegreesTTL)
	if _, err := c.Degrees(ctx); err != nil {
		t.Fatalf("degrees: %v", err)
	}
	if src.calls() != 2 {
		t.Errorf("expired entry should refetch, calls = %d", src.calls())
	}
}

func TestKeysIncludeEveryScopeDimension(t *testing.T) {
	c, src, _, _ := newTestCatalog(Options{InstitutionID: "1"})
	ctx := context.Background()

	if _, err := c.Courses(ctx, 7); err != nil {
		t.Fatalf("courses: %v", err)
	}
	if _, err := c.Courses(ctx, 8); err != nil {
		t.Fatalf("courses: %v", err)
	}
	if src.calls() != 2 {
		t.Fatalf("two groups must not share an entry, calls = %d", src.calls())
	}
	for _, q := range src.queries {
		if !strings.Contains(q, "institution_id=1") || !strings.Contains(q, "group_id=") {
			t.Errorf("key %q is missing a scope dimension", q)
		}
	}

	other, otherSrc, _, _ := newTestCatalog(Options{InstitutionID: "2"})
	other.store = c.store
	if _, err := other.Courses(ctx, 7); err != nil {
		t.Fatalf("courses: %v", err)
	}
	if otherSrc.calls() != 1 {
		t.Error("another institution must not read this institution's entry")
	}
}

func TestFetchErrorPropagatesWithoutStaleFallback(t *testing.T) {
	c, src, store, _ := newTestCatalog(Options{})
	src.err = &remote.HTTPError{StatusCode: 503}

	_, err := c.Groups(context.Background(), 1)
	var httpErr *remote.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("err = %v", err)
	}
	key := cache.Key(TableGroups, remote.Query{Order: "name.asc"}.Where("degree_id", "1").Scope())
	if _, ok := store.Get(key, time.Hour); ok {
		t.Error("failed fetch must not write an entry")
	}
}

func TestStaleToleranceServesOldEntryOnError(t *testing.T) {
	c, src, _, clk := newTestCatalog(Options{StaleTolerance: 24 * time.Hour})
	ctx := context.Background()

	if _, err := c.Universities(ctx); err != nil {
		t.Fatalf("universities: %v", err)
	}
	clk.now = clk.now.Add(2 * UniversitiesTTL)
	src.err = errors.New("offline")

	res, err := c.Universities(ctx)
	if err != nil {
		t.Fatalf("universities: %v", err)
	}
	if !res.Stale || len(res.Items) != 1 || res.Items[0].Name != "TU Delft" {
		t.Errorf("result = %+v", res)
	}

	clk.now = clk.now.Add(48 * time.Hour)
	if _, err := c.Universities(ctx); err == nil {
		t.Error("entry beyond the tolerance should not be served")
	}
}

func TestRealtimeEventInvalidatesCatalogKeys(t *testing.T) {
	c, src, store, _ := newTestCatalog(Options{InstitutionID: "1"})
	ctx := context.Background()
	hub := realtime.NewHub()
	l := invalidation.NewListener(InvalidationTable(), store)
	if err := l.Start(hub); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer l.Stop()

	if _, err := c.Courses(ctx, 7); err != nil {
		t.Fatalf("courses: %v", err)
	}
	if _, err := c.Degrees(ctx); err != nil {
		t.Fatalf("degrees: %v", err)
	}
	hub.Publish(realtime.Event{Table: TableCourses, Type: realtime.Update})

	if _, err := c.Courses(ctx, 7); err != nil {
		t.Fatalf("courses: %v", err)
	}
	if _, err := c.Degrees(ctx); err != nil {
		t.Fatalf("degrees: %v", err)
	}
	if src.calls() != 3 {
		t.Errorf("only courses should refetch, calls = %d", src.calls())
	}
}

func TestExchangeProgramsDecode(t *testing.T) {
	c, _, _, _ := newTestCatalog(Options{})
	res, err := c.ExchangePrograms(context.Background(), 7)
	if err != nil {
		t.Fatalf("exchange programs: %v", err)
	}
	if len(res.Items) != 1 || len(res.Items[0].UniversityIDs) != 1 || res.Items[0].UniversityIDs[0] != 4 {
		t.Errorf("result = %+v", res)
	}
}

func TestInvalidationTableCoversEveryTable(t *testing.T) {
	tbl := InvalidationTable()
	for _, name := range []string{TableDegrees, TableUniversities, TableGroups, TableCourses, TableExchangePrograms} {
		patterns := tbl[name]
		if len(patterns) != 2 || patterns[0] != name || patterns[1] != name+"_*" {
			t.Errorf("%s patterns = %v", name, patterns)
		}
	}
}
