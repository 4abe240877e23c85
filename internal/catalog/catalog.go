// Package catalog serves the read-mostly reference data of the selection
// workflows through one shared cache store.
package catalog

import (
	"context"
	"strconv"
	"time"

	"github.com/leonardcser/electives-mcp/internal/cache"
	"github.com/leonardcser/electives-mcp/internal/invalidation"
	"github.com/leonardcser/electives-mcp/internal/logger"
	"github.com/leonardcser/electives-mcp/internal/remote"
)

// Freshness per data class.
const (
	DegreesTTL          = time.Hour
	UniversitiesTTL     = time.Hour
	GroupsTTL           = 10 * time.Minute
	CoursesTTL          = 5 * time.Minute
	ExchangeProgramsTTL = time.Minute
)

type Options struct {
	// InstitutionID scopes every query and cache key to one tenant.
	InstitutionID string
	// StaleTolerance, when positive, lets a failed fetch fall back to an
	// entry up to this old. The result is flagged Stale.
	StaleTolerance time.Duration
}

// Result is a list read. Stale is set when it came from the fallback path.
type Result[T any] struct {
	Items []T
	Stale bool
}

type Catalog struct {
	store *cache.Store
	src   remote.Source
	opts  Options
}

func New(store *cache.Store, src remote.Source, opts Options) *Catalog {
	return &Catalog{store: store, src: src, opts: opts}
}

// InvalidationTable maps each backend table to the cache keys built from it.
func InvalidationTable() invalidation.Table {
	t := invalidation.Table{}
	for _, name := range []string{TableDegrees, TableUniversities, TableGroups, TableCourses, TableExchangePrograms} {
		t[name] = []string{name, name + "_*"}
	}
	return t
}

func (c *Catalog) Degrees(ctx context.Context) (Result[Degree], error) {
	return list[Degree](ctx, c, TableDegrees, remote.Query{Order: "name.asc"}, DegreesTTL)
}

func (c *Catalog) Universities(ctx context.Context) (Result[University], error) {
	return list[University](ctx, c, TableUniversities, remote.Query{Order: "name.asc"}, UniversitiesTTL)
}

// Groups lists groups, restricted to one degree when degreeID is positive.
func (c *Catalog) Groups(ctx context.Context, degreeID int) (Result[Group], error) {
	q := remote.Query{Order: "name.asc"}
	if degreeID > 0 {
		q = q.Where("degree_id", strconv.Itoa(degreeID))
	}
	return list[Group](ctx, c, TableGroups, q, GroupsTTL)
}

func (c *Catalog) Courses(ctx context.Context, groupID int) (Result[Course], error) {
	q := remote.Query{Order: "name.asc"}.Where("group_id", strconv.Itoa(groupID))
	return list[Course](ctx, c, TableCourses, q, CoursesTTL)
}

func (c *Catalog) ExchangePrograms(ctx context.Context, groupID int) (Result[ExchangeProgram], error) {
	q := remote.Query{Order: "deadline.asc"}.Where("group_id", strconv.Itoa(groupID))
	return list[ExchangeProgram](ctx, c, TableExchangePrograms, q, ExchangeProgramsTTL)
}

func list[T any](ctx context.Context, c *Catalog, table string, q remote.Query, ttl time.Duration) (Result[T], error) {
	if c.opts.InstitutionID != "" {
		q = q.Where("institution_id", c.opts.InstitutionID)
	}
	key := cache.Key(table, q.Scope())
	items, err := cache.GetOrFetch(ctx, c.store, key, ttl, func(ctx context.Context) ([]T, error) {
		return remote.Select[T](ctx, c.src, table, q)
	})
	if err == nil {
		return Result[T]{Items: items}, nil
	}
	if c.opts.StaleTolerance > 0 {
		if e, ok := c.store.Get(key, c.opts.StaleTolerance); ok {
			var stale []T
			if e.Decode(&stale) == nil {
				logger.Warnf("%s: serving entry from %s after fetch error: %v", key, e.Written().Format(time.RFC3339), err)
				return Result[T]{Items: stale, Stale: true}, nil
			}
		}
	}
	return Result[T]{}, err
}
