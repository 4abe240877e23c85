package remote

import (
	"net/url"
	"strconv"
	"strings"
)

// Op is a PostgREST filter operator.
type Op string

const (
	Eq    Op = "eq"
	Neq   Op = "neq"
	Gt    Op = "gt"
	Gte   Op = "gte"
	Lt    Op = "lt"
	Lte   Op = "lte"
	In    Op = "in"
	Is    Op = "is"
	Ilike Op = "ilike"
)

type Filter struct {
	Column string
	Op     Op
	Value  string
}

// Query describes one table read.
type Query struct {
	Filters []Filter
	// Select lists columns; empty means "*".
	Select []string
	// Order is a PostgREST order clause such as "name.asc".
	Order string
	Limit int
}

// Where appends an equality filter and returns the query for chaining.
func (q Query) Where(column, value string) Query {
	q.Filters = append(append([]Filter(nil), q.Filters...), Filter{Column: column, Op: Eq, Value: value})
	return q
}

func (f Filter) op() Op {
	if f.Op == "" {
		return Eq
	}
	return f.Op
}

// Scope returns every dimension that shapes the result, keyed by name.
// Filter values are query-escaped; repeated filters on one column and
// operator keep all their values, in order, joined by "&". Cache keys built
// from it never mix two different filter sets.
func (q Query) Scope() map[string]string {
	scope := make(map[string]string, len(q.Filters)+2)
	for _, f := range q.Filters {
		name := f.Column
		if op := f.op(); op != Eq {
			name += "." + string(op)
		}
		value := url.QueryEscape(f.Value)
		if prev, ok := scope[name]; ok {
			value = prev + "&" + value
		}
		scope[name] = value
	}
	if len(q.Select) > 0 {
		scope["select"] = strings.Join(q.Select, ",")
	}
	if q.Order != "" {
		scope["order"] = q.Order
	}
	if q.Limit > 0 {
		scope["limit"] = strconv.Itoa(q.Limit)
	}
	return scope
}

func (q Query) values() url.Values {
	v := url.Values{}
	sel := "*"
	if len(q.Select) > 0 {
		sel = strings.Join(q.Select, ",")
	}
	v.Set("select", sel)
	for _, f := range q.Filters {
		v.Add(f.Column, string(f.op())+"."+f.Value)
	}
	if q.Order != "" {
		v.Set("order", q.Order)
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	return v
}
