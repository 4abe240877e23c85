package cache

import (
	"net/url"
	"sort"
	"strings"
)

// Key builds "<domain>" or "<domain>_<dim>=<value>_..." with dimensions in name
// order. Names are query-escaped and values additionally escape "_", so every
// "=" closes a name and the next "_" closes its value; two scopes cannot spell
// the same key. Every filter that shapes a result must be part of its scope, otherwise
// two scopes share one entry.
func Key(domain string, scope map[string]string) string {
	if len(scope) == 0 {
		return domain
	}
	dims := make([]string, 0, len(scope))
	for d := range scope {
		dims = append(dims, d)
	}
	sort.Strings(dims)
	var sb strings.Builder
	sb.WriteString(domain)
	for _, d := range dims {
		sb.WriteByte('_')
		sb.WriteString(url.QueryEscape(d))
		sb.WriteByte('=')
		sb.WriteString(escapeValue(scope[d]))
	}
	return sb.String()
}

func escapeValue(v string) string {
	return strings.ReplaceAll(url.QueryEscape(v), "_", "%5F")
}
