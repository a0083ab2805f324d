package store

import (
	"fmt"
	"sort"
	"strings"

	"github.com/marketkit/syncache/pkg/calendar"
)

// CacheKey uniquely identifies a cached series: data domain, canonicalized
// query parameters, sampling frequency, and output-shape flags.
type CacheKey struct {
	// Domain is the data domain name (e.g., "index_daily", "option_chain").
	Domain string

	// Params are the query parameters (e.g., {"code": "sh000001"}).
	Params map[string]string

	// Frequency is the sampling granularity of the series.
	Frequency calendar.Frequency

	// Flags are output-shape modifiers (e.g., "adjusted"). Order does not
	// matter; they are sorted before concatenation.
	Flags []string
}

// String generates a deterministic cache key string. Two logically identical
// queries always produce the same key: params and flags are sorted before
// concatenation.
//
// Format: series:domain:freq:param1=val1:param2=val2:flag1
//
// Example:
//
//	series:index_daily:daily:code=sh000001
func (k CacheKey) String() string {
	parts := []string{"series", k.Domain, string(k.Frequency)}

	if len(k.Params) > 0 {
		names := make([]string, 0, len(k.Params))
		for name := range k.Params {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			parts = append(parts, fmt.Sprintf("%s=%s", name, k.Params[name]))
		}
	}

	if len(k.Flags) > 0 {
		flags := append([]string(nil), k.Flags...)
		sort.Strings(flags)
		parts = append(parts, flags...)
	}

	return strings.Join(parts, ":")
}
