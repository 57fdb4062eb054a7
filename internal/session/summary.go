package session

import (
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/joelkehle/feasibility-study/internal/merge"
	"github.com/joelkehle/feasibility-study/internal/sections"
)

// Summaries renders each non-empty answer as one readable line of text:
// grouped numbers, Yes/No for flags, "field: value" pairs for objects and
// one "; "-separated entry per table row. This is the simulated mirror.
func Summaries(answers map[string]any) map[string]string {
	out := make(map[string]string, len(answers))
	for k, v := range answers {
		if merge.IsEmpty(v) {
			continue
		}
		if s := describe(v); s != "" {
			out[k] = s
		}
	}
	return out
}

func describe(v any) string {
	switch t := v.(type) {
	case float64:
		return humanize.CommafWithDigits(t, 2)
	case bool:
		if t {
			return "Yes"
		}
		return "No"
	case map[string]any:
		return describeFields(t)
	case []any:
		parts := make([]string, 0, len(t))
		sep := ", "
		for _, item := range t {
			switch item.(type) {
			case map[string]any:
				sep = "; "
			case []any:
				continue
			}
			if s := describe(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, sep)
	}
	if s := sections.ToStringOrNil(v); s != nil {
		return *s
	}
	return ""
}

func describeFields(m map[string]any) string {
	keys := make([]string, 0, len(m))
	for k, v := range m {
		if !merge.IsEmpty(v) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		if s := describe(m[k]); s != "" {
			parts = append(parts, k+": "+s)
		}
	}
	return strings.Join(parts, ", ")
}
