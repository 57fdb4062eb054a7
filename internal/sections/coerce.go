package sections

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/joelkehle/feasibility-study/internal/canon"
	"github.com/joelkehle/feasibility-study/internal/merge"
)

// first returns the value of the first key that carries a non-empty answer.
func first(src map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := src[k]; ok && !merge.IsEmpty(v) {
			return v
		}
	}
	return nil
}

func str(src map[string]any, keys ...string) *string {
	return ToStringOrNil(first(src, keys...))
}

func num(src map[string]any, keys ...string) *float64 {
	return ToNumberOrNil(first(src, keys...))
}

func strs(src map[string]any, keys ...string) []string {
	return EnsureStrings(first(src, keys...))
}

// ToStringOrNil trims strings, formats numbers and booleans, and joins
// lists with ", ". Blank results are nil.
func ToStringOrNil(v any) *string {
	var s string
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		s = t
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil
		}
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		s = strconv.Itoa(t)
	case bool:
		s = strconv.FormatBool(t)
	case []any:
		s = strings.Join(EnsureStrings(t), ", ")
	case []string:
		s = strings.Join(EnsureStrings(t), ", ")
	case map[string]any:
		return nil
	default:
		s = fmt.Sprint(t)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// ToNumberOrNil reads numbers and numeric strings; thousands separators are
// ignored. Anything else is nil.
func ToNumberOrNil(v any) *float64 {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case string:
		parsed, ok := canon.ParseNumber(t)
		if !ok {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

var listSeparators = regexp.MustCompile(`[,;]+`)

// EnsureStrings coerces v to a list of trimmed, non-empty strings. A
// delimited string splits on commas and semicolons.
func EnsureStrings(v any) []string {
	out := []string{}
	switch t := v.(type) {
	case nil:
	case string:
		for _, part := range listSeparators.Split(t, -1) {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	case []string:
		for _, item := range t {
			if p := strings.TrimSpace(item); p != "" {
				out = append(out, p)
			}
		}
	case []any:
		for _, item := range t {
			if item == nil {
				continue
			}
			if s := ToStringOrNil(item); s != nil {
				out = append(out, *s)
			}
		}
	default:
		if s := ToStringOrNil(t); s != nil {
			out = append(out, *s)
		}
	}
	return out
}

func dedupeFold(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		key := strings.ToLower(v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}

// Truthy reports whether a checkbox-style answer is set.
func Truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "yes", "1", "on":
			return true
		}
	case float64:
		return t != 0 && !math.IsNaN(t)
	case int:
		return t != 0
	}
	return false
}

// rowsOf returns the object rows of a table answer. Non-object rows are
// skipped.
func rowsOf(v any) []map[string]any {
	switch t := v.(type) {
	case []map[string]any:
		return t
	case []any:
		out := make([]map[string]any, 0, len(t))
		for _, item := range t {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	}
	return nil
}
