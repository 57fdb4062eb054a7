// Package merge combines answer maps from several sources into one, letting
// fresher sources win without ever erasing a populated value.
package merge

import (
	"reflect"
	"strings"
)

// IsEmpty reports whether v carries no answer: nil, a whitespace-only
// string, or a zero-length slice or map. Numbers and booleans, including
// zero and false, are never empty.
func IsEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	case []string:
		return len(t) == 0
	case bool, float64, float32, int, int64, int32:
		return false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// Merge returns b layered over a. An empty b keeps a; two maps merge key by
// key; anything else takes b. Neither argument is modified.
func Merge(a, b any) any {
	if IsEmpty(b) {
		return a
	}
	am, aok := a.(map[string]any)
	bm, bok := b.(map[string]any)
	if aok && bok {
		out := make(map[string]any, len(am)+len(bm))
		for k, v := range am {
			out[k] = v
		}
		for k, v := range bm {
			out[k] = Merge(out[k], v)
		}
		return out
	}
	return b
}

// MergeAll folds sources left to right, so later sources take precedence.
// Callers pass sources ordered from least to most trusted.
func MergeAll(sources ...map[string]any) map[string]any {
	out := map[string]any{}
	for _, src := range sources {
		if len(src) == 0 {
			continue
		}
		merged, _ := Merge(out, src).(map[string]any)
		if merged != nil {
			out = merged
		}
	}
	return out
}

// DeepFilter drops empty values from maps and slices recursively. A container
// that becomes empty after filtering is itself dropped by its parent.
func DeepFilter(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			f := DeepFilter(val)
			if IsEmpty(f) {
				continue
			}
			out[k] = f
		}
		return out
	case []any:
		out := make([]any, 0, len(t))
		for _, val := range t {
			f := DeepFilter(val)
			if IsEmpty(f) {
				continue
			}
			out = append(out, f)
		}
		return out
	case string:
		return strings.TrimSpace(t)
	}
	return v
}

// FilterMap is DeepFilter for a top-level answer map.
func FilterMap(m map[string]any) map[string]any {
	out, _ := DeepFilter(m).(map[string]any)
	if out == nil {
		return map[string]any{}
	}
	return out
}
