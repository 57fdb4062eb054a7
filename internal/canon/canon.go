// Package canon maps raw form-field ids and legacy names onto one canonical
// vocabulary shared by every downstream component.
package canon

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// SchemaVersion is the version stamped into the persisted unified schema.
const SchemaVersion = 1

// SchemaStoreKey is the store key under which Schema() is persisted.
const SchemaStoreKey = "feasibilityUnifiedSchema"

const placeholderDash = "—"

// Canonicalize maps a raw field id to its canonical field name. Unknown keys
// are returned unchanged. The result is stable under repeated application.
func Canonicalize(key string) string {
	if c, ok := rawToCanonical[key]; ok {
		return c
	}
	return key
}

// CollapseAlias replaces a superseded canonical name with its successor.
func CollapseAlias(key string) string {
	if c, ok := aliasToCanonical[key]; ok {
		return c
	}
	return key
}

// CanonicalKey is Canonicalize followed by CollapseAlias.
func CanonicalKey(key string) string {
	return CollapseAlias(Canonicalize(key))
}

// UnifiedSchema is the persisted description of the canonical vocabulary.
type UnifiedSchema struct {
	Version          int               `json:"version"`
	AliasToCanonical map[string]string `json:"aliasToCanonical"`
	CanonicalKeys    []string          `json:"canonicalKeys"`
}

// Schema returns the unified schema: the alias table plus the sorted set of
// every canonical key this package knows about.
func Schema() UnifiedSchema {
	aliases := make(map[string]string, len(aliasToCanonical))
	for k, v := range aliasToCanonical {
		aliases[k] = v
	}
	seen := map[string]struct{}{}
	for _, v := range rawToCanonical {
		seen[CollapseAlias(v)] = struct{}{}
	}
	for _, v := range aliasToCanonical {
		seen[v] = struct{}{}
	}
	for k := range numericFields {
		seen[k] = struct{}{}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return UnifiedSchema{Version: SchemaVersion, AliasToCanonical: aliases, CanonicalKeys: keys}
}

// CanonicalizeAnswers rewrites every key of raw to its canonical name, builds
// the targetAge composite from targetAgeMin/targetAgeMax when targetAge is
// absent, and coerces known numeric fields from strings. The input map is not
// modified.
//
// When two raw keys land on the same canonical key, a non-empty value beats an
// empty one, and a key already spelled canonically beats a raw id.
func CanonicalizeAnswers(raw map[string]any) map[string]any {
	out := make(map[string]any, len(raw))
	direct := make(map[string]bool, len(raw))

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := raw[k]
		ck := CanonicalKey(k)
		isDirect := ck == k
		prev, exists := out[ck]
		switch {
		case !exists:
		case isBlank(prev) && !isBlank(v):
		case isDirect && !direct[ck] && !isBlank(v):
		default:
			continue
		}
		out[ck] = v
		direct[ck] = isDirect
	}

	composeTargetAge(out)

	for k, v := range out {
		if _, ok := numericFields[k]; !ok {
			continue
		}
		if s, ok := v.(string); ok {
			if f, ok := ParseNumber(s); ok {
				out[k] = f
			}
		}
	}
	return out
}

func composeTargetAge(out map[string]any) {
	if _, ok := out["targetAge"]; ok {
		return
	}
	minV, hasMin := out["targetAgeMin"]
	maxV, hasMax := out["targetAgeMax"]
	if !hasMin && !hasMax {
		return
	}
	lo := strings.TrimSpace(scalarString(minV))
	hi := strings.TrimSpace(scalarString(maxV))
	if lo == "" {
		lo = placeholderDash
	}
	if hi == "" {
		hi = placeholderDash
	}
	out["targetAge"] = lo + " - " + hi
	delete(out, "targetAgeMin")
	delete(out, "targetAgeMax")
}

// CompleteAgeBounds fills the missing half of a partial age range. When update
// carries exactly one of targetAgeMin/targetAgeMax (under any raw spelling)
// and no targetAge, the other bound is taken from the targetAge composite in
// stored. The result is a copy; update is not modified. A placeholder bound
// in stored stays empty.
func CompleteAgeBounds(update, stored map[string]any) map[string]any {
	var hasMin, hasMax bool
	for k := range update {
		switch CanonicalKey(k) {
		case "targetAge":
			return update
		case "targetAgeMin":
			hasMin = true
		case "targetAgeMax":
			hasMax = true
		}
	}
	if hasMin == hasMax {
		return update
	}
	prev, _ := stored["targetAge"].(string)
	lo, hi, ok := strings.Cut(prev, " - ")
	if !ok {
		return update
	}
	key, bound := "targetAgeMax", strings.TrimSpace(hi)
	if hasMax {
		key, bound = "targetAgeMin", strings.TrimSpace(lo)
	}
	if bound == "" || bound == placeholderDash {
		return update
	}
	out := make(map[string]any, len(update)+1)
	for k, v := range update {
		out[k] = v
	}
	out[key] = bound
	return out
}

var leadingNumber = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?`)

// ParseNumber reads the leading decimal number of s, so "1,200 USD" yields
// 1200. A comma counts as a thousands separator only when exactly three
// digits follow it; "1,5" yields 1. It reports false when s does not start
// with a number.
func ParseNumber(s string) (float64, bool) {
	s = stripThousands(strings.TrimSpace(s))
	m := leadingNumber.FindString(s)
	if m == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func stripThousands(s string) string {
	if !strings.Contains(s, ",") {
		return s
	}
	isDigit := func(i int) bool { return i >= 0 && i < len(s) && s[i] >= '0' && s[i] <= '9' }
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == ',' && isDigit(i-1) && isDigit(i+1) && isDigit(i+2) && isDigit(i+3) && !isDigit(i+4) {
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func isBlank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	}
	return false
}
