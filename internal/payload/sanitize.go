package payload

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/joelkehle/feasibility-study/internal/merge"
)

// DefaultBudget is the serialized-size budget for a full payload, in
// characters.
const DefaultBudget = 40000

// contextLineLimit caps each plain-text context line.
const contextLineLimit = 800

var (
	htmlTag      = regexp.MustCompile(`<[^>]*>`)
	controlChars = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)
	backtickRun  = regexp.MustCompile("`{3,}")
	spaceRun     = regexp.MustCompile(`[\t ]{2,}`)
	quoteFixer   = strings.NewReplacer("“", `"`, "”", `"`, "‘", "'", "’", "'")
)

// SanitizeString strips HTML tags and control characters (keeping tab and
// newlines), normalizes curly quotes, shortens runs of backticks that could
// open a code fence, collapses repeated spaces and caps the result at maxLen
// runes.
func SanitizeString(s string, maxLen int) string {
	s = htmlTag.ReplaceAllString(s, "")
	s = controlChars.ReplaceAllString(s, "")
	s = quoteFixer.Replace(s)
	s = backtickRun.ReplaceAllString(s, "``")
	s = spaceRun.ReplaceAllString(s, " ")
	if maxLen >= 0 && utf8.RuneCountInString(s) > maxLen {
		s = string([]rune(s)[:maxLen])
	}
	return strings.TrimSpace(s)
}

// Limits bound every string and array in a sanitized value.
type Limits struct {
	MaxString int
	MaxArray  int
}

// fitStages are tried in order until the payload fits its budget.
var fitStages = []Limits{
	{MaxString: 2000, MaxArray: 100},
	{MaxString: 1000, MaxArray: 60},
	{MaxString: 600, MaxArray: 30},
	{MaxString: 300, MaxArray: 15},
}

// SanitizeData applies SanitizeString to every string in v, truncates
// arrays and drops values left empty. v must be a decoded JSON value.
func SanitizeData(v any, lim Limits) any {
	switch t := v.(type) {
	case []any:
		if len(t) > lim.MaxArray {
			t = t[:lim.MaxArray]
		}
		out := make([]any, 0, len(t))
		for _, item := range t {
			s := SanitizeData(item, lim)
			if !merge.IsEmpty(s) {
				out = append(out, s)
			}
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			s := SanitizeData(item, lim)
			if !merge.IsEmpty(s) {
				out[k] = s
			}
		}
		return out
	case string:
		return SanitizeString(t, lim.MaxString)
	}
	return v
}

// FitToLimit sanitizes v with progressively tighter limits until its JSON
// encoding is at most maxChars characters. Every string and array is limited
// uniformly at each stage. The last stage is returned even when it is still
// over budget.
func FitToLimit(v any, maxChars int) (any, error) {
	generic, err := toGeneric(v)
	if err != nil {
		return nil, err
	}
	var out any
	for _, lim := range fitStages {
		out = SanitizeData(generic, lim)
		size, err := encodedSize(out)
		if err != nil {
			return nil, err
		}
		if size <= maxChars {
			return out, nil
		}
	}
	return out, nil
}

// toGeneric converts v to plain maps, slices and scalars.
func toGeneric(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return out, nil
}

func encodedSize(v any) (int, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return 0, fmt.Errorf("measure payload: %w", err)
	}
	return utf8.RuneCount(raw), nil
}

// PlainContext lists the short plain-English lines sent alongside the
// structured payload: project name, type and sector, author name and email,
// then each non-blank survey sentence. Every line is sanitized and capped.
func PlainContext(cover CoverPage, survey []string) []string {
	var lines []string
	add := func(label, v string) {
		if v = strings.TrimSpace(v); v != "" {
			lines = append(lines, label+": "+v)
		}
	}
	add("Project Name", cover.ProjectName)
	add("Project Type", cover.BasicInfo.ProjectType)
	add("Project Sector", cover.BasicInfo.Sector)
	add("User Name", cover.Author.FullName)
	add("User Email", cover.Author.Email)
	for _, s := range survey {
		if s = strings.TrimSpace(s); s != "" {
			lines = append(lines, s)
		}
	}

	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if s := SanitizeString(l, contextLineLimit); s != "" {
			out = append(out, s)
		}
	}
	return out
}
