package narrative

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"
)

var (
	// ErrUpstreamFormat means the model answered but no report object could
	// be recovered from the text.
	ErrUpstreamFormat = errors.New("model response is not a report object")
	// ErrServiceUnavailable is returned when every generation strategy failed.
	ErrServiceUnavailable = errors.New("report generator is currently unavailable; contact support to enable it")
)

var fencedBlock = regexp.MustCompile("(?is)```(?:json)?(.*?)```")

func stripCodeFences(s string) string {
	if m := fencedBlock.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(s)
}

// extractFirstJSONObject returns the first balanced {...} in s, skipping
// braces inside string literals. ok is false when no object closes; rest then
// holds everything from the first brace so a repair pass can try it.
func extractFirstJSONObject(s string) (obj string, rest string, ok bool) {
	cleaned := stripCodeFences(s)
	start := strings.IndexByte(cleaned, '{')
	if start < 0 {
		return "", "", false
	}
	inString, escape, depth := false, false, 0
	for i := start; i < len(cleaned); i++ {
		ch := cleaned[i]
		if inString {
			switch {
			case escape:
				escape = false
			case ch == '\\':
				escape = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return cleaned[start : i+1], "", true
			}
		}
	}
	return "", cleaned[start:], false
}

// ParseReportJSON recovers a report from raw model text. It tries, in order:
// the whole text as JSON, the first balanced object (after removing code
// fences), that object run through a JSON repairer, then an Hjson parse.
// Failures wrap ErrUpstreamFormat.
func ParseReportJSON(text string) (*Report, error) {
	obj, err := parseObject(text)
	if err != nil {
		return nil, err
	}
	return decodeReport(obj), nil
}

func parseObject(text string) (map[string]any, error) {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}") {
		if m, ok := strictObject(trimmed); ok {
			return m, nil
		}
	}
	candidate, rest, ok := extractFirstJSONObject(text)
	if !ok {
		candidate = rest
	}
	if candidate == "" {
		return nil, fmt.Errorf("%w: no JSON object in %q", ErrUpstreamFormat, preview(text))
	}
	if m, ok := strictObject(candidate); ok {
		return m, nil
	}
	if repaired, err := jsonrepair.RepairJSON(candidate); err == nil {
		if m, ok := strictObject(repaired); ok {
			return m, nil
		}
	}
	var loose any
	if err := hjson.Unmarshal([]byte(candidate), &loose); err == nil {
		if m, ok := loose.(map[string]any); ok {
			return m, nil
		}
	}
	return nil, fmt.Errorf("%w: unparseable candidate %q", ErrUpstreamFormat, preview(candidate))
}

func strictObject(s string) (map[string]any, bool) {
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil || m == nil {
		return nil, false
	}
	return m, true
}

func preview(s string) string {
	const n = 200
	r := []rune(strings.TrimSpace(s))
	if len(r) > n {
		return string(r[:n]) + "..."
	}
	return string(r)
}
