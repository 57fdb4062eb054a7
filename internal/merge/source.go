package merge

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// CommercialSectorIDs are the brand-attribute form ids read as their own
// source so they override the stored start form.
var CommercialSectorIDs = []string{
	"business-type",
	"sustainable-fashion",
	"eco-friendly",
	"local-artisans",
	"organic-materials",
	"recycled-materials",
	"limited-editions",
	"social-media-focused",
	"influencer-collabs",
	"pop-up-events",
	"community-workshops",
	"brand-storytelling",
}

// Source yields one raw answer map. Name identifies the source in warnings.
type Source interface {
	Name() string
	Answers(ctx context.Context) (map[string]any, error)
}

// MapSource is a Source backed by an in-memory map.
type MapSource struct {
	Label string
	Data  map[string]any
}

func (s MapSource) Name() string { return s.Label }

func (s MapSource) Answers(context.Context) (map[string]any, error) {
	return s.Data, nil
}

// SourceError records a source that could not be read during Collect.
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %s: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// Collect reads every source in order and merges them, later sources
// winning. A failing source is skipped and reported; Collect itself only
// fails when ctx is done.
func Collect(ctx context.Context, sources ...Source) (map[string]any, []error) {
	var warnings []error
	maps := make([]map[string]any, 0, len(sources))
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			warnings = append(warnings, err)
			break
		}
		m, err := src.Answers(ctx)
		if err != nil {
			warnings = append(warnings, &SourceError{Source: src.Name(), Err: err})
			continue
		}
		maps = append(maps, m)
	}
	return MergeAll(maps...), warnings
}

// HTMLFormSource extracts answers from a rendered survey form. Inputs are
// keyed by id; checkboxes become booleans, number inputs become numbers and
// everything else keeps its raw string value. When IDs is set only those
// fields are read.
type HTMLFormSource struct {
	Label string
	HTML  string
	IDs   []string
}

func (s HTMLFormSource) Name() string {
	if s.Label == "" {
		return "form"
	}
	return s.Label
}

func (s HTMLFormSource) Answers(context.Context) (map[string]any, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s.HTML))
	if err != nil {
		return nil, fmt.Errorf("parse form html: %w", err)
	}
	var allow map[string]bool
	if len(s.IDs) > 0 {
		allow = make(map[string]bool, len(s.IDs))
		for _, id := range s.IDs {
			allow[id] = true
		}
	}
	out := map[string]any{}
	doc.Find("input, select, textarea").Each(func(_ int, sel *goquery.Selection) {
		key, ok := fieldKey(sel)
		if !ok || (allow != nil && !allow[key]) {
			return
		}
		v, ok := fieldValue(sel)
		if !ok {
			return
		}
		out[key] = v
	})
	return out, nil
}

func fieldKey(sel *goquery.Selection) (string, bool) {
	if strings.EqualFold(sel.AttrOr("type", ""), "radio") {
		if name := strings.TrimSpace(sel.AttrOr("name", "")); name != "" {
			return name, true
		}
	}
	id := strings.TrimSpace(sel.AttrOr("id", ""))
	return id, id != ""
}

func fieldValue(sel *goquery.Selection) (any, bool) {
	switch goquery.NodeName(sel) {
	case "textarea":
		return sel.Text(), true
	case "select":
		var picked []any
		sel.Find("option").Each(func(_ int, opt *goquery.Selection) {
			if _, ok := opt.Attr("selected"); ok {
				picked = append(picked, opt.AttrOr("value", strings.TrimSpace(opt.Text())))
			}
		})
		if _, multi := sel.Attr("multiple"); multi {
			return picked, true
		}
		if len(picked) == 0 {
			return nil, false
		}
		return picked[0], true
	}

	switch strings.ToLower(sel.AttrOr("type", "text")) {
	case "checkbox":
		_, checked := sel.Attr("checked")
		return checked, true
	case "radio":
		if _, checked := sel.Attr("checked"); !checked {
			return nil, false
		}
		return sel.AttrOr("value", ""), true
	case "number":
		raw := strings.TrimSpace(sel.AttrOr("value", ""))
		if raw == "" {
			return nil, false
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return raw, true
		}
		return f, true
	case "submit", "button", "reset", "password", "file":
		return nil, false
	}
	return sel.AttrOr("value", ""), true
}
