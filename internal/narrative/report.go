package narrative

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/joelkehle/feasibility-study/internal/finance"
	"github.com/joelkehle/feasibility-study/internal/payload"
)

type Section struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Content   string          `json:"content"`
	Tables    []finance.Table `json:"tables"`
	WordCount int             `json:"wordCount"`
}

// Report is the generated narrative, normalized to the fixed section layout.
type Report struct {
	Title            string              `json:"title"`
	Language         string              `json:"language"`
	ExecutiveSummary string              `json:"executiveSummary"`
	CoverPage        *payload.CoverPage  `json:"coverPage,omitempty"`
	Sections         []Section           `json:"sections"`
	Financial        *finance.Statements `json:"financial,omitempty"`
	Comparison       *payload.Comparison `json:"comparison"`
	Keywords         []string            `json:"keywords"`
	Disclaimers      []string            `json:"disclaimers"`
}

// Section returns the section with the given id, or nil.
func (r *Report) Section(id string) *Section {
	for i := range r.Sections {
		if r.Sections[i].ID == id {
			return &r.Sections[i]
		}
	}
	return nil
}

// decodeReport reads a loosely typed model object. Fields of the wrong type
// are dropped rather than failing the whole report.
func decodeReport(m map[string]any) *Report {
	r := &Report{
		Title:            str(m["title"]),
		Language:         str(m["language"]),
		ExecutiveSummary: str(m["executiveSummary"]),
		Sections:         []Section{},
		Keywords:         strList(m["keywords"]),
		Disclaimers:      strList(m["disclaimers"]),
	}
	if raw, ok := m["sections"].([]any); ok {
		for _, item := range raw {
			sm, ok := item.(map[string]any)
			if !ok {
				continue
			}
			id := strings.TrimSpace(str(sm["id"]))
			if id == "" {
				continue
			}
			r.Sections = append(r.Sections, Section{
				ID:      id,
				Title:   str(sm["title"]),
				Content: str(sm["content"]),
				Tables:  tables(sm["tables"]),
			})
		}
	}
	if cp, ok := m["coverPage"].(map[string]any); ok {
		var cover payload.CoverPage
		if reencode(cp, &cover) {
			r.CoverPage = &cover
		}
	}
	if fin, ok := m["financial"].(map[string]any); ok {
		r.Financial = financial(fin)
	}
	if cmp, ok := m["comparison"].(map[string]any); ok {
		c := payload.Comparison{Notes: str(cmp["notes"])}
		c.Enabled, _ = cmp["enabled"].(bool)
		if tm, ok := cmp["table"].(map[string]any); ok {
			t := table("", tm)
			c.Table = &payload.ComparisonGrid{Headers: t.Headers, Rows: t.Rows}
		}
		r.Comparison = &c
	}
	return r
}

func str(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}

func strList(v any) []string {
	out := []string{}
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			if s := strings.TrimSpace(str(item)); s != "" {
				out = append(out, s)
			}
		}
	case string:
		for _, s := range strings.Split(t, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func tables(v any) []finance.Table {
	out := []finance.Table{}
	raw, _ := v.([]any)
	for _, item := range raw {
		if tm, ok := item.(map[string]any); ok {
			out = append(out, table(str(tm["title"]), tm))
		}
	}
	return out
}

// table pads or trims every row to the header width; missing cells become
// an em dash.
func table(title string, m map[string]any) finance.Table {
	t := finance.Table{Title: title, Headers: strList(m["headers"]), Rows: [][]string{}}
	raw, _ := m["rows"].([]any)
	for _, r := range raw {
		cells, _ := r.([]any)
		row := make([]string, 0, len(t.Headers))
		for i := range t.Headers {
			cell := "—"
			if i < len(cells) && cells[i] != nil {
				cell = str(cells[i])
			}
			row = append(row, cell)
		}
		if len(t.Headers) == 0 {
			for _, c := range cells {
				row = append(row, str(c))
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func financial(m map[string]any) *finance.Statements {
	st := &finance.Statements{Assumptions: strList(m["assumptions"]), Ratios: []finance.Ratio{}}
	grid := func(key, title string) finance.Table {
		if tm, ok := m[key].(map[string]any); ok {
			return table(title, tm)
		}
		return finance.Table{Title: title, Headers: []string{}, Rows: [][]string{}}
	}
	st.IncomeStatement = grid("incomeStatement", "Income Statement")
	st.BalanceSheet = grid("balanceSheet", "Balance Sheet")
	st.CashFlow = grid("cashFlow", "Cash Flow Statement")
	if rs, ok := m["ratios"].([]any); ok {
		for _, r := range rs {
			if rm, ok := r.(map[string]any); ok {
				st.Ratios = append(st.Ratios, finance.Ratio{Metric: str(rm["metric"]), Value: str(rm["value"])})
			}
		}
	}
	if roi, ok := m["roi"].(map[string]any); ok {
		st.ROI = finance.ROI{NPV: str(roi["npv"]), IRR: str(roi["irr"]), PaybackPeriod: str(roi["paybackPeriod"])}
	}
	return st
}

func reencode(v any, out any) bool {
	raw, err := json.Marshal(v)
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, out) == nil
}

// mergeParts combines chunked responses. Title, language, summary, keywords
// and disclaimers come from the first part; later parts only add keywords
// and disclaimers not seen yet. The first occurrence of a section id wins,
// and an enabled comparison from any part replaces the current one.
func mergeParts(parts []*Report, lang string) *Report {
	merged := &Report{Language: lang, Sections: []Section{}, Keywords: []string{}, Disclaimers: []string{}}
	seen := map[string]bool{}
	for i, p := range parts {
		if p == nil {
			continue
		}
		if i == 0 {
			if p.Title != "" {
				merged.Title = p.Title
			}
			if p.Language != "" {
				merged.Language = p.Language
			}
			merged.ExecutiveSummary = p.ExecutiveSummary
			merged.CoverPage = p.CoverPage
			merged.Keywords = append(merged.Keywords, p.Keywords...)
			merged.Disclaimers = append(merged.Disclaimers, p.Disclaimers...)
		} else {
			merged.Keywords = union(merged.Keywords, p.Keywords)
			merged.Disclaimers = union(merged.Disclaimers, p.Disclaimers)
		}
		for _, s := range p.Sections {
			if !seen[s.ID] {
				seen[s.ID] = true
				merged.Sections = append(merged.Sections, s)
			}
		}
		if p.Comparison != nil && p.Comparison.Enabled {
			merged.Comparison = p.Comparison
		}
	}
	return merged
}

func union(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range append(append([]string{}, a...), b...) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// NormalizeOptions carries the locally computed data a report is completed
// with.
type NormalizeOptions struct {
	Language   string
	Comparison []string
	Statements *finance.Statements
	CoverPage  payload.CoverPage
}

const minSummaryWords = 300

// Normalize enforces the fixed layout on r in place and returns it:
// exactly the numbered sections in order with their canonical titles, word
// counts recomputed, the comparison table completed when the user selected
// options, local financial statements attached and appended to the
// financial section's tables, and a default executive summary when the
// model's is missing or too short. Missing sections stay empty; no section
// text is invented.
func Normalize(r *Report, opts NormalizeOptions) *Report {
	if r == nil {
		r = &Report{}
	}
	lang := opts.Language
	if lang == "" {
		lang = "en"
	}
	if r.Language == "" {
		r.Language = lang
	}

	byID := make(map[string]Section, len(r.Sections))
	for _, s := range r.Sections {
		if _, dup := byID[s.ID]; !dup {
			byID[s.ID] = s
		}
	}
	ordered := make([]Section, 0, len(payload.SectionIDs))
	for _, id := range payload.SectionIDs {
		s := byID[id]
		s.ID = id
		s.Title = payload.SectionTitles[id]
		if s.Tables == nil {
			s.Tables = []finance.Table{}
		}
		s.WordCount = len(strings.Fields(s.Content))
		ordered = append(ordered, s)
	}
	r.Sections = ordered

	r.Comparison = payload.BuildComparison(r.Comparison, opts.Comparison, lang)

	if opts.Statements != nil {
		st := *opts.Statements
		r.Financial = &st
		if fin := r.Section(payload.FinancialSectionID); fin != nil {
			fin.Tables = append(fin.Tables, st.Tables()...)
		}
	}

	if r.CoverPage == nil {
		cover := opts.CoverPage
		r.CoverPage = &cover
	}

	summary := strings.TrimSpace(r.ExecutiveSummary)
	if summary == "" || payload.IsNoDataString(summary, lang) || len(strings.Fields(summary)) < minSummaryWords {
		r.ExecutiveSummary = defaultExecutiveSummary
	}
	if r.Keywords == nil {
		r.Keywords = []string{}
	}
	if r.Disclaimers == nil {
		r.Disclaimers = []string{}
	}
	return r
}

const defaultExecutiveSummary = `This executive summary gives a structured overview of the project: the market opportunity, the proposed solution, and the path from concept to implementation. It places the project within its sector and location, states the core assumptions used in the preliminary analysis, and explains the strategic rationale behind the initiative. It also previews the technical and operational setup, the organizational model, and the financial logic used to judge viability, so that decision makers can grasp the key points quickly.

Market feasibility is assessed in terms of addressable demand, competitive intensity and growth drivers. Based on the information provided, the summary discusses possible differentiation strategies and the expected positioning against incumbent and emerging competitors. It outlines the intended marketing strategy and the channels most likely to reach the target audience given cost constraints, expected customer behavior and brand objectives.

On the technical and operational side, the summary introduces the technology and infrastructure considerations, identifies operational requirements and staffing needs, and flags dependencies that could affect business continuity. It refers to the regulatory and compliance factors relevant to licensing and permits, as well as environmental and social considerations that may influence public acceptance and long-term sustainability.

From a risk perspective, the summary lists the main uncertainties, including demand variability, cost overruns, regulatory changes and execution hurdles. Where inputs are limited, conservative assumptions are applied and stated explicitly. The economic view highlights expected value added and possible contributions to local output and trade, framing the wider economic implications of the project.

Financial feasibility is summarized through a high-level view of revenue and cost assumptions, currency considerations and the structure of capital requirements. The summary previews the projections presented later in the report, namely the income statement, balance sheet, cash flow statement and key ratios, together with return measures such as net present value, internal rate of return and payback period. Taken together, these elements form a coherent basis for an informed decision and for the due diligence that should follow.`
