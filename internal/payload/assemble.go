package payload

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/joelkehle/feasibility-study/internal/finance"
	"github.com/joelkehle/feasibility-study/internal/merge"
	"github.com/joelkehle/feasibility-study/internal/sections"
)

// Page names used in Order.Pages besides the numbered sections.
const (
	PageCover            = "coverPage"
	PageExecutiveSummary = "executiveSummary"
	PageTableOfContents  = "tableOfContents"
)

type Order struct {
	Pages              []string `json:"pages"`
	RequiredSectionIDs []string `json:"requiredSectionIds"`
}

// PageOrder is cover, executive summary, table of contents, then every
// section in order.
func PageOrder() Order {
	pages := []string{PageCover, PageExecutiveSummary, PageTableOfContents}
	for _, id := range SectionIDs {
		pages = append(pages, "section:"+id)
	}
	return Order{Pages: pages, RequiredSectionIDs: append([]string(nil), SectionIDs...)}
}

type Formatting struct {
	ParagraphsAlignment string `json:"paragraphsAlignment"`
	CoverPageAlignment  string `json:"coverPageAlignment"`
}

type Constraints struct {
	ForceFinancialSectionID string `json:"forceFinancialSectionId"`
	IncludeAllFields        bool   `json:"includeAllFields"`
	DisallowTruncation      bool   `json:"disallowTruncation"`
}

// Payload is the complete narrative request.
type Payload struct {
	Order                 Order               `json:"order"`
	Formatting            Formatting          `json:"formatting"`
	CoverPage             CoverPage           `json:"coverPage"`
	SectionInputs         SectionInputs       `json:"sectionInputs"`
	RawSurvey             map[string]any      `json:"rawSurvey"`
	Author                Author              `json:"author"`
	AdditionalInvestments any                 `json:"additionalInvestments"`
	Comparison            []string            `json:"comparison"`
	Financial             *finance.Statements `json:"financial,omitempty"`
	Language              string              `json:"language"`
	Constraints           Constraints         `json:"constraints"`
}

// Request carries everything Assemble reads.
type Request struct {
	Answers  map[string]any
	Sections sections.Sections
	// Analysis is attached to the financial section when set.
	Analysis   *finance.Analysis
	Author     Author
	Comparison []string
	Language   string
	Now        time.Time
}

// Assemble builds the payload in its fixed order. Nothing is truncated here;
// callers that must respect a size budget pass the result to FitToLimit.
func Assemble(req Request) Payload {
	if req.Language == "" {
		req.Language = "en"
	}
	if req.Now.IsZero() {
		req.Now = time.Now()
	}
	answers := req.Answers
	if answers == nil {
		answers = map[string]any{}
	}

	inputs := BuildSectionInputs(Input{Answers: answers, Sections: req.Sections})
	p := Payload{
		Order:         PageOrder(),
		Formatting:    Formatting{ParagraphsAlignment: "justify", CoverPageAlignment: "center"},
		CoverPage:     BuildCoverPage(answers, req.Author, req.Language, req.Now),
		SectionInputs: inputs,
		RawSurvey:     merge.FilterMap(answers),
		Comparison:    req.Comparison,
		Language:      req.Language,
		Constraints: Constraints{
			ForceFinancialSectionID: FinancialSectionID,
			IncludeAllFields:        true,
			DisallowTruncation:      true,
		},
	}
	p.Author = p.CoverPage.Author
	if v, ok := inputs["1-19"]["additionalInvestments"]; ok {
		p.AdditionalInvestments = v
	}
	if req.Analysis != nil {
		st := finance.BuildStatements(*req.Analysis, req.Language)
		p.Financial = &st
		if fin := inputs[FinancialSectionID]; fin != nil {
			fin["financialStatements"] = statementsInput(st)
		}
	}
	return p
}

// statementsInput is the section 1-18 view of the computed statements.
func statementsInput(st finance.Statements) map[string]any {
	out := map[string]any{
		"incomeStatement": tableInput(st.IncomeStatement),
		"balanceSheet":    tableInput(st.BalanceSheet),
		"cashFlow":        tableInput(st.CashFlow),
		"assumptions":     list(st.Assumptions),
		"roi": map[string]any{
			"npv":           st.ROI.NPV,
			"irr":           st.ROI.IRR,
			"paybackPeriod": st.ROI.PaybackPeriod,
		},
	}
	ratios := make([]any, 0, len(st.Ratios))
	for _, r := range st.Ratios {
		ratios = append(ratios, map[string]any{"metric": r.Metric, "value": r.Value})
	}
	out["ratios"] = ratios
	return out
}

func tableInput(t finance.Table) map[string]any {
	g, _ := grid(t.Headers, t.Rows).(map[string]any)
	if g == nil {
		g = map[string]any{"headers": list(t.Headers), "rows": []any{}}
	}
	return g
}

// Comparison is the optional table contrasting the project with alternative
// placements of the same capital.
type Comparison struct {
	Enabled bool           `json:"enabled"`
	Table   *ComparisonGrid `json:"table"`
	Notes   string         `json:"notes"`
}

type ComparisonGrid struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

const defaultComparisonNotes = "Comparison analysis: The table contrasts alternative investment/placement options on return profile, risk exposure, and liquidity. Estimates are indicative and should be calibrated with current market data."

// BuildComparison returns nil unless the user picked at least one option.
// A missing table gets one indicative row per option, and missing or
// placeholder notes get the default explanation.
func BuildComparison(existing *Comparison, selected []string, lang string) *Comparison {
	if len(selected) == 0 {
		return nil
	}
	c := Comparison{}
	if existing != nil {
		c = *existing
	}
	c.Enabled = true
	if c.Table == nil || len(c.Table.Headers) == 0 {
		title := cases.Title(language.Und)
		rows := make([][]string, 0, len(selected))
		for _, opt := range selected {
			name := title.String(strings.NewReplacer("_", " ", "-", " ").Replace(opt))
			rows = append(rows, []string{name, "Representative Index", "Est.", "Medium", "Medium"})
		}
		c.Table = &ComparisonGrid{
			Headers: []string{"Option", "Key Metric", "Est. Return", "Risk Level", "Liquidity"},
			Rows:    rows,
		}
	}
	if strings.TrimSpace(c.Notes) == "" || IsNoDataString(c.Notes, lang) {
		c.Notes = defaultComparisonNotes
	}
	return &c
}

// IsNoDataString reports whether s is the localized "Data required"
// placeholder or a "no data provided" phrase.
func IsNoDataString(s, lang string) bool {
	t := strings.ToLower(strings.TrimSpace(s))
	return t == strings.ToLower(finance.DataRequired(lang)) || strings.Contains(t, "no data provided")
}
