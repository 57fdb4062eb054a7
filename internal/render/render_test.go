package render

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joelkehle/feasibility-study/internal/finance"
	"github.com/joelkehle/feasibility-study/internal/narrative"
	"github.com/joelkehle/feasibility-study/internal/payload"
)

func sampleReport() *narrative.Report {
	cover := payload.CoverPage{
		StudyType:   "Preliminary Feasibility Study",
		ProjectName: "Sunrise Bakery",
		BasicInfo:   payload.BasicInfo{Sector: "Food", ProjectType: "Retail", Country: "Morocco", City: "Rabat"},
		Author:      payload.Author{FullName: "Sam Idrissi", Email: "sam@example.com"},
		Timestamp:   payload.Timestamp{Date: "2026-03-01", Time: "09:30:00"},
	}
	return &narrative.Report{
		Title:            "Sunrise Bakery Feasibility",
		Language:         "en",
		ExecutiveSummary: "The bakery is viable.",
		CoverPage:        &cover,
		Sections: []narrative.Section{
			{ID: "1-1", Title: "Project Overview", Content: "Fresh bread daily."},
			{ID: "1-2", Title: "Business Model", Content: "No data provided."},
			{ID: "1-18", Title: "Financial Feasibility Study", Tables: []finance.Table{{
				Title:   "Income Statement",
				Headers: []string{"Item", "Year 1"},
				Rows:    [][]string{{"Sales", "1,000"}, {"Fees | other"}},
			}}},
		},
		Comparison: &payload.Comparison{
			Enabled: true,
			Table:   &payload.ComparisonGrid{Headers: []string{"Option", "Risk Level"}, Rows: [][]string{{"Deposit", "Low"}}},
		},
		Keywords:    []string{"bakery", "retail"},
		Disclaimers: []string{"Estimates only."},
	}
}

func TestBuildMeta(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	m := BuildMeta(sampleReport(), "", at)
	assert.Equal(t, "en", m.Language)
	assert.Equal(t, "Sunrise Bakery", m.ProjectName)
	assert.Equal(t, "Project: Sunrise Bakery | Sector: Food | Type: Retail | Location: Morocco, Rabat", m.ProjectInfo)
	assert.Equal(t, "Author: Sam Idrissi | Email: sam@example.com", m.AuthorInfo)
	assert.Equal(t, "Confidential – For internal analysis only", m.Confidentiality)

	bare := BuildMeta(&narrative.Report{}, "fr", at)
	assert.Equal(t, "Project", bare.ProjectName)
	assert.Empty(t, bare.ProjectInfo)

	titled := BuildMeta(&narrative.Report{Title: "Kiosk"}, "fr", at)
	assert.Equal(t, "Kiosk", titled.ProjectName)
}

func TestFileName(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 5, 0, 0, time.UTC)
	assert.Equal(t, "Sunrise-Bakery-Feasibility-Report-20260301-0905.pdf", FileName("Sunrise Bakery", at))
	assert.Equal(t, "Caf-Co-Feasibility-Report-20260301-0905.pdf", FileName("Café & Co", at))
	assert.Equal(t, "Project-Feasibility-Report-20260301-0905.pdf", FileName("  ", at))
}

func TestMarkdownLayout(t *testing.T) {
	r := sampleReport()
	md := Markdown(r, BuildMeta(r, "en", time.Now()))

	order := []string{
		"# Sunrise Bakery Feasibility",
		"Preliminary Feasibility Study",
		"**Sunrise Bakery**",
		"Food | Retail | Morocco | Rabat",
		"Author: Sam Idrissi | sam@example.com",
		"Timestamp: 2026-03-01 09:30:00",
		"## Summary {#summary}",
		"### Keywords",
		"## Table of Contents",
		"- [1-1 Project Overview](#sec-1-1)",
		"- [2-1 Comparison](#comparison-2-1)",
		"## 1-1 Project Overview {#sec-1-1}",
		"Fresh bread daily.",
		"## 1-2 Business Model {#sec-1-2}",
		"### Income Statement",
		"| Item | Year 1 |",
		`| Fees \| other | — |`,
		"## 2-1 Comparison {#comparison-2-1}",
		"| Deposit | Low |",
		"## Disclaimers",
		"- Estimates only.",
	}
	pos := 0
	for _, want := range order {
		i := strings.Index(md[pos:], want)
		require.GreaterOrEqual(t, i, 0, "missing or out of order: %q", want)
		pos += i + len(want)
	}
	assert.NotContains(t, md, "No data provided")
}

func TestHTMLDirectionAndPageBreaks(t *testing.T) {
	r := sampleReport()
	renderer := NewChromiumPDFRenderer("", "", nil)

	doc, err := renderer.HTML(r, BuildMeta(r, "ar", time.Now()))
	require.NoError(t, err)
	assert.Contains(t, doc, "dir='rtl'")
	assert.Contains(t, doc, "lang='ar'")
	assert.Contains(t, doc, `<h2 id="sec-1-1" data-page-break-before="true">`)
	assert.Contains(t, doc, `<h2 id="summary" data-page-break-before="true">`)
	assert.Contains(t, doc, "<table>")

	doc, err = renderer.HTML(r, BuildMeta(r, "en-GB", time.Now()))
	require.NoError(t, err)
	assert.Contains(t, doc, "dir='ltr'")
}

func TestHTMLMissingStylesheet(t *testing.T) {
	renderer := NewChromiumPDFRenderer("", "/nonexistent/style.css", nil)
	_, err := renderer.HTML(sampleReport(), Meta{})
	assert.Error(t, err)
}

func TestApplyPrintLayoutHooksNoopWithoutSections(t *testing.T) {
	in := "<h2 id=\"other\">Other</h2><p>x</p>"
	assert.Equal(t, in, applyPrintLayoutHooks(in))
}
