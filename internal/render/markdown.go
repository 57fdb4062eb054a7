// Package render turns a generated report into Markdown, HTML and PDF.
package render

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/joelkehle/feasibility-study/internal/finance"
	"github.com/joelkehle/feasibility-study/internal/narrative"
	"github.com/joelkehle/feasibility-study/internal/payload"
)

const defaultConfidentiality = "Confidential – For internal analysis only"

// Meta is the document metadata shown on the cover when the report's own
// cover page lacks it.
type Meta struct {
	Language        string    `json:"language"`
	Timestamp       time.Time `json:"timestamp"`
	ProjectName     string    `json:"projectName"`
	ProjectInfo     string    `json:"projectInfo"`
	AuthorInfo      string    `json:"authorInfo"`
	Confidentiality string    `json:"confidentiality"`
}

// BuildMeta derives the render metadata from a report's cover page.
func BuildMeta(r *narrative.Report, lang string, at time.Time) Meta {
	m := Meta{Language: lang, Timestamp: at, Confidentiality: defaultConfidentiality}
	if m.Language == "" {
		m.Language = r.Language
	}
	var cp payload.CoverPage
	if r.CoverPage != nil {
		cp = *r.CoverPage
	}
	m.ProjectName = firstNonBlank(cp.ProjectName, r.Title, "Project")

	var info []string
	if cp.ProjectName != "" {
		info = append(info, "Project: "+cp.ProjectName)
	}
	if cp.BasicInfo.Sector != "" {
		info = append(info, "Sector: "+cp.BasicInfo.Sector)
	}
	if cp.BasicInfo.ProjectType != "" {
		info = append(info, "Type: "+cp.BasicInfo.ProjectType)
	}
	if loc := nonBlank(cp.BasicInfo.Country, cp.BasicInfo.City); len(loc) > 0 {
		info = append(info, "Location: "+strings.Join(loc, ", "))
	}
	m.ProjectInfo = strings.Join(info, " | ")

	var author []string
	if cp.Author.FullName != "" {
		author = append(author, "Author: "+cp.Author.FullName)
	}
	if cp.Author.Email != "" {
		author = append(author, "Email: "+cp.Author.Email)
	}
	m.AuthorInfo = strings.Join(author, " | ")
	return m
}

var unsafeFileChars = regexp.MustCompile(`[^\w-]+`)

// FileName is "<project>-Feasibility-Report-YYYYMMDD-HHMM.pdf" with every run
// of characters other than letters, digits, underscore and hyphen replaced
// by a hyphen.
func FileName(projectName string, at time.Time) string {
	base := strings.TrimSpace(projectName)
	if base == "" {
		base = "Project"
	}
	base = unsafeFileChars.ReplaceAllString(base, "-")
	return fmt.Sprintf("%s-Feasibility-Report-%s.pdf", base, at.Format("20060102-1504"))
}

var noDataProvided = regexp.MustCompile(`(?i)\bno\s*data\s*provided\b`)

// Markdown lays the report out as cover, summary with keywords, table of
// contents, the numbered sections with their tables, the comparison and the
// disclaimers. Section text that only says no data was provided is left
// out; nothing is written in its place.
func Markdown(r *narrative.Report, meta Meta) string {
	var b strings.Builder
	cp := payload.CoverPage{}
	if r.CoverPage != nil {
		cp = *r.CoverPage
	}

	fmt.Fprintf(&b, "# %s\n\n", firstNonBlank(r.Title, "Feasibility Study"))
	line(&b, firstNonBlank(cp.StudyType, meta.ProjectInfo))
	if name := firstNonBlank(cp.ProjectName, meta.ProjectName); name != "" {
		line(&b, "**"+escapeInline(name)+"**")
	}
	line(&b, cp.ProjectDescription)
	line(&b, cp.VisionMission)
	line(&b, firstNonBlank(strings.Join(basicInfoValues(cp.BasicInfo), " | "), meta.ProjectInfo))
	if cp.Author.FullName != "" {
		author := "Author: " + cp.Author.FullName
		if cp.Author.Email != "" {
			author += " | " + cp.Author.Email
		}
		line(&b, author)
	} else {
		line(&b, meta.AuthorInfo)
	}
	if cp.Timestamp.Date != "" {
		line(&b, "Timestamp: "+cp.Timestamp.Date+" "+cp.Timestamp.Time)
	} else if !meta.Timestamp.IsZero() {
		line(&b, "Timestamp: "+meta.Timestamp.Format("2006-01-02 15:04:05"))
	}
	line(&b, "_"+firstNonBlank(cp.Confidentiality, meta.Confidentiality, defaultConfidentiality)+"_")

	b.WriteString("## Summary {#summary}\n\n")
	line(&b, r.ExecutiveSummary)
	if len(r.Keywords) > 0 {
		b.WriteString("### Keywords\n\n")
		line(&b, strings.Join(r.Keywords, ", "))
	}

	comparison := r.Comparison != nil && r.Comparison.Enabled
	b.WriteString("## Table of Contents {#contents}\n\n")
	for _, s := range r.Sections {
		fmt.Fprintf(&b, "- [%s](#%s)\n", escapeInline(s.ID+" "+s.Title), anchor(s.ID))
	}
	if comparison {
		b.WriteString("- [2-1 Comparison](#comparison-2-1)\n")
	}
	b.WriteString("\n")

	for _, s := range r.Sections {
		fmt.Fprintf(&b, "## %s {#%s}\n\n", escapeInline(s.ID+" "+s.Title), anchor(s.ID))
		if !noDataProvided.MatchString(s.Content) {
			line(&b, s.Content)
		}
		for _, t := range s.Tables {
			writeTable(&b, t)
		}
	}

	if comparison {
		b.WriteString("## 2-1 Comparison {#comparison-2-1}\n\n")
		if t := r.Comparison.Table; t != nil {
			writeTable(&b, finance.Table{Headers: t.Headers, Rows: t.Rows})
		}
		line(&b, firstNonBlank(r.Comparison.Notes, "Comparison analysis generated based on selected options."))
	}

	if len(r.Disclaimers) > 0 {
		b.WriteString("## Disclaimers {#disclaimers}\n\n")
		for _, d := range r.Disclaimers {
			fmt.Fprintf(&b, "- %s\n", escapeInline(d))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func line(b *strings.Builder, s string) {
	if s = strings.TrimSpace(s); s != "" {
		b.WriteString(s)
		b.WriteString("\n\n")
	}
}

func anchor(id string) string {
	return "sec-" + strings.Join(strings.Fields(id), "-")
}

// writeTable writes t as a GFM table. Rows are padded or cut to the header
// width and missing cells shown as an em dash.
func writeTable(b *strings.Builder, t finance.Table) {
	if len(t.Headers) == 0 {
		return
	}
	if title := strings.TrimSpace(t.Title); title != "" {
		fmt.Fprintf(b, "### %s\n\n", escapeInline(title))
	}
	cells := func(row []string) {
		b.WriteString("|")
		for i := range t.Headers {
			v := ""
			if i < len(row) {
				v = strings.TrimSpace(row[i])
			}
			if v == "" {
				v = "—"
			}
			b.WriteString(" " + escapeCell(v) + " |")
		}
		b.WriteString("\n")
	}
	cells(t.Headers)
	b.WriteString("|")
	for range t.Headers {
		b.WriteString(" --- |")
	}
	b.WriteString("\n")
	for _, row := range t.Rows {
		cells(row)
	}
	b.WriteString("\n")
}

var cellEscaper = strings.NewReplacer("|", `\|`, "\r\n", " ", "\n", " ")

func escapeCell(s string) string { return cellEscaper.Replace(s) }

var inlineEscaper = strings.NewReplacer("[", `\[`, "]", `\]`, "{", `\{`, "}", `\}`, "\n", " ")

func escapeInline(s string) string { return inlineEscaper.Replace(s) }

func basicInfoValues(bi payload.BasicInfo) []string {
	return nonBlank(
		bi.Sector, bi.ProjectType, bi.SpecifiedProjectType, bi.Country, bi.City, bi.Area,
		bi.FundingMethod, bi.PersonalContribution, bi.LoanAmount, bi.InterestValue, bi.Currency,
		bi.TotalCapital, bi.LoanMonths, bi.TargetAudience, bi.ProjectStatus, bi.Duration, bi.DurationUnit,
	)
}

func nonBlank(values ...string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
