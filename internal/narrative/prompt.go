package narrative

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/joelkehle/feasibility-study/internal/payload"
)

type PromptOptions struct {
	// SectionIDs limits the request to a subset; empty means every section.
	SectionIDs        []string
	IncludeMeta       bool
	IncludeComparison bool
}

const expertGuidanceLimit = 4000

const reportSchemaPrompt = `{
  "title": "string",
  "language": "%[1]s",
  "executiveSummary": "string",
  "coverPage": {
    "studyType": "string", "projectName": "string", "projectDescription": "string", "visionMission": "string",
    "basicInfo": {
      "sector": "string", "projectType": "string", "specifiedProjectType": "string",
      "country": "string", "city": "string", "area": "string",
      "fundingMethod": "string", "personalContribution": "string", "loanAmount": "string",
      "interestValue": "string", "currency": "string", "totalCapital": "string",
      "loanMonths": "string", "targetAudience": "string", "projectStatus": "string",
      "duration": "string", "durationUnit": "string"
    },
    "author": {"fullName": "string", "email": "string"},
    "timestamp": {"iso": "string", "date": "string", "time": "string", "formatted": "string"},
    "confidentiality": "string"
  },
  "sections": [
    {"id": "1-1", "title": "string", "content": "string",
     "tables": [{"title": "string", "headers": ["string"], "rows": [["string"]]}], "wordCount": 0}
  ],
  "financial": {
    "assumptions": ["string"],
    "incomeStatement": {"headers": ["string"], "rows": [["string"]]},
    "balanceSheet": {"headers": ["string"], "rows": [["string"]]},
    "cashFlow": {"headers": ["string"], "rows": [["string"]]},
    "ratios": [{"metric": "string", "value": "string"}],
    "roi": {"npv": "string", "irr": "string", "paybackPeriod": "string"}
  },
  "comparison": {"enabled": false, "table": {"headers": ["string"], "rows": [["string"]]}, "notes": "string"},
  "keywords": ["string"],
  "disclaimers": ["string"]
}`

// BuildPrompt renders the report instruction for data, which must already be
// sanitized and fitted to its budget.
func BuildPrompt(lang, expert string, data any, opts PromptOptions) (string, error) {
	lang = payload.SanitizeString(lang, 16)
	if lang == "" {
		lang = "en"
	}
	ids := opts.SectionIDs
	if len(ids) == 0 {
		ids = payload.SectionIDs
	}
	blob, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode prompt data: %w", err)
	}

	var b strings.Builder
	b.WriteString("You are a professional feasibility study expert. Write a comprehensive, decision-oriented feasibility report")
	fmt.Fprintf(&b, " in %s, based only on the project data below.\n\n", lang)
	b.WriteString(`Writing rules:
1. Open each section with an introduction specific to this project; never reuse an opening.
2. Analyze the provided data in depth and tie findings to the project's real context.
3. Keep a formal academic tone with fully justified paragraphs.
4. Use real figures in tables whenever they are provided, and explain every table in prose.
5. Do not use boilerplate phrases such as "Detailed analysis:", "Interpretation and recommendations:" or "Based on available inputs and reasonable assumptions".

Report layout: cover page, executive summary of 500 to 700 words with keywords, table of contents, then the numbered sections in order.

Sections:
`)
	for _, id := range payload.SectionIDs {
		fmt.Fprintf(&b, "%s: %s\n", id, payload.SectionTitles[id])
	}
	b.WriteString(`
Section 1-18 must contain the income statement, balance sheet and cash flow statement, liquidity, profitability and leverage ratios, NPV, IRR and payback period, and break-even and sensitivity analysis, each followed by commentary linking it to the investment decision.
`)
	if g := payload.SanitizeString(expert, expertGuidanceLimit); g != "" {
		b.WriteString("\nAdditional guidance:\n")
		b.WriteString(g)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	if opts.IncludeMeta {
		b.WriteString("Include all main fields (title, executiveSummary, coverPage, sections, keywords, disclaimers).\n")
	} else {
		b.WriteString(`Include only the "sections" field.` + "\n")
	}
	if opts.IncludeComparison {
		b.WriteString("Include the comparison object only if comparison options are present in the project data.\n")
	} else {
		b.WriteString("Exclude the comparison object completely.\n")
	}
	fmt.Fprintf(&b, "\nRequired section order: %s\n", strings.Join(ids, ", "))
	fmt.Fprintf(&b, "\nJSON schema (return exactly one object in this format and nothing else):\n"+reportSchemaPrompt+"\n", lang)
	b.WriteString("\nProject data:\n")
	b.Write(blob)
	b.WriteString("\n\nAll content must be original and analytical. Respond with only valid JSON.")
	return b.String(), nil
}
