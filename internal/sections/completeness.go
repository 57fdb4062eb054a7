package sections

import "strings"

type SectionStatus struct {
	Complete bool `json:"complete"`
}

// Report is the completeness verdict for the gated sections. It is always
// recomputed as a whole.
type Report struct {
	Sections      map[string]SectionStatus `json:"sections"`
	Missing       []string                 `json:"missing"`
	MissingLabels []string                 `json:"missingLabels"`
	IsComplete    bool                     `json:"isComplete"`
}

type rule struct {
	key   string
	label string
	check func(Sections) bool
}

var completenessRules = []rule{
	{"projectOverview", "Project Overview", func(s Sections) bool {
		return s.ProjectOverview.MainProduct != nil
	}},
	{"market", "Market Analysis", func(s Sections) bool {
		return s.Market.MarketSize != nil && s.Market.CompetitorsCount != nil
	}},
	{"marketing", "Marketing Strategy", func(s Sections) bool {
		m := s.Marketing
		return len(m.Channels) > 0 || len(m.MarketingPlan) > 0 || m.MarketingCost != nil
	}},
	{"technical", "Technical & Operational", func(s Sections) bool {
		t := s.Technical
		hasProperty := t.Property.RequiredArea != nil || t.Property.PropertyPrice != nil || t.Property.OwnershipType != nil
		hasSite := t.Site.Traffic != nil || t.Site.Parking != nil || len(t.Site.AttractionPoints) > 0
		return hasProperty || hasSite || len(t.Equipment.Items) > 0
	}},
	{"financial", "Financial Feasibility", func(s Sections) bool {
		f := s.Financial
		c := f.Capital
		hasCapital := c.TotalCapital != nil || c.OperationalCosts != nil || c.PaybackPeriod != nil || c.ROIExpectation != nil
		return hasCapital || f.FinancialStatements.HasTableData() || len(f.AnnualOperationalCosts) > 0
	}},
}

// ComputeCompleteness evaluates every section rule. A rule that panics, for
// example on a nil section, counts as incomplete.
func ComputeCompleteness(s Sections) Report {
	return evaluate(completenessRules, s)
}

func evaluate(rules []rule, s Sections) Report {
	r := Report{
		Sections:      make(map[string]SectionStatus, len(rules)),
		Missing:       []string{},
		MissingLabels: []string{},
		IsComplete:    true,
	}
	for _, rl := range rules {
		ok := safeCheck(rl.check, s)
		r.Sections[rl.key] = SectionStatus{Complete: ok}
		if !ok {
			r.Missing = append(r.Missing, rl.key)
			r.MissingLabels = append(r.MissingLabels, rl.label)
			r.IsComplete = false
		}
	}
	return r
}

func safeCheck(check func(Sections) bool, s Sections) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return check(s)
}

var gateLabels = map[string]string{
	"projectOverview": "Project Overview",
	"market":          "Market",
	"marketing":       "Marketing",
	"technical":       "Technical",
	"financial":       "Financial",
}

// MissingForGeneration lists the parts that must be filled in before a report
// may be generated: the cover page basics, then each incomplete section.
// It only gates generation; saving is never blocked.
func MissingForGeneration(answers map[string]any, r Report) []string {
	var out []string
	name := ToStringOrNil(answers["projectName"])
	kind := ToStringOrNil(first(answers, "projectSector", "projectType"))
	if name == nil || kind == nil {
		out = append(out, "Cover Page")
	}
	for _, rl := range completenessRules {
		if st, ok := r.Sections[rl.key]; ok && st.Complete {
			continue
		}
		out = append(out, gateLabels[rl.key])
	}
	return out
}

// MissingSummary joins the labels for display.
func MissingSummary(labels []string) string {
	return strings.Join(labels, ", ")
}
