// Package payload assembles the structured request sent to the narrative
// service: cover page, per-section inputs 1-1..1-19, the computed financial
// statements and the ordering constraints the report must follow.
package payload

import (
	"fmt"
	"sort"
	"strings"

	"github.com/joelkehle/feasibility-study/internal/merge"
	"github.com/joelkehle/feasibility-study/internal/sections"
)

// FinancialSectionID is the section that carries the financial statements.
const FinancialSectionID = "1-18"

// SectionIDs lists the report sections in their required order.
var SectionIDs = func() []string {
	ids := make([]string, 0, 19)
	for i := 1; i <= 19; i++ {
		ids = append(ids, fmt.Sprintf("1-%d", i))
	}
	return ids
}()

// SectionTitles are the canonical section titles. A generated report always
// uses these, whatever titles the model returned.
var SectionTitles = map[string]string{
	"1-1":  "Introduction",
	"1-2":  "Project Concept Analysis",
	"1-3":  "Market Feasibility Study",
	"1-4":  "Marketing Strategy Analysis",
	"1-5":  "Technical Feasibility Assessment",
	"1-6":  "Technology Infrastructure Analysis",
	"1-7":  "Operational Requirements Analysis",
	"1-8":  "Organizational Structure Design",
	"1-9":  "Legal and Regulatory Compliance",
	"1-10": "Environmental Impact Assessment",
	"1-11": "Social Impact Analysis",
	"1-12": "Cultural Context Analysis",
	"1-13": "Consumer Behavior Analysis",
	"1-14": "Political and Regulatory Environment",
	"1-15": "Project Timeline and Milestones",
	"1-16": "Risk Assessment and Mitigation",
	"1-17": "Economic Viability Analysis",
	"1-18": "Financial Feasibility Study",
	"1-19": "Additional Investment Requirements",
}

// Input is what a field formatter reads from.
type Input struct {
	Answers  map[string]any
	Sections sections.Sections
}

// Formatter renders one section field. It returns nil when the field has
// nothing to say; nil fields are left out of the payload.
type Formatter func(Input) any

// layout fixes which fields each section input carries.
var layout = []struct {
	id     string
	fields []string
}{
	{"1-1", []string{"projectName", "sector", "projectType", "specifiedProjectType", "projectDescription", "targetAudience", "projectStatus", "duration", "durationUnit"}},
	{"1-2", []string{"projectName", "description", "visionMission", "projectIdea", "problemSolution", "businessModel", "distributionChannels", "businessType"}},
	{"1-3", []string{"marketSize", "potentialCustomers", "growthRate", "growthFactors", "competitorsCount", "marketGap", "marketFeasibility", "marketNotes"}},
	{"1-4", []string{"targetAge", "customerIncome", "marketingChannels", "marketingPlan", "marketingCost", "competitiveAdvantage", "reachability", "marketingNotes", "brandIdentityFeatures", "positioning"}},
	{"1-5", []string{"equipmentList", "inventoryValue", "goodsTypes", "propertySummary", "locationTraffic", "parkingAvailability", "attractionPoints"}},
	{"1-6", []string{"technologySummary", "technologyTable", "technologyModernity", "maintenanceDifficulties", "supplierDependence", "technologySafety", "technologyNotes"}},
	{"1-7", []string{"staffingSummary", "payrollTable", "dailyOperations", "operationalEfficiency", "operationalNotes"}},
	{"1-8", []string{"adminStructure", "decisionMaking", "governanceRequirements", "organizationalEffectiveness", "organizationalNotes"}},
	{"1-9", []string{"projectLegality", "licensesSummary", "licensesTable", "legalRisks", "legalObstacles", "legalNotes"}},
	{"1-10", []string{"environmentalImpact", "environmentalApprovals", "environmentalFriendliness", "environmentalNotes"}},
	{"1-11", []string{"communityImpact", "jobOpportunities", "socialImpactAlignment", "socialNotes"}},
	{"1-12", []string{"culturalAlignment", "culturalRejection", "culturalAcceptability", "culturalNotes"}},
	{"1-13", []string{"behaviorAlignment", "behaviorResistance", "customerSupport", "behavioralNotes"}},
	{"1-14", []string{"politicalStability", "regulatoryExposure", "politicalRisk", "politicalNotes"}},
	{"1-15", []string{"marketTiming", "implementationTiming", "timeNotes"}},
	{"1-16", []string{"risksSummary", "risksTable", "contingencyPlan", "riskControl", "riskNotes"}},
	{"1-17", []string{"economicValue", "gdpImpact", "economicFeasibility", "economicNotes"}},
	{"1-18", []string{"totalCapital", "operationalCosts", "paybackPeriod", "roiExpectation", "financialFeasibility", "financialNotes", "currency"}},
	{"1-19", []string{"additionalInvestments", "investmentsTable"}},
}

func registryKey(sectionID, field string) string {
	return sectionID + "." + field
}

// ValidateRegistry checks that reg has a formatter for every section field.
// Both binaries call it at startup so a missing entry fails fast instead of
// silently dropping a field from every report.
func ValidateRegistry(reg map[string]Formatter) error {
	var missing []string
	for _, sec := range layout {
		for _, f := range sec.fields {
			if reg[registryKey(sec.id, f)] == nil {
				missing = append(missing, registryKey(sec.id, f))
			}
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return fmt.Errorf("payload: no formatter for %s", strings.Join(missing, ", "))
}

// SectionInputs maps a section id to its non-empty fields.
type SectionInputs map[string]map[string]any

// BuildSectionInputs runs the default registry over in.
func BuildSectionInputs(in Input) SectionInputs {
	return BuildSectionInputsWith(Formatters, in)
}

// BuildSectionInputsWith runs reg over in. Unanswered fields are excluded
// entirely; a section with no answered field is an empty map. A formatter
// that panics contributes nothing.
func BuildSectionInputsWith(reg map[string]Formatter, in Input) SectionInputs {
	if in.Answers == nil {
		in.Answers = map[string]any{}
	}
	out := make(SectionInputs, len(layout))
	for _, sec := range layout {
		fields := make(map[string]any, len(sec.fields))
		for _, f := range sec.fields {
			fn := reg[registryKey(sec.id, f)]
			if fn == nil {
				continue
			}
			fields[f] = safeFormat(fn, in)
		}
		out[sec.id] = merge.FilterMap(fields)
	}
	return out
}

func safeFormat(fn Formatter, in Input) (v any) {
	defer func() {
		if recover() != nil {
			v = nil
		}
	}()
	return fn(in)
}
