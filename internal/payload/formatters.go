package payload

import (
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/joelkehle/feasibility-study/internal/sections"
)

const unknownCell = "—"

// Formatters is the default field registry, keyed "<section>.<field>".
var Formatters = map[string]Formatter{
	// 1-1 introduction
	"1-1.projectName":          answer("projectName"),
	"1-1.sector":               answer("projectSector"),
	"1-1.projectType":          answer("projectType", "specifiedProjectType"),
	"1-1.specifiedProjectType": answer("specifiedProjectType"),
	"1-1.projectDescription":   answer("projectDescription"),
	"1-1.targetAudience":       answer("targetAudience"),
	"1-1.projectStatus":        answer("projectStatus"),
	"1-1.duration":             answer("duration"),
	"1-1.durationUnit":         answer("durationUnit"),

	// 1-2 project concept
	"1-2.projectName":   answer("projectName"),
	"1-2.description":   answer("projectDescription"),
	"1-2.visionMission": answer("visionMission", "notes"),
	"1-2.projectIdea": func(in Input) any {
		return labeled("Main product or service", in.Sections.ProjectOverview.MainProduct)
	},
	"1-2.problemSolution": func(in Input) any {
		return labeled("Problem solved", in.Sections.ProjectOverview.ProblemSolved)
	},
	"1-2.businessModel": func(in Input) any {
		bm := in.Sections.ProjectOverview.BusinessModel
		return joined("Business model", withOther(bm.Models, bm.Other))
	},
	"1-2.distributionChannels": func(in Input) any {
		return joined("Distribution channels", in.Sections.ProjectOverview.DistributionChannels)
	},
	"1-2.businessType": func(in Input) any {
		return text(in.Sections.ProjectOverview.BrandIdentity.BusinessType)
	},

	// 1-3 market
	"1-3.marketSize": func(in Input) any {
		return amount("Estimated market size", in.Sections.Market.MarketSize, in.currency())
	},
	"1-3.potentialCustomers": func(in Input) any {
		return amount("Potential customers", in.Sections.Market.PotentialCustomers, "")
	},
	"1-3.growthRate": func(in Input) any {
		return percent("Annual market growth rate", in.Sections.Market.GrowthRate)
	},
	"1-3.growthFactors": func(in Input) any {
		return labeled("Growth factors", in.Sections.Market.GrowthFactors)
	},
	"1-3.competitorsCount": func(in Input) any {
		return amount("Number of direct competitors", in.Sections.Market.CompetitorsCount, "")
	},
	"1-3.marketGap": func(in Input) any {
		g := in.Sections.Market.MarketGap
		return explained("Market gap", g.Status, g.Explanation)
	},
	"1-3.marketFeasibility": func(in Input) any {
		return labeled("Market feasibility", in.Sections.Market.Feasibility.Assessment)
	},
	"1-3.marketNotes": func(in Input) any {
		return text(in.Sections.Market.Feasibility.Notes)
	},

	// 1-4 marketing
	"1-4.targetAge": func(in Input) any {
		return labeled("Target age range", in.Sections.Marketing.TargetAge)
	},
	"1-4.customerIncome": func(in Input) any {
		return amount("Average customer income", in.Sections.Marketing.CustomerIncome, in.currency())
	},
	"1-4.marketingChannels": func(in Input) any {
		m := in.Sections.Marketing
		return joined("Marketing channels", withOther(m.Channels, m.ChannelsOther))
	},
	"1-4.marketingPlan": func(in Input) any {
		m := in.Sections.Marketing
		if len(m.MarketingPlan) > 0 {
			return list(m.MarketingPlan)
		}
		return list(m.Channels)
	},
	"1-4.marketingCost": func(in Input) any {
		return amount("Monthly marketing budget", in.Sections.Marketing.MarketingCost, in.currency())
	},
	"1-4.competitiveAdvantage": func(in Input) any {
		return labeled("Competitive advantage", in.Sections.Marketing.CompetitiveAdvantage)
	},
	"1-4.reachability": func(in Input) any {
		return labeled("Ease of reaching customers", in.Sections.Marketing.Reachability)
	},
	"1-4.marketingNotes": func(in Input) any {
		return text(in.Sections.Marketing.Notes)
	},
	"1-4.brandIdentityFeatures": func(in Input) any {
		return list(in.brandFeatures())
	},
	"1-4.positioning": func(in Input) any {
		features := in.brandFeatures()
		if len(features) == 0 {
			return labeled("Competitive advantage", in.Sections.Marketing.CompetitiveAdvantage)
		}
		lower := make([]string, len(features))
		for i, f := range features {
			lower[i] = strings.ToLower(f)
		}
		return "Brand positioning focused on " + strings.Join(lower, ", ") + "."
	},

	// 1-5 technical
	"1-5.equipmentList": func(in Input) any {
		items := in.Sections.Technical.Equipment.Items
		if len(items) == 0 {
			return nil
		}
		parts := make([]string, len(items))
		for i, it := range items {
			parts[i] = it.Name
			if it.Cost != nil {
				parts[i] += " (" + money(*it.Cost) + ")"
			}
		}
		s := "Equipment: " + strings.Join(parts, ", ")
		if total := sections.EquipmentTotal(items); total != nil {
			s += "; total " + withUnit(money(*total), in.currency())
		}
		return s
	},
	"1-5.inventoryValue": func(in Input) any {
		return amount("Initial inventory value", in.Sections.Technical.Inventory.InventoryValue, in.currency())
	},
	"1-5.goodsTypes": func(in Input) any {
		return labeled("Types of goods", in.Sections.Technical.Inventory.GoodsTypes)
	},
	"1-5.propertySummary": func(in Input) any {
		p := in.Sections.Technical.Property
		var parts []string
		if p.RequiredArea != nil {
			parts = append(parts, "required area "+money(*p.RequiredArea)+" m²")
		}
		if p.OwnershipType != nil {
			parts = append(parts, "ownership "+*p.OwnershipType)
		}
		if p.PropertyPrice != nil {
			parts = append(parts, "price "+withUnit(money(*p.PropertyPrice), in.currency()))
		}
		if p.MonthlyRent != nil {
			parts = append(parts, "monthly rent "+withUnit(money(*p.MonthlyRent), in.currency()))
		}
		return joined("Property", parts)
	},
	"1-5.locationTraffic": func(in Input) any {
		return labeled("Location traffic", in.Sections.Technical.Site.Traffic)
	},
	"1-5.parkingAvailability": func(in Input) any {
		return labeled("Parking availability", in.Sections.Technical.Site.Parking)
	},
	"1-5.attractionPoints": func(in Input) any {
		s := in.Sections.Technical.Site
		return joined("Nearby attraction points", withOther(s.AttractionPoints, s.OtherAttractions))
	},

	// 1-6 technology
	"1-6.technologySummary": func(in Input) any {
		return costSummary("technology item", in.Sections.Technology.Stack, in.currency())
	},
	"1-6.technologyTable": func(in Input) any {
		return costGrid("Technology", in.Sections.Technology.Stack)
	},
	"1-6.technologyModernity": func(in Input) any {
		return labeled("Technology modernity", in.Sections.Technology.Modernity)
	},
	"1-6.maintenanceDifficulties": func(in Input) any {
		m := in.Sections.Technology.Maintenance
		return explained("Maintenance difficulties", m.Difficulties, m.Explanation)
	},
	"1-6.supplierDependence": func(in Input) any {
		return labeled("Supplier dependence", in.Sections.Technology.SupplierDependence)
	},
	"1-6.technologySafety": func(in Input) any {
		return labeled("Technology safety", in.Sections.Technology.Safety)
	},
	"1-6.technologyNotes": func(in Input) any {
		return text(in.Sections.Technology.Notes)
	},

	// 1-7 operations
	"1-7.staffingSummary": func(in Input) any {
		st := in.Sections.Operations.Staff
		var parts []string
		if st.TotalEmployees != nil {
			parts = append(parts, money(*st.TotalEmployees)+" employees")
		}
		if n := len(st.Table); n > 0 {
			parts = append(parts, strconv.Itoa(n)+" roles")
		}
		if st.MonthlyTotal != nil {
			parts = append(parts, "monthly payroll "+withUnit(money(*st.MonthlyTotal), in.currency()))
		}
		if st.AnnualTotal != nil {
			parts = append(parts, "annual payroll "+withUnit(money(*st.AnnualTotal), in.currency()))
		}
		return joined("Staffing", parts)
	},
	"1-7.payrollTable": func(in Input) any {
		rows := make([][]string, 0, len(in.Sections.Operations.Staff.Table))
		for _, r := range in.Sections.Operations.Staff.Table {
			rows = append(rows, []string{r.JobTitle, cell(r.EmployeeCount), cell(r.MonthlySalary)})
		}
		return grid([]string{"Job Title", "Employees", "Monthly Salary"}, rows)
	},
	"1-7.dailyOperations": func(in Input) any {
		return labeled("Daily operations", in.Sections.Operations.DailyOperations)
	},
	"1-7.operationalEfficiency": func(in Input) any {
		return labeled("Operational efficiency", in.Sections.Operations.Efficiency)
	},
	"1-7.operationalNotes": func(in Input) any {
		return text(in.Sections.Operations.Notes)
	},

	// 1-8 organization
	"1-8.adminStructure": func(in Input) any {
		o := in.Sections.Organization
		return joined("Administrative structure", withOther(o.Structure, o.OtherStructure))
	},
	"1-8.decisionMaking": func(in Input) any {
		return labeled("Decision making", in.Sections.Organization.DecisionMaking)
	},
	"1-8.governanceRequirements": func(in Input) any {
		g := in.Sections.Organization.Governance
		return explained("Governance requirements", g.Requirements, g.Explanation)
	},
	"1-8.organizationalEffectiveness": func(in Input) any {
		return labeled("Organizational effectiveness", in.Sections.Organization.Effectiveness)
	},
	"1-8.organizationalNotes": func(in Input) any {
		return text(in.Sections.Organization.Notes)
	},

	// 1-9 legal
	"1-9.projectLegality": func(in Input) any {
		return labeled("Project legality", in.Sections.Legal.ProjectLegality)
	},
	"1-9.licensesSummary": func(in Input) any {
		l := in.Sections.Legal.Licenses
		s := costSummary("license", l.Items, in.currency())
		if s == nil && l.Total != nil {
			return amount("Total license cost", l.Total, in.currency())
		}
		return s
	},
	"1-9.licensesTable": func(in Input) any {
		return costGrid("License", in.Sections.Legal.Licenses.Items)
	},
	"1-9.legalRisks": func(in Input) any {
		r := in.Sections.Legal.Risks
		return explained("Legal risks", r.Summary, r.Explanation)
	},
	"1-9.legalObstacles": func(in Input) any {
		return labeled("Legal obstacles", in.Sections.Legal.Obstacles)
	},
	"1-9.legalNotes": func(in Input) any {
		return text(in.Sections.Legal.Notes)
	},

	// 1-10 environmental
	"1-10.environmentalImpact": func(in Input) any {
		e := in.Sections.Environmental
		return explained("Environmental impact", e.Impact, e.Explanation)
	},
	"1-10.environmentalApprovals": func(in Input) any {
		return labeled("Environmental approvals", in.Sections.Environmental.Approvals)
	},
	"1-10.environmentalFriendliness": func(in Input) any {
		return labeled("Environmental friendliness", in.Sections.Environmental.Friendliness)
	},
	"1-10.environmentalNotes": func(in Input) any {
		return text(in.Sections.Environmental.Notes)
	},

	// 1-11 social
	"1-11.communityImpact": func(in Input) any {
		return labeled("Community impact", in.Sections.Social.CommunityImpact)
	},
	"1-11.jobOpportunities": func(in Input) any {
		return amount("Expected job opportunities", in.Sections.Social.JobOpportunities, "")
	},
	"1-11.socialImpactAlignment": func(in Input) any {
		return labeled("Alignment with social priorities", in.Sections.Social.Alignment)
	},
	"1-11.socialNotes": func(in Input) any {
		return text(in.Sections.Social.Notes)
	},

	// 1-12 cultural
	"1-12.culturalAlignment": func(in Input) any {
		c := in.Sections.Cultural
		return explained("Cultural alignment", c.Alignment, c.AlignmentExplanation)
	},
	"1-12.culturalRejection": func(in Input) any {
		c := in.Sections.Cultural
		return explained("Risk of cultural rejection", c.Rejection, c.RejectionExplanation)
	},
	"1-12.culturalAcceptability": func(in Input) any {
		return labeled("Cultural acceptability", in.Sections.Cultural.Acceptability)
	},
	"1-12.culturalNotes": func(in Input) any {
		return text(in.Sections.Cultural.Notes)
	},

	// 1-13 behavioral
	"1-13.behaviorAlignment": func(in Input) any {
		b := in.Sections.Behavioral
		return explained("Alignment with consumer behavior", b.Alignment, b.Explanation)
	},
	"1-13.behaviorResistance": func(in Input) any {
		b := in.Sections.Behavioral
		return explained("Expected consumer resistance", b.Resistance, b.ResistanceExplanation)
	},
	"1-13.customerSupport": func(in Input) any {
		return labeled("Customer support", in.Sections.Behavioral.CustomerSupport)
	},
	"1-13.behavioralNotes": func(in Input) any {
		return text(in.Sections.Behavioral.Notes)
	},

	// 1-14 political
	"1-14.politicalStability": func(in Input) any {
		p := in.Sections.Political
		return explained("Political stability", p.Stability, p.StabilityExplanation)
	},
	"1-14.regulatoryExposure": func(in Input) any {
		p := in.Sections.Political
		return explained("Regulatory exposure", p.RegulatoryExposure, p.ExposureExplanation)
	},
	"1-14.politicalRisk": func(in Input) any {
		return labeled("Political risk", in.Sections.Political.Risk)
	},
	"1-14.politicalNotes": func(in Input) any {
		return text(in.Sections.Political.Notes)
	},

	// 1-15 timing
	"1-15.marketTiming": func(in Input) any {
		return labeled("Market timing", in.Sections.Timing.MarketTiming)
	},
	"1-15.implementationTiming": func(in Input) any {
		return labeled("Implementation timing", in.Sections.Timing.ImplementationTiming)
	},
	"1-15.timeNotes": func(in Input) any {
		return text(in.Sections.Timing.Notes)
	},

	// 1-16 risk
	"1-16.risksSummary": func(in Input) any {
		r := in.Sections.Risk
		var parts []string
		if n := len(r.Items); n > 0 {
			parts = append(parts, strconv.Itoa(n)+" risks identified")
		}
		if r.Averages.Probability != nil {
			parts = append(parts, "average probability "+money(*r.Averages.Probability))
		}
		if r.Averages.Impact != nil {
			parts = append(parts, "average impact "+money(*r.Averages.Impact))
		}
		return joined("Risks", parts)
	},
	"1-16.risksTable": func(in Input) any {
		rows := make([][]string, 0, len(in.Sections.Risk.Items))
		for _, r := range in.Sections.Risk.Items {
			rows = append(rows, []string{r.Name, cell(r.Probability), cell(r.Impact)})
		}
		return grid([]string{"Risk", "Probability", "Impact"}, rows)
	},
	"1-16.contingencyPlan": func(in Input) any {
		p := in.Sections.Risk.ContingencyPlan
		return explained("Contingency plan", p.Plan, p.Explanation)
	},
	"1-16.riskControl": func(in Input) any {
		return labeled("Risk control", in.Sections.Risk.Control)
	},
	"1-16.riskNotes": func(in Input) any {
		return text(in.Sections.Risk.Notes)
	},

	// 1-17 economic
	"1-17.economicValue": func(in Input) any {
		e := in.Sections.Economic
		return joined("Economic value added", withOther(e.AddedValue, e.OtherValue))
	},
	"1-17.gdpImpact": func(in Input) any {
		e := in.Sections.Economic
		return explained("Contribution to GDP", e.GDPImpact, e.GDPExplanation)
	},
	"1-17.economicFeasibility": func(in Input) any {
		return labeled("Economic feasibility", in.Sections.Economic.Feasibility)
	},
	"1-17.economicNotes": func(in Input) any {
		return text(in.Sections.Economic.Notes)
	},

	// 1-18 financial
	"1-18.totalCapital": func(in Input) any {
		return labeled("Total capital", in.Sections.Financial.Capital.TotalCapital)
	},
	"1-18.operationalCosts": func(in Input) any {
		return labeled("Operational costs", in.Sections.Financial.Capital.OperationalCosts)
	},
	"1-18.paybackPeriod": func(in Input) any {
		return labeled("Expected payback period", in.Sections.Financial.Capital.PaybackPeriod)
	},
	"1-18.roiExpectation": func(in Input) any {
		return labeled("Expected return on investment", in.Sections.Financial.Capital.ROIExpectation)
	},
	"1-18.financialFeasibility": func(in Input) any {
		return labeled("Financial feasibility", in.Sections.Financial.Capital.Feasibility)
	},
	"1-18.financialNotes": func(in Input) any {
		return text(in.Sections.Financial.Capital.Notes)
	},
	"1-18.currency": func(in Input) any {
		if c := in.currency(); c != "" {
			return "Currency used: " + c
		}
		return nil
	},

	// 1-19 investments
	"1-19.additionalInvestments": func(in Input) any {
		inv := in.Sections.Investments
		var parts []string
		if inv.Required != nil {
			parts = append(parts, "required: "+*inv.Required)
		}
		if inv.Purpose != nil {
			parts = append(parts, "purpose: "+*inv.Purpose)
		}
		if inv.Total != nil {
			parts = append(parts, "total "+withUnit(money(*inv.Total), in.currency()))
		}
		if len(parts) == 0 {
			return nil
		}
		return "Additional investments " + strings.Join(parts, "; ")
	},
	"1-19.investmentsTable": func(in Input) any {
		rows := make([][]string, 0, len(in.Sections.Investments.Items))
		for _, r := range in.Sections.Investments.Items {
			ret := unknownCell
			if r.Return != nil {
				ret = *r.Return
			}
			rows = append(rows, []string{r.Type, cell(r.Value), ret})
		}
		return grid([]string{"Investment", "Value", "Expected Return"}, rows)
	},
}

// answer reads the first non-empty start-form answer among keys.
func answer(keys ...string) Formatter {
	return func(in Input) any {
		for _, k := range keys {
			if s := sections.ToStringOrNil(in.Answers[k]); s != nil {
				return *s
			}
		}
		return nil
	}
}

func (in Input) currency() string {
	if f := in.Sections.Financial; f != nil && f.Assumptions.Currency != nil {
		return *f.Assumptions.Currency
	}
	for _, k := range []string{"selectedCurrency", "currency"} {
		if s := sections.ToStringOrNil(in.Answers[k]); s != nil {
			return *s
		}
	}
	return ""
}

func (in Input) brandFeatures() []string {
	if m := in.Sections.Marketing; m != nil && len(m.BrandIdentityFeatures) > 0 {
		return m.BrandIdentityFeatures
	}
	if p := in.Sections.ProjectOverview; p != nil {
		return p.BrandIdentity.Attributes
	}
	return nil
}

func text(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func labeled(label string, v *string) any {
	if v == nil {
		return nil
	}
	return label + ": " + *v
}

func list(items []string) any {
	if len(items) == 0 {
		return nil
	}
	out := make([]any, len(items))
	for i, s := range items {
		out[i] = s
	}
	return out
}

func joined(label string, items []string) any {
	if len(items) == 0 {
		return nil
	}
	return label + ": " + strings.Join(items, ", ")
}

func withOther(items []string, other *string) []string {
	if other == nil {
		return items
	}
	return append(append([]string{}, items...), *other)
}

// explained renders a status with its optional explanation.
func explained(label string, status, note *string) any {
	switch {
	case status == nil && note == nil:
		return nil
	case note == nil:
		return label + ": " + *status
	case status == nil:
		return label + ": " + *note
	}
	return label + ": " + strings.TrimRight(*status, ". ") + ". " + *note
}

func money(v float64) string {
	return humanize.CommafWithDigits(v, 2)
}

func withUnit(s, unit string) string {
	if unit == "" {
		return s
	}
	return s + " " + unit
}

func amount(label string, v *float64, unit string) any {
	if v == nil {
		return nil
	}
	return label + ": " + withUnit(money(*v), unit)
}

func percent(label string, v *float64) any {
	if v == nil {
		return nil
	}
	return label + ": " + strconv.FormatFloat(*v, 'f', -1, 64) + "%"
}

func cell(v *float64) string {
	if v == nil {
		return unknownCell
	}
	return money(*v)
}

func grid(headers []string, rows [][]string) any {
	if len(rows) == 0 {
		return nil
	}
	hs := make([]any, len(headers))
	for i, h := range headers {
		hs[i] = h
	}
	rs := make([]any, len(rows))
	for i, r := range rows {
		row := make([]any, len(r))
		for j, c := range r {
			row[j] = c
		}
		rs[i] = row
	}
	return map[string]any{"headers": hs, "rows": rs}
}

func costGrid(nameHeader string, items []sections.CostItem) any {
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		rows = append(rows, []string{it.Type, cell(it.Cost)})
	}
	return grid([]string{nameHeader, "Cost"}, rows)
}

func costSummary(noun string, items []sections.CostItem, unit string) any {
	if len(items) == 0 {
		return nil
	}
	n := len(items)
	s := strconv.Itoa(n) + " " + noun
	if n != 1 {
		s += "s"
	}
	var total float64
	known := false
	for _, it := range items {
		if it.Cost != nil {
			total += *it.Cost
			known = true
		}
	}
	if known {
		s += " with a combined cost of " + withUnit(money(total), unit)
	}
	return s
}
