package finance

var scenarioDefs = []struct {
	name string
	adj  Adjustments
}{
	{"Base case", Base},
	{"Project cost +10%", Adjustments{Sales: 1, Opex: 1, ProjectCost: 1.10}},
	{"Project cost +20%", Adjustments{Sales: 1, Opex: 1, ProjectCost: 1.20}},
	{"Sales price -5%", Adjustments{Sales: 0.95, Opex: 1, ProjectCost: 1}},
	{"Sales price -10%", Adjustments{Sales: 0.90, Opex: 1, ProjectCost: 1}},
	{"Operating cost +10%", Adjustments{Sales: 1, Opex: 1.10, ProjectCost: 1}},
	{"Operating cost +20%", Adjustments{Sales: 1, Opex: 1.20, ProjectCost: 1}},
}

// RunScenarios re-projects income and cash flow under each fixed scenario.
// Depreciation is never scaled.
func RunScenarios(in Inputs) []Scenario {
	sched, status := loanSchedule(in)
	out := make([]Scenario, 0, len(scenarioDefs))
	for _, def := range scenarioDefs {
		years := ProjectIncome(in, sched, status, def.adj)
		cf := BuildCashFlow(in, years, def.adj)
		out = append(out, Scenario{Name: def.name, Metrics: ComputeMetrics(cf)})
	}
	return out
}

// BreakEven computes the sales level covering fixed costs for every year.
// Fixed costs are operating expenses plus depreciation.
func BreakEven(years []Year) []BreakEvenYear {
	out := make([]BreakEvenYear, 0, len(years))
	for _, yr := range years {
		be := BreakEvenYear{Year: yr.Year, FixedCosts: add(yr.TotalOperatingExpenses, yr.Depreciation)}
		if yr.Sales != nil && yr.COGS != nil && *yr.Sales != 0 {
			ratio := (*yr.Sales - *yr.COGS) / *yr.Sales
			if finite(ratio) {
				be.ContributionMarginRatio = ptr(ratio)
				if ratio > 0 && be.FixedCosts != nil {
					be.BreakEvenSales = ptr(*be.FixedCosts / ratio)
				}
			}
		}
		out = append(out, be)
	}
	return out
}
