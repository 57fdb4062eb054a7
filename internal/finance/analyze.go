package finance

import (
	"github.com/joelkehle/feasibility-study/internal/sections"
)

// Essential input labels reported in Analysis.Missing.
const (
	MissingMarketSize = "Market size data"
	MissingStaffing   = "Staffing cost data"
	MissingProperty   = "Property cost data"
	MissingMarketing  = "Marketing cost data"
)

// Analyze runs the full projection. It never fails: figures that cannot be
// derived are nil and the essential gaps are listed in Missing.
func Analyze(in Inputs) Analysis {
	sched, status := loanSchedule(in)
	years := ProjectIncome(in, sched, status, Base)
	cf := BuildCashFlow(in, years, Base)

	a := Analysis{
		Inputs:       in,
		LoanStatus:   status,
		Amortization: sched,
		Income:       years,
		CashFlow:     cf,
		Balance:      BuildBalanceSheet(in, years, sched, status),
		Metrics:      ComputeMetrics(cf),
		Scenarios:    RunScenarios(in),
		BreakEven:    BreakEven(years),
		Missing:      missingEssentials(in),
		Partial:      in.MarketSize == nil,
		Notes:        []string{},
	}
	if a.Amortization == nil {
		a.Amortization = []AmortizationEntry{}
	}
	if status == LoanInvalid {
		a.Notes = append(a.Notes, "Loan terms are incomplete or invalid; debt service and profit figures cannot be projected.")
	}
	if in.TaxRate == nil {
		a.Notes = append(a.Notes, "No tax rate supplied; net profit is not reported.")
	}
	for _, c := range cf {
		a.Notes = append(a.Notes, c.Notes...)
	}
	return a
}

// AnalyzeAnswers builds inputs from canonical answers and analyzes them.
func AnalyzeAnswers(answers map[string]any, s sections.Sections) Analysis {
	return Analyze(InputsFrom(answers, s))
}

func missingEssentials(in Inputs) []string {
	out := []string{}
	if in.MarketSize == nil {
		out = append(out, MissingMarketSize)
	}
	if in.SalariesAnnual == nil {
		out = append(out, MissingStaffing)
	}
	if in.PropertyPrice == nil && in.RentMonthly == nil {
		out = append(out, MissingProperty)
	}
	if in.MarketingMonthly == nil {
		out = append(out, MissingMarketing)
	}
	return out
}
