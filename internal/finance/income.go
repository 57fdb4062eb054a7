package finance

import "math"

// Market share heuristic. These values are pinned.
const (
	shareNoCompetitors = 0.15
	shareGapAffirmed   = 0.08
	shareGapDenied     = 0.02
	shareUnknown       = 0.03
)

func marketShare(in Inputs) float64 {
	switch {
	case in.CompetitorsCount != nil && *in.CompetitorsCount == 0:
		return shareNoCompetitors
	case in.MarketGap != nil && *in.MarketGap:
		return shareGapAffirmed
	case in.MarketGap != nil:
		return shareGapDenied
	}
	return shareUnknown
}

func growthFactor(in Inputs) float64 {
	if in.GrowthRate == nil {
		return 1
	}
	return 1 + *in.GrowthRate/100
}

// baseSales is the unadjusted volume-driven revenue for year y.
func baseSales(in Inputs, y int) *float64 {
	if in.MarketSize == nil {
		return nil
	}
	return ptr(*in.MarketSize * marketShare(in) * math.Pow(growthFactor(in), float64(y-1)))
}

// ProjectIncome builds ProjectionYears income-statement years. The sales
// adjustment changes price only, so cost of goods follows the unadjusted
// volume.
func ProjectIncome(in Inputs, sched []AmortizationEntry, status LoanStatus, adj Adjustments) []Year {
	out := make([]Year, 0, ProjectionYears)
	for y := 1; y <= ProjectionYears; y++ {
		yr := Year{Year: y}

		volume := baseSales(in, y)
		yr.Sales = scale(volume, adj.Sales)
		if volume != nil && in.InventoryValue != nil {
			cogs := 0.0
			if *volume != 0 {
				cogs = *volume * clamp(*in.InventoryValue / *volume, 0.3, 0.7)
			}
			yr.COGS = &cogs
		}
		yr.GrossProfit = sub(yr.Sales, yr.COGS)

		yr.Salaries = scale(in.SalariesAnnual, adj.Opex)
		yr.Rent = scale(in.RentMonthly, 12*adj.Opex)
		yr.Marketing = scale(in.MarketingMonthly, 12*adj.Opex)
		yr.Utilities = scale(in.UtilitiesAnnual, adj.Opex)
		yr.OtherOps = scale(in.OtherOpsAnnual, adj.Opex)
		yr.TotalOperatingExpenses = sumKnown(yr.Salaries, yr.Rent, yr.Marketing, yr.Utilities, yr.OtherOps)
		yr.Depreciation = in.DepreciationAnnual
		yr.EBIT = sub(sub(yr.GrossProfit, yr.TotalOperatingExpenses), yr.Depreciation)

		switch status {
		case LoanNone:
			yr.LoanPaymentAnnual, yr.InterestExpense, yr.PrincipalPayment, yr.RemainingPrincipal = ptr(0), ptr(0), ptr(0), ptr(0)
		case LoanScheduled:
			if y <= len(sched) {
				e := sched[y-1]
				yr.LoanPaymentAnnual = ptr(e.Payment)
				yr.InterestExpense = ptr(e.Interest)
				yr.PrincipalPayment = ptr(e.Principal)
				yr.RemainingPrincipal = ptr(e.RemainingPrincipal)
			} else {
				yr.LoanPaymentAnnual, yr.InterestExpense, yr.PrincipalPayment, yr.RemainingPrincipal = ptr(0), ptr(0), ptr(0), ptr(0)
			}
		}

		yr.ProfitBeforeTax = sub(yr.EBIT, yr.LoanPaymentAnnual)
		if yr.ProfitBeforeTax != nil && in.TaxRate != nil {
			yr.IncomeTax = ptr(math.Max(0, *yr.ProfitBeforeTax) * *in.TaxRate / 100)
			yr.NetProfit = sub(yr.ProfitBeforeTax, yr.IncomeTax)
		}
		if yr.NetProfit != nil && yr.Sales != nil && *yr.Sales != 0 {
			yr.NetProfitMargin = ptr(*yr.NetProfit / *yr.Sales)
		}
		out = append(out, yr)
	}
	return out
}
