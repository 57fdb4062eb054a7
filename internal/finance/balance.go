package finance

import "math"

// BuildBalanceSheet derives a fixed five-year balance sheet. Cash has no
// input path and stays unknown, so it is excluded from the asset totals;
// receivables are zero. AccountingCheck reports the residual of
// assets - (liabilities + equity) without correcting it.
func BuildBalanceSheet(in Inputs, years []Year, sched []AmortizationEntry, status LoanStatus) []BalanceYear {
	equipment := valueOr(in.EquipmentTotal, 0)
	property := valueOr(in.PropertyPrice, 0)
	licenses := valueOr(in.LicensesTotal, 0)
	additional := valueOr(in.AdditionalInvestments, 0)
	inventory := valueOr(in.InventoryValue, 0)
	paidIn := valueOr(in.PersonalContribution, 0)
	yearlyDep := valueOr(in.DepreciableBase, 0) / depreciationYears

	out := make([]BalanceYear, 0, ProjectionYears)
	retained := ptr(0)
	for t := 1; t <= ProjectionYears; t++ {
		b := BalanceYear{
			Year:                  t,
			Equipment:             equipment,
			Property:              property,
			StartupCosts:          licenses,
			AdditionalInvestments: additional,
			Receivables:           0,
			Inventory:             inventory,
			PaidInCapital:         paidIn,
		}
		b.AccumulatedDepreciation = yearlyDep * math.Min(float64(t), depreciationYears)
		b.NonCurrentAssets = equipment + property + licenses + additional - b.AccumulatedDepreciation
		b.CurrentAssets = b.Receivables + b.Inventory
		b.TotalAssets = b.NonCurrentAssets + b.CurrentAssets

		switch status {
		case LoanNone:
			b.CurrentLiabilities, b.NonCurrentLiabilities = ptr(0), ptr(0)
		case LoanScheduled:
			remaining, current := 0.0, 0.0
			if t <= len(sched) {
				remaining = sched[t-1].RemainingPrincipal
			}
			if t < len(sched) {
				current = sched[t].Principal
			}
			b.CurrentLiabilities = ptr(current)
			b.NonCurrentLiabilities = ptr(remaining - current)
		}
		b.TotalLiabilities = add(b.CurrentLiabilities, b.NonCurrentLiabilities)

		var np *float64
		if t <= len(years) {
			np = years[t-1].NetProfit
		}
		retained = add(retained, np)
		b.RetainedEarnings = retained
		b.TotalEquity = add(ptr(paidIn), retained)
		b.TotalLiabilitiesAndEquity = add(b.TotalLiabilities, b.TotalEquity)
		b.AccountingCheck = sub(ptr(b.TotalAssets), b.TotalLiabilitiesAndEquity)
		out = append(out, b)
	}
	return out
}
