package finance

import (
	"strings"

	"github.com/joelkehle/feasibility-study/internal/canon"
	"github.com/joelkehle/feasibility-study/internal/sections"
)

var (
	gapAffirmed = map[string]bool{"yes": true, "true": true, "y": true, "1": true, "exists": true, "present": true, "available": true, "نعم": true, "oui": true, "sí": true, "si": true}
	gapDenied   = map[string]bool{"no": true, "false": true, "n": true, "0": true, "none": true, "absent": true, "not-exists": true, "لا": true, "non": true}
)

// InputsFrom collects engine inputs from built sections and the canonical
// answers they came from. Loan, contribution and tax figures live only in
// the start form, so they are read from answers.
func InputsFrom(answers map[string]any, s sections.Sections) Inputs {
	var in Inputs
	num := func(keys ...string) *float64 {
		for _, k := range keys {
			if v := sections.ToNumberOrNil(answers[k]); v != nil {
				return v
			}
		}
		return nil
	}

	if m := s.Market; m != nil {
		in.MarketSize = m.MarketSize
		in.GrowthRate = m.GrowthRate
		in.CompetitorsCount = m.CompetitorsCount
		if m.MarketGap.Status != nil {
			status := strings.ToLower(strings.TrimSpace(*m.MarketGap.Status))
			switch {
			case gapAffirmed[status]:
				in.MarketGap = boolPtr(true)
			case gapDenied[status]:
				in.MarketGap = boolPtr(false)
			}
		}
	}

	if t := s.Technical; t != nil {
		in.InventoryValue = t.Inventory.InventoryValue
		in.PropertyPrice = t.Property.PropertyPrice
		in.RentMonthly = t.Property.MonthlyRent
		in.EquipmentTotal = sections.EquipmentTotal(t.Equipment.Items)
	}

	if o := s.Operations; o != nil {
		in.SalariesAnnual = staffAnnual(o.Staff)
	}

	if mk := s.Marketing; mk != nil {
		in.MarketingMonthly = mk.MarketingCost
	}

	if f := s.Financial; f != nil {
		if v, ok := f.AnnualOperationalCosts["utilities"]; ok {
			in.UtilitiesAnnual = ptr(v)
		}
		if v, ok := f.AnnualOperationalCosts["operations"]; ok {
			in.OtherOpsAnnual = ptr(v)
		}
		if f.Assumptions.Currency != nil {
			in.Currency = *f.Assumptions.Currency
		}
	}

	if l := s.Legal; l != nil {
		in.LicensesTotal = l.Licenses.Total
		if in.LicensesTotal == nil {
			in.LicensesTotal = sumCostItems(l.Licenses.Items)
		}
	}

	if inv := s.Investments; inv != nil {
		in.AdditionalInvestments = inv.Total
		var values []*float64
		var income []*float64
		for _, row := range inv.Items {
			values = append(values, row.Value)
			if row.Value == nil || row.Return == nil {
				continue
			}
			if pct, ok := canon.ParseNumber(*row.Return); ok {
				income = append(income, ptr(*row.Value*pct/100))
			}
		}
		if in.AdditionalInvestments == nil {
			in.AdditionalInvestments = sumKnown(values...)
		}
		in.InvestmentIncome = sumKnown(income...)
	}

	in.DepreciableBase = sumKnown(in.EquipmentTotal, in.LicensesTotal)
	switch {
	case in.DepreciableBase != nil:
		in.DepreciationAnnual = ptr(*in.DepreciableBase / depreciationYears)
	case s.Financial != nil:
		if v, ok := s.Financial.AnnualOperationalCosts["depreciation"]; ok {
			in.DepreciationAnnual = ptr(v)
		}
	}

	in.PersonalContribution = num("personalContribution")
	in.LoanAmount = num("loanAmount")
	in.InterestRate = num("interestValue")
	in.LoanMonths = num("loanMonths")
	in.TaxRate = num("projectTaxRate", "taxRate")
	if in.Currency == "" {
		if c := sections.ToStringOrNil(answers["currency"]); c != nil {
			in.Currency = *c
		}
	}
	return in
}

// staffAnnual sums headcount x monthly salary x 12 over complete staff rows,
// falling back to the declared annual or monthly totals.
func staffAnnual(st sections.Staff) *float64 {
	var rows []*float64
	for _, r := range st.Table {
		if r.EmployeeCount == nil || r.MonthlySalary == nil {
			continue
		}
		monthly := *r.EmployeeCount * *r.MonthlySalary
		rows = append(rows, ptr(monthly*12))
	}
	if total := sumKnown(rows...); total != nil {
		return total
	}
	if st.AnnualTotal != nil {
		return st.AnnualTotal
	}
	return scale(st.MonthlyTotal, 12)
}

func sumCostItems(items []sections.CostItem) *float64 {
	vs := make([]*float64, 0, len(items))
	for _, it := range items {
		vs = append(vs, it.Cost)
	}
	return sumKnown(vs...)
}

func boolPtr(b bool) *bool { return &b }
