package finance

import (
	"fmt"
	"math"
	"strings"
)

// BuildCashFlow derives the cash-flow series from the income years. Index 0
// is year 0: one-time investing outflows and financing inflows, each summed
// from whichever components were supplied. Later years hold operating cash
// and debt service.
func BuildCashFlow(in Inputs, years []Year, adj Adjustments) []CashFlowYear {
	out := make([]CashFlowYear, 0, len(years)+1)

	type component struct {
		label string
		value *float64
	}
	outflows := []component{
		{"property price", in.PropertyPrice},
		{"license total", in.LicensesTotal},
		{"initial inventory", in.InventoryValue},
		{"equipment total", in.EquipmentTotal},
		{"additional investments", in.AdditionalInvestments},
	}
	var invested float64
	var missing []string
	for _, c := range outflows {
		if c.value == nil {
			missing = append(missing, c.label)
			continue
		}
		invested += *c.value
	}
	invested *= adj.ProjectCost

	var raised float64
	if in.PersonalContribution != nil {
		raised += *in.PersonalContribution
	} else {
		missing = append(missing, "personal contribution")
	}
	if in.LoanAmount != nil && *in.LoanAmount > 0 {
		raised += *in.LoanAmount
	}

	y0 := CashFlowYear{
		Year:      0,
		Operating: ptr(0),
		Investing: ptr(-invested),
		Financing: ptr(raised),
		Dividends: ptr(0),
		Net:       ptr(raised - invested),
	}
	if len(missing) > 0 {
		y0.Notes = []string{fmt.Sprintf("Year 0 excludes missing inputs: %s", strings.Join(missing, ", "))}
	}
	out = append(out, y0)

	income := valueOr(in.InvestmentIncome, 0)
	for _, yr := range years {
		cf := CashFlowYear{Year: yr.Year, Investing: ptr(0), Dividends: ptr(0)}
		if yr.Sales != nil && yr.COGS != nil && yr.TotalOperatingExpenses != nil && yr.EBIT != nil && in.TaxRate != nil {
			taxPaid := math.Max(0, *yr.EBIT) * *in.TaxRate / 100
			cf.Operating = ptr(*yr.Sales - *yr.COGS - *yr.TotalOperatingExpenses - taxPaid + income)
		}
		if yr.LoanPaymentAnnual != nil {
			cf.Financing = ptr(-*yr.LoanPaymentAnnual)
		}
		cf.Net = sub(add(add(cf.Operating, cf.Investing), cf.Financing), cf.Dividends)
		out = append(out, cf)
	}
	return out
}

// netFlows extracts the net series. It reports false when any year is unknown.
func netFlows(cf []CashFlowYear) ([]float64, bool) {
	if len(cf) == 0 {
		return nil, false
	}
	out := make([]float64, len(cf))
	for i, c := range cf {
		if c.Net == nil {
			return nil, false
		}
		out[i] = *c.Net
	}
	return out, true
}

// NPV discounts flows at rate, flows[0] being undiscounted.
func NPV(flows []float64, rate float64) float64 {
	total := 0.0
	for t, v := range flows {
		total += v / math.Pow(1+rate, float64(t))
	}
	return total
}

// IRR solves NPV(r) = 0 by Newton-Raphson from 10% with a central-difference
// derivative. It reports false when the flows never change sign or the
// iteration does not converge.
func IRR(flows []float64) (float64, bool) {
	var pos, neg bool
	for _, v := range flows {
		pos = pos || v > 0
		neg = neg || v < 0
	}
	if !pos || !neg {
		return 0, false
	}

	const (
		h       = 1e-6
		tol     = 1e-7
		maxIter = 100
		floor   = -0.99
	)
	r := discountRate
	for i := 0; i < maxIter; i++ {
		f := NPV(flows, r)
		d := (NPV(flows, r+h) - NPV(flows, r-h)) / (2 * h)
		if d == 0 || !finite(d) || !finite(f) {
			return 0, false
		}
		next := r - f/d
		if next <= floor {
			next = (r + floor) / 2
		}
		if math.Abs(next-r) < tol {
			return next, true
		}
		r = next
	}
	return 0, false
}

// Payback interpolates the time at which cumulative cash first turns
// non-negative. It reports false when it never does.
func Payback(flows []float64) (float64, bool) {
	if len(flows) == 0 {
		return 0, false
	}
	cum := flows[0]
	if cum >= 0 {
		return 0, true
	}
	for t := 1; t < len(flows); t++ {
		prev := cum
		cum += flows[t]
		if prev < 0 && cum >= 0 {
			return float64(t-1) + (-prev)/flows[t], true
		}
	}
	return 0, false
}

// BenefitCost is discounted inflows over the absolute discounted outflows.
// It reports false when there are no outflows.
func BenefitCost(flows []float64, rate float64) (float64, bool) {
	var benefit, cost float64
	for t, v := range flows {
		d := v / math.Pow(1+rate, float64(t))
		if d > 0 {
			benefit += d
		} else {
			cost += d
		}
	}
	if cost == 0 {
		return 0, false
	}
	return benefit / math.Abs(cost), true
}

// ComputeMetrics evaluates NPV, IRR, payback and benefit/cost on the net
// series. Every metric is nil when any year's net flow is unknown.
func ComputeMetrics(cf []CashFlowYear) Metrics {
	flows, ok := netFlows(cf)
	if !ok {
		return Metrics{}
	}
	m := Metrics{NPV: ptr(NPV(flows, discountRate))}
	if v, ok := IRR(flows); ok {
		m.IRR = ptr(v)
	}
	if v, ok := Payback(flows); ok {
		m.Payback = ptr(v)
	}
	if v, ok := BenefitCost(flows, discountRate); ok {
		m.BenefitCost = ptr(v)
	}
	return m
}
