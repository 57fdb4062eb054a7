package finance

import "math"

// BuildAmortization returns the yearly schedule of a fixed-payment loan over
// ceil(months/12) years. The final year's principal is whatever remains, so
// the balance always closes at exactly zero. A missing or invalid input
// (amount <= 0, negative or missing rate, months <= 0) yields an empty
// schedule.
func BuildAmortization(amount, ratePercent, months *float64) []AmortizationEntry {
	if amount == nil || ratePercent == nil || months == nil {
		return nil
	}
	loan, rate, m := *amount, *ratePercent, *months
	if !finite(loan) || !finite(rate) || !finite(m) || loan <= 0 || rate < 0 || m <= 0 {
		return nil
	}
	years := int(math.Ceil(m / 12))
	r := rate / 100

	payment := loan / float64(years)
	if r > 0 {
		payment = r * loan / (1 - math.Pow(1+r, -float64(years)))
	}

	out := make([]AmortizationEntry, 0, years)
	remaining := loan
	for y := 1; y <= years; y++ {
		interest := remaining * r
		principal := payment - interest
		if y == years {
			principal = remaining
		}
		remaining -= principal
		if y == years {
			remaining = 0
		}
		out = append(out, AmortizationEntry{
			Year:               y,
			Payment:            interest + principal,
			Interest:           interest,
			Principal:          principal,
			RemainingPrincipal: remaining,
		})
	}
	return out
}

// loanSchedule classifies the declared loan. An absent or zero amount means
// the project carries no debt.
func loanSchedule(in Inputs) ([]AmortizationEntry, LoanStatus) {
	if in.LoanAmount == nil || *in.LoanAmount == 0 {
		return nil, LoanNone
	}
	sched := BuildAmortization(in.LoanAmount, in.InterestRate, in.LoanMonths)
	if len(sched) == 0 {
		return nil, LoanInvalid
	}
	return sched, LoanScheduled
}
