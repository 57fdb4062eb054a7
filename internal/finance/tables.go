package finance

import (
	"fmt"
	"strconv"
	"strings"
)

var dataRequired = map[string]string{
	"en": "Data required",
	"ar": "البيانات مطلوبة",
	"fr": "Données requises",
	"es": "Se requieren datos",
	"zh": "需要数据",
}

// DataRequired is the localized placeholder for an unknown figure.
func DataRequired(lang string) string {
	if s, ok := dataRequired[baseLang(lang)]; ok {
		return s
	}
	return dataRequired["en"]
}

func baseLang(lang string) string {
	l := strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexAny(l, "-_"); i > 0 {
		l = l[:i]
	}
	return l
}

// Table is a titled grid of display strings.
type Table struct {
	Title   string     `json:"title"`
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

type Ratio struct {
	Metric string `json:"metric"`
	Value  string `json:"value"`
}

type ROI struct {
	NPV           string `json:"npv"`
	IRR           string `json:"irr"`
	PaybackPeriod string `json:"paybackPeriod"`
}

// Statements is the display form of an Analysis, attached to the financial
// section of the report payload.
type Statements struct {
	IncomeStatement Table    `json:"incomeStatement"`
	BalanceSheet    Table    `json:"balanceSheet"`
	CashFlow        Table    `json:"cashFlow"`
	Amortization    Table    `json:"amortization"`
	Scenarios       Table    `json:"scenarios"`
	BreakEven       Table    `json:"breakEven"`
	Ratios          []Ratio  `json:"ratios"`
	ROI             ROI      `json:"roi"`
	Assumptions     []string `json:"assumptions"`
	Currency        string   `json:"currency"`
	Missing         []string `json:"missing"`
}

type formatter struct{ lang string }

func (f formatter) money(v *float64) string {
	if v == nil {
		return DataRequired(f.lang)
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

func (f formatter) pct(v *float64) string {
	if v == nil {
		return DataRequired(f.lang)
	}
	return strconv.FormatFloat(*v*100, 'f', 2, 64) + "%"
}

func (f formatter) ratio(v *float64) string {
	if v == nil {
		return DataRequired(f.lang)
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

func (f formatter) years(v *float64) string {
	if v == nil {
		return DataRequired(f.lang)
	}
	return strconv.FormatFloat(*v, 'f', 2, 64) + " years"
}

// BuildStatements renders an Analysis for display. Unknown figures show the
// localized "Data required" text.
func BuildStatements(a Analysis, lang string) Statements {
	f := formatter{lang: lang}
	st := Statements{Currency: a.Inputs.Currency, Missing: a.Missing}

	st.IncomeStatement = Table{
		Title:   "Income Statement",
		Headers: []string{"Year", "Revenue", "COGS", "Gross Profit", "Operating Expenses", "EBIT", "Net Profit"},
		Rows:    [][]string{},
	}
	for _, y := range a.Income {
		st.IncomeStatement.Rows = append(st.IncomeStatement.Rows, []string{
			strconv.Itoa(y.Year), f.money(y.Sales), f.money(y.COGS), f.money(y.GrossProfit),
			f.money(y.TotalOperatingExpenses), f.money(y.EBIT), f.money(y.NetProfit),
		})
	}

	st.BalanceSheet = Table{
		Title:   "Balance Sheet",
		Headers: []string{"Year", "Assets", "Liabilities", "Equity", "Total Liabilities & Equity", "Accounting Check"},
		Rows:    [][]string{},
	}
	for _, b := range a.Balance {
		st.BalanceSheet.Rows = append(st.BalanceSheet.Rows, []string{
			strconv.Itoa(b.Year), f.money(&b.TotalAssets), f.money(b.TotalLiabilities), f.money(b.TotalEquity),
			f.money(b.TotalLiabilitiesAndEquity), f.money(b.AccountingCheck),
		})
	}

	st.CashFlow = Table{
		Title:   "Cash Flow Statement",
		Headers: []string{"Year", "Operating Activities", "Investing Activities", "Financing Activities", "Net Cash Flow"},
		Rows:    [][]string{},
	}
	for _, c := range a.CashFlow {
		st.CashFlow.Rows = append(st.CashFlow.Rows, []string{
			strconv.Itoa(c.Year), f.money(c.Operating), f.money(c.Investing), f.money(c.Financing), f.money(c.Net),
		})
	}

	st.Amortization = Table{
		Title:   "Loan Amortization Schedule",
		Headers: []string{"Year", "Payment", "Interest", "Principal", "Remaining Principal"},
		Rows:    [][]string{},
	}
	for _, e := range a.Amortization {
		st.Amortization.Rows = append(st.Amortization.Rows, []string{
			strconv.Itoa(e.Year), f.money(&e.Payment), f.money(&e.Interest), f.money(&e.Principal), f.money(&e.RemainingPrincipal),
		})
	}

	st.Scenarios = Table{
		Title:   "Scenario Analysis",
		Headers: []string{"Scenario", "NPV @10%", "IRR", "Benefit/Cost Ratio", "Payback Period"},
		Rows:    [][]string{},
	}
	for _, s := range a.Scenarios {
		st.Scenarios.Rows = append(st.Scenarios.Rows, []string{
			s.Name, f.money(s.NPV), f.pct(s.IRR), f.ratio(s.BenefitCost), f.years(s.Payback),
		})
	}

	st.BreakEven = Table{
		Title:   "Break-even Analysis",
		Headers: []string{"Year", "Fixed Costs", "Contribution Margin Ratio", "Break-even Sales"},
		Rows:    [][]string{},
	}
	for _, b := range a.BreakEven {
		st.BreakEven.Rows = append(st.BreakEven.Rows, []string{
			strconv.Itoa(b.Year), f.money(b.FixedCosts), f.pct(b.ContributionMarginRatio), f.money(b.BreakEvenSales),
		})
	}

	var first Year
	if len(a.Income) > 0 {
		first = a.Income[0]
	}
	var grossMargin, debtToEquity *float64
	if first.GrossProfit != nil && first.Sales != nil && *first.Sales != 0 {
		grossMargin = ptr(*first.GrossProfit / *first.Sales)
	}
	if len(a.Balance) > 0 {
		b := a.Balance[0]
		if b.TotalLiabilities != nil && b.TotalEquity != nil && *b.TotalEquity != 0 {
			debtToEquity = ptr(*b.TotalLiabilities / *b.TotalEquity)
		}
	}
	st.Ratios = []Ratio{
		{"Gross Margin (Year 1)", f.pct(grossMargin)},
		{"Net Profit Margin (Year 1)", f.pct(first.NetProfitMargin)},
		{"Debt to Equity (Year 1)", f.ratio(debtToEquity)},
		{"Benefit/Cost Ratio", f.ratio(a.Metrics.BenefitCost)},
	}
	st.ROI = ROI{NPV: f.money(a.Metrics.NPV), IRR: f.pct(a.Metrics.IRR), PaybackPeriod: f.years(a.Metrics.Payback)}
	st.Assumptions = assumptions(a, f)
	return st
}

func assumptions(a Analysis, f formatter) []string {
	in := a.Inputs
	out := []string{
		fmt.Sprintf("Market share of %.0f%% of the addressable market.", marketShare(in)*100),
		"Cash flows discounted at 10% per year.",
		"Equipment and license costs depreciated straight-line over 5 years.",
		"Receivables and payables are zero; opening cash balance is not provided.",
	}
	if in.TaxRate != nil {
		out = append(out, fmt.Sprintf("Flat income tax rate of %s%%.", strconv.FormatFloat(*in.TaxRate, 'f', -1, 64)))
	} else {
		out = append(out, "Income tax rate: "+DataRequired(f.lang))
	}
	if in.GrowthRate != nil {
		out = append(out, fmt.Sprintf("Annual sales growth of %s%%.", strconv.FormatFloat(*in.GrowthRate, 'f', -1, 64)))
	}
	return out
}

// Tables lists every display table in report order.
func (st Statements) Tables() []Table {
	ratios := Table{Title: "Key Ratios", Headers: []string{"Metric", "Value"}, Rows: [][]string{}}
	for _, r := range st.Ratios {
		ratios.Rows = append(ratios.Rows, []string{r.Metric, r.Value})
	}
	roi := Table{
		Title:   "Return on Investment (ROI)",
		Headers: []string{"Metric", "Value"},
		Rows: [][]string{
			{"NPV", st.ROI.NPV},
			{"IRR", st.ROI.IRR},
			{"Payback Period", st.ROI.PaybackPeriod},
		},
	}
	return []Table{st.IncomeStatement, st.BalanceSheet, st.CashFlow, ratios, roi, st.Amortization, st.Scenarios, st.BreakEven}
}

// Tables is BuildStatements(a, lang).Tables().
func Tables(a Analysis, lang string) []Table {
	return BuildStatements(a, lang).Tables()
}
