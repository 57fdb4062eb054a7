package finance

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joelkehle/feasibility-study/internal/canon"
	"github.com/joelkehle/feasibility-study/internal/sections"
)

func fullInputs() Inputs {
	return Inputs{
		MarketSize:           ptr(1000000),
		GrowthRate:           ptr(5),
		CompetitorsCount:     ptr(3),
		MarketGap:            boolPtr(true),
		InventoryValue:       ptr(20000),
		SalariesAnnual:       ptr(24000),
		RentMonthly:          ptr(1000),
		MarketingMonthly:     ptr(500),
		EquipmentTotal:       ptr(10000),
		LicensesTotal:        ptr(1000),
		DepreciableBase:      ptr(11000),
		DepreciationAnnual:   ptr(2200),
		PropertyPrice:        ptr(50000),
		PersonalContribution: ptr(15000),
		LoanAmount:           ptr(20000),
		InterestRate:         ptr(8),
		LoanMonths:           ptr(36),
		TaxRate:              ptr(20),
	}
}

func TestBuildAmortizationTwoYearLoan(t *testing.T) {
	sched := BuildAmortization(ptr(10000), ptr(10), ptr(24))
	require.Len(t, sched, 2)
	assert.InDelta(t, 1000, sched[0].Interest, 1e-9)
	assert.InDelta(t, sched[0].RemainingPrincipal, sched[1].Principal, 1e-9, "final principal closes the balance")
	assert.Zero(t, sched[1].RemainingPrincipal)
	// payment = 0.1*10000 / (1 - 1.1^-2) = 5761.9048
	assert.InDelta(t, 5761.9048, sched[0].Payment, 0.001)
}

func TestBuildAmortizationClosure(t *testing.T) {
	cases := []struct{ amount, rate, months float64 }{
		{10000, 10, 24},
		{5000, 0, 18},
		{250000, 6.5, 240},
		{1, 99, 1},
		{12345.67, 3.2, 37},
	}
	for _, c := range cases {
		sched := BuildAmortization(ptr(c.amount), ptr(c.rate), ptr(c.months))
		require.Len(t, sched, int(math.Ceil(c.months/12)), "%+v", c)
		total := 0.0
		prev := c.amount
		for _, e := range sched {
			total += e.Principal
			assert.LessOrEqual(t, e.RemainingPrincipal, prev+1e-9, "%+v: remaining principal increased in year %d", c, e.Year)
			prev = e.RemainingPrincipal
		}
		assert.InDelta(t, c.amount, total, 1e-6, "%+v: principal sum", c)
		assert.InDelta(t, 0, sched[len(sched)-1].RemainingPrincipal, 1e-6, "%+v: balance not closed", c)
	}
}

func TestBuildAmortizationZeroRate(t *testing.T) {
	for _, e := range BuildAmortization(ptr(9000), ptr(0), ptr(36)) {
		assert.Zero(t, e.Interest)
		assert.InDelta(t, 3000, e.Principal, 1e-9)
	}
}

func TestBuildAmortizationInvalid(t *testing.T) {
	bad := [][3]*float64{
		{ptr(0), ptr(5), ptr(12)},
		{ptr(-10), ptr(5), ptr(12)},
		{ptr(1000), nil, ptr(12)},
		{ptr(1000), ptr(5), ptr(0)},
		{nil, ptr(5), ptr(12)},
		{ptr(1000), ptr(-1), ptr(12)},
	}
	for i, b := range bad {
		assert.Empty(t, BuildAmortization(b[0], b[1], b[2]), "case %d", i)
	}
}

func TestProjectIncomeSalesFromMarketSize(t *testing.T) {
	in := Inputs{MarketSize: ptr(100000), CompetitorsCount: ptr(0), GrowthRate: ptr(5)}
	years := ProjectIncome(in, nil, LoanNone, Base)
	assert.InDelta(t, 15000, *years[0].Sales, 1e-9)
	assert.InDelta(t, 15750, *years[1].Sales, 1e-9)
	assert.Nil(t, years[0].COGS, "no COGS without an inventory value")
}

func TestMarketShareTable(t *testing.T) {
	cases := []struct {
		in   Inputs
		want float64
	}{
		{Inputs{CompetitorsCount: ptr(0), MarketGap: boolPtr(false)}, 0.15},
		{Inputs{CompetitorsCount: ptr(4), MarketGap: boolPtr(true)}, 0.08},
		{Inputs{CompetitorsCount: ptr(4), MarketGap: boolPtr(false)}, 0.02},
		{Inputs{CompetitorsCount: ptr(4)}, 0.03},
		{Inputs{}, 0.03},
	}
	for i, c := range cases {
		assert.Equal(t, c.want, marketShare(c.in), "case %d", i)
	}
}

func TestProjectIncomeWithoutTaxRate(t *testing.T) {
	in := Inputs{
		MarketSize:         ptr(100000),
		CompetitorsCount:   ptr(0),
		InventoryValue:     ptr(4500),
		RentMonthly:        ptr(400),
		DepreciationAnnual: ptr(700),
		LoanAmount:         ptr(1000),
		InterestRate:       ptr(0),
		LoanMonths:         ptr(12),
	}
	sched, status := loanSchedule(in)
	y := ProjectIncome(in, sched, status, Base)[0]
	assert.InDelta(t, 5000, *y.EBIT, 1e-9)
	assert.InDelta(t, 1000, *y.LoanPaymentAnnual, 1e-9)
	assert.InDelta(t, 4000, *y.ProfitBeforeTax, 1e-9)
	assert.Nil(t, y.IncomeTax)
	assert.Nil(t, y.NetProfit)
}

func TestSalesPriceScenarioKeepsCOGSVolume(t *testing.T) {
	in := Inputs{MarketSize: ptr(100000), CompetitorsCount: ptr(0), InventoryValue: ptr(4500)}
	base := ProjectIncome(in, nil, LoanNone, Base)[0]
	cut := ProjectIncome(in, nil, LoanNone, Adjustments{Sales: 0.9, Opex: 1, ProjectCost: 1})[0]
	assert.InDelta(t, *base.Sales*0.9, *cut.Sales, 1e-9)
	assert.InDelta(t, *base.COGS, *cut.COGS, 1e-9, "a price cut does not change the goods sold")
}

func TestOperatingExpensesSumKnownComponents(t *testing.T) {
	y := ProjectIncome(Inputs{MarketingMonthly: ptr(100), UtilitiesAnnual: ptr(300)}, nil, LoanNone, Base)[0]
	assert.InDelta(t, 1500, *y.TotalOperatingExpenses, 1e-9)
	assert.Nil(t, y.Salaries, "salaries stay unknown")

	empty := ProjectIncome(Inputs{}, nil, LoanNone, Base)[0]
	assert.Nil(t, empty.TotalOperatingExpenses)
}

func TestAnalyzeWithoutMarketSize(t *testing.T) {
	in := fullInputs()
	in.MarketSize = nil
	a := Analyze(in)
	for _, y := range a.Income {
		assert.Nil(t, y.Sales, "year %d", y.Year)
		assert.Nil(t, y.COGS, "year %d", y.Year)
		assert.Nil(t, y.GrossProfit, "year %d", y.Year)
		assert.Nil(t, y.EBIT, "year %d", y.Year)
		assert.Nil(t, y.NetProfit, "year %d", y.Year)
	}
	assert.True(t, a.Partial)
	assert.Contains(t, a.Missing, MissingMarketSize)
	assert.Nil(t, a.Metrics.NPV)
}

func TestBalanceSheetIdentityFullySpecified(t *testing.T) {
	in := Inputs{
		MarketSize:            ptr(100000),
		CompetitorsCount:      ptr(0),
		InventoryValue:        ptr(4500),
		RentMonthly:           ptr(875),
		EquipmentTotal:        ptr(500),
		DepreciableBase:       ptr(500),
		DepreciationAnnual:    ptr(100),
		PropertyPrice:         ptr(0),
		LicensesTotal:         ptr(0),
		AdditionalInvestments: ptr(0),
		SalariesAnnual:        ptr(0),
		MarketingMonthly:      ptr(0),
		PersonalContribution:  ptr(5000),
		LoanAmount:            ptr(0),
		TaxRate:               ptr(10),
	}
	a := Analyze(in)
	require.Len(t, a.Balance, ProjectionYears)
	for _, b := range a.Balance {
		require.NotNil(t, b.AccountingCheck, "year %d", b.Year)
		assert.InDelta(t, 0, *b.AccountingCheck, 1e-6, "year %d", b.Year)
		assert.Nil(t, b.Cash, "cash stays unknown")
	}
}

func TestBalanceSheetReportsResidual(t *testing.T) {
	a := Analyze(fullInputs())
	for _, b := range a.Balance {
		assert.NotNil(t, b.AccountingCheck, "year %d", b.Year)
	}
	require.NotNil(t, a.Balance[0].CurrentLiabilities)
	assert.InDelta(t, a.Amortization[1].Principal, *a.Balance[0].CurrentLiabilities, 1e-9,
		"current liabilities equal next year's principal")
}

func TestInvalidLoanBlocksDependentFigures(t *testing.T) {
	in := fullInputs()
	in.InterestRate = nil
	a := Analyze(in)
	assert.Equal(t, LoanInvalid, a.LoanStatus)
	assert.Nil(t, a.Income[0].ProfitBeforeTax)
	assert.Nil(t, a.Balance[0].TotalLiabilities)
	assert.NotNil(t, a.Income[0].EBIT, "ebit does not depend on the loan")
}

func TestZeroLoanAmountMeansNoLoan(t *testing.T) {
	in := fullInputs()
	in.LoanAmount = ptr(0)
	a := Analyze(in)
	assert.Equal(t, LoanNone, a.LoanStatus)
	require.NotNil(t, a.Income[0].LoanPaymentAnnual)
	assert.Zero(t, *a.Income[0].LoanPaymentAnnual)
	assert.Empty(t, BuildAmortization(ptr(0), ptr(8), ptr(36)), "the schedule itself still rejects a zero amount")

	in.LoanAmount = ptr(-500)
	assert.Equal(t, LoanInvalid, Analyze(in).LoanStatus)
}

func TestEquipmentFreeTextFeedsYearZero(t *testing.T) {
	answers := canon.CanonicalizeAnswers(map[string]any{"equipment-list": "Oven: 500; Fridge: 300"})
	in := InputsFrom(answers, sections.Build(answers))
	cf := BuildCashFlow(in, nil, Base)
	require.NotNil(t, cf[0].Investing)
	assert.InDelta(t, -800, *cf[0].Investing, 1e-9)
	assert.NotEmpty(t, cf[0].Notes, "a note lists missing components")
}

func TestNPVAndIRR(t *testing.T) {
	assert.InDelta(t, 0, NPV([]float64{-1000, 1100}, 0.10), 1e-9)

	r, ok := IRR([]float64{-1000, 1100})
	require.True(t, ok)
	assert.InDelta(t, 0.10, r, 1e-6)

	r, ok = IRR([]float64{-100, 60, 60})
	require.True(t, ok)
	assert.InDelta(t, 0.130662, r, 1e-5)

	_, ok = IRR([]float64{100, 50})
	assert.False(t, ok, "no irr without a sign change")
}

func TestPayback(t *testing.T) {
	got, ok := Payback([]float64{-1000, 400, 400, 400})
	require.True(t, ok)
	assert.InDelta(t, 2.5, got, 1e-9)

	_, ok = Payback([]float64{-1000, 100, 100})
	assert.False(t, ok)

	got, ok = Payback([]float64{10, -5})
	require.True(t, ok)
	assert.Zero(t, got)
}

func TestBenefitCost(t *testing.T) {
	got, ok := BenefitCost([]float64{-100, 110}, 0.10)
	require.True(t, ok)
	assert.InDelta(t, 1, got, 1e-9)

	_, ok = BenefitCost([]float64{5, 5}, 0.10)
	assert.False(t, ok, "undefined without outflows")
}

func TestRunScenariosOrdering(t *testing.T) {
	sc := RunScenarios(fullInputs())
	require.Len(t, sc, 7)
	byName := map[string]Scenario{}
	for _, s := range sc {
		require.NotNil(t, s.NPV, s.Name)
		byName[s.Name] = s
	}
	base := *byName["Base case"].NPV
	for _, name := range []string{"Project cost +10%", "Project cost +20%", "Sales price -5%", "Sales price -10%", "Operating cost +10%", "Operating cost +20%"} {
		assert.Less(t, *byName[name].NPV, base, name)
	}
	assert.Less(t, *byName["Sales price -10%"].NPV, *byName["Sales price -5%"].NPV, "deeper price cut lowers npv further")
}

func TestRunScenariosWithoutTaxRate(t *testing.T) {
	in := fullInputs()
	in.TaxRate = nil
	for _, s := range RunScenarios(in) {
		assert.Nil(t, s.NPV, s.Name)
		assert.Nil(t, s.IRR, s.Name)
		assert.Nil(t, s.BenefitCost, s.Name)
		assert.Nil(t, s.Payback, s.Name)
	}
	st := BuildStatements(Analyze(in), "fr")
	assert.Equal(t, "Données requises", st.Scenarios.Rows[0][1])
}

func TestBreakEven(t *testing.T) {
	years := []Year{{Year: 1, Sales: ptr(15000), COGS: ptr(4500), TotalOperatingExpenses: ptr(10500), Depreciation: ptr(100)}}
	be := BreakEven(years)[0]
	assert.InDelta(t, 0.7, *be.ContributionMarginRatio, 1e-9)
	assert.InDelta(t, 10600/0.7, *be.BreakEvenSales, 1e-6)

	none := BreakEven([]Year{{Year: 1, Sales: ptr(0), COGS: ptr(0)}})[0]
	assert.Nil(t, none.BreakEvenSales)
}

func TestStatementsTables(t *testing.T) {
	tables := Tables(Analyze(fullInputs()), "en")
	want := []string{"Income Statement", "Balance Sheet", "Cash Flow Statement", "Key Ratios", "Return on Investment (ROI)", "Loan Amortization Schedule", "Scenario Analysis", "Break-even Analysis"}
	require.Len(t, tables, len(want))
	for i, tb := range tables {
		assert.Equal(t, want[i], tb.Title, "table %d", i)
	}
	assert.Len(t, tables[0].Rows, ProjectionYears)
	assert.Len(t, tables[2].Rows, ProjectionYears+1)
	assert.Equal(t, "البيانات مطلوبة", DataRequired("ar-MA"))
	assert.Equal(t, "Data required", DataRequired("de"))
}

func TestInputsFromAnswers(t *testing.T) {
	answers := canon.CanonicalizeAnswers(map[string]any{
		"market-size":       "500,000",
		"market-gap":        "No",
		"competitors-count": "2",
		"staffTable": []any{
			map[string]any{"jobTitle": "Baker", "employeeCount": 2.0, "monthlySalary": 800.0},
			map[string]any{"jobTitle": "Cashier", "employeeCount": 1.0},
		},
		"licensesTable":    []any{map[string]any{"type": "Health", "cost": 300.0}},
		"investmentsTable": []any{map[string]any{"type": "Deposit", "value": 10000.0, "return": "5%"}},
		"loan-amount":      "20,000",
		"interest-value":   "7",
		"loan-months":      "48",
		"tax-rate":         "15",
		"currency":         "MAD",
	})
	in := InputsFrom(answers, sections.Build(answers))
	require.NotNil(t, in.MarketGap)
	assert.False(t, *in.MarketGap, "denied market gap")
	assert.InDelta(t, 19200, *in.SalariesAnnual, 1e-9)
	assert.InDelta(t, 300, *in.LicensesTotal, 1e-9)
	assert.InDelta(t, 60, *in.DepreciationAnnual, 1e-9)
	assert.InDelta(t, 500, *in.InvestmentIncome, 1e-9)
	assert.InDelta(t, 10000, *in.AdditionalInvestments, 1e-9)
	assert.InDelta(t, 20000, *in.LoanAmount, 1e-9)
	assert.InDelta(t, 15, *in.TaxRate, 1e-9)
	assert.Equal(t, "MAD", in.Currency)
}
