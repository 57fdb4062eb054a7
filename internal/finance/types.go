// Package finance projects a simplified pro-forma model from sparse survey
// figures. A figure that cannot be derived is nil, and anything computed from
// it is nil too; zero is always a real value.
package finance

// ProjectionYears is the length of every year-by-year projection.
const ProjectionYears = 5

const (
	discountRate      = 0.10
	depreciationYears = 5
)

// Inputs are the numeric facts the engine works from. Nil means the user did
// not supply the figure.
type Inputs struct {
	MarketSize       *float64 `json:"marketSize"`
	GrowthRate       *float64 `json:"growthRate"`
	CompetitorsCount *float64 `json:"competitorsCount"`
	// MarketGap is true when a gap was affirmed, false when denied.
	MarketGap *bool `json:"marketGap"`

	InventoryValue *float64 `json:"inventoryValue"`

	SalariesAnnual     *float64 `json:"salariesAnnual"`
	RentMonthly        *float64 `json:"rentMonthly"`
	MarketingMonthly   *float64 `json:"marketingMonthly"`
	UtilitiesAnnual    *float64 `json:"utilitiesAnnual"`
	OtherOpsAnnual     *float64 `json:"otherOpsAnnual"`
	DepreciationAnnual *float64 `json:"depreciationAnnual"`
	DepreciableBase    *float64 `json:"depreciableBase"`

	PropertyPrice         *float64 `json:"propertyPrice"`
	LicensesTotal         *float64 `json:"licensesTotal"`
	EquipmentTotal        *float64 `json:"equipmentTotal"`
	AdditionalInvestments *float64 `json:"additionalInvestments"`
	InvestmentIncome      *float64 `json:"investmentIncome"`

	PersonalContribution *float64 `json:"personalContribution"`
	LoanAmount           *float64 `json:"loanAmount"`
	InterestRate         *float64 `json:"interestRate"`
	LoanMonths           *float64 `json:"loanMonths"`

	TaxRate  *float64 `json:"taxRate"`
	Currency string   `json:"currency"`
}

// Adjustments scale one driver of the projection. The zero value is not
// valid; use Base.
type Adjustments struct {
	Sales       float64
	Opex        float64
	ProjectCost float64
}

// Base applies no adjustment.
var Base = Adjustments{Sales: 1, Opex: 1, ProjectCost: 1}

type AmortizationEntry struct {
	Year               int     `json:"year"`
	Payment            float64 `json:"payment"`
	Interest           float64 `json:"interest"`
	Principal          float64 `json:"principal"`
	RemainingPrincipal float64 `json:"remainingPrincipal"`
}

// LoanStatus tells dependent lines whether debt service is known.
type LoanStatus string

const (
	LoanNone      LoanStatus = "none"
	LoanScheduled LoanStatus = "scheduled"
	LoanInvalid   LoanStatus = "invalid"
)

// Year is one income-statement year.
type Year struct {
	Year                   int      `json:"year"`
	Sales                  *float64 `json:"sales"`
	COGS                   *float64 `json:"cogs"`
	GrossProfit            *float64 `json:"grossProfit"`
	Salaries               *float64 `json:"salaries"`
	Rent                   *float64 `json:"rent"`
	Marketing              *float64 `json:"marketing"`
	Utilities              *float64 `json:"utilities"`
	OtherOps               *float64 `json:"otherOps"`
	TotalOperatingExpenses *float64 `json:"totalOperatingExpenses"`
	Depreciation           *float64 `json:"depreciation"`
	EBIT                   *float64 `json:"ebit"`
	LoanPaymentAnnual      *float64 `json:"loanPaymentAnnual"`
	InterestExpense        *float64 `json:"interestExpense"`
	PrincipalPayment       *float64 `json:"principalPayment"`
	RemainingPrincipal     *float64 `json:"remainingPrincipal"`
	ProfitBeforeTax        *float64 `json:"profitBeforeTax"`
	IncomeTax              *float64 `json:"incomeTax"`
	NetProfit              *float64 `json:"netProfit"`
	NetProfitMargin        *float64 `json:"netProfitMargin"`
}

// CashFlowYear is one entry of the cash-flow series; index 0 is year 0.
type CashFlowYear struct {
	Year      int      `json:"year"`
	Operating *float64 `json:"operating"`
	Investing *float64 `json:"investing"`
	Financing *float64 `json:"financing"`
	Dividends *float64 `json:"dividends"`
	Net       *float64 `json:"net"`
	Notes     []string `json:"notes,omitempty"`
}

type BalanceYear struct {
	Year int `json:"year"`

	Equipment               float64  `json:"equipment"`
	Property                float64  `json:"property"`
	StartupCosts            float64  `json:"startupCosts"`
	AdditionalInvestments   float64  `json:"additionalInvestments"`
	AccumulatedDepreciation float64  `json:"accumulatedDepreciation"`
	NonCurrentAssets        float64  `json:"nonCurrentAssets"`
	Cash                    *float64 `json:"cash"`
	Receivables             float64  `json:"receivables"`
	Inventory               float64  `json:"inventory"`
	CurrentAssets           float64  `json:"currentAssets"`
	TotalAssets             float64  `json:"totalAssets"`

	CurrentLiabilities    *float64 `json:"currentLiabilities"`
	NonCurrentLiabilities *float64 `json:"nonCurrentLiabilities"`
	TotalLiabilities      *float64 `json:"totalLiabilities"`

	PaidInCapital             float64  `json:"paidInCapital"`
	RetainedEarnings          *float64 `json:"retainedEarnings"`
	TotalEquity               *float64 `json:"totalEquity"`
	TotalLiabilitiesAndEquity *float64 `json:"totalLiabilitiesAndEquity"`
	AccountingCheck           *float64 `json:"accountingCheck"`
}

type Metrics struct {
	NPV         *float64 `json:"npv"`
	IRR         *float64 `json:"irr"`
	Payback     *float64 `json:"paybackPeriod"`
	BenefitCost *float64 `json:"benefitCostRatio"`
}

type Scenario struct {
	Name string `json:"name"`
	Metrics
}

type BreakEvenYear struct {
	Year                    int      `json:"year"`
	FixedCosts              *float64 `json:"fixedCosts"`
	ContributionMarginRatio *float64 `json:"contributionMarginRatio"`
	BreakEvenSales          *float64 `json:"breakEvenSales"`
}

// Analysis is the complete projection for one set of inputs.
type Analysis struct {
	Inputs       Inputs              `json:"inputs"`
	LoanStatus   LoanStatus          `json:"loanStatus"`
	Amortization []AmortizationEntry `json:"amortization"`
	Income       []Year              `json:"income"`
	CashFlow     []CashFlowYear      `json:"cashFlow"`
	Balance      []BalanceYear       `json:"balanceSheet"`
	Metrics      Metrics             `json:"metrics"`
	Scenarios    []Scenario          `json:"scenarios"`
	BreakEven    []BreakEvenYear     `json:"breakEven"`
	// Missing names the essential inputs that were not supplied.
	Missing []string `json:"missing"`
	// Partial is set when no year-by-year figure could be projected.
	Partial bool     `json:"partial"`
	Notes   []string `json:"notes"`
}
