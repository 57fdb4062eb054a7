package sections

// Sections is the structured view of a canonical answer map. Unknown scalars
// are nil and unknown lists are empty, never placeholder text.
type Sections struct {
	ProjectOverview *ProjectOverview `json:"projectOverview"`
	Market          *Market          `json:"market"`
	Marketing       *Marketing       `json:"marketing"`
	Technical       *Technical       `json:"technical"`
	Technology      *Technology      `json:"technology"`
	Operations      *Operations      `json:"operations"`
	Organization    *Organization    `json:"organization"`
	Legal           *Legal           `json:"legal"`
	Environmental   *Environmental   `json:"environmental"`
	Social          *Social          `json:"social"`
	Cultural        *Cultural        `json:"cultural"`
	Behavioral      *Behavioral      `json:"behavioral"`
	Political       *Political       `json:"political"`
	Timing          *Timing          `json:"timing"`
	Risk            *Risk            `json:"risk"`
	Economic        *Economic        `json:"economic"`
	Financial       *Financial       `json:"financial"`
	Investments     *Investments     `json:"investments"`
}

type ProjectOverview struct {
	MainProduct          *string       `json:"mainProduct"`
	ProblemSolved        *string       `json:"problemSolved"`
	BusinessModel        BusinessModel `json:"businessModel"`
	DistributionChannels []string      `json:"distributionChannels"`
	BrandIdentity        BrandIdentity `json:"brandIdentity"`
}

type BusinessModel struct {
	Models []string `json:"models"`
	Other  *string  `json:"other"`
}

type BrandIdentity struct {
	BusinessType *string  `json:"businessType"`
	Attributes   []string `json:"attributes"`
}

type Market struct {
	MarketSize         *float64   `json:"marketSize"`
	PotentialCustomers *float64   `json:"potentialCustomers"`
	GrowthRate         *float64   `json:"growthRate"`
	GrowthFactors      *string    `json:"growthFactors"`
	CompetitorsCount   *float64   `json:"competitorsCount"`
	MarketGap          StatusNote `json:"marketGap"`
	Feasibility        Assessment `json:"feasibility"`
}

type StatusNote struct {
	Status      *string `json:"status"`
	Explanation *string `json:"explanation"`
}

type Assessment struct {
	Assessment *string `json:"assessment"`
	Notes      *string `json:"notes"`
}

type Marketing struct {
	TargetAge             *string  `json:"targetAge"`
	CustomerIncome        *float64 `json:"customerIncome"`
	Channels              []string `json:"channels"`
	ChannelsOther         *string  `json:"channelsOther"`
	MarketingPlan         []string `json:"marketingPlan"`
	MarketingCost         *float64 `json:"marketingCost"`
	CompetitiveAdvantage  *string  `json:"competitiveAdvantage"`
	Reachability          *string  `json:"reachability"`
	Notes                 *string  `json:"notes"`
	BrandIdentityFeatures []string `json:"brandIdentityFeatures"`
}

type Technical struct {
	Property    Property  `json:"property"`
	Site        Site      `json:"site"`
	Equipment   Equipment `json:"equipment"`
	Inventory   Inventory `json:"inventory"`
	Feasibility *string   `json:"feasibility"`
	Notes       *string   `json:"notes"`
}

type Property struct {
	RequiredArea  *float64 `json:"requiredArea"`
	OwnershipType *string  `json:"ownershipType"`
	PropertyPrice *float64 `json:"propertyPrice"`
	MonthlyRent   *float64 `json:"monthlyRent"`
}

type Site struct {
	Traffic          *string  `json:"traffic"`
	Parking          *string  `json:"parking"`
	AttractionPoints []string `json:"attractionPoints"`
	OtherAttractions *string  `json:"otherAttractions"`
}

type Equipment struct {
	Items []EquipmentItem `json:"items"`
}

type EquipmentItem struct {
	Name string   `json:"name"`
	Cost *float64 `json:"cost,omitempty"`
}

type Inventory struct {
	InventoryValue *float64 `json:"inventoryValue"`
	GoodsTypes     *string  `json:"goodsTypes"`
}

type Technology struct {
	Stack              []CostItem     `json:"stack"`
	Modernity          *string        `json:"modernity"`
	Maintenance        DifficultyNote `json:"maintenance"`
	SupplierDependence *string        `json:"supplierDependence"`
	Safety             *string        `json:"safety"`
	Notes              *string        `json:"notes"`
}

type DifficultyNote struct {
	Difficulties *string `json:"difficulties"`
	Explanation  *string `json:"explanation"`
}

// CostItem is a named row with an optional cost, used by the technology and
// license tables.
type CostItem struct {
	Type string   `json:"type"`
	Cost *float64 `json:"cost,omitempty"`
}

type Operations struct {
	Staff           Staff   `json:"staff"`
	DailyOperations *string `json:"dailyOperations"`
	Efficiency      *string `json:"efficiency"`
	Notes           *string `json:"notes"`
}

type Staff struct {
	TotalEmployees *float64   `json:"totalEmployees"`
	Table          []StaffRow `json:"table"`
	MonthlyTotal   *float64   `json:"monthlyTotal"`
	AnnualTotal    *float64   `json:"annualTotal"`
}

type StaffRow struct {
	JobTitle      string   `json:"jobTitle"`
	EmployeeCount *float64 `json:"employeeCount,omitempty"`
	MonthlySalary *float64 `json:"monthlySalary,omitempty"`
}

type Organization struct {
	Structure      []string       `json:"structure"`
	OtherStructure *string        `json:"otherStructure"`
	DecisionMaking *string        `json:"decisionMaking"`
	Governance     GovernanceNote `json:"governance"`
	Effectiveness  *string        `json:"effectiveness"`
	Notes          *string        `json:"notes"`
}

type GovernanceNote struct {
	Requirements *string `json:"requirements"`
	Explanation  *string `json:"explanation"`
}

type Legal struct {
	ProjectLegality *string     `json:"projectLegality"`
	Licenses        Licenses    `json:"licenses"`
	Risks           SummaryNote `json:"risks"`
	Obstacles       *string     `json:"obstacles"`
	Notes           *string     `json:"notes"`
}

type Licenses struct {
	Items []CostItem `json:"items"`
	Total *float64   `json:"total"`
}

type SummaryNote struct {
	Summary     *string `json:"summary"`
	Explanation *string `json:"explanation"`
}

type Environmental struct {
	Impact       *string `json:"impact"`
	Explanation  *string `json:"explanation"`
	Approvals    *string `json:"approvals"`
	Friendliness *string `json:"friendliness"`
	Notes        *string `json:"notes"`
}

type Social struct {
	CommunityImpact  *string  `json:"communityImpact"`
	JobOpportunities *float64 `json:"jobOpportunities"`
	Alignment        *string  `json:"alignment"`
	Notes            *string  `json:"notes"`
}

type Cultural struct {
	Alignment            *string `json:"alignment"`
	AlignmentExplanation *string `json:"alignmentExplanation"`
	Rejection            *string `json:"rejection"`
	RejectionExplanation *string `json:"rejectionExplanation"`
	Acceptability        *string `json:"acceptability"`
	Notes                *string `json:"notes"`
}

type Behavioral struct {
	Alignment             *string `json:"alignment"`
	Explanation           *string `json:"explanation"`
	Resistance            *string `json:"resistance"`
	ResistanceExplanation *string `json:"resistanceExplanation"`
	CustomerSupport       *string `json:"customerSupport"`
	Notes                 *string `json:"notes"`
}

type Political struct {
	Stability            *string `json:"stability"`
	StabilityExplanation *string `json:"stabilityExplanation"`
	RegulatoryExposure   *string `json:"regulatoryExposure"`
	ExposureExplanation  *string `json:"exposureExplanation"`
	Risk                 *string `json:"risk"`
	Notes                *string `json:"notes"`
}

type Timing struct {
	MarketTiming         *string `json:"marketTiming"`
	ImplementationTiming *string `json:"implementationTiming"`
	Notes                *string `json:"notes"`
}

type Risk struct {
	Items           []RiskRow    `json:"items"`
	Averages        RiskAverages `json:"averages"`
	ContingencyPlan PlanNote     `json:"contingencyPlan"`
	Control         *string      `json:"control"`
	Notes           *string      `json:"notes"`
}

type RiskRow struct {
	Name        string   `json:"name"`
	Probability *float64 `json:"probability,omitempty"`
	Impact      *float64 `json:"impact,omitempty"`
}

type RiskAverages struct {
	Probability *float64 `json:"probability"`
	Impact      *float64 `json:"impact"`
}

type PlanNote struct {
	Plan        *string `json:"plan"`
	Explanation *string `json:"explanation"`
}

type Economic struct {
	AddedValue     []string `json:"addedValue"`
	OtherValue     *string  `json:"otherValue"`
	GDPImpact      *string  `json:"gdpImpact"`
	GDPExplanation *string  `json:"gdpExplanation"`
	Feasibility    *string  `json:"feasibility"`
	Notes          *string  `json:"notes"`
}

type Financial struct {
	Capital                Capital             `json:"capital"`
	Assumptions            CurrencyAssumption  `json:"assumptions"`
	AnnualOperationalCosts map[string]float64  `json:"annualOperationalCosts"`
	FinancialStatements    FinancialStatements `json:"financialStatements"`
}

type Capital struct {
	TotalCapital     *string `json:"totalCapital"`
	OperationalCosts *string `json:"operationalCosts"`
	PaybackPeriod    *string `json:"paybackPeriod"`
	ROIExpectation   *string `json:"roiExpectation"`
	Feasibility      *string `json:"feasibility"`
	Notes            *string `json:"notes"`
}

type CurrencyAssumption struct {
	Currency *string `json:"currency"`
}

// FinancialStatements is a user-supplied or previously computed set of
// statement tables. Blank cells are rendered as "?".
type FinancialStatements struct {
	IncomeStatement *StatementTable `json:"incomeStatement,omitempty"`
	BalanceSheet    *StatementTable `json:"balanceSheet,omitempty"`
	CashFlow        *StatementTable `json:"cashFlow,omitempty"`
	Assumptions     []string        `json:"assumptions"`
	Ratios          []any           `json:"ratios,omitempty"`
	ROI             *ROI            `json:"roi,omitempty"`
	Currency        *string         `json:"currency"`
}

type StatementTable struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

type ROI struct {
	NPV           any `json:"npv"`
	IRR           any `json:"irr"`
	PaybackPeriod any `json:"paybackPeriod"`
}

type Investments struct {
	Required *string         `json:"required"`
	Purpose  *string         `json:"purpose"`
	Items    []InvestmentRow `json:"items"`
	Total    *float64        `json:"total"`
}

type InvestmentRow struct {
	Type   string   `json:"type"`
	Value  *float64 `json:"value,omitempty"`
	Return *string  `json:"return,omitempty"`
}
