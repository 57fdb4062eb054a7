package canon

// rawToCanonical maps every known form-field id and legacy name to its
// canonical field. Canonical keys not listed here map to themselves.
var rawToCanonical = map[string]string{
	// start form
	"study-type":             "studyType",
	"project-name":           "projectName",
	"project-description":    "projectDescription",
	"vision-mission":         "visionMission",
	"project-type":           "projectType",
	"specified-project-type": "specifiedProjectType",
	"project-sector":         "projectSector",
	"sector":                 "projectSector",
	"country":                "country",
	"city":                   "city",
	"area":                   "area",
	"funding-method":         "fundingMethod",
	"personal-contribution":  "personalContribution",
	"loan-amount":            "loanAmount",
	"interest-value":         "interestValue",
	"interest-rate":          "interestValue",
	"currency":               "currency",
	"total-capital":          "totalCapital",
	"loan-months":            "loanMonths",
	"target-audience":        "targetAudience",
	"project-status":         "projectStatus",
	"duration":               "duration",
	"duration-unit":          "durationUnit",
	"project-tax-rate":       "projectTaxRate",
	"tax-rate":               "taxRate",

	// project idea
	"project-idea":          "projectIdea",
	"main-product":          "projectIdea",
	"problem-solution":      "problemSolution",
	"business-model":        "businessModel",
	"bm-other-text":         "businessModelOther",
	"distribution-channels": "distributionChannels",

	// commercial sector
	"business-type":        "businessType",
	"sustainable-fashion":  "sustainableFocus",
	"eco-friendly":         "ecoFriendly",
	"local-artisans":       "localArtisans",
	"organic-materials":    "organicMaterials",
	"recycled-materials":   "recycledMaterials",
	"limited-editions":     "limitedEditions",
	"social-media-focused": "socialMediaFocus",
	"influencer-collabs":   "influencerCollaborations",
	"pop-up-events":        "popupEvents",
	"community-workshops":  "communityWorkshops",
	"brand-storytelling":   "brandStorytelling",

	// market
	"market-size":         "marketSize",
	"potential-customers": "potentialCustomers",
	"growth-rate":         "growthRate",
	"growth-factors":      "growthFactors",
	"competitors-count":   "competitorsCount",
	"competitors":         "competitorsCount",
	"market-gap":          "marketGap",
	"gap-explanation":     "gapExplanation",
	"market-feasibility":  "marketFeasibility",
	"market-notes":        "marketNotes",

	// marketing
	"min-age":                  "targetAgeMin",
	"max-age":                  "targetAgeMax",
	"target-age":               "targetAge",
	"customer-income":          "customerIncome",
	"marketing-channels":       "marketingChannels",
	"marketing-channels-other": "marketingChannelsOther",
	"marketing-plan":           "marketingPlan",
	"marketing-cost":           "marketingCost",
	"competitive-advantage":    "competitiveAdvantage",
	"reachability":             "reachability",
	"marketing-notes":          "marketingNotes",

	// technical
	"required-area":          "requiredArea",
	"ownership-type":         "ownershipType",
	"property-price":         "propertyPrice",
	"rent-cost":              "rentCost",
	"monthly-rent":           "rentCost",
	"location-traffic":       "locationTraffic",
	"parking-availability":   "parkingAvailability",
	"attraction-points":      "attractionPoints",
	"other-attractions-text": "otherAttractionsText",
	"equipment-list":         "equipmentList",
	"inventory-value":        "inventoryValue",
	"goods-types":            "goodsTypes",
	"technical-feasibility":  "technicalFeasibility",
	"technical-notes":        "technicalNotes",

	// technology
	"technology-table":         "technologyTable",
	"technology-maturity":      "technologyMaturity",
	"technology-modernity":     "technologyModernity",
	"maintenance-difficulties": "maintenanceDifficulties",
	"maintenance-explanation":  "maintenanceExplanation",
	"supplier-dependence":      "supplierDependence",
	"technology-safety":        "technologySafety",
	"technology-notes":         "technologyNotes",

	// operations
	"total-employees":        "totalEmployees",
	"staff-table":            "staffTable",
	"staff-monthly-total":    "staffMonthlyTotal",
	"staff-annual-total":     "staffAnnualTotal",
	"daily-operations":       "dailyOperations",
	"operational-efficiency": "operationalEfficiency",
	"operational-notes":      "operationalNotes",

	// organization
	"admin-structure":              "adminStructure",
	"other-structure-text":         "otherStructureText",
	"decision-making":              "decisionMaking",
	"governance-requirements":      "governanceRequirements",
	"governance":                   "governanceRequirements",
	"governance-explanation":       "governanceExplanation",
	"organizational-effectiveness": "organizationalEffectiveness",
	"organizational-notes":         "organizationalNotes",

	// legal
	"project-legality":  "projectLegality",
	"licenses-table":    "licensesTable",
	"licenses-total":    "licensesTotal",
	"legal-risks":       "legalRisks",
	"risks-explanation": "risksExplanation",
	"legal-obstacles":   "legalObstacles",
	"legal-notes":       "legalNotes",

	// environmental
	"environmental-impact":       "environmentalImpact",
	"environment-explained":      "environmentExplained",
	"impact-explanation":         "impactExplanation",
	"environmental-approvals":    "environmentalApprovals",
	"environmental-friendliness": "environmentalFriendliness",
	"environmental-notes":        "environmentalNotes",

	// social
	"community-impact":        "communityImpact",
	"job-opportunities":       "jobOpportunities",
	"social-impact-alignment": "socialImpactAlignment",
	"social-notes":            "socialNotes",

	// cultural
	"cultural-alignment":     "culturalAlignment",
	"alignment-explanation":  "alignmentExplanation",
	"cultural-rejection":     "culturalRejection",
	"rejection-explanation":  "rejectionExplanation",
	"cultural-acceptability": "culturalAcceptability",
	"cultural-notes":         "culturalNotes",

	// behavioral
	"behavior-alignment":     "behaviorAlignment",
	"behavior-explanation":   "behaviorExplanation",
	"behavior-resistance":    "behaviorResistance",
	"resistance-explanation": "resistanceExplanation",
	"customer-support":       "customerSupport",
	"behavioral-notes":       "behavioralNotes",

	// political
	"political-stability":             "politicalStability",
	"political-stability-explanation": "politicalStabilityExplanation",
	"stability-explanation":           "stabilityExplanation",
	"regulatory-exposure":             "regulatoryExposure",
	"regulatory-explanation":          "regulatoryExplanation",
	"exposure-explanation":            "exposureExplanation",
	"political-risk":                  "politicalRisk",
	"political-notes":                 "politicalNotes",

	// timing
	"market-timing":         "marketTiming",
	"implementation-timing": "implementationTiming",
	"time-notes":            "timeNotes",

	// risk
	"risks-table":          "risksTable",
	"risk-avg-probability": "riskAvgProbability",
	"risk-avg-impact":      "riskAvgImpact",
	"contingency-plan":     "contingencyPlan",
	"plan-explanation":     "planExplanation",
	"risk-control":         "riskControl",
	"risk-notes":           "riskNotes",

	// economic
	"economic-value":            "economicValue",
	"economic-value-other-text": "economicValueOtherText",
	"gdp-impact":                "gdpImpact",
	"gdp-contribution":          "gdpContribution",
	"gdp-impact-explanation":    "gdpImpactExplanation",
	"economic-feasibility":      "economicFeasibility",
	"economic-notes":            "economicNotes",

	// financial
	"operational-costs":            "operationalCostsAssessment",
	"operationalCosts":             "operationalCostsAssessment",
	"operational-costs-assessment": "operationalCostsAssessment",
	"payback-period":               "paybackPeriod",
	"roi-expectation":              "roiExpectation",
	"financial-feasibility":        "financialFeasibility",
	"financial-notes":              "financialNotes",
	"selected-currency":            "selectedCurrency",
	"annual-operational-costs":     "annualOperationalCosts",

	// investments
	"has-additional-investments":   "hasAdditionalInvestments",
	"needs-additional-investments": "needsAdditionalInvestments",
	"investments-purpose":          "investmentsPurpose",
	"investments-table":            "investmentsTable",
	"investments-total":            "investmentsTotal",
}

// aliasToCanonical collapses canonical names that were renamed over time.
var aliasToCanonical = map[string]string{
	"technologyMaturity":            "technologyModernity",
	"politicalStabilityExplanation": "stabilityExplanation",
	"regulatoryExplanation":         "exposureExplanation",
	"behaviorExplanation":           "alignmentExplanation",
	"environmentExplained":          "environmentalImpact",
	"gdpContribution":               "gdpImpact",
	"operations":                    "operationalEfficiency",
	"hasAdditionalInvestments":      "needsAdditionalInvestments",
}

// numericFields are coerced from string to number when the string parses.
var numericFields = map[string]struct{}{
	"marketSize":           {},
	"potentialCustomers":   {},
	"growthRate":           {},
	"competitorsCount":     {},
	"customerIncome":       {},
	"marketingCost":        {},
	"requiredArea":         {},
	"propertyPrice":        {},
	"rentCost":             {},
	"inventoryValue":       {},
	"totalEmployees":       {},
	"staffMonthlyTotal":    {},
	"staffAnnualTotal":     {},
	"licensesTotal":        {},
	"jobOpportunities":     {},
	"riskAvgProbability":   {},
	"riskAvgImpact":        {},
	"investmentsTotal":     {},
	"personalContribution": {},
	"loanAmount":           {},
	"interestValue":        {},
	"loanMonths":           {},
	"projectTaxRate":       {},
	"taxRate":              {},
}
