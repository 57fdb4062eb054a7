// Package sections turns a canonical answer map into typed report sections
// and decides which of them carry enough data to report on.
package sections

type brandAttribute struct {
	key   string
	label string
}

var brandAttributes = []brandAttribute{
	{"sustainableFocus", "Sustainable fashion"},
	{"ecoFriendly", "Eco-friendly"},
	{"localArtisans", "Supports local artisans"},
	{"organicMaterials", "Uses organic materials"},
	{"recycledMaterials", "Uses recycled materials"},
	{"limitedEditions", "Limited editions"},
	{"socialMediaFocus", "Social media focused"},
	{"influencerCollaborations", "Influencer collaborations"},
	{"popupEvents", "Pop-up events"},
	{"communityWorkshops", "Community workshops"},
	{"brandStorytelling", "Brand storytelling"},
}

// BrandAttributes returns the labels of every brand attribute set in src, in
// a fixed order.
func BrandAttributes(src map[string]any) []string {
	out := []string{}
	for _, a := range brandAttributes {
		if Truthy(src[a.key]) {
			out = append(out, a.label)
		}
	}
	return out
}

// Build derives every section from canonical answers. It never fails; a nil
// map yields sections with all fields unknown.
func Build(answers map[string]any) Sections {
	src := answers
	if src == nil {
		src = map[string]any{}
	}
	brand := BrandAttributes(src)

	return Sections{
		ProjectOverview: &ProjectOverview{
			MainProduct:   str(src, "projectIdea"),
			ProblemSolved: str(src, "problemSolution"),
			BusinessModel: BusinessModel{
				Models: strs(src, "businessModel"),
				Other:  str(src, "businessModelOther", "bm-other-text"),
			},
			DistributionChannels: strs(src, "distributionChannels"),
			BrandIdentity: BrandIdentity{
				BusinessType: str(src, "businessType"),
				Attributes:   brand,
			},
		},
		Market: &Market{
			MarketSize:         num(src, "marketSize"),
			PotentialCustomers: num(src, "potentialCustomers"),
			GrowthRate:         num(src, "growthRate"),
			GrowthFactors:      str(src, "growthFactors"),
			CompetitorsCount:   num(src, "competitorsCount"),
			MarketGap:          StatusNote{Status: str(src, "marketGap"), Explanation: str(src, "gapExplanation")},
			Feasibility:        Assessment{Assessment: str(src, "marketFeasibility"), Notes: str(src, "marketNotes")},
		},
		Marketing: &Marketing{
			TargetAge:             str(src, "targetAge"),
			CustomerIncome:        num(src, "customerIncome"),
			Channels:              dedupeFold(strs(src, "marketingChannels")),
			ChannelsOther:         str(src, "marketingChannelsOther"),
			MarketingPlan:         strs(src, "marketingPlan"),
			MarketingCost:         num(src, "marketingCost"),
			CompetitiveAdvantage:  str(src, "competitiveAdvantage"),
			Reachability:          str(src, "reachability"),
			Notes:                 str(src, "marketingNotes"),
			BrandIdentityFeatures: brand,
		},
		Technical: &Technical{
			Property: Property{
				RequiredArea:  num(src, "requiredArea"),
				OwnershipType: str(src, "ownershipType"),
				PropertyPrice: num(src, "propertyPrice"),
				MonthlyRent:   num(src, "rentCost"),
			},
			Site: Site{
				Traffic:          str(src, "locationTraffic"),
				Parking:          str(src, "parkingAvailability"),
				AttractionPoints: strs(src, "attractionPoints"),
				OtherAttractions: str(src, "otherAttractionsText"),
			},
			Equipment:   Equipment{Items: ParseEquipmentList(first(src, "equipmentList"))},
			Inventory:   Inventory{InventoryValue: num(src, "inventoryValue"), GoodsTypes: str(src, "goodsTypes")},
			Feasibility: str(src, "technicalFeasibility"),
			Notes:       str(src, "technicalNotes"),
		},
		Technology: &Technology{
			Stack:              costTable(first(src, "technologyTable"), "type", "name", "technology"),
			Modernity:          str(src, "technologyModernity", "technologyMaturity"),
			Maintenance:        DifficultyNote{Difficulties: str(src, "maintenanceDifficulties"), Explanation: str(src, "maintenanceExplanation")},
			SupplierDependence: str(src, "supplierDependence"),
			Safety:             str(src, "technologySafety"),
			Notes:              str(src, "technologyNotes"),
		},
		Operations: &Operations{
			Staff: Staff{
				TotalEmployees: num(src, "totalEmployees"),
				Table:          staffTable(first(src, "staffTable")),
				MonthlyTotal:   num(src, "staffMonthlyTotal"),
				AnnualTotal:    num(src, "staffAnnualTotal"),
			},
			DailyOperations: str(src, "dailyOperations"),
			Efficiency:      str(src, "operationalEfficiency"),
			Notes:           str(src, "operationalNotes"),
		},
		Organization: &Organization{
			Structure:      strs(src, "adminStructure"),
			OtherStructure: str(src, "otherStructureText"),
			DecisionMaking: str(src, "decisionMaking"),
			Governance: GovernanceNote{
				Requirements: str(src, "governanceRequirements", "governance"),
				Explanation:  str(src, "governanceExplanation"),
			},
			Effectiveness: str(src, "organizationalEffectiveness"),
			Notes:         str(src, "organizationalNotes"),
		},
		Legal: &Legal{
			ProjectLegality: str(src, "projectLegality"),
			Licenses: Licenses{
				Items: costTable(first(src, "licensesTable"), "type", "name"),
				Total: num(src, "licensesTotal"),
			},
			Risks:     SummaryNote{Summary: str(src, "legalRisks"), Explanation: str(src, "risksExplanation")},
			Obstacles: str(src, "legalObstacles"),
			Notes:     str(src, "legalNotes"),
		},
		Environmental: &Environmental{
			Impact:       str(src, "environmentalImpact"),
			Explanation:  str(src, "impactExplanation"),
			Approvals:    str(src, "environmentalApprovals"),
			Friendliness: str(src, "environmentalFriendliness"),
			Notes:        str(src, "environmentalNotes"),
		},
		Social: &Social{
			CommunityImpact:  str(src, "communityImpact"),
			JobOpportunities: num(src, "jobOpportunities"),
			Alignment:        str(src, "socialImpactAlignment"),
			Notes:            str(src, "socialNotes"),
		},
		Cultural: &Cultural{
			Alignment:            str(src, "culturalAlignment"),
			AlignmentExplanation: str(src, "alignmentExplanation"),
			Rejection:            str(src, "culturalRejection"),
			RejectionExplanation: str(src, "rejectionExplanation"),
			Acceptability:        str(src, "culturalAcceptability"),
			Notes:                str(src, "culturalNotes"),
		},
		Behavioral: &Behavioral{
			Alignment:             str(src, "behaviorAlignment"),
			Explanation:           str(src, "behaviorExplanation", "alignmentExplanation"),
			Resistance:            str(src, "behaviorResistance"),
			ResistanceExplanation: str(src, "resistanceExplanation"),
			CustomerSupport:       str(src, "customerSupport"),
			Notes:                 str(src, "behavioralNotes"),
		},
		Political: &Political{
			Stability:            str(src, "politicalStability"),
			StabilityExplanation: str(src, "stabilityExplanation", "politicalStabilityExplanation"),
			RegulatoryExposure:   str(src, "regulatoryExposure"),
			ExposureExplanation:  str(src, "exposureExplanation", "regulatoryExplanation"),
			Risk:                 str(src, "politicalRisk"),
			Notes:                str(src, "politicalNotes"),
		},
		Timing: &Timing{
			MarketTiming:         str(src, "marketTiming"),
			ImplementationTiming: str(src, "implementationTiming"),
			Notes:                str(src, "timeNotes"),
		},
		Risk: &Risk{
			Items:           riskTable(first(src, "risksTable")),
			Averages:        RiskAverages{Probability: num(src, "riskAvgProbability"), Impact: num(src, "riskAvgImpact")},
			ContingencyPlan: PlanNote{Plan: str(src, "contingencyPlan"), Explanation: str(src, "planExplanation")},
			Control:         str(src, "riskControl"),
			Notes:           str(src, "riskNotes"),
		},
		Economic: &Economic{
			AddedValue:     strs(src, "economicValue"),
			OtherValue:     str(src, "economicValueOtherText"),
			GDPImpact:      str(src, "gdpImpact", "gdpContribution"),
			GDPExplanation: str(src, "gdpImpactExplanation"),
			Feasibility:    str(src, "economicFeasibility"),
			Notes:          str(src, "economicNotes"),
		},
		Financial: &Financial{
			Capital: Capital{
				TotalCapital:     str(src, "totalCapital"),
				OperationalCosts: str(src, "operationalCostsAssessment", "operationalCosts"),
				PaybackPeriod:    str(src, "paybackPeriod"),
				ROIExpectation:   str(src, "roiExpectation"),
				Feasibility:      str(src, "financialFeasibility"),
				Notes:            str(src, "financialNotes"),
			},
			Assumptions:            CurrencyAssumption{Currency: str(src, "selectedCurrency", "currency")},
			AnnualOperationalCosts: costObject(src["annualOperationalCosts"]),
			FinancialStatements:    financialStatements(src["financialStatements"]),
		},
		Investments: &Investments{
			Required: str(src, "needsAdditionalInvestments", "hasAdditionalInvestments"),
			Purpose:  str(src, "investmentsPurpose"),
			Items:    investmentTable(first(src, "investmentsTable")),
			Total:    num(src, "investmentsTotal"),
		},
	}
}
