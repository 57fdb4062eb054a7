package sections

import "strings"

// ParseEquipmentList reads the equipment answer, either a list of rows or a
// free-text "Name: cost; Name: cost" string. Rows without a name are dropped.
func ParseEquipmentList(v any) []EquipmentItem {
	out := []EquipmentItem{}
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			row, ok := item.(map[string]any)
			if !ok {
				if name := ToStringOrNil(item); name != nil {
					out = append(out, EquipmentItem{Name: *name})
				}
				continue
			}
			name := str(row, "name", "type", "title", "label")
			if name == nil {
				continue
			}
			out = append(out, EquipmentItem{Name: *name, Cost: num(row, "cost", "value", "price")})
		}
		return out
	}

	raw := ToStringOrNil(v)
	if raw == nil {
		return out
	}
	for _, chunk := range strings.Split(*raw, ";") {
		part := strings.TrimSpace(chunk)
		if part == "" {
			continue
		}
		name, amount, _ := strings.Cut(part, ":")
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		out = append(out, EquipmentItem{Name: name, Cost: ToNumberOrNil(strings.TrimSpace(amount))})
	}
	return out
}

// EquipmentTotal sums the known equipment costs. It is nil when no row has a
// cost.
func EquipmentTotal(items []EquipmentItem) *float64 {
	var total float64
	known := false
	for _, it := range items {
		if it.Cost == nil {
			continue
		}
		total += *it.Cost
		known = true
	}
	if !known {
		return nil
	}
	return &total
}

func costTable(v any, nameKeys ...string) []CostItem {
	out := []CostItem{}
	for _, row := range rowsOf(v) {
		name := str(row, nameKeys...)
		if name == nil {
			continue
		}
		out = append(out, CostItem{Type: *name, Cost: num(row, "cost", "value", "price")})
	}
	return out
}

func staffTable(v any) []StaffRow {
	out := []StaffRow{}
	for _, row := range rowsOf(v) {
		title := str(row, "jobTitle", "title", "role")
		if title == nil {
			continue
		}
		out = append(out, StaffRow{
			JobTitle:      *title,
			EmployeeCount: num(row, "employeeCount", "count", "quantity"),
			MonthlySalary: num(row, "monthlySalary", "salary", "monthlyCost"),
		})
	}
	return out
}

func riskTable(v any) []RiskRow {
	out := []RiskRow{}
	for _, row := range rowsOf(v) {
		name := str(row, "type", "name", "risk")
		if name == nil {
			continue
		}
		out = append(out, RiskRow{Name: *name, Probability: num(row, "probability"), Impact: num(row, "impact")})
	}
	return out
}

func investmentTable(v any) []InvestmentRow {
	out := []InvestmentRow{}
	for _, row := range rowsOf(v) {
		name := str(row, "type", "name")
		if name == nil {
			continue
		}
		out = append(out, InvestmentRow{
			Type:   *name,
			Value:  num(row, "value", "amount", "cost"),
			Return: str(row, "return", "expectedReturn"),
		})
	}
	return out
}

var annualCostKeys = []string{"utilities", "operations", "depreciation"}

func costObject(v any) map[string]float64 {
	out := map[string]float64{}
	m, ok := v.(map[string]any)
	if !ok {
		return out
	}
	for _, k := range annualCostKeys {
		if f := ToNumberOrNil(m[k]); f != nil {
			out[k] = *f
		}
	}
	return out
}

func statementTable(v any) *StatementTable {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	t := &StatementTable{Headers: []string{}, Rows: [][]string{}}
	if hs, ok := m["headers"].([]any); ok {
		for _, h := range hs {
			t.Headers = append(t.Headers, cellOrUnknown(h))
		}
	}
	if rs, ok := m["rows"].([]any); ok {
		for _, r := range rs {
			cells, _ := r.([]any)
			row := make([]string, 0, len(cells))
			for _, c := range cells {
				row = append(row, cellOrUnknown(c))
			}
			t.Rows = append(t.Rows, row)
		}
	}
	if len(t.Headers) == 0 && len(t.Rows) == 0 {
		return nil
	}
	return t
}

func cellOrUnknown(v any) string {
	if s := ToStringOrNil(v); s != nil {
		return *s
	}
	return "?"
}

func financialStatements(v any) FinancialStatements {
	fs := FinancialStatements{Assumptions: []string{}}
	m, ok := v.(map[string]any)
	if !ok {
		return fs
	}
	fs.IncomeStatement = statementTable(m["incomeStatement"])
	fs.BalanceSheet = statementTable(m["balanceSheet"])
	fs.CashFlow = statementTable(m["cashFlow"])
	if list, ok := m["assumptions"].([]any); ok {
		fs.Assumptions = EnsureStrings(list)
	}
	if ratios, ok := m["ratios"].([]any); ok {
		fs.Ratios = ratios
	}
	if roi, ok := m["roi"].(map[string]any); ok {
		fs.ROI = &ROI{NPV: roi["npv"], IRR: roi["irr"], PaybackPeriod: roi["paybackPeriod"]}
	}
	fs.Currency = ToStringOrNil(m["currency"])
	return fs
}

// HasTableData reports whether any statement table has both headers and rows.
func (fs FinancialStatements) HasTableData() bool {
	for _, t := range []*StatementTable{fs.IncomeStatement, fs.BalanceSheet, fs.CashFlow} {
		if t != nil && len(t.Headers) > 0 && len(t.Rows) > 0 {
			return true
		}
	}
	return false
}
