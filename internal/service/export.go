package service

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/aleixoc/budget-copilot-go/internal/domain"
	"github.com/aleixoc/budget-copilot-go/internal/engine"
)

// WriteCSV renders a flat CSV of the budget: summary totals, then
// categories, bills, goals and the weekly projection. Every number comes
// from the same engine computations the API serves, so the export can never
// drift from what the client displays.
func WriteCSV(w io.Writer, state domain.BudgetState) error {
	agg := engine.Aggregate(state)
	weekly := engine.Project(state, agg)

	cw := csv.NewWriter(w)

	rows := [][]string{
		{"section", "name", "field", "value"},
		{"summary", "", "monthlyIncome", money(agg.MonthlyIncome)},
		{"summary", "", "plannedBillsTotal", money(agg.PlannedBillsTotal)},
		{"summary", "", "plannedCategoryTotal", money(agg.PlannedCategoryTotal)},
		{"summary", "", "savingsDebtTotal", money(agg.SavingsDebtTotal)},
		{"summary", "", "leftToBudget", money(agg.LeftToBudget)},
	}

	for _, c := range state.Categories {
		rows = append(rows,
			[]string{"category", c.Name, "planned", money(c.Planned)},
			[]string{"category", c.Name, "actual", money(c.Actual)},
		)
	}

	for _, b := range state.Bills {
		rows = append(rows,
			[]string{"bill", b.Name, "amount", money(b.Amount)},
			[]string{"bill", b.Name, "date", b.Date},
		)
		if b.RecurringDay != nil {
			rows = append(rows, []string{"bill", b.Name, "recurringDay", strconv.Itoa(*b.RecurringDay)})
		}
	}

	for _, g := range state.Goals {
		rows = append(rows,
			[]string{"goal", g.Name, "amount", money(g.Amount)},
			[]string{"goal", g.Name, "target", money(g.Target)},
		)
	}

	for i, amount := range weekly {
		rows = append(rows, []string{"projection", "week " + strconv.Itoa(i+1), "amount", money(amount)})
	}

	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// money formats an amount with two decimals, matching how the client
// renders currency.
func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
