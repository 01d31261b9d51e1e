package engine

import (
	"testing"

	"github.com/aleixoc/budget-copilot-go/internal/domain"

	"github.com/stretchr/testify/assert"
)

func bill(name, date string, amount float64) domain.BudgetBill {
	return domain.BudgetBill{Name: name, Date: date, Amount: amount}
}

func category(name string, planned, actual float64) domain.BudgetCategory {
	return domain.BudgetCategory{Name: name, Planned: planned, Actual: actual}
}

func TestAggregateMonthlyIncome(t *testing.T) {
	tests := []struct {
		name  string
		state domain.BudgetState
		want  float64
	}{
		{
			"biweekly doubles the paycheck",
			domain.BudgetState{IncomePerPaycheck: 2100, PayFrequency: domain.PayBiweekly},
			4200,
		},
		{
			"weekly quadruples the paycheck",
			domain.BudgetState{IncomePerPaycheck: 1000, PayFrequency: domain.PayWeekly},
			4000,
		},
		{
			"monthly passes through",
			domain.BudgetState{IncomePerPaycheck: 5000, PayFrequency: domain.PayMonthly},
			5000,
		},
		{
			"unknown frequency treated as monthly",
			domain.BudgetState{IncomePerPaycheck: 5000, PayFrequency: "quarterly"},
			5000,
		},
		{
			"partner income only when included",
			domain.BudgetState{IncomePerPaycheck: 2000, PayFrequency: domain.PayMonthly, PartnerIncome: 1500, IncludePartner: true},
			3500,
		},
		{
			"partner income excluded by default",
			domain.BudgetState{IncomePerPaycheck: 2000, PayFrequency: domain.PayMonthly, PartnerIncome: 1500},
			2000,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Aggregate(tt.state).MonthlyIncome)
		})
	}
}

func TestAggregateCategoryTotals(t *testing.T) {
	state := domain.BudgetState{
		IncomePerPaycheck: 4000,
		PayFrequency:      domain.PayMonthly,
		Categories: []domain.BudgetCategory{
			category("Rent", 1200, 1200),
			category("Groceries", 420, 368),
		},
	}

	agg := Aggregate(state)
	assert.Equal(t, 1620.0, agg.PlannedCategoryTotal)
	assert.Equal(t, 4000.0-1620.0, agg.LeftToBudget)
}

func TestAggregateExcludesBillBackedCategories(t *testing.T) {
	state := domain.BudgetState{
		IncomePerPaycheck: 4000,
		PayFrequency:      domain.PayMonthly,
		Bills:             []domain.BudgetBill{bill("Rent", "2024-03-01", 1200)},
		Categories: []domain.BudgetCategory{
			category("Rent", 1200, 1100),
			category("Groceries", 400, 0),
		},
	}

	agg := Aggregate(state)
	// Rent is counted once, via the bill, never twice.
	assert.Equal(t, 1200.0, agg.PlannedBillsTotal)
	assert.Equal(t, 400.0, agg.PlannedCategoryTotal)
	assert.Equal(t, 4000.0-1200.0-400.0, agg.LeftToBudget)
}

func TestAggregateSavingsDebtOverlapsCategoryTotal(t *testing.T) {
	state := domain.BudgetState{
		IncomePerPaycheck: 3000,
		PayFrequency:      domain.PayMonthly,
		Categories: []domain.BudgetCategory{
			category("Savings", 500, 0),
			category("Debt payoff", 300, 0),
			category("Fun", 100, 0),
		},
	}

	agg := Aggregate(state)
	assert.Equal(t, 800.0, agg.SavingsDebtTotal)
	// Display-only: savings/debt still count in the category total.
	assert.Equal(t, 900.0, agg.PlannedCategoryTotal)
}

func TestAggregateNegativeBufferIgnored(t *testing.T) {
	state := domain.BudgetState{
		IncomePerPaycheck: 3000,
		PayFrequency:      domain.PayMonthly,
		MonthlyBuffer:     -250,
	}

	agg := Aggregate(state)
	assert.Equal(t, 3000.0, agg.LeftToBudget)
}

func TestAggregateInvestmentAndBuffer(t *testing.T) {
	state := domain.BudgetState{
		IncomePerPaycheck: 3000,
		PayFrequency:      domain.PayMonthly,
		MonthlyInvestment: 400,
		MonthlyBuffer:     100,
	}

	agg := Aggregate(state)
	assert.Equal(t, 2500.0, agg.LeftToBudget)
}
