package engine

import (
	"math"
	"regexp"

	"github.com/aleixoc/budget-copilot-go/internal/domain"
)

var savingsDebtRe = regexp.MustCompile(`(?i)savings|debt`)

// Aggregates are the monthly budget totals, re-derivable identically from
// any snapshot of state (no hidden counters).
type Aggregates struct {
	MonthlyIncome        float64 `json:"monthlyIncome"`
	PlannedBillsTotal    float64 `json:"plannedBillsTotal"`
	PlannedCategoryTotal float64 `json:"plannedCategoryTotal"`
	SavingsDebtTotal     float64 `json:"savingsDebtTotal"`
	LeftToBudget         float64 `json:"leftToBudget"`
}

// Aggregate computes the monthly totals from a budget state.
//
// A category whose name matches a bill name is excluded from the category
// total: the bill already counts it, and counting both would double the
// obligation. SavingsDebtTotal is display-only and overlaps the category
// total on purpose.
func Aggregate(s domain.BudgetState) Aggregates {
	income := s.IncomePerPaycheck * s.PayFrequency.PaychecksPerMonth()
	if s.IncludePartner {
		income += s.PartnerIncome
	}

	var billsTotal float64
	for _, b := range s.Bills {
		billsTotal += b.Amount
	}

	var categoryTotal, savingsDebt float64
	for _, c := range s.Categories {
		if savingsDebtRe.MatchString(c.Name) {
			savingsDebt += c.Planned
		}
		if s.HasBill(c.Name) {
			continue
		}
		categoryTotal += c.Planned
	}

	buffer := math.Max(0, s.MonthlyBuffer)
	left := income - billsTotal - categoryTotal - s.MonthlyInvestment - buffer

	return Aggregates{
		MonthlyIncome:        income,
		PlannedBillsTotal:    billsTotal,
		PlannedCategoryTotal: categoryTotal,
		SavingsDebtTotal:     savingsDebt,
		LeftToBudget:         left,
	}
}
