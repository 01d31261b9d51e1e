package engine

import (
	"math"

	"github.com/aleixoc/budget-copilot-go/internal/domain"
)

// weeklyWeights is the fixed income distribution across the four weeks of a
// month. It always sums to 1.0; only its rotation offset (the schedule bias)
// is user-controlled.
var weeklyWeights = [4]float64{0.30, 0.25, 0.28, 0.17}

// Project distributes monthly income across 4 weekly buckets using the
// bias-rotated weight vector, then subtracts each week's share of category
// spend, investment and buffer (flat amortization) plus the bills due that
// week. The result is signed: a negative week means planned outflows exceed
// that week's income share.
//
// The weekly curve is a zero-sum redistribution of the monthly residual:
// for every bias, the four amounts sum to agg.LeftToBudget.
func Project(s domain.BudgetState, agg Aggregates) [4]float64 {
	bias := ((s.ScheduleBias % 4) + 4) % 4

	var billTotals [4]float64
	for _, b := range s.Bills {
		billTotals[BillWeek(b)-1] += b.Amount
	}

	categoryShare := agg.PlannedCategoryTotal / 4
	investShare := s.MonthlyInvestment / 4
	bufferShare := math.Max(0, s.MonthlyBuffer) / 4

	var weeks [4]float64
	for i := 0; i < 4; i++ {
		weight := weeklyWeights[((i-bias)%4+4)%4]
		weeks[i] = agg.MonthlyIncome*weight - categoryShare - investShare - bufferShare - billTotals[i]
	}
	return weeks
}
