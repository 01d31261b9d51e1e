package engine

import "github.com/aleixoc/budget-copilot-go/internal/domain"

// DefaultAnnualGrowthRate is the assumed market return for the portfolio
// estimate. A rough planning number, not investment advice.
const DefaultAnnualGrowthRate = 0.07

// ForecastPortfolio estimates portfolio value at the end of each of the
// next `months` months: current holdings compound monthly at annualRate
// while monthly contributions accrue. Returns nil when there is nothing to
// project.
func ForecastPortfolio(holdings []domain.Holding, months int, annualRate float64) []float64 {
	if len(holdings) == 0 || months <= 0 {
		return nil
	}

	var value, contribution float64
	for _, h := range holdings {
		value += h.Shares * h.Price
		contribution += h.Monthly
	}
	if value == 0 && contribution == 0 {
		return nil
	}

	monthlyRate := annualRate / 12
	out := make([]float64, months)
	for i := 0; i < months; i++ {
		value = value*(1+monthlyRate) + contribution
		out[i] = value
	}
	return out
}
