package engine

import "github.com/aleixoc/budget-copilot-go/internal/domain"

// View is the full derived picture of a budget: the state itself plus
// everything recomputed from it. All derivations run in full on every call;
// the computation is O(bills + categories) and full recomputation means no
// staleness to reason about.
type View struct {
	State             domain.BudgetState `json:"state"`
	Aggregates        Aggregates         `json:"aggregates"`
	WeeklyAmounts     [4]float64         `json:"weeklyAmounts"`
	Insights          Insights           `json:"insights"`
	PortfolioForecast []float64          `json:"portfolioForecast,omitempty"`
}

// Snapshot derives the complete view from a state.
func Snapshot(s domain.BudgetState) View {
	agg := Aggregate(s)
	weekly := Project(s, agg)
	return View{
		State:             s,
		Aggregates:        agg,
		WeeklyAmounts:     weekly,
		Insights:          DeriveInsights(weekly, s.Bills),
		PortfolioForecast: ForecastPortfolio(s.Holdings, 12, DefaultAnnualGrowthRate),
	}
}
