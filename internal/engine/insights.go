package engine

import (
	"math"
	"strings"

	"github.com/aleixoc/budget-copilot-go/internal/domain"
)

// tightThreshold marks a week as tight when its balance falls below this
// fraction of the 4-week average.
const tightThreshold = 0.75

// MoveSuggestion proposes shifting a single bill to a different week to
// flatten the projected curve. It is a fixed single-bill nudge, not a
// search: the phone bill (or the first bill) is the one users most often
// can actually reschedule.
type MoveSuggestion struct {
	BillName   string `json:"billName"`
	TargetWeek int    `json:"targetWeek"`
}

// Insights are derived from the weekly projection.
type Insights struct {
	Average    float64         `json:"average"`
	MaxWeekly  float64         `json:"maxWeekly"` // largest |amount|, floored at 1
	BestWeek   int             `json:"bestWeek"`  // 1-based
	TightWeek  int             `json:"tightWeek"` // 1-based
	TightWeeks []int           `json:"tightWeeks,omitempty"`
	Suggestion *MoveSuggestion `json:"suggestion,omitempty"`
}

// DeriveInsights computes best/worst week, average, tightness and the
// single-bill move suggestion from the 4-week projection.
func DeriveInsights(weekly [4]float64, bills []domain.BudgetBill) Insights {
	var sum float64
	best, tight := 0, 0
	for i, amount := range weekly {
		sum += amount
		if amount > weekly[best] {
			best = i
		}
		if amount < weekly[tight] {
			tight = i
		}
	}
	average := sum / 4

	// Floor at 1 so proportional rendering never divides by zero.
	maxWeekly := 1.0
	for _, amount := range weekly {
		if abs := math.Abs(amount); abs > maxWeekly {
			maxWeekly = abs
		}
	}

	var tightWeeks []int
	for i, amount := range weekly {
		if amount < average*tightThreshold {
			tightWeeks = append(tightWeeks, i+1)
		}
	}

	return Insights{
		Average:    average,
		MaxWeekly:  maxWeekly,
		BestWeek:   best + 1,
		TightWeek:  tight + 1,
		TightWeeks: tightWeeks,
		Suggestion: suggestMove(bills, best+1),
	}
}

// suggestMove picks the bill to nudge toward the best week. No-op when the
// budget has no bills.
func suggestMove(bills []domain.BudgetBill, bestWeek int) *MoveSuggestion {
	if len(bills) == 0 {
		return nil
	}
	pick := bills[0]
	for _, b := range bills {
		if strings.Contains(strings.ToLower(b.Name), "phone") {
			pick = b
			break
		}
	}
	return &MoveSuggestion{BillName: pick.Name, TargetWeek: bestWeek}
}
