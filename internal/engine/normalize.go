package engine

import (
	"strings"

	"github.com/aleixoc/budget-copilot-go/internal/domain"
)

// ApplyUpdate validates and merges a partial, externally supplied budget
// patch into the current state and returns the next state. The current
// state is never mutated. An empty patch returns an equal state.
//
// Rules:
//   - scalar fields apply only when present in the patch;
//   - entity arrays replace wholesale, deduplicated case-insensitively
//     (first occurrence wins);
//   - incoming bills with no date get "Unscheduled"; recurring days are
//     clamped to 1..31, absent/null clears recurrence;
//   - every bill ends up with a shadow category of the same name
//     (planned = bill amount, actual = 0) so no bill is orphaned.
func ApplyUpdate(cur domain.BudgetState, patch domain.BudgetPatch) domain.BudgetState {
	next := cur.Clone()

	if patch.IncomePerPaycheck != nil {
		next.IncomePerPaycheck = float64(*patch.IncomePerPaycheck)
	}
	if patch.PayFrequency != nil {
		next.PayFrequency = normalizeFrequency(*patch.PayFrequency)
	}
	if patch.PartnerIncome != nil {
		next.PartnerIncome = float64(*patch.PartnerIncome)
	}
	if patch.IncludePartner != nil {
		next.IncludePartner = *patch.IncludePartner
	}
	if patch.MonthlyInvestment != nil {
		next.MonthlyInvestment = float64(*patch.MonthlyInvestment)
	}
	if patch.MonthlyBuffer != nil {
		next.MonthlyBuffer = float64(*patch.MonthlyBuffer)
	}
	if patch.PrimaryGoal != nil {
		next.PrimaryGoal = strings.TrimSpace(*patch.PrimaryGoal)
	}
	if patch.ScheduleBias != nil {
		next.ScheduleBias = clampBias(int(*patch.ScheduleBias))
	}
	if patch.DebtStrategy != nil {
		next.DebtStrategy = normalizeDebtStrategy(*patch.DebtStrategy)
	}
	if patch.NotificationsEnabled != nil {
		next.NotificationsEnabled = *patch.NotificationsEnabled
	}
	if patch.NotificationReminderDays != nil {
		days := int(*patch.NotificationReminderDays)
		if days < 0 {
			days = 0
		}
		next.NotificationReminderDays = days
	}
	if patch.AutoSave != nil {
		next.AutoSave = *patch.AutoSave
	}

	if patch.Categories != nil {
		next.Categories = normalizeCategories(patch.Categories)
	}
	if patch.Bills != nil {
		next.Bills = normalizeBills(patch.Bills)
	}
	if patch.Goals != nil {
		next.Goals = normalizeGoals(patch.Goals)
	}
	if patch.Holdings != nil {
		next.Holdings = append([]domain.Holding(nil), patch.Holdings...)
	}
	if patch.Labels != nil {
		next.Labels = dedupeLabels(patch.Labels)
	}

	if patch.Bills != nil || patch.Categories != nil {
		next.Categories = ensureShadowCategories(next.Bills, next.Categories)
	}

	return next
}

// clampBias keeps the schedule bias in {0,1,2,3}.
func clampBias(bias int) int {
	return ((bias % 4) + 4) % 4
}

func normalizeFrequency(raw string) domain.PayFrequency {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "weekly":
		return domain.PayWeekly
	case "biweekly", "bi-weekly", "fortnightly":
		return domain.PayBiweekly
	default:
		return domain.PayMonthly
	}
}

func normalizeDebtStrategy(raw string) domain.DebtStrategy {
	if strings.EqualFold(strings.TrimSpace(raw), string(domain.DebtSnowball)) {
		return domain.DebtSnowball
	}
	return domain.DebtAvalanche
}

func normalizeCategories(in []domain.PatchCategory) []domain.BudgetCategory {
	out := make([]domain.BudgetCategory, 0, len(in))
	for _, c := range in {
		name := strings.TrimSpace(c.Name)
		if name == "" || containsName(out, name) {
			continue
		}
		out = append(out, domain.BudgetCategory{
			Name:    name,
			Planned: float64(c.Planned),
			Actual:  float64(c.Actual),
		})
	}
	return out
}

func normalizeBills(in []domain.PatchBill) []domain.BudgetBill {
	out := make([]domain.BudgetBill, 0, len(in))
	for _, b := range in {
		name := strings.TrimSpace(b.Name)
		if name == "" {
			continue
		}
		seen := false
		for _, existing := range out {
			if domain.SameEntity(existing.Name, name) {
				seen = true
				break
			}
		}
		if seen {
			continue
		}

		date := strings.TrimSpace(b.Date)
		if date == "" {
			date = domain.UnscheduledDate
		}

		var recurring *int
		if b.RecurringDay != nil {
			day := int(*b.RecurringDay)
			if day < 1 {
				day = 1
			}
			if day > 31 {
				day = 31
			}
			recurring = &day
		}

		out = append(out, domain.BudgetBill{
			Name:         name,
			Date:         date,
			Amount:       float64(b.Amount),
			RecurringDay: recurring,
		})
	}
	return out
}

func normalizeGoals(in []domain.PatchGoal) []domain.BudgetGoal {
	out := make([]domain.BudgetGoal, 0, len(in))
	for _, g := range in {
		name := strings.TrimSpace(g.Name)
		if name == "" {
			continue
		}
		dup := false
		for _, existing := range out {
			if domain.SameEntity(existing.Name, name) {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		out = append(out, domain.BudgetGoal{
			Name:   name,
			Amount: float64(g.Amount),
			Target: float64(g.Target),
		})
	}
	return out
}

func dedupeLabels(in []string) []string {
	out := make([]string, 0, len(in))
	for _, l := range in {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		dup := false
		for _, existing := range out {
			if domain.SameEntity(existing, l) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, l)
		}
	}
	return out
}

func containsName(cats []domain.BudgetCategory, name string) bool {
	for _, c := range cats {
		if domain.SameEntity(c.Name, name) {
			return true
		}
	}
	return false
}

// ensureShadowCategories appends a synthesized category for any bill whose
// name has no matching category, so bills never go uncounted in the
// category view.
func ensureShadowCategories(bills []domain.BudgetBill, cats []domain.BudgetCategory) []domain.BudgetCategory {
	out := append([]domain.BudgetCategory(nil), cats...)
	for _, b := range bills {
		if !containsName(out, b.Name) {
			out = append(out, domain.BudgetCategory{Name: b.Name, Planned: b.Amount, Actual: 0})
		}
	}
	return out
}

// ============================================================
// Local actions (deterministic bulk resets)
// ============================================================

// Action is a deterministic local mutation tag.
type Action string

const (
	ActionClearBills    Action = "clear_bills"
	ActionClearGoals    Action = "clear_goals"
	ActionClearSchedule Action = "clear_schedule"
	ActionClearLabels   Action = "clear_labels"
	ActionResetPrefs    Action = "reset_preferences"
	ActionResetAll      Action = "reset_everything"
)

// ActionSet is the set of actions to apply in one transition.
type ActionSet map[Action]bool

// ParseAction maps an action tag string to an Action.
func ParseAction(tag string) (Action, bool) {
	switch Action(strings.ToLower(strings.TrimSpace(tag))) {
	case ActionClearBills:
		return ActionClearBills, true
	case ActionClearGoals:
		return ActionClearGoals, true
	case ActionClearSchedule:
		return ActionClearSchedule, true
	case ActionClearLabels:
		return ActionClearLabels, true
	case ActionResetPrefs:
		return ActionResetPrefs, true
	case ActionResetAll:
		return ActionResetAll, true
	}
	return "", false
}

// ApplyLocalAction applies a set of reset actions and returns the next
// state. ResetEverything implies all other actions.
func ApplyLocalAction(cur domain.BudgetState, actions ActionSet) domain.BudgetState {
	if actions[ActionResetAll] {
		return SeedState()
	}

	next := cur.Clone()
	if actions[ActionClearBills] {
		next.Bills = nil
	}
	if actions[ActionClearGoals] {
		next.Goals = nil
	}
	if actions[ActionClearSchedule] {
		for i := range next.Bills {
			next.Bills[i].Date = domain.UnscheduledDate
			next.Bills[i].RecurringDay = nil
		}
	}
	if actions[ActionClearLabels] {
		next.Labels = nil
	}
	if actions[ActionResetPrefs] {
		seed := SeedState()
		next.PayFrequency = seed.PayFrequency
		next.PrimaryGoal = seed.PrimaryGoal
		next.IncludePartner = seed.IncludePartner
		next.ScheduleBias = seed.ScheduleBias
		next.DebtStrategy = seed.DebtStrategy
		next.NotificationsEnabled = seed.NotificationsEnabled
		next.NotificationReminderDays = seed.NotificationReminderDays
		next.AutoSave = seed.AutoSave
	}
	return next
}

// SeedState is the default budget created on a user's first load, and the
// result of "reset everything".
func SeedState() domain.BudgetState {
	return domain.BudgetState{
		PayFrequency:             domain.PayBiweekly,
		DebtStrategy:             domain.DebtAvalanche,
		ScheduleBias:             0,
		NotificationsEnabled:     true,
		NotificationReminderDays: 3,
		AutoSave:                 true,
	}
}
