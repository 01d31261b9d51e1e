// Package domain defines the core business entities for the budget copilot.
// These models are independent of external services and represent the
// canonical data structures used throughout the engine.
package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// ============================================================
// Preferences / enums
// ============================================================

// PayFrequency is how often the user receives a paycheck.
type PayFrequency string

const (
	PayWeekly   PayFrequency = "weekly"
	PayBiweekly PayFrequency = "biweekly"
	PayMonthly  PayFrequency = "monthly"
)

// PaychecksPerMonth returns the income multiplier for the frequency.
// Unknown values are treated as monthly.
func (f PayFrequency) PaychecksPerMonth() float64 {
	switch f {
	case PayWeekly:
		return 4
	case PayBiweekly:
		return 2
	default:
		return 1
	}
}

// DebtStrategy selects the payoff ordering for debt goals.
type DebtStrategy string

const (
	DebtAvalanche DebtStrategy = "avalanche"
	DebtSnowball  DebtStrategy = "snowball"
)

// UnscheduledDate is the date label for bills without a schedule.
const UnscheduledDate = "Unscheduled"

// ============================================================
// Budget entities
// ============================================================

// BudgetCategory is a monthly planned/actual spend bucket.
// Names are unique within a state, compared case-insensitively.
type BudgetCategory struct {
	Name    string  `json:"name"`
	Planned float64 `json:"planned"`
	Actual  float64 `json:"actual"`
}

// BudgetBill is a scheduled obligation. When RecurringDay is set the bill
// repeats monthly on that day and Date is ignored for scheduling.
type BudgetBill struct {
	Name         string  `json:"name"`
	Date         string  `json:"date"` // ISO date, free-text label, or "Unscheduled"
	Amount       float64 `json:"amount"`
	RecurringDay *int    `json:"recurringDay"`
}

// BudgetGoal is a progress-tracked savings or debt target.
type BudgetGoal struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
	Target float64 `json:"target"`
}

// Holding is a portfolio line used by the investment projection.
type Holding struct {
	Symbol  string  `json:"symbol"`
	Shares  float64 `json:"shares"`
	Price   float64 `json:"price"`
	Monthly float64 `json:"monthly"`
}

// BudgetState is the aggregate root: one document per user holding the
// full budget plus scalar preferences. It is treated as an immutable value;
// all mutation goes through the engine's ApplyUpdate/ApplyLocalAction.
type BudgetState struct {
	IncomePerPaycheck float64      `json:"incomePerPaycheck"`
	PayFrequency      PayFrequency `json:"payFrequency"`
	PartnerIncome     float64      `json:"partnerIncome"`
	IncludePartner    bool         `json:"includePartner"`
	MonthlyInvestment float64      `json:"monthlyInvestment"`
	MonthlyBuffer     float64      `json:"monthlyBuffer"`

	PrimaryGoal              string       `json:"primaryGoal"`
	ScheduleBias             int          `json:"scheduleBias"` // 0..3, rotation of the weekly weights
	DebtStrategy             DebtStrategy `json:"debtStrategy"`
	NotificationsEnabled     bool         `json:"notificationsEnabled"`
	NotificationReminderDays int          `json:"notificationReminderDays"`
	AutoSave                 bool         `json:"autoSave"`

	Categories []BudgetCategory `json:"categories"`
	Bills      []BudgetBill     `json:"bills"`
	Goals      []BudgetGoal     `json:"goals"`
	Holdings   []Holding        `json:"holdings"`
	Labels     []string         `json:"labels"`
}

// Clone returns a deep copy so callers can build the next state without
// aliasing the current one.
func (s BudgetState) Clone() BudgetState {
	next := s
	next.Categories = append([]BudgetCategory(nil), s.Categories...)
	next.Bills = append([]BudgetBill(nil), s.Bills...)
	for i, b := range next.Bills {
		if b.RecurringDay != nil {
			day := *b.RecurringDay
			next.Bills[i].RecurringDay = &day
		}
	}
	next.Goals = append([]BudgetGoal(nil), s.Goals...)
	next.Holdings = append([]Holding(nil), s.Holdings...)
	next.Labels = append([]string(nil), s.Labels...)
	return next
}

// SameEntity is the single identity predicate for category/bill/goal/label
// names: trimmed, case-insensitive comparison. Every merge path must use it
// instead of re-implementing the comparison.
func SameEntity(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// HasCategory reports whether a category with the given name exists.
func (s BudgetState) HasCategory(name string) bool {
	for _, c := range s.Categories {
		if SameEntity(c.Name, name) {
			return true
		}
	}
	return false
}

// HasBill reports whether a bill with the given name exists.
func (s BudgetState) HasBill(name string) bool {
	for _, b := range s.Bills {
		if SameEntity(b.Name, name) {
			return true
		}
	}
	return false
}

// HasGoal reports whether a goal with the given name exists.
func (s BudgetState) HasGoal(name string) bool {
	for _, g := range s.Goals {
		if SameEntity(g.Name, name) {
			return true
		}
	}
	return false
}

// HasLabel reports whether a label exists.
func (s BudgetState) HasLabel(label string) bool {
	for _, l := range s.Labels {
		if SameEntity(l, label) {
			return true
		}
	}
	return false
}

// ============================================================
// Forgiving JSON numbers
// ============================================================

// FlexFloat is a float64 that tolerates sloppy JSON from external actors:
// numbers, quoted numbers with currency noise, null, or garbage. Anything
// unparseable coerces to 0 instead of failing the whole patch.
type FlexFloat float64

// UnmarshalJSON never returns an error; invalid input becomes 0.
func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	*f = 0
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		s = strings.TrimSpace(strings.NewReplacer("$", "", ",", "").Replace(s))
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			*f = FlexFloat(v)
		}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err == nil {
		*f = FlexFloat(v)
	}
	return nil
}

// FlexInt behaves like FlexFloat for integer fields.
type FlexInt int

// UnmarshalJSON never returns an error; invalid input becomes 0.
func (i *FlexInt) UnmarshalJSON(data []byte) error {
	var f FlexFloat
	_ = f.UnmarshalJSON(data)
	*i = FlexInt(f)
	return nil
}

// ============================================================
// Partial updates (patches)
// ============================================================

// PatchCategory is an incoming category in a patch.
type PatchCategory struct {
	Name    string    `json:"name"`
	Planned FlexFloat `json:"planned"`
	Actual  FlexFloat `json:"actual"`
}

// PatchBill is an incoming bill in a patch. A missing date defaults to
// "Unscheduled"; an absent or null recurringDay clears recurrence.
type PatchBill struct {
	Name         string    `json:"name"`
	Date         string    `json:"date"`
	Amount       FlexFloat `json:"amount"`
	RecurringDay *FlexInt  `json:"recurringDay"`
}

// PatchGoal is an incoming goal in a patch.
type PatchGoal struct {
	Name   string    `json:"name"`
	Amount FlexFloat `json:"amount"`
	Target FlexFloat `json:"target"`
}

// BudgetPatch is a partial, externally supplied budget update. Scalar fields
// are pointers so "absent" and "zero" stay distinguishable; entity arrays
// replace wholesale when present.
type BudgetPatch struct {
	IncomePerPaycheck *FlexFloat `json:"incomePerPaycheck,omitempty"`
	PayFrequency      *string    `json:"payFrequency,omitempty"`
	PartnerIncome     *FlexFloat `json:"partnerIncome,omitempty"`
	IncludePartner    *bool      `json:"includePartner,omitempty"`
	MonthlyInvestment *FlexFloat `json:"monthlyInvestment,omitempty"`
	MonthlyBuffer     *FlexFloat `json:"monthlyBuffer,omitempty"`

	PrimaryGoal              *string  `json:"primaryGoal,omitempty"`
	ScheduleBias             *FlexInt `json:"scheduleBias,omitempty"`
	DebtStrategy             *string  `json:"debtStrategy,omitempty"`
	NotificationsEnabled     *bool    `json:"notificationsEnabled,omitempty"`
	NotificationReminderDays *FlexInt `json:"notificationReminderDays,omitempty"`
	AutoSave                 *bool    `json:"autoSave,omitempty"`

	Categories []PatchCategory `json:"categories,omitempty"`
	Bills      []PatchBill     `json:"bills,omitempty"`
	Goals      []PatchGoal     `json:"goals,omitempty"`
	Holdings   []Holding       `json:"holdings,omitempty"`
	Labels     []string        `json:"labels,omitempty"`
}

// IsEmpty reports whether the patch carries no fields at all.
func (p BudgetPatch) IsEmpty() bool {
	return p.IncomePerPaycheck == nil &&
		p.PayFrequency == nil &&
		p.PartnerIncome == nil &&
		p.IncludePartner == nil &&
		p.MonthlyInvestment == nil &&
		p.MonthlyBuffer == nil &&
		p.PrimaryGoal == nil &&
		p.ScheduleBias == nil &&
		p.DebtStrategy == nil &&
		p.NotificationsEnabled == nil &&
		p.NotificationReminderDays == nil &&
		p.AutoSave == nil &&
		p.Categories == nil &&
		p.Bills == nil &&
		p.Goals == nil &&
		p.Holdings == nil &&
		p.Labels == nil
}

// ============================================================
// Reminders
// ============================================================

// UpcomingBill is a bill with a concretely resolved due date.
type UpcomingBill struct {
	Name     string  `json:"name"`
	Amount   float64 `json:"amount"`
	DueDate  string  `json:"dueDate"` // ISO date
	DaysOut  int     `json:"daysOut"`
	LeadDays int     `json:"leadDays"`
}

// ReminderLogEntry records one sent reminder so the batch job never sends
// the same (user, bill, due date, lead) twice.
type ReminderLogEntry struct {
	ID       string `json:"id"`
	UserID   string `json:"user_id"`
	BillName string `json:"bill_name"`
	DueDate  string `json:"due_date"`
	LeadDays int    `json:"lead_days"`
	SentAt   string `json:"sent_at"`
}
