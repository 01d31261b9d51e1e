package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestWeekIndexOf(t *testing.T) {
	tests := []struct {
		name         string
		dateLabel    string
		recurringDay *int
		want         int
	}{
		{"iso date first week", "2024-03-01", nil, 1},
		{"iso date second week", "2024-03-10", nil, 2},
		{"iso date third week", "2024-03-21", nil, 3},
		{"iso date fourth week", "2024-03-28", nil, 4},
		{"recurring day wins over date", "2024-03-01", intPtr(15), 2},
		{"recurring day 31", "", intPtr(31), 4},
		{"recurring day below range", "", intPtr(-3), 1},
		{"recurring day above range", "", intPtr(99), 4},
		{"week label", "week 3", nil, 3},
		{"week label uppercase", "Week 2", nil, 2},
		{"week label clamped high", "week 9", nil, 4},
		{"week label clamped low", "week 0", nil, 1},
		{"first number fallback", "due on the 22nd", nil, 4},
		{"ordinal day", "pay by the 15th", nil, 3},
		{"four digit year is not a day", "invoice 2024", nil, 1},
		{"month name with day", "March 5", nil, 1},
		{"empty string", "", nil, 1},
		{"garbage", "whenever I feel like it", nil, 1},
		{"whitespace only", "   ", nil, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WeekIndexOf(tt.dateLabel, tt.recurringDay)
			assert.Equal(t, tt.want, got)
			assert.GreaterOrEqual(t, got, 1)
			assert.LessOrEqual(t, got, 4)
		})
	}
}

func TestNextRecurringDate(t *testing.T) {
	loc := time.UTC

	t.Run("rolls forward when day has passed", func(t *testing.T) {
		ref := time.Date(2024, time.March, 20, 9, 30, 0, 0, loc)
		due := NextRecurringDate(15, ref)
		assert.Equal(t, time.Date(2024, time.April, 15, 0, 0, 0, 0, loc), due)
	})

	t.Run("same day counts as upcoming", func(t *testing.T) {
		ref := time.Date(2024, time.March, 15, 18, 0, 0, 0, loc)
		due := NextRecurringDate(15, ref)
		assert.Equal(t, time.Date(2024, time.March, 15, 0, 0, 0, 0, loc), due)
	})

	t.Run("clamps to short month", func(t *testing.T) {
		ref := time.Date(2024, time.February, 1, 0, 0, 0, 0, loc)
		due := NextRecurringDate(31, ref)
		assert.Equal(t, time.Date(2024, time.February, 29, 0, 0, 0, 0, loc), due)
	})

	t.Run("december rolls into january", func(t *testing.T) {
		ref := time.Date(2024, time.December, 20, 0, 0, 0, 0, loc)
		due := NextRecurringDate(5, ref)
		assert.Equal(t, time.Date(2025, time.January, 5, 0, 0, 0, 0, loc), due)
	})
}

func TestDaysUntil(t *testing.T) {
	t.Run("counts calendar days regardless of time of day", func(t *testing.T) {
		ref := time.Date(2024, time.March, 22, 23, 45, 0, 0, time.UTC)
		due := time.Date(2024, time.March, 25, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, 3, DaysUntil(due, ref))
	})

	t.Run("same day is zero", func(t *testing.T) {
		ref := time.Date(2024, time.March, 25, 8, 0, 0, 0, time.UTC)
		due := time.Date(2024, time.March, 25, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, 0, DaysUntil(due, ref))
	})

	t.Run("east of UTC keeps the local day count", func(t *testing.T) {
		loc := time.FixedZone("UTC+2", 2*60*60)
		ref := time.Date(2024, time.March, 22, 10, 0, 0, 0, loc)
		due, ok := ResolveDueDate(bill("Rent", "2024-03-25", 1200), ref)
		require.True(t, ok)
		assert.Equal(t, 3, DaysUntil(due, ref))
	})

	t.Run("past dates count negative", func(t *testing.T) {
		ref := time.Date(2024, time.March, 22, 10, 0, 0, 0, time.UTC)
		due := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, -21, DaysUntil(due, ref))
	})
}

func TestResolveDueDate(t *testing.T) {
	loc := time.UTC
	ref := time.Date(2024, time.March, 20, 12, 0, 0, 0, loc)

	t.Run("explicit iso date wins over recurring day", func(t *testing.T) {
		b := bill("Rent", "2024-03-01", 1200)
		b.RecurringDay = intPtr(15)
		due, ok := ResolveDueDate(b, ref)
		require.True(t, ok)
		assert.Equal(t, time.Date(2024, time.March, 1, 0, 0, 0, 0, loc), due)
	})

	t.Run("recurring day when no iso date", func(t *testing.T) {
		b := bill("Gym", "monthly", 40)
		b.RecurringDay = intPtr(15)
		due, ok := ResolveDueDate(b, ref)
		require.True(t, ok)
		assert.Equal(t, time.Date(2024, time.April, 15, 0, 0, 0, 0, loc), due)
	})

	t.Run("month name label rolls to next year when past", func(t *testing.T) {
		due, ok := ResolveDueDate(bill("Insurance", "Jan 10", 90), ref)
		require.True(t, ok)
		assert.Equal(t, time.Date(2025, time.January, 10, 0, 0, 0, 0, loc), due)
	})

	t.Run("month name label in the future stays this year", func(t *testing.T) {
		due, ok := ResolveDueDate(bill("Insurance", "October 3", 90), ref)
		require.True(t, ok)
		assert.Equal(t, time.Date(2024, time.October, 3, 0, 0, 0, 0, loc), due)
	})

	t.Run("unscheduled resolves to nothing", func(t *testing.T) {
		_, ok := ResolveDueDate(bill("Misc", "Unscheduled", 10), ref)
		assert.False(t, ok)
	})

	t.Run("garbage resolves to nothing", func(t *testing.T) {
		_, ok := ResolveDueDate(bill("Misc", "sometime soon", 10), ref)
		assert.False(t, ok)
	})
}
