package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractPatchFencedBlock(t *testing.T) {
	reply := "Here's what I'd change:\n```json\n{\"incomePerPaycheck\": 2500}\n```\nLet me know!"

	patch, ok := ExtractPatch(reply)
	require.True(t, ok)
	require.NotNil(t, patch.IncomePerPaycheck)
	assert.EqualValues(t, 2500, *patch.IncomePerPaycheck)
}

func TestExtractPatchBareObjectInProse(t *testing.T) {
	reply := `I suggest bumping your buffer. {"monthlyBuffer": 300, "primaryGoal": "save {more}"} Does that work?`

	patch, ok := ExtractPatch(reply)
	require.True(t, ok)
	require.NotNil(t, patch.MonthlyBuffer)
	assert.EqualValues(t, 300, *patch.MonthlyBuffer)
	require.NotNil(t, patch.PrimaryGoal)
	assert.Equal(t, "save {more}", *patch.PrimaryGoal)
}

func TestExtractPatchNothingToFind(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{"plain prose", "Your budget looks healthy this month."},
		{"empty object", "All good: {}"},
		{"unbalanced braces", "weird { fragment"},
		{"non-patch json", `{"unrelated": true}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			patch, ok := ExtractPatch(tt.reply)
			assert.False(t, ok)
			assert.Nil(t, patch)
		})
	}
}

func TestExtractPatchPrefersFencedOverEarlierProseBraces(t *testing.T) {
	reply := "Numbers {like this} aren't updates.\n```json\n{\"monthlyInvestment\": 400}\n```"

	patch, ok := ExtractPatch(reply)
	require.True(t, ok)
	require.NotNil(t, patch.MonthlyInvestment)
	assert.EqualValues(t, 400, *patch.MonthlyInvestment)
}
