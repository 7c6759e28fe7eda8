package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/vacancy-cascade/pkg/core/model"
)

func TestParseAdjustment(t *testing.T) {
	tests := []struct {
		input string
		want  Adjustment
	}{
		{"SEA CA=+1", Adjustment{Position: model.NewPosition("SEA", "CA"), Delta: 1}},
		{"sea|fo=-2", Adjustment{Position: model.NewPosition("SEA", "FO"), Delta: -2}},
		{"LAX-CA = 3", Adjustment{Position: model.NewPosition("LAX", "CA"), Delta: 3}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseAdjustment(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseAdjustment_Errors(t *testing.T) {
	for _, input := range []string{"SEA CA", "SEA=+1", "SEA CA=one", "=1"} {
		_, err := ParseAdjustment(input)
		assert.Error(t, err, input)
	}
}

func TestParseAdjustments_SkipsBlanks(t *testing.T) {
	got, err := ParseAdjustments([]string{"SEA CA=+1", " ", "LAX FO=-1"})
	require.NoError(t, err)
	assert.Equal(t, "SEA CA=+1, LAX FO=-1", FormatAdjustments(got))
}

func TestApplyAdjustments(t *testing.T) {
	sea := model.NewPosition("SEA", "CA")
	lax := model.NewPosition("LAX", "FO")
	den := model.NewPosition("DEN", "CA")

	capacities := []model.CapacityEntry{
		{Position: sea, Incumbents: 4, Delta: 1},
		{Position: lax, Incumbents: 2, Delta: 0},
		{Position: sea, Incumbents: 4, Delta: 2},
	}

	got := ApplyAdjustments(capacities, []Adjustment{
		{Position: sea, Delta: 1},
		{Position: lax, Delta: -1},
		{Position: den, Delta: 2},
		{Position: den, Delta: 1},
	})

	assert.Equal(t, []model.CapacityEntry{
		{Position: sea, Incumbents: 4, Delta: 1},
		{Position: lax, Incumbents: 2, Delta: -1},
		{Position: sea, Incumbents: 4, Delta: 3},
		{Position: den, Incumbents: 0, Delta: 3},
	}, got)

	// Input untouched
	assert.Equal(t, 2, capacities[2].Delta)
	assert.Equal(t, 0, capacities[1].Delta)
}
