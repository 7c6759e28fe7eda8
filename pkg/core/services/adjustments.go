package services

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jakechorley/vacancy-cascade/pkg/core/model"
	"github.com/jakechorley/vacancy-cascade/pkg/core/normalizer"
)

// Adjustment nudges the seeded delta at one position, like pressing + or - next to it
type Adjustment struct {
	Position model.Position
	Delta    int
}

func (a Adjustment) String() string {
	return fmt.Sprintf("%s=%+d", a.Position, a.Delta)
}

// ParseAdjustment parses "SEA CA=+1" or "SEA|CA=-2"
func ParseAdjustment(s string) (Adjustment, error) {
	token, amount, ok := strings.Cut(s, "=")
	if !ok {
		return Adjustment{}, fmt.Errorf("adjustment %q must look like \"SEA CA=+1\"", s)
	}

	pos, ok := normalizer.ParsePositionToken(token)
	if !ok {
		return Adjustment{}, fmt.Errorf("adjustment %q has no base and seat", s)
	}

	delta, err := strconv.Atoi(strings.TrimSpace(amount))
	if err != nil {
		return Adjustment{}, fmt.Errorf("adjustment %q has an invalid amount: %w", s, err)
	}

	return Adjustment{Position: pos, Delta: delta}, nil
}

// ParseAdjustments parses each entry with ParseAdjustment
func ParseAdjustments(entries []string) ([]Adjustment, error) {
	adjustments := make([]Adjustment, 0, len(entries))
	for _, entry := range entries {
		if strings.TrimSpace(entry) == "" {
			continue
		}
		adj, err := ParseAdjustment(entry)
		if err != nil {
			return nil, err
		}
		adjustments = append(adjustments, adj)
	}
	return adjustments, nil
}

// FormatAdjustments joins adjustments for display and storage
func FormatAdjustments(adjustments []Adjustment) string {
	parts := make([]string, 0, len(adjustments))
	for _, a := range adjustments {
		parts = append(parts, a.String())
	}
	return strings.Join(parts, ", ")
}

// ApplyAdjustments returns a copy of capacities with each adjustment added to the delta of the
// last entry for its position. A position not in the list gets a new entry with no incumbents.
// The input slice is not modified.
func ApplyAdjustments(capacities []model.CapacityEntry, adjustments []Adjustment) []model.CapacityEntry {
	out := make([]model.CapacityEntry, len(capacities), len(capacities)+len(adjustments))
	copy(out, capacities)

	for _, adj := range adjustments {
		idx := -1
		for i := len(out) - 1; i >= 0; i-- {
			if out[i].Position == adj.Position {
				idx = i
				break
			}
		}

		if idx < 0 {
			out = append(out, model.CapacityEntry{Position: adj.Position, Delta: adj.Delta})
			continue
		}
		out[idx].Delta += adj.Delta
	}

	return out
}
