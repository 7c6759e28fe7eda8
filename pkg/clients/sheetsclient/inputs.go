package sheetsclient

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jakechorley/vacancy-cascade/pkg/core/normalizer"
	"github.com/jakechorley/vacancy-cascade/pkg/sheetrows"
)

// ValueReader reads a range of cells
type ValueReader interface {
	GetValues(ctx context.Context, spreadsheetID, sheetRange string) ([][]interface{}, error)
}

// Tabs names the three input tabs
type Tabs struct {
	Capacities  string
	Roster      string
	Preferences string
}

// InputSource loads bid inputs from one spreadsheet. Each tab has a header row whose
// columns match the raw record fields (base, seat, startCapacity, delta, sen, name,
// preferences and so on).
type InputSource struct {
	reader        ValueReader
	spreadsheetID string
	tabs          Tabs
	logger        *zap.Logger
}

// NewInputSource creates an InputSource reading from spreadsheetID
func NewInputSource(reader ValueReader, spreadsheetID string, tabs Tabs, logger *zap.Logger) *InputSource {
	return &InputSource{
		reader:        reader,
		spreadsheetID: spreadsheetID,
		tabs:          tabs,
		logger:        logger,
	}
}

// LoadInputs reads the capacities, roster and preferences tabs
func (s *InputSource) LoadInputs(ctx context.Context) (*normalizer.RawInputs, error) {
	capacities, err := readTab[normalizer.RawCapacity](ctx, s, s.tabs.Capacities)
	if err != nil {
		return nil, err
	}

	pilots, err := readTab[normalizer.RawPilot](ctx, s, s.tabs.Roster)
	if err != nil {
		return nil, err
	}

	preferences, err := readTab[normalizer.RawPreferenceRecord](ctx, s, s.tabs.Preferences)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Loaded inputs from sheet",
		zap.String("spreadsheet_id", s.spreadsheetID),
		zap.Int("capacities", len(capacities)),
		zap.Int("pilots", len(pilots)),
		zap.Int("preferences", len(preferences)))

	return &normalizer.RawInputs{
		Capacities:  normalizer.RawCapacities{List: capacities},
		Roster:      normalizer.RawRoster{Pilots: pilots},
		Preferences: normalizer.RawPreferences{List: preferences},
	}, nil
}

func readTab[T any](ctx context.Context, s *InputSource, tab string) ([]T, error) {
	values, err := s.reader.GetValues(ctx, s.spreadsheetID, tab)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s tab: %w", tab, err)
	}

	rows, err := sheetrows.Decode[T](values)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s tab: %w", tab, err)
	}

	return rows, nil
}
