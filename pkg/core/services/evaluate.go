package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jakechorley/vacancy-cascade/pkg/core/cascade"
	"github.com/jakechorley/vacancy-cascade/pkg/core/model"
	"github.com/jakechorley/vacancy-cascade/pkg/core/normalizer"
	"github.com/jakechorley/vacancy-cascade/pkg/core/report"
)

// InputSource supplies the three raw input collections
type InputSource interface {
	LoadInputs(ctx context.Context) (*normalizer.RawInputs, error)
}

// Evaluation is the outcome of running the engine once
type Evaluation struct {
	Result      *cascade.Result
	Report      *report.Report
	Adjustments []Adjustment
}

// Evaluate applies adjustments and runs the engine on a fresh ledger. inputs is not modified,
// so one Inputs value can back many evaluations.
func Evaluate(ctx context.Context, inputs normalizer.Inputs, mode model.Mode, adjustments []Adjustment, logger *zap.Logger) (*Evaluation, error) {
	capacities := ApplyAdjustments(inputs.Capacities, adjustments)

	result, err := cascade.Run(ctx, capacities, inputs.Roster, inputs.Preferences, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to run cascade: %w", err)
	}

	if mode == "" {
		mode = model.ModeUpgrades
	}
	rep := report.Build(result, mode)

	logger.Debug("Cascade evaluated",
		zap.String("mode", string(mode)),
		zap.Int("pilots", rep.Summary.Total),
		zap.Int("moved", rep.Summary.Moved),
		zap.Int("upgrades", rep.Summary.Upgrades),
		zap.String("adjustments", FormatAdjustments(adjustments)))

	return &Evaluation{
		Result:      result,
		Report:      rep,
		Adjustments: adjustments,
	}, nil
}

// LoadInputs reads raw inputs from source and normalizes them
func LoadInputs(ctx context.Context, source InputSource, logger *zap.Logger) (normalizer.Inputs, error) {
	raw, err := source.LoadInputs(ctx)
	if err != nil {
		return normalizer.Inputs{}, fmt.Errorf("failed to load inputs: %w", err)
	}

	inputs := normalizer.Normalize(*raw, logger)
	logger.Info("Inputs loaded",
		zap.Int("capacities", len(inputs.Capacities)),
		zap.Int("pilots", len(inputs.Roster)),
		zap.Int("preference_lists", len(inputs.Preferences)))

	return inputs, nil
}
