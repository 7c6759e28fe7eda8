package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jakechorley/vacancy-cascade/pkg/core/model"
	"github.com/jakechorley/vacancy-cascade/pkg/core/normalizer"
	"github.com/jakechorley/vacancy-cascade/pkg/core/report"
)

const maxConcurrentScenarios = 8

// Scenario is a named set of adjustments to try against the same inputs
type Scenario struct {
	Name        string
	Adjustments []Adjustment
}

// AwardChange is a pilot whose award differs from the baseline
type AwardChange struct {
	Seniority int
	Name      string
	Baseline  model.Award
	Scenario  model.Award
}

// ScenarioResult is one scenario's report and its differences from the baseline
type ScenarioResult struct {
	Scenario Scenario
	Report   *report.Report
	Changes  []AwardChange
}

// CompareResult holds the unadjusted baseline and every scenario in input order
type CompareResult struct {
	Baseline  *report.Report
	Scenarios []ScenarioResult
}

// ParseScenario parses "name:SEA CA=+1;LAX FO=-1". Without a name the adjustments
// themselves name the scenario.
func ParseScenario(s string) (Scenario, error) {
	name, body, ok := strings.Cut(s, ":")
	if !ok {
		name, body = s, s
	}

	adjustments, err := ParseAdjustments(strings.Split(body, ";"))
	if err != nil {
		return Scenario{}, fmt.Errorf("scenario %q: %w", strings.TrimSpace(name), err)
	}
	if len(adjustments) == 0 {
		return Scenario{}, fmt.Errorf("scenario %q has no adjustments", strings.TrimSpace(name))
	}

	return Scenario{Name: strings.TrimSpace(name), Adjustments: adjustments}, nil
}

// CompareScenarios evaluates the baseline and each scenario concurrently. Every evaluation
// gets its own ledger; inputs are shared read-only.
func CompareScenarios(
	ctx context.Context,
	inputs normalizer.Inputs,
	scenarios []Scenario,
	mode model.Mode,
	logger *zap.Logger,
) (*CompareResult, error) {
	logger.Debug("Comparing scenarios", zap.Int("count", len(scenarios)))

	reports := make([]*report.Report, len(scenarios)+1)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentScenarios)

	for i := range reports {
		var adjustments []Adjustment
		name := "baseline"
		if i > 0 {
			adjustments = scenarios[i-1].Adjustments
			name = scenarios[i-1].Name
		}

		g.Go(func() error {
			eval, err := Evaluate(gctx, inputs, mode, adjustments, logger)
			if err != nil {
				return fmt.Errorf("scenario %q: %w", name, err)
			}
			reports[i] = eval.Report
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &CompareResult{Baseline: reports[0]}
	for i, s := range scenarios {
		rep := reports[i+1]
		result.Scenarios = append(result.Scenarios, ScenarioResult{
			Scenario: s,
			Report:   rep,
			Changes:  DiffAwards(reports[0].Awards, rep.Awards),
		})
	}

	return result, nil
}

// DiffAwards lists pilots whose destination, rank or note differs between two award lists.
// Both lists must come from the same roster, so awards line up by index.
func DiffAwards(baseline, other []model.Award) []AwardChange {
	var changes []AwardChange
	for i := 0; i < len(baseline) && i < len(other); i++ {
		b, o := baseline[i], other[i]
		if b.ToPosition != o.ToPosition || b.PreferenceRank != o.PreferenceRank || b.Note != o.Note {
			changes = append(changes, AwardChange{
				Seniority: b.Seniority,
				Name:      b.Name,
				Baseline:  b,
				Scenario:  o,
			})
		}
	}
	return changes
}
