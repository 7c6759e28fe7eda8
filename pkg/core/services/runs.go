package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jakechorley/vacancy-cascade/pkg/core/model"
	"github.com/jakechorley/vacancy-cascade/pkg/core/report"
	"github.com/jakechorley/vacancy-cascade/pkg/db"
)

// StoredRun is a saved run rebuilt into a report
type StoredRun struct {
	Run    db.Run
	Report *report.Report
}

// ListRuns returns saved runs, newest first. A positive limit keeps only the newest runs.
func ListRuns(ctx context.Context, store db.RunReader, logger *zap.Logger, limit int) ([]db.Run, error) {
	runs, err := store.GetRuns(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch runs: %w", err)
	}

	logger.Debug("Fetched runs", zap.Int("count", len(runs)))

	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// GetRun loads one saved run with its awards and backfill
func GetRun(ctx context.Context, store db.RunReader, logger *zap.Logger, runID string) (*StoredRun, error) {
	run, err := store.GetRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch run: %w", err)
	}

	records, err := store.GetAwards(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch awards: %w", err)
	}

	backfill, err := store.GetBackfill(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch backfill: %w", err)
	}

	awards := make([]model.Award, 0, len(records))
	for _, r := range records {
		awards = append(awards, r.Award())
	}

	rows := make([]report.BackfillRow, 0, len(backfill))
	for _, b := range backfill {
		rows = append(rows, report.BackfillRow{
			Position: model.Position{Base: b.Base, Seat: b.Seat},
			Count:    b.Count,
		})
	}

	logger.Debug("Fetched run",
		zap.String("run_id", runID),
		zap.Int("awards", len(awards)),
		zap.Int("backfill_rows", len(rows)))

	return &StoredRun{
		Run: *run,
		Report: &report.Report{
			Mode:     model.Mode(run.Mode),
			Awards:   awards,
			Backfill: rows,
			Summary:  report.Summarize(awards),
		},
	}, nil
}

// LatestRunID returns the newest run's ID
func LatestRunID(ctx context.Context, store db.RunReader) (string, error) {
	runs, err := store.GetRuns(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to fetch runs: %w", err)
	}
	if len(runs) == 0 {
		return "", fmt.Errorf("%w: no runs saved yet", db.ErrRunNotFound)
	}
	return runs[0].ID, nil
}
