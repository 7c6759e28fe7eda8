package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jakechorley/vacancy-cascade/pkg/core/model"
	"github.com/jakechorley/vacancy-cascade/pkg/core/report"
	"github.com/jakechorley/vacancy-cascade/pkg/db"
)

// RunAwardsOptions controls a single awards run
type RunAwardsOptions struct {
	Mode        model.Mode
	Adjustments []Adjustment
	// Save persists the run to the store; ignored when the store is nil
	Save bool
}

// RunAwardsResult is the outcome of RunAwards
type RunAwardsResult struct {
	// RunID is empty unless the run was saved
	RunID  string
	Report *report.Report
}

// RunAwards loads inputs, runs the cascade and optionally records the run
func RunAwards(
	ctx context.Context,
	source InputSource,
	store db.RunWriter,
	logger *zap.Logger,
	opts RunAwardsOptions,
) (*RunAwardsResult, error) {
	logger.Debug("Starting runAwards",
		zap.String("mode", string(opts.Mode)),
		zap.Int("adjustments", len(opts.Adjustments)),
		zap.Bool("save", opts.Save))

	inputs, err := LoadInputs(ctx, source, logger)
	if err != nil {
		return nil, err
	}

	eval, err := Evaluate(ctx, inputs, opts.Mode, opts.Adjustments, logger)
	if err != nil {
		return nil, err
	}

	result := &RunAwardsResult{Report: eval.Report}

	if !opts.Save || store == nil {
		return result, nil
	}

	run := &db.Run{
		ID:          uuid.New().String(),
		Mode:        string(eval.Report.Mode),
		CreatedAt:   time.Now().UTC(),
		PilotCount:  eval.Report.Summary.Total,
		MovedCount:  eval.Report.Summary.Moved,
		Adjustments: FormatAdjustments(opts.Adjustments),
	}

	if err := store.InsertRun(ctx, run, db.AwardRecords(run.ID, eval.Report.Awards), backfillRecords(run.ID, eval.Report)); err != nil {
		return nil, fmt.Errorf("failed to save run: %w", err)
	}

	logger.Info("Run saved", zap.String("run_id", run.ID))
	result.RunID = run.ID
	return result, nil
}

func backfillRecords(runID string, r *report.Report) []db.BackfillRecord {
	records := make([]db.BackfillRecord, 0, len(r.Backfill))
	for _, row := range r.Backfill {
		records = append(records, db.BackfillRecord{
			RunID: runID,
			Base:  row.Position.Base,
			Seat:  row.Position.Seat,
			Count: row.Count,
		})
	}
	return records
}
