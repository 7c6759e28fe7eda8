package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jakechorley/vacancy-cascade/pkg/core/report"
	"github.com/jakechorley/vacancy-cascade/pkg/db"
)

// AwardPublisher writes a report to a spreadsheet tab
type AwardPublisher interface {
	PublishAwards(ctx context.Context, spreadsheetID, tabTitle string, r *report.Report) error
}

// AwardsTabTitle names the tab for a run, e.g. "Awards 2026-03-01 upgrades 1a2b3c4d"
func AwardsTabTitle(run db.Run) string {
	id := run.ID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("Awards %s %s %s", run.CreatedAt.Format("2006-01-02"), run.Mode, id)
}

// PublishAwards publishes a saved run. An empty runID selects the newest run.
// It returns the title of the tab written.
func PublishAwards(
	ctx context.Context,
	store db.RunReader,
	publisher AwardPublisher,
	spreadsheetID string,
	runID string,
	logger *zap.Logger,
) (string, error) {
	if spreadsheetID == "" {
		return "", fmt.Errorf("awards spreadsheet ID is not configured")
	}

	if runID == "" {
		latest, err := LatestRunID(ctx, store)
		if err != nil {
			return "", err
		}
		runID = latest
		logger.Debug("Defaulting to latest run", zap.String("run_id", runID))
	}

	stored, err := GetRun(ctx, store, logger, runID)
	if err != nil {
		return "", err
	}

	title := AwardsTabTitle(stored.Run)
	if err := publisher.PublishAwards(ctx, spreadsheetID, title, stored.Report); err != nil {
		return "", fmt.Errorf("failed to publish awards: %w", err)
	}

	logger.Info("Awards published",
		zap.String("run_id", runID),
		zap.String("spreadsheet_id", spreadsheetID),
		zap.String("tab", title))

	return title, nil
}
