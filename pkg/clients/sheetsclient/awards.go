package sheetsclient

import (
	"context"
	"fmt"

	"github.com/jakechorley/vacancy-cascade/pkg/core/report"
	"github.com/jakechorley/vacancy-cascade/pkg/sheetrows"
)

// AwardRow is one published award
type AwardRow struct {
	Seniority int    `sheet:"Seniority"`
	Name      string `sheet:"Name"`
	From      string `sheet:"From"`
	To        string `sheet:"To"`
	Pref      string `sheet:"Pref"`
	Moved     string `sheet:"Moved"`
	Upgrade   string `sheet:"Upgrade"`
	Note      string `sheet:"Note"`
}

// BackfillRow is one position's final backfill count
type BackfillRow struct {
	Position string `sheet:"Position"`
	Backfill int    `sheet:"Backfill"`
}

// AwardValues lays out a report as sheet values: the awards table, one blank row, then the
// backfill table
func AwardValues(r *report.Report) [][]interface{} {
	rows := report.Rows(r.Awards)
	awardRows := make([]AwardRow, 0, len(rows))
	for i, row := range rows {
		awardRows = append(awardRows, AwardRow{
			Seniority: r.Awards[i].Seniority,
			Name:      row[1],
			From:      row[2],
			To:        row[3],
			Pref:      row[4],
			Moved:     row[5],
			Upgrade:   row[6],
			Note:      row[7],
		})
	}

	backfillRows := make([]BackfillRow, 0, len(r.Backfill))
	for _, b := range r.Backfill {
		backfillRows = append(backfillRows, BackfillRow{Position: b.Position.String(), Backfill: b.Count})
	}

	values := sheetrows.Encode(awardRows)
	values = append(values, []interface{}{})
	values = append(values, sheetrows.Encode(backfillRows)...)
	return values
}

// PublishAwards writes a report to a tab, creating the tab if needed. An existing tab of the
// same title is overwritten.
func (c *Client) PublishAwards(ctx context.Context, spreadsheetID, tabTitle string, r *report.Report) error {
	exists, err := c.HasSheet(ctx, spreadsheetID, tabTitle)
	if err != nil {
		return err
	}

	if !exists {
		if _, err := c.CreateSheet(ctx, spreadsheetID, tabTitle); err != nil {
			return fmt.Errorf("failed to create tab: %w", err)
		}
	}

	return c.ReplaceValues(ctx, spreadsheetID, tabTitle, AwardValues(r))
}
