package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jakechorley/vacancy-cascade/pkg/db"
)

// InsertRun stores a run, its awards and its backfill counts in one transaction
func (d *DB) InsertRun(ctx context.Context, run *db.Run, awards []db.AwardRecord, backfill []db.BackfillRecord) error {
	return pgx.BeginFunc(ctx, d.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO cascade_run (id, mode, created_at, pilot_count, moved_count, adjustments)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, run.ID, run.Mode, run.CreatedAt.UTC(), run.PilotCount, run.MovedCount, run.Adjustments)
		if err != nil {
			return fmt.Errorf("failed to insert run: %w", err)
		}

		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"award"},
			[]string{"run_id", "seniority", "name", "from_base", "from_seat", "to_base", "to_seat", "pref_rank", "moved", "upgrade", "note"},
			pgx.CopyFromSlice(len(awards), func(i int) ([]any, error) {
				a := awards[i]
				return []any{run.ID, a.Seniority, a.Name, a.FromBase, a.FromSeat, a.ToBase, a.ToSeat, a.PrefRank, a.Moved, a.Upgrade, a.Note}, nil
			}),
		)
		if err != nil {
			return fmt.Errorf("failed to insert awards: %w", err)
		}

		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"backfill"},
			[]string{"run_id", "base", "seat", "count"},
			pgx.CopyFromSlice(len(backfill), func(i int) ([]any, error) {
				b := backfill[i]
				return []any{run.ID, b.Base, b.Seat, b.Count}, nil
			}),
		)
		if err != nil {
			return fmt.Errorf("failed to insert backfill: %w", err)
		}

		return nil
	})
}

// GetRuns retrieves all runs, newest first
func (d *DB) GetRuns(ctx context.Context) ([]db.Run, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, mode, created_at, pilot_count, moved_count, adjustments
		FROM cascade_run
		ORDER BY created_at DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}

	runs, err := pgx.CollectRows(rows, scanRun)
	if err != nil {
		return nil, fmt.Errorf("failed to scan runs: %w", err)
	}
	return runs, nil
}

// GetRun retrieves one run by ID
func (d *DB) GetRun(ctx context.Context, id string) (*db.Run, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, mode, created_at, pilot_count, moved_count, adjustments
		FROM cascade_run
		WHERE id = $1
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}

	run, err := pgx.CollectExactlyOneRow(rows, scanRun)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", db.ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}
	return &run, nil
}

// GetAwards retrieves a run's awards in seniority order
func (d *DB) GetAwards(ctx context.Context, runID string) ([]db.AwardRecord, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT run_id, seniority, name, from_base, from_seat, to_base, to_seat, pref_rank, moved, upgrade, note
		FROM award
		WHERE run_id = $1
		ORDER BY seniority
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query awards: %w", err)
	}

	awards, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (db.AwardRecord, error) {
		var a db.AwardRecord
		err := row.Scan(&a.RunID, &a.Seniority, &a.Name, &a.FromBase, &a.FromSeat, &a.ToBase, &a.ToSeat,
			&a.PrefRank, &a.Moved, &a.Upgrade, &a.Note)
		return a, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan awards: %w", err)
	}
	return awards, nil
}

// GetBackfill retrieves a run's backfill counts ordered by position
func (d *DB) GetBackfill(ctx context.Context, runID string) ([]db.BackfillRecord, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT run_id, base, seat, count
		FROM backfill
		WHERE run_id = $1
		ORDER BY base, seat
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query backfill: %w", err)
	}

	backfill, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (db.BackfillRecord, error) {
		var b db.BackfillRecord
		err := row.Scan(&b.RunID, &b.Base, &b.Seat, &b.Count)
		return b, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan backfill: %w", err)
	}
	return backfill, nil
}

func scanRun(row pgx.CollectableRow) (db.Run, error) {
	var r db.Run
	err := row.Scan(&r.ID, &r.Mode, &r.CreatedAt, &r.PilotCount, &r.MovedCount, &r.Adjustments)
	return r, err
}
