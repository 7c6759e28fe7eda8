// Package cascade implements the seniority-ordered vacancy cascade.
//
// Pilots are processed most senior first. Each pilot walks their ranked preferences against
// the live vacancy ledger and takes at most one position. Whatever position a pilot leaves
// becomes a backfill vacancy that more junior pilots may claim later in the same run.
package cascade

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"github.com/jakechorley/vacancy-cascade/pkg/core/model"
)

// Result is the outcome of one run
type Result struct {
	// Awards in processing order (ascending seniority)
	Awards []model.Award

	// Backfill is the final backfill pool keyed "BASE|SEAT"
	Backfill map[string]int

	// Seeded is the seeded pool left over after the run
	Seeded map[string]int

	// InitialSeeded is the seeded pool before any pilot was processed
	InitialSeeded map[string]int
}

// engine holds the working state of a single run
type engine struct {
	mode   model.Mode
	ledger *Ledger
}

// Run computes an award for every pilot on the roster.
//
// The roster is copied and stable-sorted by seniority, so callers may pass it in any order and
// it is never modified. An empty mode means ModeUpgrades.
func Run(
	ctx context.Context,
	capacities []model.CapacityEntry,
	roster []model.Pilot,
	preferences map[int]model.PreferenceList,
	mode model.Mode,
) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if mode == "" {
		mode = model.ModeUpgrades
	}
	if !mode.IsValid() {
		return nil, fmt.Errorf("%w: %q", model.ErrInvalidMode, mode)
	}

	pilots := slices.Clone(roster)
	sort.SliceStable(pilots, func(i, j int) bool {
		return pilots[i].Seniority < pilots[j].Seniority
	})

	e := &engine{
		mode:   mode,
		ledger: NewLedger(capacities),
	}
	initialSeeded := e.ledger.SeededSnapshot()

	awards := make([]model.Award, 0, len(pilots))
	for i := range pilots {
		award, err := e.awardPilot(&pilots[i], preferences[pilots[i].Seniority])
		if err != nil {
			return nil, fmt.Errorf("failed to award seniority %d: %w", pilots[i].Seniority, err)
		}
		awards = append(awards, award)
	}

	return &Result{
		Awards:        awards,
		Backfill:      e.ledger.BackfillSnapshot(),
		Seeded:        e.ledger.SeededSnapshot(),
		InitialSeeded: initialSeeded,
	}, nil
}

// awardPilot resolves one pilot against the ledger and moves them if a preference is admissible
func (e *engine) awardPilot(pilot *model.Pilot, prefs model.PreferenceList) (model.Award, error) {
	origin := pilot.CurrentPosition
	award := model.Award{
		Seniority:    pilot.Seniority,
		Name:         pilot.Name,
		FromPosition: origin,
		ToPosition:   origin,
		Note:         model.NoteStayed,
	}

	for i, candidate := range candidates(pilot.CurrentPosition, prefs) {
		rank := i + 1

		if candidate == pilot.CurrentPosition {
			award.PreferenceRank = rank
			award.Note = model.NoteStayedListed
			return award, nil
		}

		backfill := e.ledger.Backfill(candidate)
		seeded := e.ledger.Seeded(candidate)
		if backfill == 0 && seeded == 0 {
			continue
		}

		// A reserved seeded vacancy can't be claimed, but a backfill vacancy at the same position can
		if backfill == 0 && e.seededReserved(pilot, candidate) {
			continue
		}

		if err := e.take(candidate, backfill); err != nil {
			return model.Award{}, err
		}
		e.ledger.AddBackfill(origin)
		pilot.CurrentPosition = candidate

		award.ToPosition = candidate
		award.PreferenceRank = rank
		award.Moved = true
		award.Upgrade = model.IsUpgrade(origin, candidate)
		award.Note = model.NoteLateral
		if award.Upgrade {
			award.Note = model.NoteUpgrade
		}
		return award, nil
	}

	return award, nil
}

// seededReserved reports whether a seeded vacancy at candidate is held back for upgrading
// first officers and pilot isn't one
func (e *engine) seededReserved(pilot *model.Pilot, candidate model.Position) bool {
	return e.mode == model.ModeUpgrades &&
		candidate.Seat == model.SeatCaptain &&
		pilot.CurrentPosition.Seat != model.SeatFirstOfficer
}

// take consumes one vacancy at p, backfill first
func (e *engine) take(p model.Position, backfill int) error {
	if backfill > 0 {
		return e.ledger.TakeBackfill(p)
	}
	return e.ledger.TakeSeeded(p)
}

// candidates expands a preference list into positions. Stay resolves to the pilot's current
// position. Each position appears once, at its first rank.
func candidates(current model.Position, prefs model.PreferenceList) []model.Position {
	out := make([]model.Position, 0, len(prefs))
	seen := make(map[string]bool, len(prefs))

	for _, pref := range prefs {
		pos := pref.Position
		if pref.Stay {
			pos = current
		}
		if pos.IsZero() {
			continue
		}
		key := pos.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, pos)
	}

	return out
}
