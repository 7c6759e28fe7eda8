// Package report turns a cascade result into the views consumed by the CLI, the HTTP API and
// the sheet publisher.
package report

import (
	"sort"

	"github.com/jakechorley/vacancy-cascade/pkg/core/cascade"
	"github.com/jakechorley/vacancy-cascade/pkg/core/model"
)

// BackfillRow is one position's final backfill count
type BackfillRow struct {
	Position model.Position
	Count    int
}

// Summary counts awards by outcome
type Summary struct {
	Total        int
	Moved        int
	Upgrades     int
	Laterals     int
	Stayed       int
	StayedListed int
}

// Report is a read-only view of one run
type Report struct {
	Mode     model.Mode
	Awards   []model.Award
	Backfill []BackfillRow
	Summary  Summary
}

// Build assembles a Report from an engine result. Backfill rows are sorted by (base, seat).
func Build(result *cascade.Result, mode model.Mode) *Report {
	r := &Report{
		Mode:   mode,
		Awards: result.Awards,
	}

	for key, count := range result.Backfill {
		r.Backfill = append(r.Backfill, BackfillRow{Position: positionFromKey(key), Count: count})
	}
	sort.Slice(r.Backfill, func(i, j int) bool {
		return r.Backfill[i].Position.Less(r.Backfill[j].Position)
	})

	r.Summary = Summarize(result.Awards)
	return r
}

// Summarize counts awards by note
func Summarize(awards []model.Award) Summary {
	s := Summary{Total: len(awards)}
	for _, a := range awards {
		if a.Moved {
			s.Moved++
		}
		switch a.Note {
		case model.NoteUpgrade:
			s.Upgrades++
		case model.NoteLateral:
			s.Laterals++
		case model.NoteStayed:
			s.Stayed++
		case model.NoteStayedListed:
			s.StayedListed++
		}
	}
	return s
}

// Occupancy maps each final position key to the seniorities holding it, most senior first
func Occupancy(awards []model.Award) map[string][]int {
	out := make(map[string][]int)
	for _, a := range awards {
		key := a.ToPosition.Key()
		out[key] = append(out[key], a.Seniority)
	}
	for _, seniorities := range out {
		sort.Ints(seniorities)
	}
	return out
}

// BackfillMap returns the rows as a "BASE|SEAT" keyed map
func (r *Report) BackfillMap() map[string]int {
	out := make(map[string]int, len(r.Backfill))
	for _, row := range r.Backfill {
		out[row.Position.Key()] = row.Count
	}
	return out
}

func positionFromKey(key string) model.Position {
	for i := 0; i < len(key); i++ {
		if key[i] == '|' {
			return model.NewPosition(key[:i], key[i+1:])
		}
	}
	return model.Position{Base: key}
}
