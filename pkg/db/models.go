package db

import (
	"time"

	"github.com/jakechorley/vacancy-cascade/pkg/core/model"
)

// Run is one persisted cascade run
type Run struct {
	ID          string
	Mode        string
	CreatedAt   time.Time
	PilotCount  int
	MovedCount  int
	Adjustments string // e.g. "SEA CA=+1, LAX FO=-2"; empty when none were applied
}

// AwardRecord is one pilot's award within a run
type AwardRecord struct {
	RunID     string
	Seniority int
	Name      string
	FromBase  string
	FromSeat  string
	ToBase    string
	ToSeat    string
	PrefRank  int
	Moved     bool
	Upgrade   bool
	Note      string
}

// BackfillRecord is the final backfill count at one position within a run
type BackfillRecord struct {
	RunID string
	Base  string
	Seat  string
	Count int
}

// AwardRecords flattens awards for storage
func AwardRecords(runID string, awards []model.Award) []AwardRecord {
	records := make([]AwardRecord, 0, len(awards))
	for _, a := range awards {
		records = append(records, AwardRecord{
			RunID:     runID,
			Seniority: a.Seniority,
			Name:      a.Name,
			FromBase:  a.FromPosition.Base,
			FromSeat:  a.FromPosition.Seat,
			ToBase:    a.ToPosition.Base,
			ToSeat:    a.ToPosition.Seat,
			PrefRank:  a.PreferenceRank,
			Moved:     a.Moved,
			Upgrade:   a.Upgrade,
			Note:      string(a.Note),
		})
	}
	return records
}

// Award rebuilds the domain award
func (r AwardRecord) Award() model.Award {
	return model.Award{
		Seniority:      r.Seniority,
		Name:           r.Name,
		FromPosition:   model.Position{Base: r.FromBase, Seat: r.FromSeat},
		ToPosition:     model.Position{Base: r.ToBase, Seat: r.ToSeat},
		PreferenceRank: r.PrefRank,
		Moved:          r.Moved,
		Upgrade:        r.Upgrade,
		Note:           model.Note(r.Note),
	}
}

// Key returns the "BASE|SEAT" key of the record's position
func (r BackfillRecord) Key() string {
	return model.Position{Base: r.Base, Seat: r.Seat}.Key()
}
