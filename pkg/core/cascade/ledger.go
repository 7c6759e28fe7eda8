package cascade

import (
	"errors"
	"fmt"

	"github.com/jakechorley/vacancy-cascade/pkg/core/model"
)

// ErrLedgerUnderflow is returned when a pool is decremented below zero
var ErrLedgerUnderflow = errors.New("vacancy ledger underflow")

// Ledger tracks the two vacancy pools for every position during one run.
// Seeded vacancies come from positive capacity deltas. Backfill vacancies appear when a
// pilot vacates a position during the cascade.
type Ledger struct {
	seeded   map[string]int
	backfill map[string]int

	// positions remembers the Position behind each key for snapshots
	positions map[string]model.Position
}

// NewLedger builds a fresh ledger. seeded[p] is the sum of max(delta, 0) over every entry
// for p, and backfill starts at zero for every position in the capacity list.
func NewLedger(capacities []model.CapacityEntry) *Ledger {
	l := &Ledger{
		seeded:    make(map[string]int, len(capacities)),
		backfill:  make(map[string]int, len(capacities)),
		positions: make(map[string]model.Position, len(capacities)),
	}

	for _, entry := range capacities {
		key := entry.Position.Key()
		l.positions[key] = entry.Position
		l.backfill[key] = 0
		l.seeded[key] += max(entry.Delta, 0)
	}

	return l
}

// Seeded returns the remaining seeded vacancies at p
func (l *Ledger) Seeded(p model.Position) int {
	return l.seeded[p.Key()]
}

// Backfill returns the remaining backfill vacancies at p
func (l *Ledger) Backfill(p model.Position) int {
	return l.backfill[p.Key()]
}

// TakeSeeded consumes one seeded vacancy at p
func (l *Ledger) TakeSeeded(p model.Position) error {
	key := p.Key()
	if l.seeded[key] <= 0 {
		return fmt.Errorf("%w: no seeded vacancy at %s", ErrLedgerUnderflow, p)
	}
	l.seeded[key]--
	return nil
}

// TakeBackfill consumes one backfill vacancy at p
func (l *Ledger) TakeBackfill(p model.Position) error {
	key := p.Key()
	if l.backfill[key] <= 0 {
		return fmt.Errorf("%w: no backfill vacancy at %s", ErrLedgerUnderflow, p)
	}
	l.backfill[key]--
	return nil
}

// AddBackfill records that p has been vacated. Positions outside the capacity list are
// tracked from this point on.
func (l *Ledger) AddBackfill(p model.Position) {
	key := p.Key()
	l.positions[key] = p
	l.backfill[key]++
}

// BackfillSnapshot copies the backfill pool, keyed "BASE|SEAT"
func (l *Ledger) BackfillSnapshot() map[string]int {
	return copyCounts(l.backfill)
}

// SeededSnapshot copies the seeded pool, keyed "BASE|SEAT"
func (l *Ledger) SeededSnapshot() map[string]int {
	return copyCounts(l.seeded)
}

// Position returns the Position for a ledger key
func (l *Ledger) Position(key string) (model.Position, bool) {
	p, ok := l.positions[key]
	return p, ok
}

func copyCounts(src map[string]int) map[string]int {
	dst := make(map[string]int, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
