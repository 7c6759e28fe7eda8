package model

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Seat types. Only a move from the junior seat to the senior seat is an upgrade.
const (
	SeatCaptain      = "CA"
	SeatFirstOfficer = "FO"
)

// ErrInvalidMode is returned when a mode string is neither upgrades nor open
var ErrInvalidMode = errors.New("invalid mode")

// Mode controls how seeded captain vacancies may be claimed
type Mode string

const (
	// ModeUpgrades reserves seeded captain vacancies for first officers who are upgrading
	ModeUpgrades Mode = "upgrades"

	// ModeOpen lets anyone claim a seeded vacancy
	ModeOpen Mode = "open"
)

// ParseMode converts a configuration value to a Mode. An empty value selects ModeUpgrades.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeUpgrades:
		return ModeUpgrades, nil
	case ModeOpen:
		return ModeOpen, nil
	}
	return "", fmt.Errorf("%w: %q (expected %q or %q)", ErrInvalidMode, s, ModeUpgrades, ModeOpen)
}

func (m Mode) IsValid() bool {
	return m == ModeUpgrades || m == ModeOpen
}

// Note describes the outcome recorded on an award
type Note string

const (
	NoteStayed       Note = "Stayed"
	NoteStayedListed Note = "Stayed (listed)"
	NoteLateral      Note = "Lateral"
	NoteUpgrade      Note = "Upgrade"
)

// Position is a (base, seat) pair. Both tokens are stored upper case.
type Position struct {
	Base string
	Seat string
}

// NewPosition builds a Position, trimming and upper-casing both tokens
func NewPosition(base, seat string) Position {
	return Position{Base: NormalizeToken(base), Seat: NormalizeToken(seat)}
}

// NormalizeToken trims a base or seat token and upper-cases it
func NormalizeToken(s string) string {
	return cases.Upper(language.Und).String(strings.TrimSpace(s))
}

// Key returns the map key form "BASE|SEAT"
func (p Position) Key() string {
	return p.Base + "|" + p.Seat
}

// String returns the display form "BASE SEAT"
func (p Position) String() string {
	return p.Base + " " + p.Seat
}

func (p Position) IsZero() bool {
	return p.Base == "" || p.Seat == ""
}

// Less orders positions by base, then seat
func (p Position) Less(other Position) bool {
	if p.Base != other.Base {
		return p.Base < other.Base
	}
	return p.Seat < other.Seat
}

// IsUpgrade reports whether moving from one position to another is a first officer to captain move
func IsUpgrade(from, to Position) bool {
	return from.Seat == SeatFirstOfficer && to.Seat == SeatCaptain
}

// CapacityEntry holds the headcount and the seeded change for one position
type CapacityEntry struct {
	Position   Position
	Incumbents int
	// Delta is the net authorized headcount change. Only positive deltas seed vacancies.
	Delta int
}

// Pilot is one member of the seniority roster. Lower seniority values are more senior.
type Pilot struct {
	Seniority       int
	Name            string
	CurrentPosition Position
}

// PreferenceEntry is one ranked choice. A Stay entry means "remain where I am" and carries no position.
type PreferenceEntry struct {
	Stay     bool
	Position Position
}

// PreferenceList is a pilot's ranked choices, most wanted first
type PreferenceList []PreferenceEntry

// Award is the outcome for one pilot in one run
type Award struct {
	Seniority    int
	Name         string
	FromPosition Position
	ToPosition   Position
	// PreferenceRank is the 1-based index of the satisfied preference, 0 if none matched
	PreferenceRank int
	Moved          bool
	Upgrade        bool
	Note           Note
}
