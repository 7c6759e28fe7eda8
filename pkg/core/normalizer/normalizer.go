// Package normalizer turns loosely shaped capacity, roster and preference records into the
// canonical model used by the cascade engine. It never fails: malformed records are dropped
// and logged.
package normalizer

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/jakechorley/vacancy-cascade/pkg/core/model"
)

// stayToken is the string form of a "stay where I am" preference
const stayToken = "0"

var tokenSeparators = regexp.MustCompile(`[\s|/_-]+`)

var validate = validator.New()

// Inputs is the canonical, validated form of the three input collections
type Inputs struct {
	// Capacities sorted by (base, seat)
	Capacities []model.CapacityEntry

	// Roster sorted by ascending seniority, ties kept in input order
	Roster []model.Pilot

	// Preferences keyed by seniority
	Preferences map[int]model.PreferenceList
}

// pilotRecord carries the fields a roster record must have to be kept
type pilotRecord struct {
	Seniority int    `validate:"gt=0"`
	Base      string `validate:"required"`
	Seat      string `validate:"required"`
}

// Normalize converts all three raw collections. logger may be nil.
func Normalize(raw RawInputs, logger *zap.Logger) Inputs {
	if logger == nil {
		logger = zap.NewNop()
	}
	return Inputs{
		Capacities:  NormalizeCapacities(raw.Capacities, logger),
		Roster:      NormalizeRoster(raw.Roster, logger),
		Preferences: NormalizePreferences(raw.Preferences, logger),
	}
}

// ParsePositionToken splits a composite token such as "SEA CA", "sea|ca" or "PHX-FO".
// The last token is the seat and the second to last is the base.
func ParsePositionToken(s string) (model.Position, bool) {
	var tokens []string
	for _, t := range tokenSeparators.Split(strings.TrimSpace(s), -1) {
		if t != "" {
			tokens = append(tokens, t)
		}
	}
	if len(tokens) < 2 {
		return model.Position{}, false
	}
	return model.NewPosition(tokens[len(tokens)-2], tokens[len(tokens)-1]), true
}

// NormalizeCapacities builds capacity entries from either shape. Entries for the same position
// are not merged.
func NormalizeCapacities(raw RawCapacities, logger *zap.Logger) []model.CapacityEntry {
	if raw.Malformed > 0 {
		logger.Warn("Skipped malformed capacity records", zap.Int("count", raw.Malformed))
	}

	entries := make([]model.CapacityEntry, 0, raw.Len())

	for i, rec := range raw.List {
		pos := model.NewPosition(rec.Base.String(), rec.Seat.String())
		if pos.IsZero() {
			logger.Warn("Dropping capacity record without base or seat", zap.Int("index", i))
			continue
		}
		entries = append(entries, capacityEntry(pos, rec))
	}

	// Map iteration order is random; walk keys sorted so duplicate positions resolve the same way every time
	keys := make([]string, 0, len(raw.Keyed))
	for key := range raw.Keyed {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		pos, ok := ParsePositionToken(key)
		if !ok {
			logger.Warn("Dropping capacity record with unparseable key", zap.String("key", key))
			continue
		}
		entries = append(entries, capacityEntry(pos, raw.Keyed[key]))
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Position.Less(entries[j].Position)
	})

	return entries
}

func capacityEntry(pos model.Position, rec RawCapacity) model.CapacityEntry {
	incumbents := rec.StartCapacity.Int()
	if !rec.StartCapacity.Set() {
		incumbents = rec.Incumbents.Int()
	}
	incumbents = max(incumbents, 0)

	delta := 0
	switch {
	case rec.Delta.Set():
		delta = rec.Delta.Int()
	case rec.Target.Set():
		delta = rec.Target.Int() - incumbents
	}

	return model.CapacityEntry{
		Position:   pos,
		Incumbents: incumbents,
		Delta:      delta,
	}
}

// NormalizeRoster keeps pilots with a positive seniority and a complete current position,
// sorted by seniority. Pilots sharing a seniority value keep their input order.
func NormalizeRoster(raw RawRoster, logger *zap.Logger) []model.Pilot {
	if raw.Malformed > 0 {
		logger.Warn("Skipped malformed roster records", zap.Int("count", raw.Malformed))
	}

	roster := make([]model.Pilot, 0, len(raw.Pilots))
	for i, rec := range raw.Pilots {
		seniority := rec.Seniority.Int()
		if !rec.Seniority.Set() {
			seniority = rec.Sen.Int()
		}

		pos := pilotPosition(rec)
		record := pilotRecord{Seniority: seniority, Base: pos.Base, Seat: pos.Seat}
		if err := validate.Struct(record); err != nil {
			logger.Warn("Dropping roster record",
				zap.Int("index", i),
				zap.String("name", rec.Name.String()),
				zap.Error(err))
			continue
		}

		roster = append(roster, model.Pilot{
			Seniority:       seniority,
			Name:            strings.TrimSpace(rec.Name.String()),
			CurrentPosition: pos,
		})
	}

	sort.SliceStable(roster, func(i, j int) bool {
		return roster[i].Seniority < roster[j].Seniority
	})

	return roster
}

// pilotPosition prefers top-level base/seat, then a structured current position, then a current token
func pilotPosition(rec RawPilot) model.Position {
	if pos := model.NewPosition(rec.Base.String(), rec.Seat.String()); !pos.IsZero() {
		return pos
	}
	if pos := model.NewPosition(rec.Current.Base.String(), rec.Current.Seat.String()); !pos.IsZero() {
		return pos
	}
	if pos, ok := ParsePositionToken(rec.Current.Token.String()); ok {
		return pos
	}
	return model.Position{}
}

// NormalizePreferences builds deduplicated preference lists keyed by seniority.
// When two records name the same seniority the later one wins.
func NormalizePreferences(raw RawPreferences, logger *zap.Logger) map[int]model.PreferenceList {
	if raw.Malformed > 0 {
		logger.Warn("Skipped malformed preference records", zap.Int("count", raw.Malformed))
	}

	prefs := make(map[int]model.PreferenceList, len(raw.List)+len(raw.Keyed))

	for i, rec := range raw.List {
		seniority := recordSeniority(rec, "")
		if seniority <= 0 {
			logger.Warn("Dropping preference record without seniority", zap.Int("index", i))
			continue
		}
		prefs[seniority] = normalizePreferenceList(rec.Preferences)
	}

	keys := make([]string, 0, len(raw.Keyed))
	for key := range raw.Keyed {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		rec := raw.Keyed[key]
		seniority := recordSeniority(rec, key)
		if seniority <= 0 {
			logger.Warn("Dropping preference record without seniority", zap.String("key", key))
			continue
		}
		prefs[seniority] = normalizePreferenceList(rec.Preferences)
	}

	return prefs
}

func recordSeniority(rec RawPreferenceRecord, key string) int {
	switch {
	case rec.Sen.Set():
		return rec.Sen.Int()
	case rec.Seniority.Set():
		return rec.Seniority.Int()
	}
	n, err := strconv.Atoi(strings.TrimSpace(key))
	if err != nil {
		return 0
	}
	return n
}

// normalizePreferenceList resolves each item to a stay entry or a position, dropping items
// that are neither and keeping only the first occurrence of each position (and of stay)
func normalizePreferenceList(items RawPreferenceList) model.PreferenceList {
	list := make(model.PreferenceList, 0, len(items))
	seen := make(map[string]bool, len(items))
	seenStay := false

	for _, item := range items {
		entry, ok := preferenceEntry(item)
		if !ok {
			continue
		}
		if entry.Stay {
			if seenStay {
				continue
			}
			seenStay = true
			list = append(list, entry)
			continue
		}
		key := entry.Position.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		list = append(list, entry)
	}

	return list
}

func preferenceEntry(item RawPreferenceItem) (model.PreferenceEntry, bool) {
	if token := strings.TrimSpace(item.Token.String()); token != "" {
		if token == stayToken {
			return model.PreferenceEntry{Stay: true}, true
		}
		pos, ok := ParsePositionToken(token)
		if !ok {
			return model.PreferenceEntry{}, false
		}
		return model.PreferenceEntry{Position: pos}, true
	}

	if item.Stay.truthy() {
		return model.PreferenceEntry{Stay: true}, true
	}

	pos := model.NewPosition(item.Base.String(), item.Seat.String())
	if pos.IsZero() {
		return model.PreferenceEntry{}, false
	}
	return model.PreferenceEntry{Position: pos}, true
}
