package cascade

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/vacancy-cascade/pkg/core/model"
)

func pos(base, seat string) model.Position {
	return model.NewPosition(base, seat)
}

func wants(positions ...model.Position) model.PreferenceList {
	list := make(model.PreferenceList, 0, len(positions))
	for _, p := range positions {
		list = append(list, model.PreferenceEntry{Position: p})
	}
	return list
}

var stay = model.PreferenceEntry{Stay: true}

func TestRun_SingleUpgrade(t *testing.T) {
	capacities := []model.CapacityEntry{{Position: pos("SEA", "CA"), Incumbents: 5, Delta: 1}}
	roster := []model.Pilot{{Seniority: 1, Name: "A", CurrentPosition: pos("SEA", "FO")}}
	prefs := map[int]model.PreferenceList{1: wants(pos("SEA", "CA"))}

	result, err := Run(context.Background(), capacities, roster, prefs, model.ModeUpgrades)
	require.NoError(t, err)

	require.Len(t, result.Awards, 1)
	assert.Equal(t, model.Award{
		Seniority:      1,
		Name:           "A",
		FromPosition:   pos("SEA", "FO"),
		ToPosition:     pos("SEA", "CA"),
		PreferenceRank: 1,
		Moved:          true,
		Upgrade:        true,
		Note:           model.NoteUpgrade,
	}, result.Awards[0])

	assert.Equal(t, 1, result.Backfill["SEA|FO"])
	assert.Equal(t, 0, result.Backfill["SEA|CA"])
	assert.Equal(t, 0, result.Seeded["SEA|CA"])
	assert.Equal(t, 1, result.InitialSeeded["SEA|CA"])
}

func TestRun_DuplicateCapacityEntriesSumTheirDeltas(t *testing.T) {
	capacities := []model.CapacityEntry{
		{Position: pos("SEA", "CA"), Incumbents: 5, Delta: 2},
		{Position: pos("SEA", "CA"), Incumbents: 5, Delta: 0},
	}
	roster := []model.Pilot{{Seniority: 1, Name: "A", CurrentPosition: pos("SEA", "FO")}}
	prefs := map[int]model.PreferenceList{1: wants(pos("SEA", "CA"))}

	result, err := Run(context.Background(), capacities, roster, prefs, model.ModeUpgrades)
	require.NoError(t, err)

	assert.Equal(t, 2, result.InitialSeeded["SEA|CA"])
	assert.Equal(t, 1, result.Seeded["SEA|CA"])
	require.Len(t, result.Awards, 1)
	assert.Equal(t, model.NoteUpgrade, result.Awards[0].Note)
	assert.Equal(t, 1, result.Awards[0].PreferenceRank)
}

func TestRun_NoVacancyStays(t *testing.T) {
	capacities := []model.CapacityEntry{{Position: pos("SEA", "CA"), Incumbents: 5, Delta: 0}}
	roster := []model.Pilot{{Seniority: 1, Name: "A", CurrentPosition: pos("SEA", "FO")}}
	prefs := map[int]model.PreferenceList{1: wants(pos("SEA", "CA"))}

	result, err := Run(context.Background(), capacities, roster, prefs, model.ModeUpgrades)
	require.NoError(t, err)

	award := result.Awards[0]
	assert.Equal(t, pos("SEA", "FO"), award.ToPosition)
	assert.Equal(t, 0, award.PreferenceRank)
	assert.False(t, award.Moved)
	assert.False(t, award.Upgrade)
	assert.Equal(t, model.NoteStayed, award.Note)
	assert.Equal(t, map[string]int{"SEA|CA": 0}, result.Backfill)
}

func TestRun_VacancyChainCascades(t *testing.T) {
	capacities := []model.CapacityEntry{
		{Position: pos("LAX", "FO"), Incumbents: 4},
		{Position: pos("SEA", "CA"), Incumbents: 5, Delta: 1},
		{Position: pos("SEA", "FO"), Incumbents: 6},
	}
	roster := []model.Pilot{
		{Seniority: 10, Name: "Upgrader", CurrentPosition: pos("SEA", "FO")},
		{Seniority: 20, Name: "Mover", CurrentPosition: pos("LAX", "FO")},
		{Seniority: 30, Name: "Downgrader", CurrentPosition: pos("LAX", "CA")},
		{Seniority: 40, Name: "Late", CurrentPosition: pos("DEN", "FO")},
	}
	prefs := map[int]model.PreferenceList{
		10: wants(pos("SEA", "CA")),
		20: wants(pos("SEA", "CA"), pos("SEA", "FO")),
		30: wants(pos("LAX", "FO")),
		40: wants(pos("SEA", "FO"), pos("LAX", "FO")),
	}

	result, err := Run(context.Background(), capacities, roster, prefs, model.ModeUpgrades)
	require.NoError(t, err)
	require.Len(t, result.Awards, 4)

	assert.Equal(t, pos("SEA", "CA"), result.Awards[0].ToPosition)
	assert.Equal(t, model.NoteUpgrade, result.Awards[0].Note)

	// SEA CA is gone, so Mover falls through to the SEA FO seat Upgrader just left
	assert.Equal(t, pos("SEA", "FO"), result.Awards[1].ToPosition)
	assert.Equal(t, 2, result.Awards[1].PreferenceRank)
	assert.Equal(t, model.NoteLateral, result.Awards[1].Note)

	assert.Equal(t, pos("LAX", "FO"), result.Awards[2].ToPosition)
	assert.Equal(t, model.NoteLateral, result.Awards[2].Note)
	assert.False(t, result.Awards[2].Upgrade)

	// Everything Late wanted was taken by someone more senior
	assert.Equal(t, model.NoteStayed, result.Awards[3].Note)
	assert.Equal(t, 0, result.Awards[3].PreferenceRank)

	assert.Equal(t, map[string]int{
		"LAX|FO": 0,
		"SEA|CA": 0,
		"SEA|FO": 0,
		"LAX|CA": 1,
	}, result.Backfill)
}

func TestRun_UpgradesModeReservesSeededCaptainSeats(t *testing.T) {
	capacities := []model.CapacityEntry{{Position: pos("SEA", "CA"), Incumbents: 5, Delta: 1}}
	roster := []model.Pilot{
		{Seniority: 1, Name: "Captain", CurrentPosition: pos("LAX", "CA")},
		{Seniority: 2, Name: "FirstOfficer", CurrentPosition: pos("SEA", "FO")},
	}
	prefs := map[int]model.PreferenceList{
		1: wants(pos("SEA", "CA")),
		2: wants(pos("SEA", "CA")),
	}

	result, err := Run(context.Background(), capacities, roster, prefs, model.ModeUpgrades)
	require.NoError(t, err)

	assert.Equal(t, model.NoteStayed, result.Awards[0].Note)
	assert.Equal(t, pos("LAX", "CA"), result.Awards[0].ToPosition)
	assert.Equal(t, model.NoteUpgrade, result.Awards[1].Note)
	assert.Equal(t, pos("SEA", "CA"), result.Awards[1].ToPosition)
}

func TestRun_OpenModeLetsAnyoneClaimSeededSeats(t *testing.T) {
	capacities := []model.CapacityEntry{{Position: pos("SEA", "CA"), Incumbents: 5, Delta: 1}}
	roster := []model.Pilot{
		{Seniority: 1, Name: "Captain", CurrentPosition: pos("LAX", "CA")},
		{Seniority: 2, Name: "FirstOfficer", CurrentPosition: pos("SEA", "FO")},
	}
	prefs := map[int]model.PreferenceList{
		1: wants(pos("SEA", "CA")),
		2: wants(pos("SEA", "CA")),
	}

	result, err := Run(context.Background(), capacities, roster, prefs, model.ModeOpen)
	require.NoError(t, err)

	assert.Equal(t, model.NoteLateral, result.Awards[0].Note)
	assert.Equal(t, pos("SEA", "CA"), result.Awards[0].ToPosition)
	assert.Equal(t, model.NoteStayed, result.Awards[1].Note)
	assert.Equal(t, 1, result.Backfill["LAX|CA"])
}

func TestRun_ReservedSeatStillOffersBackfill(t *testing.T) {
	capacities := []model.CapacityEntry{
		{Position: pos("LAX", "FO"), Delta: 1},
		{Position: pos("SEA", "CA"), Delta: 1},
	}
	roster := []model.Pilot{
		{Seniority: 1, Name: "Leaver", CurrentPosition: pos("SEA", "CA")},
		{Seniority: 2, Name: "PhxCaptain", CurrentPosition: pos("PHX", "CA")},
		{Seniority: 3, Name: "DenCaptain", CurrentPosition: pos("DEN", "CA")},
		{Seniority: 4, Name: "SeaFO", CurrentPosition: pos("SEA", "FO")},
	}
	prefs := map[int]model.PreferenceList{
		1: wants(pos("LAX", "FO")),
		2: wants(pos("SEA", "CA")),
		3: wants(pos("SEA", "CA")),
		4: wants(pos("SEA", "CA")),
	}

	result, err := Run(context.Background(), capacities, roster, prefs, model.ModeUpgrades)
	require.NoError(t, err)

	assert.Equal(t, pos("LAX", "FO"), result.Awards[0].ToPosition)
	assert.Equal(t, pos("SEA", "CA"), result.Awards[1].ToPosition, "backfill vacancy is open to a captain")
	assert.Equal(t, model.NoteLateral, result.Awards[1].Note)
	assert.Equal(t, model.NoteStayed, result.Awards[2].Note, "seeded vacancy stays reserved")
	assert.Equal(t, pos("SEA", "CA"), result.Awards[3].ToPosition)
	assert.Equal(t, model.NoteUpgrade, result.Awards[3].Note)
	assert.Equal(t, 0, result.Seeded["SEA|CA"])
}

func TestRun_ListedStayStopsTheScan(t *testing.T) {
	capacities := []model.CapacityEntry{
		{Position: pos("LAX", "CA"), Delta: 0},
		{Position: pos("SEA", "CA"), Delta: 1},
	}
	roster := []model.Pilot{{Seniority: 1, Name: "A", CurrentPosition: pos("SEA", "FO")}}
	prefs := map[int]model.PreferenceList{
		1: {{Position: pos("LAX", "CA")}, stay, {Position: pos("SEA", "CA")}},
	}

	result, err := Run(context.Background(), capacities, roster, prefs, model.ModeUpgrades)
	require.NoError(t, err)

	award := result.Awards[0]
	assert.Equal(t, 2, award.PreferenceRank)
	assert.Equal(t, model.NoteStayedListed, award.Note)
	assert.False(t, award.Moved)
	assert.Equal(t, award.FromPosition, award.ToPosition)
	assert.Equal(t, 1, result.Seeded["SEA|CA"], "ledger untouched")
}

func TestRun_ExplicitCurrentPositionCountsAsStay(t *testing.T) {
	capacities := []model.CapacityEntry{{Position: pos("SEA", "FO"), Delta: 3}}
	roster := []model.Pilot{{Seniority: 1, Name: "A", CurrentPosition: pos("SEA", "FO")}}
	prefs := map[int]model.PreferenceList{1: wants(pos("sea", "fo"))}

	result, err := Run(context.Background(), capacities, roster, prefs, model.ModeOpen)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Awards[0].PreferenceRank)
	assert.Equal(t, model.NoteStayedListed, result.Awards[0].Note)
	assert.Equal(t, 3, result.Seeded["SEA|FO"])
}

func TestRun_StayIdempotence(t *testing.T) {
	capacities := []model.CapacityEntry{{Position: pos("SEA", "CA"), Delta: 5}}
	roster := []model.Pilot{
		{Seniority: 1, Name: "OnlyStay", CurrentPosition: pos("SEA", "FO")},
		{Seniority: 2, Name: "NoPrefs", CurrentPosition: pos("SEA", "FO")},
	}
	prefs := map[int]model.PreferenceList{1: {stay, stay}}

	result, err := Run(context.Background(), capacities, roster, prefs, model.ModeUpgrades)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Awards[0].PreferenceRank)
	assert.Equal(t, model.NoteStayedListed, result.Awards[0].Note)
	assert.Equal(t, 0, result.Awards[1].PreferenceRank)
	assert.Equal(t, model.NoteStayed, result.Awards[1].Note)
	for _, award := range result.Awards {
		assert.False(t, award.Moved)
		assert.Equal(t, award.FromPosition, award.ToPosition)
	}
}

func TestRun_DuplicateCandidatesKeepFirstRank(t *testing.T) {
	capacities := []model.CapacityEntry{
		{Position: pos("LAX", "FO"), Delta: 1},
	}
	roster := []model.Pilot{{Seniority: 1, Name: "A", CurrentPosition: pos("SEA", "FO")}}
	prefs := map[int]model.PreferenceList{
		1: wants(pos("ORD", "FO"), pos("ORD", "FO"), pos("LAX", "FO")),
	}

	result, err := Run(context.Background(), capacities, roster, prefs, model.ModeUpgrades)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Awards[0].PreferenceRank)
}

func TestRun_InvalidMode(t *testing.T) {
	_, err := Run(context.Background(), nil, nil, nil, model.Mode("bogus"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrInvalidMode))
}

func TestRun_EmptyModeDefaultsToUpgrades(t *testing.T) {
	capacities := []model.CapacityEntry{{Position: pos("SEA", "CA"), Delta: 1}}
	roster := []model.Pilot{{Seniority: 1, Name: "Captain", CurrentPosition: pos("LAX", "CA")}}
	prefs := map[int]model.PreferenceList{1: wants(pos("SEA", "CA"))}

	result, err := Run(context.Background(), capacities, roster, prefs, "")
	require.NoError(t, err)
	assert.Equal(t, model.NoteStayed, result.Awards[0].Note)
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, nil, nil, nil, model.ModeUpgrades)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_DoesNotMutateInputs(t *testing.T) {
	capacities := []model.CapacityEntry{{Position: pos("SEA", "CA"), Delta: 1}}
	roster := []model.Pilot{
		{Seniority: 2, Name: "B", CurrentPosition: pos("SEA", "FO")},
		{Seniority: 1, Name: "A", CurrentPosition: pos("SEA", "FO")},
	}
	original := slices.Clone(roster)
	prefs := map[int]model.PreferenceList{
		1: wants(pos("SEA", "CA")),
		2: wants(pos("SEA", "CA")),
	}

	result, err := Run(context.Background(), capacities, roster, prefs, model.ModeUpgrades)
	require.NoError(t, err)

	assert.Equal(t, original, roster)
	assert.Equal(t, 1, capacities[0].Delta)
	assert.Equal(t, 1, result.Awards[0].Seniority, "awards come out in seniority order")
	assert.Equal(t, model.NoteUpgrade, result.Awards[0].Note)
	assert.Equal(t, model.NoteStayed, result.Awards[1].Note)
}

// randomScenario builds a reproducible bid with a few bases and both seat types
func randomScenario(seed uint64, pilots int) ([]model.CapacityEntry, []model.Pilot, map[int]model.PreferenceList) {
	rng := rand.New(rand.NewPCG(seed, seed*31+7))
	bases := []string{"SEA", "LAX", "ORD", "DEN", "PHX"}
	seats := []string{model.SeatCaptain, model.SeatFirstOfficer}

	var all []model.Position
	for _, b := range bases {
		for _, s := range seats {
			all = append(all, pos(b, s))
		}
	}

	capacities := make([]model.CapacityEntry, 0, len(all))
	for _, p := range all {
		capacities = append(capacities, model.CapacityEntry{
			Position:   p,
			Incumbents: rng.IntN(20),
			Delta:      rng.IntN(5) - 2,
		})
	}

	roster := make([]model.Pilot, 0, pilots)
	prefs := make(map[int]model.PreferenceList, pilots)
	for i := 1; i <= pilots; i++ {
		roster = append(roster, model.Pilot{
			Seniority:       i,
			Name:            fmt.Sprintf("P%03d", i),
			CurrentPosition: all[rng.IntN(len(all))],
		})

		var list model.PreferenceList
		for range rng.IntN(5) {
			if rng.IntN(6) == 0 {
				list = append(list, stay)
				continue
			}
			list = append(list, model.PreferenceEntry{Position: all[rng.IntN(len(all))]})
		}
		prefs[i] = list
	}

	return capacities, roster, prefs
}

func TestRun_Deterministic(t *testing.T) {
	for _, mode := range []model.Mode{model.ModeUpgrades, model.ModeOpen} {
		capacities, roster, prefs := randomScenario(42, 200)

		first, err := Run(context.Background(), capacities, roster, prefs, mode)
		require.NoError(t, err)
		second, err := Run(context.Background(), capacities, roster, prefs, mode)
		require.NoError(t, err)

		if diff := cmp.Diff(first, second); diff != "" {
			t.Errorf("mode %s: runs differ (-first +second):\n%s", mode, diff)
		}
	}
}

func TestRun_VacancyConservation(t *testing.T) {
	for seed := uint64(1); seed <= 20; seed++ {
		capacities, roster, prefs := randomScenario(seed, 150)

		result, err := Run(context.Background(), capacities, roster, prefs, model.ModeUpgrades)
		require.NoError(t, err)

		arrivals := make(map[string]int)
		departures := make(map[string]int)
		for _, award := range result.Awards {
			if award.Moved {
				arrivals[award.ToPosition.Key()]++
				departures[award.FromPosition.Key()]++
			}
		}

		keys := make(map[string]bool)
		for k := range result.Backfill {
			keys[k] = true
		}
		for k := range result.InitialSeeded {
			keys[k] = true
		}

		for key := range keys {
			assert.GreaterOrEqual(t, result.Seeded[key], 0, key)
			assert.GreaterOrEqual(t, result.Backfill[key], 0, key)

			consumed := result.InitialSeeded[key] - result.Seeded[key] - result.Backfill[key]
			assert.Equal(t, arrivals[key]-departures[key], consumed, "seed %d position %s", seed, key)
		}
	}
}

func TestRun_UpgradeFlagMatchesSeats(t *testing.T) {
	capacities, roster, prefs := randomScenario(7, 300)

	for _, mode := range []model.Mode{model.ModeUpgrades, model.ModeOpen} {
		result, err := Run(context.Background(), capacities, roster, prefs, mode)
		require.NoError(t, err)

		for _, award := range result.Awards {
			want := award.FromPosition.Seat == model.SeatFirstOfficer && award.ToPosition.Seat == model.SeatCaptain
			assert.Equal(t, want, award.Upgrade, "seniority %d", award.Seniority)
			if award.Upgrade {
				assert.Equal(t, model.NoteUpgrade, award.Note)
			}
			if !award.Moved {
				assert.Equal(t, award.FromPosition, award.ToPosition)
			}
		}
	}
}

func TestRun_JuniorPilotsNeverAffectSeniors(t *testing.T) {
	capacities, roster, prefs := randomScenario(99, 120)

	full, err := Run(context.Background(), capacities, roster, prefs, model.ModeUpgrades)
	require.NoError(t, err)

	for _, cut := range []int{1, 10, 60, 119} {
		prefix, err := Run(context.Background(), capacities, roster[:cut], prefs, model.ModeUpgrades)
		require.NoError(t, err)

		if diff := cmp.Diff(full.Awards[:cut], prefix.Awards); diff != "" {
			t.Errorf("awards for the %d most senior pilots changed when juniors were removed:\n%s", cut, diff)
		}
	}
}

func TestRun_DemotingAPilotLeavesSeniorsUnchanged(t *testing.T) {
	capacities, roster, prefs := randomScenario(5, 80)

	base, err := Run(context.Background(), capacities, roster, prefs, model.ModeUpgrades)
	require.NoError(t, err)

	// Move pilot 40 to the bottom of the list under a new seniority number
	demoted := slices.Clone(roster)
	demoted[39].Seniority = 1000
	demotedPrefs := make(map[int]model.PreferenceList, len(prefs))
	for k, v := range prefs {
		demotedPrefs[k] = v
	}
	demotedPrefs[1000] = prefs[40]
	delete(demotedPrefs, 40)

	result, err := Run(context.Background(), capacities, demoted, demotedPrefs, model.ModeUpgrades)
	require.NoError(t, err)

	if diff := cmp.Diff(base.Awards[:39], result.Awards[:39]); diff != "" {
		t.Errorf("pilots senior to the demoted pilot changed:\n%s", diff)
	}
}
