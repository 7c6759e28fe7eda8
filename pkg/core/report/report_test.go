package report

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/vacancy-cascade/pkg/core/cascade"
	"github.com/jakechorley/vacancy-cascade/pkg/core/model"
)

func sampleAwards() []model.Award {
	return []model.Award{
		{
			Seniority: 1, Name: "Ada Lovelace",
			FromPosition: model.NewPosition("SEA", "FO"), ToPosition: model.NewPosition("SEA", "CA"),
			PreferenceRank: 1, Moved: true, Upgrade: true, Note: model.NoteUpgrade,
		},
		{
			Seniority: 2, Name: "Grace Hopper",
			FromPosition: model.NewPosition("LAX", "FO"), ToPosition: model.NewPosition("SEA", "FO"),
			PreferenceRank: 2, Moved: true, Note: model.NoteLateral,
		},
		{
			Seniority: 3, Name: "Alan Turing",
			FromPosition: model.NewPosition("SEA", "CA"), ToPosition: model.NewPosition("SEA", "CA"),
			PreferenceRank: 1, Note: model.NoteStayedListed,
		},
		{
			Seniority: 4, Name: "Émile Zola",
			FromPosition: model.NewPosition("DEN", "FO"), ToPosition: model.NewPosition("DEN", "FO"),
			Note: model.NoteStayed,
		},
	}
}

func TestBuild_SortsBackfillAndSummarizes(t *testing.T) {
	result := &cascade.Result{
		Awards:   sampleAwards(),
		Backfill: map[string]int{"SEA|FO": 0, "LAX|FO": 1, "SEA|CA": 0},
	}

	r := Build(result, model.ModeUpgrades)

	require.Len(t, r.Backfill, 3)
	assert.Equal(t, model.NewPosition("LAX", "FO"), r.Backfill[0].Position)
	assert.Equal(t, 1, r.Backfill[0].Count)
	assert.Equal(t, model.NewPosition("SEA", "CA"), r.Backfill[1].Position)
	assert.Equal(t, model.NewPosition("SEA", "FO"), r.Backfill[2].Position)

	assert.Equal(t, Summary{Total: 4, Moved: 2, Upgrades: 1, Laterals: 1, Stayed: 1, StayedListed: 1}, r.Summary)
	assert.Equal(t, result.Backfill, r.BackfillMap())
	assert.Equal(t, model.ModeUpgrades, r.Mode)
}

func TestOccupancy(t *testing.T) {
	occupancy := Occupancy(sampleAwards())

	assert.Equal(t, []int{1, 3}, occupancy["SEA|CA"])
	assert.Equal(t, []int{2}, occupancy["SEA|FO"])
	assert.Equal(t, []int{4}, occupancy["DEN|FO"])
	assert.NotContains(t, occupancy, "LAX|FO")
}

func TestFilter_Categories(t *testing.T) {
	awards := sampleAwards()

	tests := []struct {
		category Category
		want     []int
	}{
		{CategoryAll, []int{1, 2, 3, 4}},
		{CategoryMoved, []int{1, 2}},
		{CategoryUpgrade, []int{1}},
		{CategoryLateral, []int{2}},
		{CategoryStayed, []int{3, 4}},
	}

	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			got := Filter{Category: tt.category}.Apply(awards)
			assert.Equal(t, tt.want, seniorities(got))
		})
	}
}

func TestFilter_QueryIsCaseInsensitive(t *testing.T) {
	awards := sampleAwards()

	assert.Equal(t, []int{2}, seniorities(Filter{Query: "HOPPER"}.Apply(awards)))
	assert.Equal(t, []int{1, 2, 3}, seniorities(Filter{Query: "sea"}.Apply(awards)))
	assert.Equal(t, []int{4}, seniorities(Filter{Query: "ÉMILE"}.Apply(awards)))
	assert.Equal(t, []int{1}, seniorities(Filter{Query: "upgrade", Category: CategoryMoved}.Apply(awards)))
	assert.Empty(t, Filter{Query: "nobody"}.Apply(awards))
}

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory("")
	require.NoError(t, err)
	assert.Equal(t, CategoryAll, c)

	c, err = ParseCategory(" Upgrade ")
	require.NoError(t, err)
	assert.Equal(t, CategoryUpgrade, c)

	_, err = ParseCategory("retired")
	assert.Error(t, err)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleAwards()[:2]))

	want := "Seniority,Name,From,To,Pref,Moved,Upgrade,Note\n" +
		"1,Ada Lovelace,SEA FO,SEA CA,1,Y,Y,Upgrade\n" +
		"2,Grace Hopper,LAX FO,SEA FO,2,Y,,Lateral\n"
	assert.Equal(t, want, buf.String())
}

func TestExportCSV_ReplacesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exports", "awards.csv")

	require.NoError(t, ExportCSV(path, sampleAwards()))
	require.NoError(t, ExportCSV(path, sampleAwards()[3:]))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Seniority,Name,From,To,Pref,Moved,Upgrade,Note\n4,Émile Zola,DEN FO,DEN FO,,,,Stayed\n", string(data))
}

func seniorities(awards []model.Award) []int {
	out := make([]int, 0, len(awards))
	for _, a := range awards {
		out = append(out, a.Seniority)
	}
	return out
}
