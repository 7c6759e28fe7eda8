package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jakechorley/vacancy-cascade/pkg/core/normalizer"
	"github.com/jakechorley/vacancy-cascade/pkg/core/report"
	"github.com/jakechorley/vacancy-cascade/pkg/db"
)

// Pilot 1 upgrades into the seeded SEA CA seat, pilot 2 takes the SEA FO backfill
// and pilot 3 has no preferences.
const sampleBundle = `{
	"capacities": [
		{"base": "SEA", "seat": "CA", "incumbents": 4, "delta": 1},
		{"base": "SEA", "seat": "FO", "incumbents": 6},
		{"base": "LAX", "seat": "FO", "incumbents": 5}
	],
	"roster": [
		{"seniority": 1, "name": "Ada", "base": "SEA", "seat": "FO"},
		{"seniority": 2, "name": "Bo", "base": "LAX", "seat": "FO"},
		{"seniority": 3, "name": "Cy", "base": "LAX", "seat": "CA"}
	],
	"preferences": {
		"1": ["SEA CA"],
		"2": ["SEA FO", "0"]
	}
}`

func sampleRawInputs(t *testing.T) *normalizer.RawInputs {
	t.Helper()
	var raw normalizer.RawInputs
	require.NoError(t, json.Unmarshal([]byte(sampleBundle), &raw))
	return &raw
}

type mockInputSource struct {
	raw   *normalizer.RawInputs
	err   error
	calls int
}

func (m *mockInputSource) LoadInputs(ctx context.Context) (*normalizer.RawInputs, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.raw, nil
}

type mockRunWriter struct {
	runs     []db.Run
	awards   [][]db.AwardRecord
	backfill [][]db.BackfillRecord
	err      error
}

func (m *mockRunWriter) InsertRun(ctx context.Context, run *db.Run, awards []db.AwardRecord, backfill []db.BackfillRecord) error {
	if m.err != nil {
		return m.err
	}
	m.runs = append(m.runs, *run)
	m.awards = append(m.awards, awards)
	m.backfill = append(m.backfill, backfill)
	return nil
}

type mockPublisher struct {
	spreadsheetID string
	tabTitle      string
	report        *report.Report
	err           error
}

func (m *mockPublisher) PublishAwards(ctx context.Context, spreadsheetID, tabTitle string, r *report.Report) error {
	if m.err != nil {
		return m.err
	}
	m.spreadsheetID = spreadsheetID
	m.tabTitle = tabTitle
	m.report = r
	return nil
}
