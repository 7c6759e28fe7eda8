package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/jakechorley/vacancy-cascade/pkg/db"
	"github.com/jakechorley/vacancy-cascade/pkg/metrics"
)

const runBody = `{
	"mode": "upgrades",
	"adjustments": ["LAX CA=+1"],
	"capacities": {
		"SEA CA": {"incumbents": 4, "target": 5},
		"SEA FO": {"incumbents": 6}
	},
	"roster": [
		{"seniority": 1, "name": "Ada", "current": "SEA FO"},
		{"seniority": 2, "name": "Bo", "current": {"base": "LAX", "seat": "FO"}},
		{"seniority": 3, "name": "Cy", "current": "LAX CA"}
	],
	"preferences": [
		{"sen": 1, "preferences": "SEA CA"},
		{"sen": 2, "preferences": ["SEA FO", "0"]},
		{"sen": 3, "preferences": ["LAX FO"]}
	]
}`

func newTestServer(t *testing.T, opts Options) (*httptest.Server, *db.MemoryStore) {
	t.Helper()
	store := db.NewMemoryStore()
	srv := httptest.NewServer(NewServer(store, metrics.New(), zap.NewNop(), opts).Router())
	t.Cleanup(srv.Close)
	return srv, store
}

func postRun(t *testing.T, srv *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(srv.URL+"/v1/runs", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestCreateRun(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	resp := postRun(t, srv, runBody)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	run := decode[RunResponse](t, resp)
	assert.NotEmpty(t, run.RunID)
	assert.Equal(t, "/v1/runs/"+run.RunID, resp.Header.Get("Location"))
	assert.Equal(t, "upgrades", run.Mode)
	assert.Equal(t, "LAX CA=+1", run.Adjustments)

	require.Len(t, run.Awards, 3)
	assert.Equal(t, AwardView{Seniority: 1, Name: "Ada", From: "SEA FO", To: "SEA CA", PreferenceRank: 1, Moved: true, Upgrade: true, Note: "Upgrade"}, run.Awards[0])
	assert.Equal(t, "SEA FO", run.Awards[1].To)
	assert.Equal(t, "Lateral", run.Awards[1].Note)
	// A captain moving to a first officer seat counts as lateral
	assert.Equal(t, "LAX FO", run.Awards[2].To)

	assert.Equal(t, SummaryView{Total: 3, Moved: 3, Upgrades: 1, Laterals: 2}, run.Summary)

	backfill := map[string]int{}
	for _, row := range run.Backfill {
		backfill[row.Position] = row.Count
	}
	assert.Equal(t, 1, backfill["LAX CA"])
	assert.Equal(t, 0, backfill["LAX FO"])
}

func TestCreateRun_DryRunIsNotSaved(t *testing.T) {
	srv, store := newTestServer(t, Options{})

	resp := postRun(t, srv, `{"dryRun": true, "capacities": [], "roster": [{"sen": 1, "current": "SEA FO"}]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	run := decode[RunResponse](t, resp)
	assert.Empty(t, run.RunID)
	require.Len(t, run.Awards, 1)
	assert.Equal(t, "Stayed", run.Awards[0].Note)

	runs, err := store.GetRuns(t.Context())
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestCreateRun_BadRequests(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	tests := map[string]string{
		"invalid json":       `{"roster": [`,
		"unknown mode":       `{"mode": "closed"}`,
		"invalid adjustment": `{"adjustments": ["SEA CA"]}`,
	}

	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			resp := postRun(t, srv, body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.NotEmpty(t, decode[errorResponse](t, resp).Error)
		})
	}
}

func TestCreateRun_BodyTooLarge(t *testing.T) {
	srv, _ := newTestServer(t, Options{MaxBodyBytes: 64})

	resp := postRun(t, srv, runBody)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestListAndGetRuns(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	created := decode[RunResponse](t, postRun(t, srv, runBody))

	resp, err := http.Get(srv.URL + "/v1/runs")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	list := decode[[]RunListItem](t, resp)
	require.Len(t, list, 1)
	assert.Equal(t, created.RunID, list[0].RunID)
	assert.Equal(t, 3, list[0].PilotCount)
	assert.Equal(t, 3, list[0].MovedCount)
	assert.Equal(t, "LAX CA=+1", list[0].Adjustments)

	resp, err = http.Get(srv.URL + "/v1/runs/" + created.RunID + "?category=upgrade")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	got := decode[RunResponse](t, resp)
	require.Len(t, got.Awards, 1)
	assert.Equal(t, "Ada", got.Awards[0].Name)
	assert.NotNil(t, got.CreatedAt)
	// Summary still covers every award
	assert.Equal(t, 3, got.Summary.Total)
}

func TestGetRun_Errors(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	resp, err := http.Get(srv.URL + "/v1/runs/missing")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	created := decode[RunResponse](t, postRun(t, srv, runBody))
	resp, err = http.Get(srv.URL + "/v1/runs/" + created.RunID + "?category=promoted")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/v1/runs?limit=-1")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetRunCSV(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	created := decode[RunResponse](t, postRun(t, srv, runBody))

	resp, err := http.Get(srv.URL + "/v1/runs/" + created.RunID + "/awards.csv")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv", resp.Header.Get("Content-Type"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Seniority,Name,From,To,Pref,Moved,Upgrade,Note", lines[0])
	assert.Equal(t, "1,Ada,SEA FO,SEA CA,1,Y,Y,Upgrade", lines[1])
}

func TestHealthAndMetrics(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	postRun(t, srv, runBody)
	postRun(t, srv, `{"mode": "closed"}`)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = io.Copy(&buf, resp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `vacancy_cascade_runs_total{mode="upgrades",outcome="success"} 1`)
	assert.Contains(t, buf.String(), `vacancy_cascade_runs_total{mode="invalid",outcome="failure"} 1`)
	assert.Contains(t, buf.String(), `vacancy_cascade_awards_total{note="Lateral"} 2`)
}

func TestCreateRun_UnknownModesShareOneFailureSeries(t *testing.T) {
	m := metrics.New()
	srv := httptest.NewServer(NewServer(db.NewMemoryStore(), m, zap.NewNop(), Options{}).Router())
	t.Cleanup(srv.Close)

	for i := 0; i < 20; i++ {
		resp := postRun(t, srv, fmt.Sprintf(`{"mode": "bogus-%d"}`, i))
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	}

	families, err := m.Registry().Gather()
	require.NoError(t, err)

	var series []string
	for _, family := range families {
		if family.GetName() != "vacancy_cascade_runs_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "mode" {
					series = append(series, label.GetValue())
				}
			}
			assert.Equal(t, 20.0, metric.GetCounter().GetValue())
		}
	}
	assert.Equal(t, []string{"invalid"}, series)
}

func TestWriteJSON_LogsEncodeFailure(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	s := NewServer(db.NewMemoryStore(), nil, zap.New(core), Options{})

	rec := httptest.NewRecorder()
	s.writeJSON(rec, http.StatusOK, map[string]any{"ch": make(chan int)})

	assert.Equal(t, http.StatusOK, rec.Code)
	entries := logs.FilterMessage("Failed to write response body").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zap.DebugLevel, entries[0].Level)
	assert.Contains(t, entries[0].ContextMap()["error"], "unsupported type")
}

func TestRateLimit(t *testing.T) {
	srv, _ := newTestServer(t, Options{RateLimit: 2})

	for i := 0; i < 2; i++ {
		resp, err := http.Get(srv.URL + "/v1/runs")
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp, err := http.Get(srv.URL + "/v1/runs")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "60", resp.Header.Get("Retry-After"))

	// Health checks are not limited
	resp, err = http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
