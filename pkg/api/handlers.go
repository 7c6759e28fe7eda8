package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/jakechorley/vacancy-cascade/pkg/core/model"
	"github.com/jakechorley/vacancy-cascade/pkg/core/normalizer"
	"github.com/jakechorley/vacancy-cascade/pkg/core/report"
	"github.com/jakechorley/vacancy-cascade/pkg/core/services"
	"github.com/jakechorley/vacancy-cascade/pkg/db"
	"github.com/jakechorley/vacancy-cascade/pkg/metrics"
)

// RunRequest takes the same raw shapes as the input files, plus the mode and any adjustments
type RunRequest struct {
	normalizer.RawInputs
	Mode        string   `json:"mode"`
	Adjustments []string `json:"adjustments"`
	// DryRun skips saving the run
	DryRun bool `json:"dryRun"`
}

// AwardView is an award as returned by the API
type AwardView struct {
	Seniority      int    `json:"seniority"`
	Name           string `json:"name"`
	From           string `json:"from"`
	To             string `json:"to"`
	PreferenceRank int    `json:"preferenceRank"`
	Moved          bool   `json:"moved"`
	Upgrade        bool   `json:"upgrade"`
	Note           string `json:"note"`
}

// BackfillView is one unfilled backfill count
type BackfillView struct {
	Position string `json:"position"`
	Count    int    `json:"count"`
}

// SummaryView mirrors report.Summary
type SummaryView struct {
	Total        int `json:"total"`
	Moved        int `json:"moved"`
	Upgrades     int `json:"upgrades"`
	Laterals     int `json:"laterals"`
	Stayed       int `json:"stayed"`
	StayedListed int `json:"stayedListed"`
}

// RunResponse is returned by POST /v1/runs and GET /v1/runs/{runID}
type RunResponse struct {
	RunID       string         `json:"runId,omitempty"`
	Mode        string         `json:"mode"`
	CreatedAt   *time.Time     `json:"createdAt,omitempty"`
	Adjustments string         `json:"adjustments,omitempty"`
	Awards      []AwardView    `json:"awards"`
	Backfill    []BackfillView `json:"backfill"`
	Summary     SummaryView    `json:"summary"`
}

// RunListItem is one entry of GET /v1/runs
type RunListItem struct {
	RunID       string    `json:"runId"`
	Mode        string    `json:"mode"`
	CreatedAt   time.Time `json:"createdAt"`
	PilotCount  int       `json:"pilotCount"`
	MovedCount  int       `json:"movedCount"`
	Adjustments string    `json:"adjustments,omitempty"`
}

// staticSource hands a decoded request body to the services layer
type staticSource struct {
	raw *normalizer.RawInputs
}

func (s staticSource) LoadInputs(ctx context.Context) (*normalizer.RawInputs, error) {
	return s.raw, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)

	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "request body too large"})
			return
		}
		s.writeBadRequest(w, fmt.Errorf("invalid request body: %w", err))
		return
	}

	mode, err := model.ParseMode(req.Mode)
	if err != nil {
		s.metrics.ObserveFailure(metrics.ModeLabelInvalid)
		s.writeBadRequest(w, err)
		return
	}

	adjustments, err := services.ParseAdjustments(req.Adjustments)
	if err != nil {
		s.metrics.ObserveFailure(mode)
		s.writeBadRequest(w, err)
		return
	}

	start := time.Now()
	result, err := services.RunAwards(r.Context(), staticSource{raw: &req.RawInputs}, s.store, s.logger, services.RunAwardsOptions{
		Mode:        mode,
		Adjustments: adjustments,
		Save:        !req.DryRun,
	})
	if err != nil {
		s.metrics.ObserveFailure(mode)
		s.logger.Error("Run failed", zap.Error(err))
		s.writeInternalError(w)
		return
	}
	s.metrics.ObserveRun(mode, time.Since(start), result.Report.Awards, result.Report.BackfillMap())

	resp := newRunResponse(result.Report)
	resp.RunID = result.RunID
	resp.Adjustments = services.FormatAdjustments(adjustments)

	status := http.StatusOK
	if result.RunID != "" {
		status = http.StatusCreated
		w.Header().Set("Location", "/v1/runs/"+result.RunID)
	}
	s.writeJSON(w, status, resp)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.writeBadRequest(w, fmt.Errorf("limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	runs, err := services.ListRuns(r.Context(), s.store, s.logger, limit)
	if err != nil {
		s.logger.Error("Listing runs failed", zap.Error(err))
		s.writeInternalError(w)
		return
	}

	items := make([]RunListItem, 0, len(runs))
	for _, run := range runs {
		items = append(items, RunListItem{
			RunID:       run.ID,
			Mode:        run.Mode,
			CreatedAt:   run.CreatedAt,
			PilotCount:  run.PilotCount,
			MovedCount:  run.MovedCount,
			Adjustments: run.Adjustments,
		})
	}
	s.writeJSON(w, http.StatusOK, items)
}

// handleGetRun accepts optional q and category query parameters that filter the awards
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	stored, ok := s.loadRun(w, r)
	if !ok {
		return
	}

	category, err := report.ParseCategory(r.URL.Query().Get("category"))
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}

	filtered := *stored.Report
	filtered.Awards = report.Filter{Query: r.URL.Query().Get("q"), Category: category}.Apply(stored.Report.Awards)

	resp := newRunResponse(&filtered)
	resp.RunID = stored.Run.ID
	resp.CreatedAt = &stored.Run.CreatedAt
	resp.Adjustments = stored.Run.Adjustments
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetRunCSV(w http.ResponseWriter, r *http.Request) {
	stored, ok := s.loadRun(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "awards-"+stored.Run.ID+".csv"))
	if err := report.WriteCSV(w, stored.Report.Awards); err != nil {
		s.logger.Error("Writing CSV failed", zap.Error(err))
	}
}

func (s *Server) loadRun(w http.ResponseWriter, r *http.Request) (*services.StoredRun, bool) {
	stored, err := services.GetRun(r.Context(), s.store, s.logger, chi.URLParam(r, "runID"))
	if errors.Is(err, db.ErrRunNotFound) {
		s.writeNotFound(w)
		return nil, false
	}
	if err != nil {
		s.logger.Error("Loading run failed", zap.Error(err))
		s.writeInternalError(w)
		return nil, false
	}
	return stored, true
}

func newRunResponse(r *report.Report) RunResponse {
	awards := make([]AwardView, 0, len(r.Awards))
	for _, a := range r.Awards {
		awards = append(awards, AwardView{
			Seniority:      a.Seniority,
			Name:           a.Name,
			From:           a.FromPosition.String(),
			To:             a.ToPosition.String(),
			PreferenceRank: a.PreferenceRank,
			Moved:          a.Moved,
			Upgrade:        a.Upgrade,
			Note:           string(a.Note),
		})
	}

	backfill := make([]BackfillView, 0, len(r.Backfill))
	for _, row := range r.Backfill {
		backfill = append(backfill, BackfillView{Position: row.Position.String(), Count: row.Count})
	}

	return RunResponse{
		Mode:     string(r.Mode),
		Awards:   awards,
		Backfill: backfill,
		Summary:  SummaryView(r.Summary),
	}
}
