// Package handlers implements the HTTP handlers for the ShiftCast
// planning API. All state lives behind the injected dependencies so the
// handlers themselves stay stateless.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/shiftcast/shiftcast/internal/catalog"
	"github.com/shiftcast/shiftcast/internal/notify"
	"github.com/shiftcast/shiftcast/internal/reasoning"
	"github.com/shiftcast/shiftcast/internal/sessions"
	"github.com/shiftcast/shiftcast/internal/store"
	"github.com/shiftcast/shiftcast/pkg/models"
)

// PlanningService is the slice of the planner the API depends on.
type PlanningService interface {
	PlanShift(ctx context.Context, req models.PlanningRequest) (*models.PlanningResponse, error)
	EvaluateShift(ctx context.Context, req models.EvaluationRequest) (*models.EvaluationResponse, error)
}

// Handlers holds all handler dependencies.
type Handlers struct {
	Planner  PlanningService
	Store    store.Store
	Catalog  *catalog.Catalog
	Sessions *sessions.Registry
	Notifier *notify.Service
}

// New creates a Handlers instance with all dependencies.
func New(p PlanningService, s store.Store, cat *catalog.Catalog, reg *sessions.Registry, n *notify.Service) *Handlers {
	return &Handlers{
		Planner:  p,
		Store:    s,
		Catalog:  cat,
		Sessions: reg,
		Notifier: n,
	}
}

// ── Planning Handlers ────────────────────────────────────────

// planRequest is the plan endpoint payload. When Preset names a catalog
// entry the scenario comes from that preset and any inline scenario is
// ignored; constraints, targets, and priority supplied inline still
// override the preset's values.
type planRequest struct {
	Preset string `json:"preset,omitempty"`
	models.PlanningRequest
}

// PlanShift runs one full planning session, persists the result, and
// returns it.
func (h *Handlers) PlanShift(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	planReq := req.PlanningRequest
	if req.Preset != "" {
		resolved, err := h.Catalog.Resolve(req.Preset)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		if req.OperatorPriority != "" {
			resolved.OperatorPriority = req.OperatorPriority
		}
		if req.Constraints != nil {
			resolved.Constraints = req.Constraints
		}
		if req.AlignmentTargets != nil {
			resolved.AlignmentTargets = req.AlignmentTargets
		}
		planReq = *resolved
	}

	sessionID := uuid.New().String()
	h.Sessions.Begin(sessionID, string(planReq.Scenario.Shift))

	resp, err := h.Planner.PlanShift(r.Context(), planReq)
	if err != nil {
		h.Sessions.Fail(sessionID, err)
		h.Notifier.DispatchAsync(notify.PlanFailed(sessionID, planReq.Scenario, err))
		respondError(w, statusForError(err), err.Error())
		return
	}

	if err := h.Store.SavePlan(r.Context(), resp); err != nil {
		h.Sessions.Fail(sessionID, err)
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	bestScore := 0.0
	if best := resp.BestEvaluation(); best != nil {
		bestScore = best.Scores.Aggregate()
	}
	h.Sessions.Complete(sessionID, resp.RequestID, bestScore)
	h.Notifier.DispatchAsync(notify.PlanCompleted(resp))

	log.Info().
		Str("request_id", resp.RequestID).
		Str("session_id", sessionID).
		Float64("best_score", bestScore).
		Msg("Plan persisted")
	respondJSON(w, http.StatusOK, resp)
}

// EvaluateShift compares a stored plan's predictions against observed
// shift data, persists the analysis, and returns it.
func (h *Handlers) EvaluateShift(w http.ResponseWriter, r *http.Request) {
	var req models.EvaluationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.Planner.EvaluateShift(r.Context(), req)
	if err != nil {
		respondError(w, statusForError(err), err.Error())
		return
	}

	if err := h.Store.SaveEvaluation(r.Context(), resp); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.Notifier.DispatchAsync(notify.EvaluationCompleted(resp))

	log.Info().
		Str("request_id", resp.RequestID).
		Str("prediction_quality", resp.PredictionQuality).
		Msg("Evaluation persisted")
	respondJSON(w, http.StatusOK, resp)
}

// ── Result Handlers ──────────────────────────────────────────

// ListResults returns newest-first plan summaries.
func (h *Handlers) ListResults(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	results, err := h.Store.ListPlans(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if results == nil {
		results = []store.PlanSummary{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"results": results,
		"count":   len(results),
	})
}

// GetResult returns a stored plan or evaluation by request id. Plans
// are tried first.
func (h *Handlers) GetResult(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	plan, err := h.Store.GetPlan(r.Context(), id)
	if err == nil {
		respondJSON(w, http.StatusOK, plan)
		return
	}
	if _, ok := err.(*store.ErrNotFound); !ok {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	eval, err := h.Store.GetEvaluation(r.Context(), id)
	if err == nil {
		respondJSON(w, http.StatusOK, eval)
		return
	}
	if _, ok := err.(*store.ErrNotFound); ok {
		respondError(w, http.StatusNotFound, "result not found: "+id)
		return
	}
	respondError(w, http.StatusInternalServerError, err.Error())
}

// ── Preset & Session Handlers ────────────────────────────────

// ListPresets returns the restaurant profiles and scenario presets.
func (h *Handlers) ListPresets(w http.ResponseWriter, r *http.Request) {
	if h.Catalog == nil {
		respondError(w, http.StatusServiceUnavailable, "preset catalog not initialized")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"profiles":  h.Catalog.ListProfiles(),
		"scenarios": h.Catalog.ListScenarios(),
	})
}

// ListSessions returns recent planning sessions, newest first.
func (h *Handlers) ListSessions(w http.ResponseWriter, r *http.Request) {
	list := h.Sessions.List()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": list,
		"count":    len(list),
	})
}

// ── Helpers ──────────────────────────────────────────────────

// statusForError maps planner and validation failures onto HTTP status
// codes.
func statusForError(err error) int {
	switch {
	case models.IsValidation(err):
		return http.StatusBadRequest
	case reasoning.IsQuota(err):
		return http.StatusTooManyRequests
	case reasoning.IsUnavailable(err):
		return http.StatusServiceUnavailable
	case reasoning.IsMalformed(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
