package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jmarlow/planpilot/internal/analysis"
	"github.com/jmarlow/planpilot/internal/logging"
	"github.com/jmarlow/planpilot/internal/orchestrator"
)

// maxRequestBody caps analysis request bodies. Weekly plans are small;
// anything near this size is not a plan.
const maxRequestBody = 1 << 20 // 1 MB

// errorResponse is the JSON shape of every non-200 answer.
type errorResponse struct {
	Error string `json:"error"`
}

// providersResponse is returned by GET /v1/providers.
type providersResponse struct {
	Providers []orchestrator.ProviderStatus `json:"providers"`
}

// statusResponse is returned by GET /v1/status.
type statusResponse struct {
	Version   string                        `json:"version"`
	Uptime    string                        `json:"uptime"`
	StartedAt time.Time                     `json:"startedAt"`
	Providers []orchestrator.ProviderStatus `json:"providers"`
}

// healthResponse is returned by GET /healthz.
type healthResponse struct {
	Status string `json:"status"`
}

// ═══════════════════════════════════════════════════════════════════════════════
// ANALYSIS HANDLERS
// ═══════════════════════════════════════════════════════════════════════════════

// handleFeasibility runs the weekly feasibility check.
// POST /v1/analysis/feasibility
func (s *Server) handleFeasibility(w http.ResponseWriter, r *http.Request) {
	var in analysis.FeasibilityInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.engine.CheckFeasibility(r.Context(), &in)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, analysis.ErrNoTasks) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleDowngrade proposes a lighter alternative for a missed task.
// POST /v1/analysis/downgrade
func (s *Server) handleDowngrade(w http.ResponseWriter, r *http.Request) {
	var in analysis.DowngradeInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.engine.SuggestTaskDowngrade(r.Context(), &in))
}

// handleOverthinking runs the plan-fiddling guard.
// POST /v1/analysis/overthinking
func (s *Server) handleOverthinking(w http.ResponseWriter, r *http.Request) {
	var in analysis.OverthinkingInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.engine.CheckOverthinking(r.Context(), &in))
}

// handleReflection writes the weekly reflection.
// POST /v1/analysis/reflection
func (s *Server) handleReflection(w http.ResponseWriter, r *http.Request) {
	var in analysis.ReflectionInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.engine.GenerateWeeklyReflection(r.Context(), &in))
}

// ═══════════════════════════════════════════════════════════════════════════════
// SERVICE HANDLERS
// ═══════════════════════════════════════════════════════════════════════════════

// handleProviders reports the orchestration order and per-provider
// availability.
// GET /v1/providers
func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, providersResponse{Providers: s.orch.Status()})
}

// handleStatus reports service identity and uptime.
// GET /v1/status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		Version:   s.version,
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		StartedAt: s.startTime.UTC(),
		Providers: s.orch.Status(),
	})
}

// handleHealth is the liveness probe.
// GET /healthz
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

// ═══════════════════════════════════════════════════════════════════════════════
// JSON HELPERS
// ═══════════════════════════════════════════════════════════════════════════════

// decodeJSON reads one JSON value from the request body, bounded by
// maxRequestBody.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		// Headers are gone; nothing left to do but log.
		logging.Error("Failed to encode response body: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
