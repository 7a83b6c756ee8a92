package handlers

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/gorilla/mux"

	"github.com/quantrail/riskledger/internal/stress"
	"github.com/quantrail/riskledger/pkg/logger"
)

// StressHandler handles stress scenario endpoints
type StressHandler struct {
	engine *stress.Engine
	logger *logger.Logger
}

// NewStressHandler creates a new stress handler
func NewStressHandler(engine *stress.Engine, log *logger.Logger) *StressHandler {
	return &StressHandler{
		engine: engine,
		logger: log,
	}
}

// ListScenarios returns the named scenario library
// GET /api/scenarios
func (h *StressHandler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	names := stress.ScenarioNames()
	sort.Strings(names)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"scenarios": names,
	})
}

// ApplyRequest is an ad-hoc scenario: label -> fractional move
type ApplyRequest struct {
	Name   string             `json:"name"`
	Shocks map[string]float64 `json:"shocks"`
}

// Apply runs a custom scenario against the latest stored exposures.
// Contributions whose label resolves to no populated factor come back
// with available=false and a reason; they are excluded from the total.
// POST /api/portfolios/{id}/stress
func (h *StressHandler) Apply(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := parsePortfolioID(w, r)
	if !ok {
		return
	}

	var req ApplyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Shocks) == 0 {
		respondError(w, http.StatusBadRequest, "At least one shock is required")
		return
	}
	if req.Name == "" {
		req.Name = "custom"
	}

	result, err := h.engine.ApplyScenario(ctx, id, stress.Scenario{
		Name:   req.Name,
		Shocks: req.Shocks,
	})
	if err != nil {
		respondError(w, statusForError(err), "Failed to apply scenario")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// ApplyNamed runs a library scenario
// GET /api/portfolios/{id}/stress/{scenario}
func (h *StressHandler) ApplyNamed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := parsePortfolioID(w, r)
	if !ok {
		return
	}

	name := mux.Vars(r)["scenario"]
	if _, known := stress.NamedScenario(name); !known {
		respondError(w, http.StatusNotFound, "Unknown scenario")
		return
	}

	result, err := h.engine.ApplyNamed(ctx, id, name)
	if err != nil {
		respondError(w, statusForError(err), "Failed to apply scenario")
		return
	}

	respondJSON(w, http.StatusOK, result)
}
