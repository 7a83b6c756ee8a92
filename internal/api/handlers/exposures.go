package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/quantrail/riskledger/internal/contracts"
	"github.com/quantrail/riskledger/pkg/logger"
)

// ExposureHandler handles factor exposure read endpoints
type ExposureHandler struct {
	exposures contracts.ExposureRepository
	logger    *logger.Logger
}

// NewExposureHandler creates a new exposure handler
func NewExposureHandler(exposures contracts.ExposureRepository, log *logger.Logger) *ExposureHandler {
	return &ExposureHandler{
		exposures: exposures,
		logger:    log,
	}
}

// GetLatest returns the most recent exposure run for a portfolio.
// Position rows carry a quality flag; a zero beta with
// quality=insufficient_data was never computed.
// GET /api/portfolios/{id}/exposures
func (h *ExposureHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := parsePortfolioID(w, r)
	if !ok {
		return
	}

	run, err := h.exposures.GetLatestRun(ctx, id)
	if err != nil {
		respondError(w, statusForError(err), "Failed to retrieve exposures")
		return
	}

	respondJSON(w, http.StatusOK, run)
}

// GetByDate returns the exposure run for a specific calculation date
// GET /api/portfolios/{id}/exposures/{date}
func (h *ExposureHandler) GetByDate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := parsePortfolioID(w, r)
	if !ok {
		return
	}

	date, err := time.Parse("2006-01-02", mux.Vars(r)["date"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid date format (expected YYYY-MM-DD)")
		return
	}

	run, err := h.exposures.GetRun(ctx, id, date)
	if err != nil {
		respondError(w, statusForError(err), "Failed to retrieve exposures")
		return
	}

	respondJSON(w, http.StatusOK, run)
}
