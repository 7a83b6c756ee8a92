package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/quantrail/riskledger/internal/contracts"
	"github.com/quantrail/riskledger/pkg/logger"
)

// PortfolioHandler handles portfolio and snapshot read endpoints
type PortfolioHandler struct {
	portfolios contracts.PortfolioRepository
	snapshots  contracts.SnapshotRepository
	logger     *logger.Logger
}

// NewPortfolioHandler creates a new portfolio handler
func NewPortfolioHandler(
	portfolios contracts.PortfolioRepository,
	snapshots contracts.SnapshotRepository,
	log *logger.Logger,
) *PortfolioHandler {
	return &PortfolioHandler{
		portfolios: portfolios,
		snapshots:  snapshots,
		logger:     log,
	}
}

// List returns all portfolios
// GET /api/portfolios
func (h *PortfolioHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	portfolios, err := h.portfolios.ListPortfolios(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list portfolios")
		respondError(w, http.StatusInternalServerError, "Failed to list portfolios")
		return
	}

	respondJSON(w, http.StatusOK, portfolios)
}

// Get returns a single portfolio
// GET /api/portfolios/{id}
func (h *PortfolioHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := parsePortfolioID(w, r)
	if !ok {
		return
	}

	portfolio, err := h.portfolios.GetPortfolio(ctx, id)
	if err != nil {
		respondError(w, statusForError(err), "Failed to retrieve portfolio")
		return
	}

	respondJSON(w, http.StatusOK, portfolio)
}

// GetSnapshots returns snapshot history for a portfolio.
// daily_pnl is null for days where the preceding trading day has no
// snapshot; consumers must treat null and zero as different values.
// GET /api/portfolios/{id}/snapshots?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *PortfolioHandler) GetSnapshots(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := parsePortfolioID(w, r)
	if !ok {
		return
	}

	from, to, ok := parseDateRange(w, r)
	if !ok {
		return
	}

	snapshots, err := h.snapshots.History(ctx, id, from, to)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get snapshot history")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve snapshots")
		return
	}

	respondJSON(w, http.StatusOK, snapshots)
}

// parsePortfolioID extracts and validates the {id} path variable
func parsePortfolioID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid portfolio id")
		return uuid.Nil, false
	}
	return id, true
}

// parseDateRange reads optional from/to query params, defaulting to
// the trailing 90 days.
func parseDateRange(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	now := time.Now().UTC().Truncate(24 * time.Hour)
	from := now.AddDate(0, 0, -90)
	to := now

	if s := r.URL.Query().Get("from"); s != "" {
		parsed, err := time.Parse("2006-01-02", s)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid 'from' date format (expected YYYY-MM-DD)")
			return time.Time{}, time.Time{}, false
		}
		from = parsed
	}

	if s := r.URL.Query().Get("to"); s != "" {
		parsed, err := time.Parse("2006-01-02", s)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid 'to' date format (expected YYYY-MM-DD)")
			return time.Time{}, time.Time{}, false
		}
		to = parsed
	}

	return from, to, true
}
