package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/quantrail/riskledger/internal/batch"
	"github.com/quantrail/riskledger/pkg/logger"
)

// BatchHandler handles batch run and audit endpoints
type BatchHandler struct {
	orchestrator *batch.Orchestrator
	recorder     batch.JobRecorder
	logger       *logger.Logger
}

// NewBatchHandler creates a new batch handler
func NewBatchHandler(orchestrator *batch.Orchestrator, recorder batch.JobRecorder, log *logger.Logger) *BatchHandler {
	return &BatchHandler{
		orchestrator: orchestrator,
		recorder:     recorder,
		logger:       log,
	}
}

// TriggerRequest requests a batch run for one date
type TriggerRequest struct {
	Date string `json:"date"` // YYYY-MM-DD, defaults to today
}

// TriggerRun starts a batch run in the background. Progress streams
// over /ws/runs; the final state lands in the batch_jobs audit table.
// POST /api/batch/run
func (h *BatchHandler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	// Empty body means "run today"
	var req TriggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	date := time.Now().UTC()
	if req.Date != "" {
		parsed, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid date format (expected YYYY-MM-DD)")
			return
		}
		date = parsed
	}

	go func() {
		report, err := h.orchestrator.RunDailySequence(context.Background(), date)
		if err != nil {
			h.logger.WithError(err).Error("Triggered batch run failed")
			return
		}
		h.logger.WithFields(map[string]interface{}{
			"run_id":    report.RunID,
			"succeeded": report.Succeeded,
			"failed":    report.Failed,
		}).Info("Triggered batch run finished")
	}()

	respondJSON(w, http.StatusAccepted, map[string]string{
		"status": "started",
		"date":   date.Format("2006-01-02"),
	})
}

// GetRunJobs returns audit records for one run
// GET /api/batch/runs/{run_id}/jobs
func (h *BatchHandler) GetRunJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	runID, err := uuid.Parse(mux.Vars(r)["run_id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid run id")
		return
	}

	jobs, err := h.recorder.GetRunJobs(ctx, runID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get run jobs")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve run jobs")
		return
	}

	respondJSON(w, http.StatusOK, jobs)
}

// GetRecentJobs returns the most recent audit records across runs
// GET /api/batch/jobs?limit=N
func (h *BatchHandler) GetRecentJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		parsed, err := strconv.Atoi(s)
		if err != nil || parsed < 1 || parsed > 500 {
			respondError(w, http.StatusBadRequest, "Invalid limit (1-500)")
			return
		}
		limit = parsed
	}

	jobs, err := h.recorder.GetRecentJobs(ctx, limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get recent jobs")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve jobs")
		return
	}

	respondJSON(w, http.StatusOK, jobs)
}
