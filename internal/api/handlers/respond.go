package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/quantrail/riskledger/internal/contracts"
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// statusForError maps domain sentinels to HTTP status codes
func statusForError(err error) int {
	switch {
	case errors.Is(err, contracts.ErrPortfolioNotFound),
		errors.Is(err, contracts.ErrSnapshotNotFound),
		errors.Is(err, contracts.ErrNoExposures):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
