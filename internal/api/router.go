package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/quantrail/riskledger/internal/api/handlers"
	"github.com/quantrail/riskledger/pkg/config"
	"github.com/quantrail/riskledger/pkg/logger"
)

// NewRouter creates and configures the HTTP router
func NewRouter(
	cfg *config.Config,
	portfolioHandler *handlers.PortfolioHandler,
	exposureHandler *handlers.ExposureHandler,
	stressHandler *handlers.StressHandler,
	batchHandler *handlers.BatchHandler,
	hub *Hub,
	log *logger.Logger,
) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	// API v1
	api := r.PathPrefix("/api").Subrouter()

	// Portfolio endpoints
	api.HandleFunc("/portfolios", portfolioHandler.List).Methods("GET")
	api.HandleFunc("/portfolios/{id}", portfolioHandler.Get).Methods("GET")
	api.HandleFunc("/portfolios/{id}/snapshots", portfolioHandler.GetSnapshots).Methods("GET")

	// Factor exposure endpoints
	api.HandleFunc("/portfolios/{id}/exposures", exposureHandler.GetLatest).Methods("GET")
	api.HandleFunc("/portfolios/{id}/exposures/{date}", exposureHandler.GetByDate).Methods("GET")

	// Stress testing endpoints
	api.HandleFunc("/scenarios", stressHandler.ListScenarios).Methods("GET")
	api.HandleFunc("/portfolios/{id}/stress", stressHandler.Apply).Methods("POST")
	api.HandleFunc("/portfolios/{id}/stress/{scenario}", stressHandler.ApplyNamed).Methods("GET")

	// Batch endpoints
	api.HandleFunc("/batch/run", batchHandler.TriggerRun).Methods("POST")
	api.HandleFunc("/batch/runs/{run_id}/jobs", batchHandler.GetRunJobs).Methods("GET")
	api.HandleFunc("/batch/jobs", batchHandler.GetRecentJobs).Methods("GET")

	// Run progress stream
	r.HandleFunc("/ws/runs", hub.ServeWS)

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))
	r.Use(rateLimitMiddleware(rate.NewLimiter(rate.Limit(cfg.API.RateLimit), cfg.API.RateBurst)))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "riskledger-api",
	})
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// rateLimitMiddleware applies a server-wide request rate limit
func rateLimitMiddleware(limiter *rate.Limiter) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]string{
					"error": "Rate limit exceeded",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
