package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/quantrail/riskledger/internal/api"
	"github.com/quantrail/riskledger/internal/api/handlers"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long: `Starts the REST API server.

Endpoints:
  GET  /health                                    - Health check
  GET  /api/portfolios                            - List portfolios
  GET  /api/portfolios/{id}                       - Portfolio detail
  GET  /api/portfolios/{id}/snapshots             - Snapshot history
  GET  /api/portfolios/{id}/exposures             - Latest factor exposures
  GET  /api/portfolios/{id}/exposures/{date}      - Exposures by date
  GET  /api/scenarios                             - Named scenario library
  POST /api/portfolios/{id}/stress                - Apply custom scenario
  GET  /api/portfolios/{id}/stress/{scenario}     - Apply named scenario
  POST /api/batch/run                             - Trigger batch run
  GET  /api/batch/runs/{run_id}/jobs              - Run audit records
  GET  /api/batch/jobs                            - Recent job records
  WS   /ws/runs                                   - Run progress stream

Example:
  go run ./cmd/riskd api
  go run ./cmd/riskd api --port 8090`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (overrides PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== riskledger API Server ===")

	svc, err := buildServices()
	if err != nil {
		return err
	}
	defer svc.close()

	if apiPort != "" {
		svc.cfg.Port = apiPort
	}

	log := svc.logger
	log.WithFields(map[string]interface{}{
		"port": svc.cfg.Port,
		"env":  svc.cfg.Env,
	}).Info("Initializing API server")

	// Run progress hub, also fed by API-triggered batch runs
	hub := api.NewHub(log)
	svc.orchestrator.SetNotifier(hub)

	portfolioHandler := handlers.NewPortfolioHandler(svc.portfolios, svc.snapshots, log)
	exposureHandler := handlers.NewExposureHandler(svc.exposures, log)
	stressHandler := handlers.NewStressHandler(svc.stressEngine, log)
	batchHandler := handlers.NewBatchHandler(svc.orchestrator, svc.batchRepo, log)

	router := api.NewRouter(svc.cfg, portfolioHandler, exposureHandler, stressHandler, batchHandler, hub, log)
	server := api.New(svc.cfg, log, router)

	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	log.Info("API server started successfully")
	fmt.Printf("\n✅ Server running on http://localhost:%s\n", svc.cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
