package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/quantrail/riskledger/internal/scheduler"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Start the batch scheduler",
	Long: `Starts the cron scheduler for the daily batch run.

The daily batch fires after the close on weekdays (BATCH_SCHEDULE,
default "0 30 17 * * MON-FRI") and skips market holidays.

Example:
  go run ./cmd/riskd scheduler`,
	RunE: runScheduler,
}

func init() {
	rootCmd.AddCommand(schedulerCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== riskledger Scheduler ===")

	svc, err := buildServices()
	if err != nil {
		return err
	}
	defer svc.close()

	sched := scheduler.New(svc.logger)

	dailyJob := scheduler.NewDailyBatchJob(svc.orchestrator, svc.cfg.Batch.Schedule, svc.logger)
	if err := sched.AddJob(dailyJob); err != nil {
		return fmt.Errorf("add daily batch job: %w", err)
	}

	sched.Start()

	fmt.Printf("\n✅ Scheduler running (daily batch: %s)\n", svc.cfg.Batch.Schedule)
	fmt.Println("Press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	sched.Stop()
	return nil
}
