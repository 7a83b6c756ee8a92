package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Batch run operations",
}

// batchRunCmd represents the batch run subcommand
var batchRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the daily batch sequence once",
	Long: `Runs the full daily sequence for all portfolios: snapshot
rollforward, factor exposure calculation, and a stress scenario sweep.

Re-running a date is safe: every write is an upsert keyed by
(portfolio, date).

Example:
  go run ./cmd/riskd batch run
  go run ./cmd/riskd batch run --date 2026-08-27`,
	RunE: runBatch,
}

var (
	batchDate string
)

func init() {
	rootCmd.AddCommand(batchCmd)
	batchCmd.AddCommand(batchRunCmd)

	// Flags
	batchRunCmd.Flags().StringVar(&batchDate, "date", "", "calculation date (YYYY-MM-DD, default today)")
}

func runBatch(cmd *cobra.Command, args []string) error {
	fmt.Println("=== riskledger Batch Run ===")

	date := time.Now().UTC()
	if batchDate != "" {
		parsed, err := time.Parse("2006-01-02", batchDate)
		if err != nil {
			return fmt.Errorf("invalid --date (expected YYYY-MM-DD): %w", err)
		}
		date = parsed
	}

	svc, err := buildServices()
	if err != nil {
		return err
	}
	defer svc.close()

	report, err := svc.orchestrator.RunDailySequence(context.Background(), date)
	if err != nil {
		PrintError(fmt.Sprintf("Batch run failed: %v", err))
		return err
	}

	PrintDoubleSeparator()
	fmt.Printf("  Batch Run %s\n", report.RunDate.Format("2006-01-02"))
	PrintSeparator()
	PrintKeyValue("Run ID", report.RunID.String(), 12)
	PrintKeyValue("Portfolios", fmt.Sprintf("%d", report.Portfolios), 12)
	PrintKeyValue("Attempted", fmt.Sprintf("%d", report.Attempted), 12)
	PrintKeyValue("Succeeded", fmt.Sprintf("%d", report.Succeeded), 12)
	PrintKeyValue("Failed", fmt.Sprintf("%d", report.Failed), 12)
	PrintKeyValue("Skipped", fmt.Sprintf("%d", report.Skipped), 12)
	PrintKeyValue("Duration", report.Duration.Round(time.Millisecond).String(), 12)
	PrintSeparator()

	if report.Failed > 0 {
		fmt.Println("\nFailures by kind:")
		for kind, count := range report.ByKind {
			fmt.Printf("   %-12s %d\n", kind, count)
		}
		fmt.Println("\nFailed jobs:")
		for _, job := range report.Jobs {
			if job.Status == "failed" {
				fmt.Printf("   %s portfolio=%s kind=%s attempts=%d\n      %s\n",
					job.JobName, job.PortfolioID, job.ErrorKind, job.Attempts, job.ErrorMsg)
			}
		}
		PrintWarning("Batch run completed with failures")
		return nil
	}

	PrintSuccess("Batch run completed")
	return nil
}
