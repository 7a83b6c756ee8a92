package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show recent batch job records",
	Long: `Shows the most recent batch job audit records.

Example:
  go run ./cmd/riskd status
  go run ./cmd/riskd status --limit 50`,
	RunE: runStatus,
}

var (
	statusLimit int
)

func init() {
	rootCmd.AddCommand(statusCmd)

	// Flags
	statusCmd.Flags().IntVar(&statusLimit, "limit", 20, "number of records to show")
}

func runStatus(cmd *cobra.Command, args []string) error {
	fmt.Println("=== riskledger Batch Status ===")

	svc, err := buildServices()
	if err != nil {
		return err
	}
	defer svc.close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	health, err := svc.db.HealthCheck(ctx)
	if err != nil {
		PrintWarning(fmt.Sprintf("Database unhealthy: %v", err))
	} else {
		PrintKeyValue("Database", fmt.Sprintf("healthy (%v)", health.ResponseTime.Round(time.Millisecond)), 12)
		PrintKeyValue("Pool", fmt.Sprintf("%d/%d conns (%d idle)",
			health.Stats.TotalConns, health.Stats.MaxConns, health.Stats.IdleConns), 12)
	}

	jobs, err := svc.batchRepo.GetRecentJobs(ctx, statusLimit)
	if err != nil {
		return fmt.Errorf("fetch recent jobs: %w", err)
	}

	if len(jobs) == 0 {
		PrintInfo("No batch jobs recorded yet")
		return nil
	}

	fmt.Println()
	widths := []int{10, 22, 36, 9, 8, 10}
	PrintTableHeader([]string{"Date", "Job", "Portfolio", "Status", "Attempts", "Kind"}, widths)

	for _, job := range jobs {
		PrintTableRow([]string{
			job.RunDate.Format("2006-01-02"),
			job.JobName,
			job.PortfolioID.String(),
			string(job.Status),
			fmt.Sprintf("%d", job.Attempts),
			string(job.ErrorKind),
		}, widths)
	}

	fmt.Println()
	return nil
}
