package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	env        string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "riskd",
	Short: "riskledger - portfolio risk analytics service",
	Long: `riskledger Unified CLI

Daily portfolio risk analytics: equity ledger rollforward, factor
exposure regression, and scenario stress testing.

Usage:
  go run ./cmd/riskd [command]

Examples:
  go run ./cmd/riskd api
  go run ./cmd/riskd batch run --date 2026-08-27
  go run ./cmd/riskd scheduler
  go run ./cmd/riskd status`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "development", "environment (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
