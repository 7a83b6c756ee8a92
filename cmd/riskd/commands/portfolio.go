package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

// portfolioCmd represents the portfolio command
var portfolioCmd = &cobra.Command{
	Use:   "portfolio",
	Short: "Portfolio operations",
}

// portfolioListCmd represents the portfolio list subcommand
var portfolioListCmd = &cobra.Command{
	Use:   "list",
	Short: "List portfolios",
	RunE:  runPortfolioList,
}

// portfolioCreateCmd represents the portfolio create subcommand
var portfolioCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a portfolio",
	Long: `Creates a portfolio. Initial equity seeds the first snapshot
and is immutable afterwards.

Example:
  go run ./cmd/riskd portfolio create --name growth-book --owner desk1 --equity 485000`,
	RunE: runPortfolioCreate,
}

var (
	portfolioName   string
	portfolioOwner  string
	portfolioEquity string
)

func init() {
	rootCmd.AddCommand(portfolioCmd)
	portfolioCmd.AddCommand(portfolioListCmd)
	portfolioCmd.AddCommand(portfolioCreateCmd)

	// Flags
	portfolioCreateCmd.Flags().StringVar(&portfolioName, "name", "", "portfolio name (required)")
	portfolioCreateCmd.Flags().StringVar(&portfolioOwner, "owner", "", "portfolio owner")
	portfolioCreateCmd.Flags().StringVar(&portfolioEquity, "equity", "", "initial equity (required)")
	portfolioCreateCmd.MarkFlagRequired("name")
	portfolioCreateCmd.MarkFlagRequired("equity")
}

func runPortfolioList(cmd *cobra.Command, args []string) error {
	svc, err := buildServices()
	if err != nil {
		return err
	}
	defer svc.close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	portfolios, err := svc.portfolios.ListPortfolios(ctx)
	if err != nil {
		return fmt.Errorf("list portfolios: %w", err)
	}

	if len(portfolios) == 0 {
		PrintInfo("No portfolios")
		return nil
	}

	fmt.Println()
	widths := []int{36, 20, 12, 16}
	PrintTableHeader([]string{"ID", "Name", "Owner", "Initial Equity"}, widths)
	for _, p := range portfolios {
		PrintTableRow([]string{
			p.ID.String(),
			p.Name,
			p.Owner,
			p.InitialEquity.StringFixed(2),
		}, widths)
	}
	fmt.Println()

	return nil
}

func runPortfolioCreate(cmd *cobra.Command, args []string) error {
	equity, err := decimal.NewFromString(portfolioEquity)
	if err != nil {
		return fmt.Errorf("invalid --equity: %w", err)
	}
	if equity.Sign() <= 0 {
		return fmt.Errorf("--equity must be positive")
	}

	svc, err := buildServices()
	if err != nil {
		return err
	}
	defer svc.close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	p, err := svc.portfolios.CreatePortfolio(ctx, portfolioName, portfolioOwner, equity)
	if err != nil {
		return fmt.Errorf("create portfolio: %w", err)
	}

	PrintSuccess(fmt.Sprintf("Portfolio created: %s (%s)", p.Name, p.ID))
	return nil
}
