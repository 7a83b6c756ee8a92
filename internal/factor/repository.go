package factor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quantrail/riskledger/internal/contracts"
)

// Repository persists factor exposure runs
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new exposure repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SaveRun stores a complete run inside one transaction, replacing any
// previous run for the same (portfolio, date). A run is always the
// full factor set of one basis version, so stale factors from an
// earlier basis can never linger next to fresh ones.
func (r *Repository) SaveRun(ctx context.Context, run *contracts.ExposureRun) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		"DELETE FROM risk.factor_exposures WHERE portfolio_id = $1 AND calculation_date = $2",
		run.PortfolioID, run.CalculationDate,
	)
	if err != nil {
		return fmt.Errorf("failed to delete old portfolio exposures: %w", err)
	}

	_, err = tx.Exec(ctx,
		"DELETE FROM risk.position_factor_exposures WHERE portfolio_id = $1 AND calculation_date = $2",
		run.PortfolioID, run.CalculationDate,
	)
	if err != nil {
		return fmt.Errorf("failed to delete old position exposures: %w", err)
	}

	portfolioQuery := `
		INSERT INTO risk.factor_exposures (
			portfolio_id, factor_name, calculation_date, beta, dollar_exposure, quality, basis_version
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for _, e := range run.Portfolio {
		_, err := tx.Exec(ctx, portfolioQuery,
			e.PortfolioID, e.FactorName, e.CalculationDate, e.Beta, e.DollarExposure, e.Quality, e.BasisVersion,
		)
		if err != nil {
			return fmt.Errorf("failed to insert portfolio exposure: %w", err)
		}
	}

	positionQuery := `
		INSERT INTO risk.position_factor_exposures (
			portfolio_id, symbol, factor_name, calculation_date, beta, dollar_exposure, quality, basis_version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	for _, e := range run.Positions {
		_, err := tx.Exec(ctx, positionQuery,
			e.PortfolioID, e.Symbol, e.FactorName, e.CalculationDate, e.Beta, e.DollarExposure, e.Quality, e.BasisVersion,
		)
		if err != nil {
			return fmt.Errorf("failed to insert position exposure: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetRun retrieves the run stored for a (portfolio, date)
func (r *Repository) GetRun(ctx context.Context, portfolioID uuid.UUID, date time.Time) (*contracts.ExposureRun, error) {
	return r.loadRun(ctx, portfolioID, date)
}

// GetLatestRun retrieves the most recent run for a portfolio
func (r *Repository) GetLatestRun(ctx context.Context, portfolioID uuid.UUID) (*contracts.ExposureRun, error) {
	var latest *time.Time
	err := r.pool.QueryRow(ctx,
		"SELECT MAX(calculation_date) FROM risk.factor_exposures WHERE portfolio_id = $1",
		portfolioID,
	).Scan(&latest)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to find latest run: %w", err)
	}
	if latest == nil {
		return nil, contracts.ErrNoExposures
	}

	return r.loadRun(ctx, portfolioID, *latest)
}

func (r *Repository) loadRun(ctx context.Context, portfolioID uuid.UUID, date time.Time) (*contracts.ExposureRun, error) {
	run := &contracts.ExposureRun{
		PortfolioID:     portfolioID,
		CalculationDate: date,
	}

	rows, err := r.pool.Query(ctx, `
		SELECT portfolio_id, factor_name, calculation_date, beta, dollar_exposure, quality, basis_version
		FROM risk.factor_exposures
		WHERE portfolio_id = $1 AND calculation_date = $2
		ORDER BY factor_name ASC
	`, portfolioID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolio exposures: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e contracts.FactorExposure
		if err := rows.Scan(&e.PortfolioID, &e.FactorName, &e.CalculationDate, &e.Beta, &e.DollarExposure, &e.Quality, &e.BasisVersion); err != nil {
			return nil, fmt.Errorf("failed to scan portfolio exposure: %w", err)
		}
		run.Portfolio = append(run.Portfolio, e)
		run.BasisVersion = e.BasisVersion
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	if len(run.Portfolio) == 0 {
		return nil, contracts.ErrNoExposures
	}

	posRows, err := r.pool.Query(ctx, `
		SELECT portfolio_id, symbol, factor_name, calculation_date, beta, dollar_exposure, quality, basis_version
		FROM risk.position_factor_exposures
		WHERE portfolio_id = $1 AND calculation_date = $2
		ORDER BY symbol ASC, factor_name ASC
	`, portfolioID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to query position exposures: %w", err)
	}
	defer posRows.Close()

	for posRows.Next() {
		var e contracts.PositionFactorExposure
		if err := posRows.Scan(&e.PortfolioID, &e.Symbol, &e.FactorName, &e.CalculationDate, &e.Beta, &e.DollarExposure, &e.Quality, &e.BasisVersion); err != nil {
			return nil, fmt.Errorf("failed to scan position exposure: %w", err)
		}
		run.Positions = append(run.Positions, e)
	}

	return run, posRows.Err()
}
