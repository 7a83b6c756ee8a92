package portfolio

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/quantrail/riskledger/internal/contracts"
)

// Repository handles portfolio and position persistence
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new portfolio repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetPortfolio retrieves a portfolio by id
func (r *Repository) GetPortfolio(ctx context.Context, id uuid.UUID) (*contracts.Portfolio, error) {
	query := `
		SELECT id, name, owner, initial_equity, created_at
		FROM portfolio.portfolios
		WHERE id = $1
	`

	var p contracts.Portfolio
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.Name, &p.Owner, &p.InitialEquity, &p.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, contracts.ErrPortfolioNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get portfolio: %w", err)
	}

	return &p, nil
}

// ListPortfolios retrieves all portfolios
func (r *Repository) ListPortfolios(ctx context.Context) ([]contracts.Portfolio, error) {
	query := `
		SELECT id, name, owner, initial_equity, created_at
		FROM portfolio.portfolios
		ORDER BY created_at ASC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolios: %w", err)
	}
	defer rows.Close()

	portfolios := make([]contracts.Portfolio, 0)
	for rows.Next() {
		var p contracts.Portfolio
		if err := rows.Scan(&p.ID, &p.Name, &p.Owner, &p.InitialEquity, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan portfolio: %w", err)
		}
		portfolios = append(portfolios, p)
	}

	return portfolios, rows.Err()
}

// GetPositions retrieves positions for a portfolio as of a date
func (r *Repository) GetPositions(ctx context.Context, portfolioID uuid.UUID, asOf time.Time) ([]contracts.Position, error) {
	query := `
		SELECT portfolio_id, symbol, quantity, side
		FROM portfolio.positions
		WHERE portfolio_id = $1
		  AND effective_from <= $2
		  AND (effective_to IS NULL OR effective_to > $2)
		ORDER BY symbol ASC
	`

	rows, err := r.pool.Query(ctx, query, portfolioID, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	positions := make([]contracts.Position, 0)
	for rows.Next() {
		var pos contracts.Position
		if err := rows.Scan(&pos.PortfolioID, &pos.Symbol, &pos.Quantity, &pos.Side); err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		positions = append(positions, pos)
	}

	return positions, rows.Err()
}

// CreatePortfolio inserts a new portfolio. InitialEquity is immutable
// after this point.
func (r *Repository) CreatePortfolio(ctx context.Context, name, owner string, initialEquity decimal.Decimal) (*contracts.Portfolio, error) {
	query := `
		INSERT INTO portfolio.portfolios (id, name, owner, initial_equity, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING created_at
	`

	p := &contracts.Portfolio{
		ID:            uuid.New(),
		Name:          name,
		Owner:         owner,
		InitialEquity: initialEquity,
	}

	if err := r.pool.QueryRow(ctx, query, p.ID, p.Name, p.Owner, p.InitialEquity).Scan(&p.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to create portfolio: %w", err)
	}

	return p, nil
}
