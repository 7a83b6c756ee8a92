package snapshot

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

// Repository persists daily portfolio snapshots
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new snapshot repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Upsert writes a snapshot keyed (portfolio_id, snapshot_date).
// Re-running a date overwrites the row in place, which keeps the
// rollforward idempotent.
func (r *Repository) Upsert(ctx context.Context, s *contracts.Snapshot) error {
	query := `
		INSERT INTO risk.portfolio_snapshots (
			portfolio_id, snapshot_date, total_value, equity_balance, daily_pnl, created_at
		) VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (portfolio_id, snapshot_date) DO UPDATE SET
			total_value = EXCLUDED.total_value,
			equity_balance = EXCLUDED.equity_balance,
			daily_pnl = EXCLUDED.daily_pnl
	`

	var pnl decimal.NullDecimal
	if s.DailyPnL != nil {
		pnl = decimal.NullDecimal{Decimal: *s.DailyPnL, Valid: true}
	}

	_, err := r.pool.Exec(ctx, query,
		s.PortfolioID, s.Date, s.TotalValue, s.EquityBalance, pnl,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert snapshot: %w", err)
	}

	return nil
}

// Get retrieves the snapshot for a specific (portfolio, date)
func (r *Repository) Get(ctx context.Context, portfolioID uuid.UUID, date time.Time) (*contracts.Snapshot, error) {
	query := `
		SELECT portfolio_id, snapshot_date, total_value, equity_balance, daily_pnl, created_at
		FROM risk.portfolio_snapshots
		WHERE portfolio_id = $1 AND snapshot_date = $2
	`

	return r.scanOne(r.pool.QueryRow(ctx, query, portfolioID, date))
}

// GetLatestBefore returns the most recent snapshot strictly before
// date. There is no requirement that it be the immediately preceding
// trading day; arbitrarily long gaps are fine.
func (r *Repository) GetLatestBefore(ctx context.Context, portfolioID uuid.UUID, date time.Time) (*contracts.Snapshot, error) {
	query := `
		SELECT portfolio_id, snapshot_date, total_value, equity_balance, daily_pnl, created_at
		FROM risk.portfolio_snapshots
		WHERE portfolio_id = $1 AND snapshot_date < $2
		ORDER BY snapshot_date DESC
		LIMIT 1
	`

	return r.scanOne(r.pool.QueryRow(ctx, query, portfolioID, date))
}

// History retrieves snapshots for a portfolio within [from, to],
// ordered by date ascending.
func (r *Repository) History(ctx context.Context, portfolioID uuid.UUID, from, to time.Time) ([]contracts.Snapshot, error) {
	query := `
		SELECT portfolio_id, snapshot_date, total_value, equity_balance, daily_pnl, created_at
		FROM risk.portfolio_snapshots
		WHERE portfolio_id = $1 AND snapshot_date BETWEEN $2 AND $3
		ORDER BY snapshot_date ASC
	`

	rows, err := r.pool.Query(ctx, query, portfolioID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot history: %w", err)
	}
	defer rows.Close()

	snapshots := make([]contracts.Snapshot, 0)
	for rows.Next() {
		var s contracts.Snapshot
		var pnl decimal.NullDecimal
		if err := rows.Scan(&s.PortfolioID, &s.Date, &s.TotalValue, &s.EquityBalance, &pnl, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		if pnl.Valid {
			s.DailyPnL = &pnl.Decimal
		}
		snapshots = append(snapshots, s)
	}

	return snapshots, rows.Err()
}

func (r *Repository) scanOne(row pgx.Row) (*contracts.Snapshot, error) {
	var s contracts.Snapshot
	var pnl decimal.NullDecimal

	err := row.Scan(&s.PortfolioID, &s.Date, &s.TotalValue, &s.EquityBalance, &pnl, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, contracts.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan snapshot: %w", err)
	}

	if pnl.Valid {
		s.DailyPnL = &pnl.Decimal
	}

	return &s, nil
}
