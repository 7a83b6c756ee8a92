package marketdata

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quantrail/riskledger/internal/contracts"
)

// Repository reads daily prices from PostgreSQL. The price cache is
// populated by an upstream ingestion service; this side only reads.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new price repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetPriceSeries retrieves daily bars for a symbol within [from, to],
// ordered by date ascending.
func (r *Repository) GetPriceSeries(ctx context.Context, symbol string, from, to time.Time) ([]contracts.Price, error) {
	query := `
		SELECT symbol, trade_date, open_price, high_price, low_price, close_price, volume
		FROM data.daily_prices
		WHERE symbol = $1 AND trade_date BETWEEN $2 AND $3
		ORDER BY trade_date ASC
	`

	rows, err := r.pool.Query(ctx, query, symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query price series: %w", err)
	}
	defer rows.Close()

	prices := make([]contracts.Price, 0)
	for rows.Next() {
		var p contracts.Price
		if err := rows.Scan(&p.Symbol, &p.Date, &p.Open, &p.High, &p.Low, &p.Close, &p.Volume); err != nil {
			return nil, fmt.Errorf("failed to scan price: %w", err)
		}
		prices = append(prices, p)
	}

	return prices, rows.Err()
}

// GetClose retrieves the closing price for a symbol on a date
func (r *Repository) GetClose(ctx context.Context, symbol string, date time.Time) (float64, error) {
	query := `
		SELECT close_price
		FROM data.daily_prices
		WHERE symbol = $1 AND trade_date = $2
	`

	var close float64
	err := r.pool.QueryRow(ctx, query, symbol, date).Scan(&close)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%w: no price for %s on %s",
			contracts.ErrDataUnavailable, symbol, date.Format("2006-01-02"))
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get close price: %w", err)
	}

	return close, nil
}
