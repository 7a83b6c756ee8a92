package contracts

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Side indicates whether a position is held long or short
type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// Portfolio is the identity record for a book of positions.
// InitialEquity is captured at creation and never mutated; the rolling
// equity balance lives on snapshots.
type Portfolio struct {
	ID            uuid.UUID       `json:"id"`
	Name          string          `json:"name"`
	Owner         string          `json:"owner"`
	InitialEquity decimal.Decimal `json:"initial_equity"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Position is a holding within a portfolio
type Position struct {
	PortfolioID uuid.UUID       `json:"portfolio_id"`
	Symbol      string          `json:"symbol"`
	Quantity    decimal.Decimal `json:"quantity"`
	Side        Side            `json:"side"`
}

// SignedQuantity returns the quantity with short positions negated
func (p Position) SignedQuantity() decimal.Decimal {
	if p.Side == SideShort {
		return p.Quantity.Neg()
	}
	return p.Quantity
}

// Snapshot is the persisted daily state record for a portfolio.
// At most one snapshot exists per (portfolio, date). DailyPnL is nil
// when the day's P&L could not be determined; nil and zero are
// distinct values and must stay distinguishable all the way to API
// consumers.
type Snapshot struct {
	PortfolioID   uuid.UUID        `json:"portfolio_id"`
	Date          time.Time        `json:"snapshot_date"`
	TotalValue    decimal.Decimal  `json:"total_value"`
	EquityBalance decimal.Decimal  `json:"equity_balance"`
	DailyPnL      *decimal.Decimal `json:"daily_pnl"`
	CreatedAt     time.Time        `json:"created_at"`
}

// Price is one daily OHLCV bar
type Price struct {
	Symbol string    `json:"symbol"`
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}
