package contracts

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PortfolioRepository provides portfolio and position reads
type PortfolioRepository interface {
	GetPortfolio(ctx context.Context, id uuid.UUID) (*Portfolio, error)
	ListPortfolios(ctx context.Context) ([]Portfolio, error)
	GetPositions(ctx context.Context, portfolioID uuid.UUID, asOf time.Time) ([]Position, error)
}

// SnapshotRepository persists daily portfolio snapshots.
// Upsert is keyed (portfolio_id, snapshot_date); re-running a day
// overwrites in place.
type SnapshotRepository interface {
	Upsert(ctx context.Context, snapshot *Snapshot) error
	Get(ctx context.Context, portfolioID uuid.UUID, date time.Time) (*Snapshot, error)

	// GetLatestBefore returns the most recent snapshot strictly before
	// date, regardless of how long the gap is. ErrSnapshotNotFound when
	// no prior snapshot exists at all.
	GetLatestBefore(ctx context.Context, portfolioID uuid.UUID, date time.Time) (*Snapshot, error)

	History(ctx context.Context, portfolioID uuid.UUID, from, to time.Time) ([]Snapshot, error)
}

// PriceReader provides daily price reads from the price cache
type PriceReader interface {
	// GetPriceSeries returns daily bars ordered by date ascending,
	// already deduplicated and trading-day-aligned.
	GetPriceSeries(ctx context.Context, symbol string, from, to time.Time) ([]Price, error)

	// GetClose returns the closing price for a symbol on a date.
	// ErrDataUnavailable when no bar exists.
	GetClose(ctx context.Context, symbol string, date time.Time) (float64, error)
}

// ExposureRepository persists factor exposure runs
type ExposureRepository interface {
	// SaveRun stores a complete run: the full factor set of one basis
	// version for one (portfolio, date), replacing any previous run for
	// the same key.
	SaveRun(ctx context.Context, run *ExposureRun) error

	GetRun(ctx context.Context, portfolioID uuid.UUID, date time.Time) (*ExposureRun, error)

	// GetLatestRun returns the most recent stored run for the
	// portfolio. ErrNoExposures when none exists.
	GetLatestRun(ctx context.Context, portfolioID uuid.UUID) (*ExposureRun, error)
}
