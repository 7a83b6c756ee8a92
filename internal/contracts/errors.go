package contracts

import "errors"

// Domain sentinel errors. Recoverable, local conditions are absorbed
// into explicit null/flag values by the engines; these sentinels cover
// the conditions that abort a job.
var (
	// ErrDataUnavailable means a required valuation or price input is
	// missing for the requested date. The day becomes a gap; a later
	// run rolls forward across it.
	ErrDataUnavailable = errors.New("required market data unavailable")

	// ErrFactorBasisUnavailable means no factor price history exists at
	// all. Fatal for the portfolio's run.
	ErrFactorBasisUnavailable = errors.New("factor basis price history unavailable")

	// ErrPortfolioNotFound means the portfolio id does not exist
	ErrPortfolioNotFound = errors.New("portfolio not found")

	// ErrSnapshotNotFound means no snapshot exists for the requested key
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrNoExposures means no exposure run has ever been stored for the
	// portfolio.
	ErrNoExposures = errors.New("no factor exposures calculated")
)
