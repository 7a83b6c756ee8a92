package batch

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/puddle/v2"

	"github.com/quantrail/riskledger/internal/contracts"
	"github.com/quantrail/riskledger/internal/snapshot"
)

// ErrorKind partitions job failures into retry classes. The set is
// closed: every error a job returns maps to exactly one kind, and the
// orchestrator's retry policy is written against the kind, never
// against individual error values.
type ErrorKind string

const (
	// KindTransient covers infrastructure hiccups (timeouts, dropped
	// connections mid-flight, serialization conflicts). Retried up to
	// the configured attempt count with backoff.
	KindTransient ErrorKind = "transient"

	// KindSession covers stale resource handles (closed or busy pool
	// connections). Retried exactly once; a second failure means the
	// problem is not the handle.
	KindSession ErrorKind = "session"

	// KindPermanent covers logical and domain failures. Never retried:
	// re-running with the same inputs produces the same failure.
	KindPermanent ErrorKind = "permanent"
)

// Postgres SQLSTATE classes that a retry can reasonably clear
var retryablePgCodes = map[string]bool{
	"40001": true, // serialization_failure
	"40P01": true, // deadlock_detected
	"53300": true, // too_many_connections
	"57P03": true, // cannot_connect_now
	"08000": true, // connection_exception
	"08003": true, // connection_does_not_exist
	"08006": true, // connection_failure
}

// Classify maps a job error onto its retry class.
//
// Domain sentinels are permanent within a run: a missing price or an
// absent factor basis will not appear because we waited thirty
// seconds, and the gap-tolerant rollforward covers the day on a later
// run once upstream data lands.
func Classify(err error) ErrorKind {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, contracts.ErrDataUnavailable),
		errors.Is(err, contracts.ErrFactorBasisUnavailable),
		errors.Is(err, contracts.ErrPortfolioNotFound),
		errors.Is(err, contracts.ErrSnapshotNotFound),
		errors.Is(err, contracts.ErrNoExposures),
		errors.Is(err, snapshot.ErrNotTradingDay),
		errors.Is(err, context.Canceled):
		return KindPermanent
	}

	// A connection that died under us is a session problem, not a
	// server problem: one fresh handle from the pool settles it.
	if errors.Is(err, net.ErrClosed) || errors.Is(err, puddle.ErrClosedPool) || isStaleConn(err) {
		return KindSession
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return KindSession
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTransient
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTransient
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if retryablePgCodes[pgErr.Code] {
			return KindTransient
		}
		// Constraint violations, bad SQL, missing relations
		return KindPermanent
	}
	if pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return KindTransient
	}

	// Unknown errors default to transient: every job write is an upsert
	// keyed by (portfolio, date), so a spurious retry is harmless while
	// a skipped retry loses a day.
	return KindTransient
}

// pgconn keeps its "conn closed" and "conn busy" lock errors
// unexported, so there is no sentinel to errors.Is against; matching
// their text is the only handle pgx v5 gives us. Everything with an
// exported sentinel (net.ErrClosed, pgxpool.ErrClosedPool) is matched
// typed above.
var staleConnMsgs = []string{
	"conn closed",
	"conn busy",
	"closed network connection",
}

func isStaleConn(err error) bool {
	msg := err.Error()
	for _, s := range staleConnMsgs {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
