package batch

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/puddle/v2"
	"github.com/stretchr/testify/assert"

	"github.com/quantrail/riskledger/internal/contracts"
	"github.com/quantrail/riskledger/internal/snapshot"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassifyDomainErrorsArePermanent(t *testing.T) {
	for _, err := range []error{
		contracts.ErrDataUnavailable,
		contracts.ErrFactorBasisUnavailable,
		contracts.ErrPortfolioNotFound,
		contracts.ErrSnapshotNotFound,
		contracts.ErrNoExposures,
		snapshot.ErrNotTradingDay,
		context.Canceled,
	} {
		assert.Equal(t, KindPermanent, Classify(err), "error: %v", err)
	}
}

func TestClassifyWrappedDomainError(t *testing.T) {
	err := fmt.Errorf("snapshot AAPL 2026-08-27: %w", contracts.ErrDataUnavailable)
	assert.Equal(t, KindPermanent, Classify(err))
}

func TestClassifyTimeoutsAreTransient(t *testing.T) {
	assert.Equal(t, KindTransient, Classify(context.DeadlineExceeded))
	assert.Equal(t, KindTransient, Classify(timeoutErr{}))
	assert.Equal(t, KindTransient, Classify(fmt.Errorf("query: %w", timeoutErr{})))
}

func TestClassifyPgErrors(t *testing.T) {
	assert.Equal(t, KindTransient, Classify(&pgconn.PgError{Code: "40001"}))
	assert.Equal(t, KindTransient, Classify(&pgconn.PgError{Code: "40P01"}))

	// Constraint violation is a logic bug, retrying cannot fix it
	assert.Equal(t, KindPermanent, Classify(&pgconn.PgError{Code: "23505"}))
	assert.Equal(t, KindPermanent, Classify(&pgconn.PgError{Code: "42P01"}))
}

func TestClassifyClosedConnIsSession(t *testing.T) {
	assert.Equal(t, KindSession, Classify(errors.New("use of closed network connection")))
	assert.Equal(t, KindSession, Classify(fmt.Errorf("acquire: %w", puddle.ErrClosedPool)))
	assert.Equal(t, KindSession, Classify(errors.New("conn busy")))
}

func TestClassifyUnknownDefaultsTransient(t *testing.T) {
	assert.Equal(t, KindTransient, Classify(errors.New("something unexpected")))
}

func TestClassifyNil(t *testing.T) {
	assert.Equal(t, ErrorKind(""), Classify(nil))
}
