package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/quantrail/riskledger/internal/contracts"
	"github.com/quantrail/riskledger/pkg/redis"
)

// CachedPriceReader is a read-through Redis cache in front of the
// PostgreSQL price repository. Factor calculations re-read the same
// proxy ETF series for every position; caching the series keeps the
// batch from hammering the database.
type CachedPriceReader struct {
	repo  contracts.PriceReader
	cache *redis.Cache
	ttl   time.Duration
}

// NewCachedPriceReader creates a cached price reader
func NewCachedPriceReader(repo contracts.PriceReader, cache *redis.Cache, ttl time.Duration) *CachedPriceReader {
	return &CachedPriceReader{
		repo:  repo,
		cache: cache,
		ttl:   ttl,
	}
}

// GetPriceSeries retrieves a series from cache, falling back to the
// repository on miss.
func (c *CachedPriceReader) GetPriceSeries(ctx context.Context, symbol string, from, to time.Time) ([]contracts.Price, error) {
	key := seriesKey(symbol, from, to)

	var cached []contracts.Price
	found, err := c.cache.Get(ctx, key, &cached)
	if err == nil && found {
		return cached, nil
	}

	prices, err := c.repo.GetPriceSeries(ctx, symbol, from, to)
	if err != nil {
		return nil, err
	}

	// Cache failures are not fatal for a read path
	_ = c.cache.Set(ctx, key, prices, c.ttl)

	return prices, nil
}

// GetClose delegates to the repository; single-close lookups are cheap
// enough not to cache.
func (c *CachedPriceReader) GetClose(ctx context.Context, symbol string, date time.Time) (float64, error) {
	return c.repo.GetClose(ctx, symbol, date)
}

func seriesKey(symbol string, from, to time.Time) string {
	return fmt.Sprintf("prices:%s:%s:%s",
		symbol, from.Format("2006-01-02"), to.Format("2006-01-02"))
}
