package provider

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shuweilin/twsignal/internal/domain"
)

// SeriesCache is the history cache consumed by the caching provider. A miss
// is domain.ErrNotFound; any other error is a cache fault and is logged, not
// propagated.
type SeriesCache interface {
	Get(ctx context.Context, ticker string, from, to time.Time) (domain.PriceSeries, error)
	Put(ctx context.Context, series domain.PriceSeries, from, to time.Time) error
}

// Cached decorates a HistoryProvider with a read-through cache. The upstream
// source stays authoritative: cache faults degrade to a direct fetch and a
// failed Put never fails the read.
type Cached struct {
	source HistoryProvider
	cache  SeriesCache
	logger *slog.Logger
}

// NewCached wraps source with cache.
func NewCached(source HistoryProvider, cache SeriesCache, logger *slog.Logger) *Cached {
	return &Cached{
		source: source,
		cache:  cache,
		logger: logger.With(slog.String("component", "provider.cached")),
	}
}

// History serves from the cache when possible and falls through to the
// source otherwise.
func (c *Cached) History(ctx context.Context, ticker string, from, to time.Time) (domain.PriceSeries, error) {
	series, err := c.cache.Get(ctx, ticker, from, to)
	if err == nil {
		return series, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		c.logger.Warn("history cache read failed",
			slog.String("ticker", ticker),
			slog.String("error", err.Error()),
		)
	}

	series, err = c.source.History(ctx, ticker, from, to)
	if err != nil {
		return domain.PriceSeries{}, err
	}

	if err := c.cache.Put(ctx, series, from, to); err != nil {
		c.logger.Warn("history cache write failed",
			slog.String("ticker", ticker),
			slog.String("error", err.Error()),
		)
	}
	return series, nil
}

var _ HistoryProvider = (*Cached)(nil)
