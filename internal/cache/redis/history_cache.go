package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shuweilin/twsignal/internal/domain"
)

// HistoryCache stores fetched daily price series as JSON blobs keyed by
// ticker and date range. Entries expire after the configured TTL so a ticker
// re-fetched on a later day sees fresh closes.
type HistoryCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewHistoryCache creates a HistoryCache backed by the given Client.
func NewHistoryCache(c *Client, ttl time.Duration) *HistoryCache {
	return &HistoryCache{rdb: c.Underlying(), ttl: ttl}
}

func historyKey(ticker string, from, to time.Time) string {
	return fmt.Sprintf("history:%s:%s:%s",
		ticker, from.Format("2006-01-02"), to.Format("2006-01-02"))
}

// cachedPoint is the wire form of one daily observation. Dates are stored as
// "2006-01-02" so the payload stays readable in redis-cli.
type cachedPoint struct {
	Date  string  `json:"d"`
	Close float64 `json:"c"`
	Open  float64 `json:"o,omitempty"`
	High  float64 `json:"h,omitempty"`
	Low   float64 `json:"l,omitempty"`
}

// Get retrieves a cached series. It returns domain.ErrNotFound on a cache
// miss; any other error means Redis itself misbehaved.
func (hc *HistoryCache) Get(ctx context.Context, ticker string, from, to time.Time) (domain.PriceSeries, error) {
	raw, err := hc.rdb.Get(ctx, historyKey(ticker, from, to)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.PriceSeries{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.PriceSeries{}, fmt.Errorf("redis: get history %s: %w", ticker, err)
	}

	var cached []cachedPoint
	if err := json.Unmarshal(raw, &cached); err != nil {
		return domain.PriceSeries{}, fmt.Errorf("redis: decode history %s: %w", ticker, err)
	}

	points := make([]domain.PricePoint, 0, len(cached))
	for _, cp := range cached {
		d, err := time.Parse("2006-01-02", cp.Date)
		if err != nil {
			return domain.PriceSeries{}, fmt.Errorf("redis: decode history %s: bad date %q: %w", ticker, cp.Date, err)
		}
		points = append(points, domain.PricePoint{
			Date: d, Close: cp.Close, Open: cp.Open, High: cp.High, Low: cp.Low,
		})
	}

	series, err := domain.NewPriceSeries(ticker, points)
	if err != nil {
		return domain.PriceSeries{}, fmt.Errorf("redis: decode history %s: %w", ticker, err)
	}
	return series, nil
}

// Put stores a series under its ticker and date range with the cache TTL.
func (hc *HistoryCache) Put(ctx context.Context, series domain.PriceSeries, from, to time.Time) error {
	cached := make([]cachedPoint, 0, series.Len())
	for _, p := range series.Points {
		cached = append(cached, cachedPoint{
			Date: p.Date.Format("2006-01-02"), Close: p.Close, Open: p.Open, High: p.High, Low: p.Low,
		})
	}

	raw, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("redis: encode history %s: %w", series.Ticker, err)
	}
	if err := hc.rdb.Set(ctx, historyKey(series.Ticker, from, to), raw, hc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: put history %s: %w", series.Ticker, err)
	}
	return nil
}
