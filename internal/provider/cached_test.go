package provider

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shuweilin/twsignal/internal/domain"
)

type fakeSource struct {
	calls  int
	series domain.PriceSeries
	err    error
}

func (f *fakeSource) History(ctx context.Context, ticker string, from, to time.Time) (domain.PriceSeries, error) {
	f.calls++
	if f.err != nil {
		return domain.PriceSeries{}, f.err
	}
	return f.series, nil
}

type memCache struct {
	entries map[string]domain.PriceSeries
	getErr  error
	putErr  error
	puts    int
}

func newMemCache() *memCache {
	return &memCache{entries: map[string]domain.PriceSeries{}}
}

func (m *memCache) key(ticker string, from, to time.Time) string {
	return ticker + from.Format("2006-01-02") + to.Format("2006-01-02")
}

func (m *memCache) Get(ctx context.Context, ticker string, from, to time.Time) (domain.PriceSeries, error) {
	if m.getErr != nil {
		return domain.PriceSeries{}, m.getErr
	}
	s, ok := m.entries[m.key(ticker, from, to)]
	if !ok {
		return domain.PriceSeries{}, domain.ErrNotFound
	}
	return s, nil
}

func (m *memCache) Put(ctx context.Context, series domain.PriceSeries, from, to time.Time) error {
	m.puts++
	if m.putErr != nil {
		return m.putErr
	}
	m.entries[m.key(series.Ticker, from, to)] = series
	return nil
}

func sampleSeries(t *testing.T) domain.PriceSeries {
	t.Helper()
	s, err := domain.NewPriceSeries("2330.TW", []domain.PricePoint{
		{Date: time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC), Close: 580},
		{Date: time.Date(2026, time.March, 3, 0, 0, 0, 0, time.UTC), Close: 585},
	})
	if err != nil {
		t.Fatalf("build series: %v", err)
	}
	return s
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCachedReadThrough(t *testing.T) {
	src := &fakeSource{series: sampleSeries(t)}
	cache := newMemCache()
	p := NewCached(src, cache, discard())

	from := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, time.March, 3, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		s, err := p.History(context.Background(), "2330.TW", from, to)
		if err != nil {
			t.Fatalf("history: %v", err)
		}
		if s.Len() != 2 {
			t.Fatalf("got %d points, want 2", s.Len())
		}
	}
	if src.calls != 1 {
		t.Fatalf("source fetched %d times, want 1", src.calls)
	}
}

func TestCachedFaultFallsThrough(t *testing.T) {
	src := &fakeSource{series: sampleSeries(t)}
	cache := newMemCache()
	cache.getErr = errors.New("connection refused")
	cache.putErr = errors.New("connection refused")
	p := NewCached(src, cache, discard())

	s, err := p.History(context.Background(), "2330.TW", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if s.Len() != 2 {
		t.Fatalf("got %d points, want 2", s.Len())
	}
}

func TestCachedPropagatesSourceError(t *testing.T) {
	src := &fakeSource{err: domain.ErrDataUnavailable}
	cache := newMemCache()
	p := NewCached(src, cache, discard())

	_, err := p.History(context.Background(), "2330.TW", time.Time{}, time.Time{})
	if !errors.Is(err, domain.ErrDataUnavailable) {
		t.Fatalf("err = %v, want ErrDataUnavailable", err)
	}
	if cache.puts != 0 {
		t.Fatalf("failed fetch was cached")
	}
}
