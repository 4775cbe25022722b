package yahoo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shuweilin/twsignal/internal/domain"
)

const chartBody = `{
  "chart": {
    "result": [{
      "meta": {"symbol": "2330.TW", "currency": "TWD"},
      "timestamp": [1772517600, 1772604000, 1772690400],
      "indicators": {
        "quote": [{
          "open":  [580.0, null, 586.0],
          "high":  [585.0, 588.0, 590.0],
          "low":   [578.0, 582.0, 584.0],
          "close": [583.0, 587.0, null]
        }]
      }
    }],
    "error": null
  }
}`

func TestHistoryParsesChart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v8/finance/chart/2330.TW" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("interval"); got != "1d" {
			t.Errorf("interval = %q, want 1d", got)
		}
		if r.URL.Query().Get("period1") == "" || r.URL.Query().Get("period2") == "" {
			t.Errorf("missing period bounds: %s", r.URL.RawQuery)
		}
		fmt.Fprint(w, chartBody)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-agent", 5*time.Second)
	from := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, time.March, 5, 0, 0, 0, 0, time.UTC)

	series, err := c.History(context.Background(), "2330.TW", from, to)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	// The third bar has a null close and is dropped.
	if series.Len() != 2 {
		t.Fatalf("got %d points, want 2", series.Len())
	}
	if series.Points[0].Close != 583 || series.Points[1].Close != 587 {
		t.Fatalf("closes = %v, %v", series.Points[0].Close, series.Points[1].Close)
	}
	if series.Points[0].Open != 580 {
		t.Fatalf("open = %v, want 580", series.Points[0].Open)
	}
	// Null open on the second bar stays absent.
	if series.Points[1].Open != 0 {
		t.Fatalf("missing open = %v, want 0", series.Points[1].Open)
	}
}

func TestHistoryAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 5*time.Second)
	_, err := c.History(context.Background(), "NOPE.TW", time.Now().AddDate(0, -1, 0), time.Now())
	if !errors.Is(err, domain.ErrDataUnavailable) {
		t.Fatalf("err = %v, want ErrDataUnavailable", err)
	}
}

func TestHistoryHTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 5*time.Second)
	_, err := c.History(context.Background(), "2330.TW", time.Now().AddDate(0, -1, 0), time.Now())
	if !errors.Is(err, domain.ErrDataUnavailable) {
		t.Fatalf("err = %v, want ErrDataUnavailable", err)
	}
}

func TestHistoryEmptyBars(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chart":{"result":[{"timestamp":[],"indicators":{"quote":[{}]}}],"error":null}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 5*time.Second)
	_, err := c.History(context.Background(), "2330.TW", time.Now().AddDate(0, -1, 0), time.Now())
	if !errors.Is(err, domain.ErrDataUnavailable) {
		t.Fatalf("err = %v, want ErrDataUnavailable", err)
	}
}
