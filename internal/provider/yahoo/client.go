// Package yahoo implements the price-history provider backed by the Yahoo
// Finance v8 chart API.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shuweilin/twsignal/internal/domain"
)

// Client is the REST client for the chart API. It is safe for concurrent use.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

// NewClient creates a chart API client.
//
// baseURL is the API root, e.g. "https://query1.finance.yahoo.com".
func NewClient(baseURL, userAgent string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:   baseURL,
		userAgent: userAgent,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// History fetches daily bars for ticker over [from, to]. Rows whose close is
// missing (market holidays the API still emits, suspended sessions) are
// dropped rather than zero-filled.
func (c *Client) History(ctx context.Context, ticker string, from, to time.Time) (domain.PriceSeries, error) {
	params := url.Values{}
	params.Set("period1", strconv.FormatInt(domain.Day(from).Unix(), 10))
	// period2 is exclusive; push it past the final trading day.
	params.Set("period2", strconv.FormatInt(domain.Day(to).Add(24*time.Hour).Unix(), 10))
	params.Set("interval", "1d")
	params.Set("events", "history")

	path := fmt.Sprintf("/v8/finance/chart/%s?%s", url.PathEscape(ticker), params.Encode())

	body, err := c.doGet(ctx, path)
	if err != nil {
		return domain.PriceSeries{}, fmt.Errorf("yahoo: %s: %w: %v", ticker, domain.ErrDataUnavailable, err)
	}

	var resp chartResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.PriceSeries{}, fmt.Errorf("yahoo: %s: decode chart: %w: %v", ticker, domain.ErrDataUnavailable, err)
	}
	if resp.Chart.Error != nil {
		return domain.PriceSeries{}, fmt.Errorf("yahoo: %s: %w: %s (%s)",
			ticker, domain.ErrDataUnavailable, resp.Chart.Error.Code, resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return domain.PriceSeries{}, fmt.Errorf("yahoo: %s: %w: empty result", ticker, domain.ErrDataUnavailable)
	}

	return toSeries(ticker, resp.Chart.Result[0])
}

func toSeries(ticker string, res chartResult) (domain.PriceSeries, error) {
	if len(res.Indicators.Quote) == 0 {
		return domain.PriceSeries{}, fmt.Errorf("yahoo: %s: %w: no quote block", ticker, domain.ErrDataUnavailable)
	}
	q := res.Indicators.Quote[0]

	points := make([]domain.PricePoint, 0, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		if i >= len(q.Close) || q.Close[i] == nil {
			continue
		}
		p := domain.PricePoint{
			Date:  time.Unix(ts, 0).UTC(),
			Close: *q.Close[i],
		}
		if i < len(q.Open) && q.Open[i] != nil {
			p.Open = *q.Open[i]
		}
		if i < len(q.High) && q.High[i] != nil {
			p.High = *q.High[i]
		}
		if i < len(q.Low) && q.Low[i] != nil {
			p.Low = *q.Low[i]
		}
		points = append(points, p)
	}
	if len(points) == 0 {
		return domain.PriceSeries{}, fmt.Errorf("yahoo: %s: %w: no usable bars", ticker, domain.ErrDataUnavailable)
	}

	series, err := domain.NewPriceSeries(ticker, points)
	if err != nil {
		return domain.PriceSeries{}, fmt.Errorf("yahoo: %s: %w: %v", ticker, domain.ErrDataUnavailable, err)
	}
	return series, nil
}

// doGet sends an unauthenticated GET request to the chart API.
func (c *Client) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if len(body) > 256 {
			body = body[:256]
		}
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, body)
	}
	return body, nil
}
