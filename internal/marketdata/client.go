package marketdata

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"stockbench/internal/config"
)

// ErrNoData signals that the provider has no history for the requested
// symbol and range. Callers are expected to skip the symbol; there is no
// alternate source and no further recovery.
var ErrNoData = errors.New("no data for symbol")

// HistoryProvider is the capability the pipeline needs from a market-data
// source: daily OHLCV rows for a symbol over an inclusive date range.
type HistoryProvider interface {
	DailyHistory(ctx context.Context, symbol string, start, end time.Time) ([]Candle, error)
}

// Client fetches daily history from the Stooq CSV endpoint.
// It implements HistoryProvider.
type Client struct {
	client     *resty.Client
	logger     *zap.Logger
	limiter    *rate.Limiter
	maxRetries int
}

// ensure Client implements the interface
var _ HistoryProvider = (*Client)(nil)

// NewClient creates a new history client for the configured provider.
func NewClient(cfg *config.Provider, logger *zap.Logger) *Client {
	client := resty.New().SetBaseURL(cfg.BaseURL)

	// rate.Limit is requests per second.
	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst)

	retries := cfg.MaxRetries
	if retries < 1 {
		retries = 1
	}

	return &Client{
		client:     client,
		logger:     logger.Named("marketdata"),
		limiter:    limiter,
		maxRetries: retries,
	}
}

// DailyHistory downloads split/dividend-adjusted daily candles for symbol
// between start and end (inclusive). An empty or errored provider response
// is reported as ErrNoData rather than a fatal error.
func (c *Client) DailyHistory(ctx context.Context, symbol string, start, end time.Time) ([]Candle, error) {
	if symbol == "" {
		return nil, errors.New("symbol must not be empty")
	}

	req := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"s":  strings.ToLower(symbol),
			"d1": start.Format("20060102"),
			"d2": end.Format("20060102"),
			"i":  "d", // daily interval
		})

	resp, err := c.doRequest(ctx, "/q/d/l/", req)
	if err != nil {
		if errors.Is(err, ErrNoData) {
			return nil, err
		}
		c.logger.Warn("Download failed, treating as no data",
			zap.String("symbol", symbol), zap.Error(err))
		return nil, fmt.Errorf("%w: %s", ErrNoData, symbol)
	}

	candles, err := parseDailyCSV(strings.NewReader(resp.String()))
	if err != nil {
		return nil, fmt.Errorf("failed to parse history for %s: %w", symbol, err)
	}
	if len(candles) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoData, symbol)
	}

	return candles, nil
}

// doRequest handles the actual request execution with rate limiting and retry logic.
func (c *Client) doRequest(ctx context.Context, url string, req *resty.Request) (*resty.Response, error) {
	var resp *resty.Response
	var err error

	for i := 0; i < c.maxRetries; i++ {
		// Wait for the rate limiter
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		c.logger.Debug("Executing request", zap.String("url", c.client.BaseURL+url))
		resp, err = req.Execute("GET", url)

		if err == nil && !resp.IsError() {
			return resp, nil // Success
		}

		// Analyze error and decide whether to retry
		shouldRetry := false
		var retryAfter time.Duration

		if resp != nil && err == nil {
			statusCode := resp.StatusCode()
			switch {
			case statusCode == http.StatusNotFound:
				// Unknown symbol; retrying will not help.
				return nil, ErrNoData
			case statusCode == http.StatusTooManyRequests:
				shouldRetry = true
				retryAfterHeader := resp.Header().Get("Retry-After")
				if seconds, err := strconv.Atoi(retryAfterHeader); err == nil {
					retryAfter = time.Duration(seconds) * time.Second
				}
			case statusCode >= 500: // Server errors
				shouldRetry = true
			}
		} else { // Network or other client-side errors
			shouldRetry = true
		}

		if !shouldRetry {
			return nil, fmt.Errorf("request failed with status %s: %s", resp.Status(), resp.String())
		}

		if retryAfter == 0 {
			// Exponential backoff: 1s, 2s, 4s
			retryAfter = time.Duration(math.Pow(2, float64(i))) * time.Second
		}

		c.logger.Warn("Request failed, retrying...",
			zap.Int("attempt", i+1),
			zap.Duration("retry_after", retryAfter),
			zap.Error(err),
		)

		select {
		case <-time.After(retryAfter):
			continue
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", c.maxRetries, err)
}

// parseDailyCSV reads the provider's Date,Open,High,Low,Close,Volume body.
// Unparseable numeric fields become NaN; out-of-order or duplicate dates
// are a hard error since every consumer relies on ascending unique dates.
func parseDailyCSV(r io.Reader) ([]Candle, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // some rows omit volume

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("malformed csv body: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	first := strings.TrimSpace(strings.Join(records[0], " "))
	if strings.EqualFold(first, "no data") || !strings.EqualFold(records[0][0], "date") {
		// Stooq answers unknown symbols with a plain "No data" body.
		return nil, nil
	}

	candles := make([]Candle, 0, len(records)-1)
	var prev time.Time
	for _, rec := range records[1:] {
		if len(rec) < 5 {
			continue
		}
		date, err := time.Parse("2006-01-02", strings.TrimSpace(rec[0]))
		if err != nil {
			return nil, fmt.Errorf("bad date %q: %w", rec[0], err)
		}
		if !prev.IsZero() && !date.After(prev) {
			return nil, fmt.Errorf("dates not strictly increasing at %s", rec[0])
		}
		prev = date

		candle := Candle{
			Date:   date,
			Open:   parseField(rec, 1),
			High:   parseField(rec, 2),
			Low:    parseField(rec, 3),
			Close:  parseField(rec, 4),
			Volume: parseField(rec, 5),
		}
		candles = append(candles, candle)
	}

	return candles, nil
}

func parseField(rec []string, i int) float64 {
	if i >= len(rec) {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(rec[i]), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
