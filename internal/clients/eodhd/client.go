// Package eodhd provides a price fetcher backed by the EODHD API
package eodhd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

// flexFloat64 handles JSON values that may be either a number or a string.
type flexFloat64 float64

func (f *flexFloat64) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*f = flexFloat64(num)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s == "" || s == "NA" || s == "N/A" {
			*f = 0
			return nil
		}
		num, err := strconv.ParseFloat(s, 64)
		if err != nil {
			*f = 0
			return nil
		}
		*f = flexFloat64(num)
		return nil
	}
	return fmt.Errorf("cannot unmarshal %s into float64", string(data))
}

const (
	DefaultBaseURL   = "https://eodhd.com/api"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 10 // requests per second
)

// Client implements interfaces.PriceFetcher
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

var _ interfaces.PriceFetcher = (*Client)(nil)

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new EODHD client
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents an API error
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("EODHD API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// get performs a rate-limited GET request
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("api_token", c.apiKey)
	params.Set("fmt", "json")

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	c.logger.Debug().Str("url", c.baseURL+path).Msg("EODHD API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
			Endpoint:   path,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// realTimeResponse is the /real-time payload. Prices arrive as "NA" for
// instruments that have not traded.
type realTimeResponse struct {
	Code          string      `json:"code"`
	Timestamp     int64       `json:"timestamp"`
	Close         flexFloat64 `json:"close"`
	PreviousClose flexFloat64 `json:"previousClose"`
}

// FetchQuote returns the latest price for symbol (e.g. VTI.US)
func (c *Client) FetchQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	var resp realTimeResponse
	if err := c.get(ctx, "/real-time/"+symbol, nil, &resp); err != nil {
		return nil, err
	}

	price := float64(resp.Close)
	if price <= 0 {
		price = float64(resp.PreviousClose)
	}
	if price <= 0 {
		return nil, fmt.Errorf("no price for %s", symbol)
	}

	q := &models.Quote{Symbol: symbol, Price: price}
	if resp.Timestamp > 0 {
		q.Timestamp = time.Unix(resp.Timestamp, 0).UTC()
	}
	return q, nil
}

// eodBarResponse represents the API response for EOD data
type eodBarResponse struct {
	Date          string      `json:"date"`
	Close         flexFloat64 `json:"close"`
	AdjustedClose flexFloat64 `json:"adjusted_close"`
}

// FetchHistory returns daily bars for symbol between from and to inclusive,
// oldest first
func (c *Client) FetchHistory(ctx context.Context, symbol string, from, to time.Time) ([]models.DailyBar, error) {
	params := url.Values{}
	params.Set("period", "d")
	params.Set("order", "a")
	if !from.IsZero() {
		params.Set("from", from.Format("2006-01-02"))
	}
	if !to.IsZero() {
		params.Set("to", to.Format("2006-01-02"))
	}

	var bars []eodBarResponse
	if err := c.get(ctx, "/eod/"+symbol, params, &bars); err != nil {
		return nil, err
	}

	out := make([]models.DailyBar, 0, len(bars))
	for _, bar := range bars {
		date, err := time.Parse("2006-01-02", bar.Date)
		if err != nil {
			c.logger.Warn().Str("symbol", symbol).Str("date", bar.Date).Msg("Skipping bar with bad date")
			continue
		}
		out = append(out, models.DailyBar{
			Date:     date,
			Close:    float64(bar.Close),
			AdjClose: float64(bar.AdjustedClose),
		})
	}
	return out, nil
}

// FetchFXRate returns the number of quote units per base unit using the
// BASEQUOTE.FOREX ticker
func (c *Client) FetchFXRate(ctx context.Context, base, quote string) (float64, error) {
	pair := strings.ToUpper(base + quote)
	q, err := c.FetchQuote(ctx, pair+".FOREX")
	if err != nil {
		return 0, fmt.Errorf("fx %s: %w", pair, err)
	}
	return q.Price, nil
}
