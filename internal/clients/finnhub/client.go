// Package finnhub provides a quote client for the Finnhub API.
package finnhub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aristath/portfolio-manager/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL       = "https://finnhub.io/api/v1"
	DefaultTimeout       = 10 * time.Second
	DefaultRatePerMinute = 60
)

// Client fetches quotes from Finnhub
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        zerolog.Logger
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithRatePerMinute caps outbound requests
func WithRatePerMinute(n int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(float64(n)/60), n)
	}
}

// NewClient creates a new Finnhub client
func NewClient(apiKey string, log zerolog.Logger, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(float64(DefaultRatePerMinute)/60), DefaultRatePerMinute),
		log:        log.With().Str("client", "finnhub").Logger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Name identifies the provider in logs
func (c *Client) Name() string {
	return "finnhub"
}

// quoteResponse uses json.Number so prices keep their exact decimal form
type quoteResponse struct {
	Current   json.Number `json:"c"`
	PrevClose json.Number `json:"pc"`
}

// FetchQuote returns the latest price and previous close for a symbol.
// Finnhub answers unknown symbols with zeros, which is reported as an error.
func (c *Client) FetchQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("token", c.apiKey)
	reqURL := fmt.Sprintf("%s/quote?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("finnhub returned status %d", resp.StatusCode)
	}

	var body quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	price, err := decimal.NewFromString(body.Current.String())
	if err != nil {
		return nil, fmt.Errorf("invalid price for %s: %w", symbol, err)
	}
	if !price.IsPositive() {
		return nil, fmt.Errorf("no quote for %s", symbol)
	}

	prevClose := decimal.Zero
	if body.PrevClose != "" {
		if prevClose, err = decimal.NewFromString(body.PrevClose.String()); err != nil {
			return nil, fmt.Errorf("invalid previous close for %s: %w", symbol, err)
		}
	}

	c.log.Debug().Str("symbol", symbol).Str("price", price.String()).Msg("Fetched quote")

	return &domain.Quote{
		Symbol:        symbol,
		CurrentPrice:  price,
		PreviousClose: prevClose,
	}, nil
}
