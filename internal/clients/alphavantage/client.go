// Package alphavantage provides a GLOBAL_QUOTE client for the Alpha Vantage API.
package alphavantage

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
	DefaultBaseURL       = "https://www.alphavantage.co"
	DefaultTimeout       = 10 * time.Second
	DefaultRatePerMinute = 5
)

// Client fetches quotes from Alpha Vantage
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

// NewClient creates a new Alpha Vantage client
func NewClient(apiKey string, log zerolog.Logger, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(float64(DefaultRatePerMinute)/60), DefaultRatePerMinute),
		log:        log.With().Str("client", "alphavantage").Logger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Name identifies the provider in logs
func (c *Client) Name() string {
	return "alpha-vantage"
}

type globalQuoteResponse struct {
	GlobalQuote map[string]string `json:"Global Quote"`
	Note        string            `json:"Note"`
	Information string            `json:"Information"`
}

// FetchQuote returns the latest price and previous close for a symbol.
// Only CurrentPrice, PreviousClose and Symbol are populated.
func (c *Client) FetchQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	params := url.Values{}
	params.Set("function", "GLOBAL_QUOTE")
	params.Set("symbol", symbol)
	params.Set("apikey", c.apiKey)
	reqURL := fmt.Sprintf("%s/query?%s", c.baseURL, params.Encode())

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
		return nil, fmt.Errorf("alpha vantage returned status %d", resp.StatusCode)
	}

	var body globalQuoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(body.GlobalQuote) == 0 {
		// throttled responses come back 200 with a Note instead of a quote
		if msg := body.Note + body.Information; msg != "" {
			return nil, fmt.Errorf("no quote for %s: %s", symbol, msg)
		}
		return nil, fmt.Errorf("no quote for %s", symbol)
	}

	price, err := decimal.NewFromString(body.GlobalQuote["05. price"])
	if err != nil {
		return nil, fmt.Errorf("invalid price for %s: %w", symbol, err)
	}
	prevClose, err := decimal.NewFromString(body.GlobalQuote["08. previous close"])
	if err != nil {
		return nil, fmt.Errorf("invalid previous close for %s: %w", symbol, err)
	}

	c.log.Debug().Str("symbol", symbol).Str("price", price.String()).Msg("Fetched quote")

	return &domain.Quote{
		Symbol:        symbol,
		CurrentPrice:  price,
		PreviousClose: prevClose,
	}, nil
}
