package finnhub

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient("test-token", zerolog.Nop(), WithBaseURL(server.URL))
}

func TestFetchQuote(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/quote", r.URL.Path)
		assert.Equal(t, "MSFT", r.URL.Query().Get("symbol"))
		assert.Equal(t, "test-token", r.URL.Query().Get("token"))
		_, _ = w.Write([]byte(`{"c": 385.2, "d": 2.1, "dp": 0.55, "h": 386, "l": 380, "o": 381, "pc": 383.1, "t": 1700000000}`))
	})

	q, err := client.FetchQuote(context.Background(), "MSFT")
	require.NoError(t, err)
	assert.Equal(t, "385.20", q.CurrentPrice.StringFixed(2))
	assert.Equal(t, "383.10", q.PreviousClose.StringFixed(2))
}

func TestFetchQuoteUnknownSymbol(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"c": 0, "d": null, "dp": null, "h": 0, "l": 0, "o": 0, "pc": 0, "t": 0}`))
	})

	_, err := client.FetchQuote(context.Background(), "ZZZZ")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no quote for ZZZZ")
}

func TestFetchQuoteStatusError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.FetchQuote(context.Background(), "MSFT")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestFetchQuoteCancelledContext(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"c": 1, "pc": 1}`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.FetchQuote(ctx, "MSFT")
	assert.Error(t, err)
}
