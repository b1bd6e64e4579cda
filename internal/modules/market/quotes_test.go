package market

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aristath/portfolio-manager/internal/clientdata"
	"github.com/aristath/portfolio-manager/internal/domain"
	testingpkg "github.com/aristath/portfolio-manager/internal/testing"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	mu     sync.Mutex
	prices map[string]string
	err    error
	delay  time.Duration
	calls  int
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) FetchQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	p.mu.Lock()
	p.calls++
	err, delay := p.err, p.delay
	price, ok := p.prices[symbol]
	p.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.New("unknown symbol")
	}
	return &domain.Quote{
		CurrentPrice:  decimal.RequireFromString(price),
		PreviousClose: decimal.RequireFromString("100"),
	}, nil
}

func (p *fakeProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func newCache(t *testing.T) *clientdata.Cache {
	t.Helper()
	db, cleanup := testingpkg.NewTestDB(t, "client_data")
	t.Cleanup(cleanup)
	return clientdata.NewCache(db.Conn())
}

func TestCurrentPriceFromProviderIsCached(t *testing.T) {
	provider := &fakeProvider{prices: map[string]string{"AAPL": "110"}}
	svc := NewQuoteService(provider, newCache(t), time.Second, zerolog.Nop())
	ctx := context.Background()

	first := svc.CurrentPrice(ctx, "AAPL")
	assert.Equal(t, domain.QuoteSourceProvider, first.Source)
	assert.Equal(t, "110.00", first.CurrentPrice.StringFixed(2))
	assert.Equal(t, "10.00", first.Change.StringFixed(2))
	assert.Equal(t, "10.00", first.ChangePercent.StringFixed(2))
	assert.Equal(t, domain.TrendUp, first.Trend)
	assert.Equal(t, "USD", first.Currency)

	second := svc.CurrentPrice(ctx, "AAPL")
	assert.Equal(t, domain.QuoteSourceCache, second.Source)
	assert.Equal(t, "110.00", second.CurrentPrice.StringFixed(2))
	assert.Equal(t, 1, provider.callCount())
}

func TestCurrentPriceUsesStaleCacheOnProviderFailure(t *testing.T) {
	cache := newCache(t)
	ctx := context.Background()
	require.NoError(t, cache.PutFor(ctx, clientdata.Quotes, "MSFT", cachedQuote{
		Symbol:        "MSFT",
		CurrentPrice:  "390.10",
		PreviousClose: "395.00",
	}, -time.Minute))

	provider := &fakeProvider{err: errors.New("rate limited")}
	svc := NewQuoteService(provider, cache, time.Second, zerolog.Nop())

	q := svc.CurrentPrice(ctx, "MSFT")
	assert.Equal(t, domain.QuoteSourceStaleCache, q.Source)
	assert.Equal(t, "390.10", q.CurrentPrice.StringFixed(2))
	assert.Equal(t, domain.TrendDown, q.Trend)
	assert.Equal(t, 1, provider.callCount())
}

func TestCurrentPriceFallsBackToTable(t *testing.T) {
	provider := &fakeProvider{err: errors.New("down")}
	svc := NewQuoteService(provider, newCache(t), time.Second, zerolog.Nop())

	q := svc.CurrentPrice(context.Background(), "AAPL")
	assert.Equal(t, domain.QuoteSourceFallback, q.Source)
	assert.Equal(t, "175.50", q.CurrentPrice.StringFixed(2))
	assert.Equal(t, "171.99", q.PreviousClose.StringFixed(2))
	assert.Equal(t, "3.51", q.Change.StringFixed(2))
	assert.Equal(t, "2.04", q.ChangePercent.StringFixed(2))
	assert.Equal(t, domain.TrendUp, q.Trend)
}

func TestCurrentPriceUnknownSymbolFallback(t *testing.T) {
	svc := NewQuoteService(&fakeProvider{err: errors.New("down")}, nil, time.Second, zerolog.Nop())

	q := svc.CurrentPrice(context.Background(), "ZZZZ")
	assert.Equal(t, "100.00", q.CurrentPrice.StringFixed(2))
	assert.Equal(t, "98.00", q.PreviousClose.StringFixed(2))
	assert.Equal(t, "ZZZZ", q.Symbol)
}

func TestCurrentPriceProviderTimeout(t *testing.T) {
	provider := &fakeProvider{prices: map[string]string{"NVDA": "500"}, delay: time.Second}
	svc := NewQuoteService(provider, nil, 20*time.Millisecond, zerolog.Nop())

	start := time.Now()
	q := svc.CurrentPrice(context.Background(), "NVDA")

	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, domain.QuoteSourceFallback, q.Source)
	assert.Equal(t, "485.90", q.CurrentPrice.StringFixed(2))
}

func TestTrendingKeepsOrder(t *testing.T) {
	svc := NewQuoteService(&fakeProvider{err: errors.New("down")}, nil, time.Second, zerolog.Nop())

	quotes := svc.Trending(context.Background())
	require.Len(t, quotes, len(TrendingSymbols))
	for i, symbol := range TrendingSymbols {
		assert.Equal(t, symbol, quotes[i].Symbol)
	}
}
