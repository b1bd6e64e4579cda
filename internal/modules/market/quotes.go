// Package market serves quotes, trending symbols, market indices and news.
// Provider failures never escape this package: quotes degrade to stale cache
// and then to a fixed price table, news degrades to an empty list.
package market

import (
	"context"
	"time"

	"github.com/aristath/portfolio-manager/internal/clientdata"
	"github.com/aristath/portfolio-manager/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// TrendingSymbols are the symbols shown on the trending board
var TrendingSymbols = []string{"AAPL", "GOOGL", "MSFT", "AMZN", "TSLA", "META", "NVDA", "JPM", "V", "JNJ"}

// QuoteProvider fetches a live quote. Implementations fill CurrentPrice,
// PreviousClose and optionally CompanyName.
type QuoteProvider interface {
	Name() string
	FetchQuote(ctx context.Context, symbol string) (*domain.Quote, error)
}

// cachedQuote is the structure stored in the cache
type cachedQuote struct {
	Symbol        string `msgpack:"symbol"`
	CompanyName   string `msgpack:"company_name"`
	CurrentPrice  string `msgpack:"current_price"`
	PreviousClose string `msgpack:"previous_close"`
	Currency      string `msgpack:"currency"`
}

// QuoteService implements domain.PriceLookup with cache-first lookups
type QuoteService struct {
	provider QuoteProvider
	cache    *clientdata.Cache
	timeout  time.Duration
	log      zerolog.Logger
}

// NewQuoteService creates a quote service.
// cache is optional - if nil, caching is disabled.
func NewQuoteService(provider QuoteProvider, cache *clientdata.Cache, timeout time.Duration, log zerolog.Logger) *QuoteService {
	return &QuoteService{
		provider: provider,
		cache:    cache,
		timeout:  timeout,
		log:      log.With().Str("service", "quotes").Logger(),
	}
}

// CurrentPrice returns a quote for symbol. Lookup order is fresh cache,
// provider (bounded by the configured timeout), stale cache, fallback table.
func (s *QuoteService) CurrentPrice(ctx context.Context, symbol string) domain.Quote {
	cached, entry := s.lookup(ctx, symbol)
	if entry.State == clientdata.Fresh {
		cached.Source = domain.QuoteSourceCache
		return cached
	}

	q, err := s.fetch(ctx, symbol)
	if err == nil {
		s.store(ctx, q)
		return q
	}

	if entry.State == clientdata.Stale {
		s.log.Warn().
			Err(err).
			Str("symbol", symbol).
			Str("provider", s.provider.Name()).
			Str("price", cached.CurrentPrice.String()).
			Dur("age", time.Since(entry.StoredAt)).
			Msg("Provider failed, using stale cached quote")
		cached.Source = domain.QuoteSourceStaleCache
		return cached
	}

	fallback := FallbackQuote(symbol)
	s.log.Warn().
		Err(err).
		Str("symbol", symbol).
		Str("provider", s.provider.Name()).
		Str("price", fallback.CurrentPrice.String()).
		Msg("Provider failed, using fallback quote")
	return fallback
}

// Trending returns quotes for TrendingSymbols in order
func (s *QuoteService) Trending(ctx context.Context) []domain.Quote {
	quotes := make([]domain.Quote, 0, len(TrendingSymbols))
	for _, symbol := range TrendingSymbols {
		quotes = append(quotes, s.CurrentPrice(ctx, symbol))
	}
	return quotes
}

func (s *QuoteService) fetch(ctx context.Context, symbol string) (domain.Quote, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	raw, err := s.provider.FetchQuote(ctx, symbol)
	if err != nil {
		return domain.Quote{}, err
	}

	q := *raw
	q.Symbol = symbol
	q.Source = domain.QuoteSourceProvider
	fillDerived(&q)
	return q, nil
}

// lookup reads the cached quote for symbol. Unreadable rows count as missing.
func (s *QuoteService) lookup(ctx context.Context, symbol string) (domain.Quote, clientdata.Entry) {
	missing := clientdata.Entry{State: clientdata.Missing}
	if s.cache == nil {
		return domain.Quote{}, missing
	}

	var cached cachedQuote
	entry, err := s.cache.Lookup(ctx, clientdata.Quotes, symbol, &cached)
	if err != nil {
		s.log.Debug().Err(err).Str("symbol", symbol).Msg("Quote cache read failed")
		return domain.Quote{}, missing
	}
	if entry.State == clientdata.Missing {
		return domain.Quote{}, missing
	}

	price, err := decimal.NewFromString(cached.CurrentPrice)
	if err != nil {
		return domain.Quote{}, missing
	}
	prevClose, err := decimal.NewFromString(cached.PreviousClose)
	if err != nil {
		return domain.Quote{}, missing
	}

	q := domain.Quote{
		Symbol:        symbol,
		CompanyName:   cached.CompanyName,
		CurrentPrice:  price,
		PreviousClose: prevClose,
		Currency:      cached.Currency,
	}
	fillDerived(&q)
	return q, entry
}

func (s *QuoteService) store(ctx context.Context, q domain.Quote) {
	if s.cache == nil {
		return
	}

	cached := cachedQuote{
		Symbol:        q.Symbol,
		CompanyName:   q.CompanyName,
		CurrentPrice:  q.CurrentPrice.String(),
		PreviousClose: q.PreviousClose.String(),
		Currency:      q.Currency,
	}
	if err := s.cache.Put(ctx, clientdata.Quotes, q.Symbol, cached); err != nil {
		s.log.Warn().Err(err).Str("symbol", q.Symbol).Msg("Failed to cache quote")
	}
}
