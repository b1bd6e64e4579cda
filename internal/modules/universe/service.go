// Package universe manages the instrument universe and serves stock quotes.
package universe

import (
	"context"
	"fmt"

	"github.com/aristath/portfolio-manager/internal/domain"
	"github.com/rs/zerolog"
)

// QuoteSource serves live quotes for the stock endpoints
type QuoteSource interface {
	domain.PriceLookup
	Trending(ctx context.Context) []domain.Quote
}

// Service exposes the instrument universe
type Service struct {
	stocks *StockRepository
	quotes QuoteSource
	log    zerolog.Logger
}

// NewService creates a new universe service
func NewService(stocks *StockRepository, quotes QuoteSource, log zerolog.Logger) *Service {
	return &Service{
		stocks: stocks,
		quotes: quotes,
		log:    log.With().Str("service", "universe").Logger(),
	}
}

// StockBySymbol returns the instrument or a NotFound error
func (s *Service) StockBySymbol(ctx context.Context, symbol string) (*domain.Stock, error) {
	stock, err := s.stocks.BySymbol(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if stock == nil {
		return nil, domain.NotFoundBy("Stock", "symbol", symbol)
	}
	return stock, nil
}

// EnsureStock returns the instrument for symbol, adding it to the universe on
// first sight. The company name comes from the quote, or "<SYMBOL> Inc.".
func (s *Service) EnsureStock(ctx context.Context, symbol string) (*domain.Stock, error) {
	symbol = NormalizeSymbol(symbol)

	stock, err := s.stocks.BySymbol(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if stock != nil {
		return stock, nil
	}

	name := s.quotes.CurrentPrice(ctx, symbol).CompanyName
	if name == "" {
		name = symbol + " Inc."
	}

	stock = &domain.Stock{Symbol: symbol, CompanyName: name, Currency: "USD"}
	if err := s.stocks.Create(ctx, stock); err != nil {
		return nil, fmt.Errorf("failed to create stock %s: %w", symbol, err)
	}
	return stock, nil
}

// Search finds instruments by symbol or company name
func (s *Service) Search(ctx context.Context, query string) ([]domain.Stock, error) {
	return s.stocks.Search(ctx, query)
}

// List returns every instrument
func (s *Service) List(ctx context.Context) ([]domain.Stock, error) {
	return s.stocks.List(ctx)
}

// Price returns the current quote for symbol
func (s *Service) Price(ctx context.Context, symbol string) domain.Quote {
	return s.quotes.CurrentPrice(ctx, NormalizeSymbol(symbol))
}

// Trending returns quotes for the trending board
func (s *Service) Trending(ctx context.Context) []domain.Quote {
	return s.quotes.Trending(ctx)
}
