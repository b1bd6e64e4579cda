package market

import (
	"github.com/aristath/portfolio-manager/internal/domain"
	"github.com/shopspring/decimal"
)

// fallbackPrices is the deterministic price table used in degraded mode
var fallbackPrices = map[string]decimal.Decimal{
	"AAPL":  decimal.RequireFromString("175.50"),
	"GOOGL": decimal.RequireFromString("142.30"),
	"MSFT":  decimal.RequireFromString("385.20"),
	"AMZN":  decimal.RequireFromString("145.80"),
	"TSLA":  decimal.RequireFromString("245.60"),
	"META":  decimal.RequireFromString("320.40"),
	"NVDA":  decimal.RequireFromString("485.90"),
	"JPM":   decimal.RequireFromString("155.20"),
	"V":     decimal.RequireFromString("225.70"),
	"JNJ":   decimal.RequireFromString("165.30"),
	"WMT":   decimal.RequireFromString("152.40"),
	"PG":    decimal.RequireFromString("145.60"),
}

var (
	defaultFallbackPrice = decimal.RequireFromString("100.00")
	fallbackCloseRatio   = decimal.RequireFromString("0.98")
)

// FallbackQuote returns the degraded-mode quote for a symbol: a fixed table
// price (100.00 for unknown symbols) with previous close at 98% of it.
func FallbackQuote(symbol string) domain.Quote {
	price, ok := fallbackPrices[symbol]
	if !ok {
		price = defaultFallbackPrice
	}

	q := domain.Quote{
		Symbol:        symbol,
		CurrentPrice:  price,
		PreviousClose: price.Mul(fallbackCloseRatio),
		Source:        domain.QuoteSourceFallback,
	}
	fillDerived(&q)
	return q
}

// fillDerived computes change, changePercent, trend and currency from the
// current price and previous close.
func fillDerived(q *domain.Quote) {
	q.Change = q.CurrentPrice.Sub(q.PreviousClose)
	q.ChangePercent = decimal.Zero
	if q.PreviousClose.IsPositive() {
		q.ChangePercent = q.Change.DivRound(q.PreviousClose, 4).Mul(decimal.NewFromInt(100))
	}

	q.Trend = domain.TrendDown
	if !q.Change.IsNegative() {
		q.Trend = domain.TrendUp
	}

	if q.Currency == "" {
		q.Currency = "USD"
	}
}
