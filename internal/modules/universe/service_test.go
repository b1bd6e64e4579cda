package universe

import (
	"context"
	"testing"

	"github.com/aristath/portfolio-manager/internal/domain"
	testingpkg "github.com/aristath/portfolio-manager/internal/testing"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type namelessQuotes struct {
	*testingpkg.MockPriceLookup
}

func (n namelessQuotes) CurrentPrice(ctx context.Context, symbol string) domain.Quote {
	q := n.MockPriceLookup.CurrentPrice(ctx, symbol)
	q.CompanyName = ""
	return q
}

func TestEnsureStockExisting(t *testing.T) {
	prices := testingpkg.NewMockPriceLookup()
	svc := NewService(newStockRepo(t), prices, zerolog.Nop())

	s, err := svc.EnsureStock(context.Background(), "jpm")
	require.NoError(t, err)
	assert.Equal(t, "JPMorgan Chase & Co.", s.CompanyName)
	assert.Equal(t, 0, prices.Calls("JPM"))
}

func TestEnsureStockUsesQuoteName(t *testing.T) {
	prices := testingpkg.NewMockPriceLookup()
	svc := NewService(newStockRepo(t), prices, zerolog.Nop())
	ctx := context.Background()

	s, err := svc.EnsureStock(ctx, "AMD")
	require.NoError(t, err)
	assert.Equal(t, "AMD Corp", s.CompanyName)
	assert.Equal(t, 1, prices.Calls("AMD"))

	again, err := svc.EnsureStock(ctx, "AMD")
	require.NoError(t, err)
	assert.Equal(t, s.ID, again.ID)
	assert.Equal(t, 1, prices.Calls("AMD"))
}

func TestEnsureStockDefaultName(t *testing.T) {
	svc := NewService(newStockRepo(t), namelessQuotes{testingpkg.NewMockPriceLookup()}, zerolog.Nop())

	s, err := svc.EnsureStock(context.Background(), "PLTR")
	require.NoError(t, err)
	assert.Equal(t, "PLTR Inc.", s.CompanyName)
}

func TestStockBySymbolNotFound(t *testing.T) {
	svc := NewService(newStockRepo(t), testingpkg.NewMockPriceLookup(), zerolog.Nop())

	_, err := svc.StockBySymbol(context.Background(), "XYZ")
	require.Error(t, err)
	assert.True(t, domain.IsNotFound(err))
	assert.Equal(t, "Stock not found with symbol: XYZ", err.Error())
}

func TestPriceNormalizesSymbol(t *testing.T) {
	prices := testingpkg.NewMockPriceLookup()
	prices.SetPrice("NVDA", decimal.RequireFromString("480.25"))
	svc := NewService(newStockRepo(t), prices, zerolog.Nop())

	q := svc.Price(context.Background(), "nvda")
	assert.Equal(t, "480.25", q.CurrentPrice.StringFixed(2))
	assert.Equal(t, 1, prices.Calls("NVDA"))
}
