package portfolio

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/aristath/portfolio-manager/internal/domain"
	testingpkg "github.com/aristath/portfolio-manager/internal/testing"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const userID = int64(1)

type fixture struct {
	svc        *Service
	portfolios *testingpkg.MockPortfolioStore
	holdings   *testingpkg.MockHoldingsStore
	balances   *testingpkg.MockBalanceStore
	prices     *testingpkg.MockPriceLookup
}

func newFixture() *fixture {
	f := &fixture{
		portfolios: testingpkg.NewMockPortfolioStore(),
		holdings:   testingpkg.NewMockHoldingsStore(),
		balances:   testingpkg.NewMockBalanceStore(),
		prices:     testingpkg.NewMockPriceLookup(),
	}
	users := testingpkg.NewMockUserLookup(testingpkg.NewUserFixture(userID), testingpkg.NewUserFixture(2))
	stocks := testingpkg.NewMockStockResolver(domain.Stock{ID: 7, Symbol: "AAPL", CompanyName: "Apple Inc.", Sector: "Technology"})
	f.svc = NewService(f.portfolios, f.holdings, f.balances, users, f.prices, stocks, zerolog.Nop())
	return f
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestBuyStockDebitsBalance(t *testing.T) {
	f := newFixture()
	f.balances.SetBalance(userID, dec("50000"))

	h, err := f.svc.BuyStock(context.Background(), userID, "AAPL", 10, dec("150.00"))
	require.NoError(t, err)

	assert.Equal(t, 10, h.Quantity)
	assert.Equal(t, "150.00", h.BuyPrice.StringFixed(2))
	assert.Equal(t, int64(7), h.StockID)
	assert.Equal(t, "Technology", h.Sector)
	assert.Equal(t, "48500.00", f.balances.Balance(userID).StringFixed(2))
	assert.Equal(t, 1, f.holdings.Count())

	p, err := f.portfolios.PortfolioByUserID(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, "John's Portfolio", p.Name)
}

func TestBuyStockInsufficientBalance(t *testing.T) {
	f := newFixture()
	f.balances.SetBalance(userID, dec("100"))

	_, err := f.svc.BuyStock(context.Background(), userID, "AAPL", 10, dec("150.00"))
	require.Error(t, err)
	assert.True(t, domain.IsInvalidOperation(err))
	assert.Equal(t, "Insufficient bank balance", err.Error())

	assert.Equal(t, 0, f.holdings.Count())
	assert.Equal(t, "100.00", f.balances.Balance(userID).StringFixed(2))
}

func TestBuyStockRollsBackWhenDebitLosesRace(t *testing.T) {
	f := newFixture()
	f.balances.SetBalance(userID, dec("2000"))
	// a concurrent withdrawal drains the account between the check and the debit
	f.balances.SetAdjustError(&domain.InsufficientBalanceError{Available: dec("100")})

	_, err := f.svc.BuyStock(context.Background(), userID, "AAPL", 10, dec("150.00"))
	require.Error(t, err)
	assert.True(t, domain.IsInvalidOperation(err))
	assert.Equal(t, "Insufficient bank balance", err.Error())
	assert.Equal(t, 0, f.holdings.Count())
}

func TestBuyStockDebitFailure(t *testing.T) {
	f := newFixture()
	f.balances.SetBalance(userID, dec("2000"))
	f.balances.SetAdjustError(errors.New("database is locked"))

	_, err := f.svc.BuyStock(context.Background(), userID, "AAPL", 10, dec("150.00"))
	require.Error(t, err)
	assert.False(t, domain.IsInvalidOperation(err))
	assert.Contains(t, err.Error(), "failed to debit balance")
}

func TestConcurrentBuysNeverOverdraw(t *testing.T) {
	f := newFixture()
	f.balances.SetBalance(userID, dec("1000"))

	var wg sync.WaitGroup
	var mu sync.Mutex
	bought := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.svc.BuyStock(context.Background(), userID, "AAPL", 1, dec("300")); err == nil {
				mu.Lock()
				bought++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, bought)
	assert.Equal(t, 3, f.holdings.Count())
	assert.Equal(t, "100.00", f.balances.Balance(userID).StringFixed(2))
}

func TestBuyStockValidation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.BuyStock(ctx, userID, "AAPL", 0, dec("1"))
	assert.True(t, domain.IsInvalidOperation(err))

	_, err = f.svc.BuyStock(ctx, userID, "AAPL", 1, dec("-1"))
	assert.True(t, domain.IsInvalidOperation(err))

	_, err = f.svc.BuyStock(ctx, 99, "AAPL", 1, dec("1"))
	assert.True(t, domain.IsNotFound(err))
}

func TestBuyStockAtZeroPriceNeedsNoBalance(t *testing.T) {
	f := newFixture()

	h, err := f.svc.BuyStock(context.Background(), userID, "NEWCO", 3, decimal.Zero)
	require.NoError(t, err)
	assert.Equal(t, "NEWCO Inc.", h.CompanyName)
	assert.True(t, f.balances.Balance(userID).IsZero())
}

func seedHolding(t *testing.T, f *fixture, owner int64, qty int) int64 {
	t.Helper()
	h := &domain.Holding{UserID: owner, Symbol: "AAPL", Quantity: qty, BuyPrice: dec("150")}
	require.NoError(t, f.holdings.Save(context.Background(), h))
	return h.ID
}

func TestSellStockFullQuantityDeletes(t *testing.T) {
	f := newFixture()
	f.prices.SetPrice("AAPL", dec("180.25"))
	f.balances.SetBalance(userID, dec("1000"))
	id := seedHolding(t, f, userID, 10)

	sale, err := f.svc.SellStock(context.Background(), userID, id, 10)
	require.NoError(t, err)

	assert.Equal(t, 0, sale.RemainingQuantity)
	assert.Equal(t, "1802.50", sale.Proceeds.StringFixed(2))
	assert.Equal(t, "2802.50", f.balances.Balance(userID).StringFixed(2))
	assert.Equal(t, 0, f.holdings.Count())
	assert.Equal(t, 1, f.prices.Calls("AAPL"))
}

func TestSellStockPartialQuantity(t *testing.T) {
	f := newFixture()
	f.prices.SetPrice("AAPL", dec("200"))
	id := seedHolding(t, f, userID, 10)

	sale, err := f.svc.SellStock(context.Background(), userID, id, 4)
	require.NoError(t, err)
	assert.Equal(t, 6, sale.RemainingQuantity)
	assert.Equal(t, "800.00", f.balances.Balance(userID).StringFixed(2))

	h, err := f.holdings.ByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.Equal(t, 6, h.Quantity)
}

func TestSellStockRejections(t *testing.T) {
	f := newFixture()
	f.balances.SetBalance(userID, dec("10"))
	id := seedHolding(t, f, userID, 5)
	ctx := context.Background()

	tests := []struct {
		name    string
		user    int64
		holding int64
		qty     int
		want    string
		check   func(error) bool
	}{
		{"missing holding", userID, 999, 1, "Investment not found with id: 999", domain.IsNotFound},
		{"other user", 2, id, 1, "Investment does not belong to user", domain.IsInvalidOperation},
		{"oversell", userID, id, 6, "Cannot sell more than owned", domain.IsInvalidOperation},
		{"zero quantity", userID, id, 0, "Quantity must be greater than 0", domain.IsInvalidOperation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.SellStock(ctx, tt.user, tt.holding, tt.qty)
			require.Error(t, err)
			assert.True(t, tt.check(err))
			assert.Equal(t, tt.want, err.Error())
		})
	}

	h, err := f.holdings.ByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 5, h.Quantity)
	assert.Equal(t, "10.00", f.balances.Balance(userID).StringFixed(2))
	assert.Equal(t, 0, f.prices.Calls("AAPL"))
}

func TestGetPortfolioNotFound(t *testing.T) {
	f := newFixture()

	_, err := f.svc.GetPortfolio(context.Background(), userID)
	require.Error(t, err)
	assert.True(t, domain.IsNotFound(err))
	assert.Equal(t, "Portfolio not found with userId: 1", err.Error())
}

func TestGetPortfolioValuation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, err := f.portfolios.EnsurePortfolio(ctx, userID, "John's Portfolio")
	require.NoError(t, err)
	f.holdings.SetHoldings(testingpkg.NewHoldingFixtures(userID))
	f.balances.SetBalance(userID, dec("2500"))
	f.prices.SetPrice("AAPL", dec("165"))
	f.prices.SetPrice("JPM", dec("133"))
	f.prices.SetPrice("JNJ", dec("160"))

	view, err := f.svc.GetPortfolio(ctx, userID)
	require.NoError(t, err)

	assert.Equal(t, "John Doe", view.UserName)
	assert.Equal(t, "John's Portfolio", view.PortfolioName)
	require.Len(t, view.Holdings, 3)

	aapl := view.Holdings[0]
	assert.Equal(t, "1650.00", aapl.CurrentValue.StringFixed(2))
	assert.Equal(t, "150.00", aapl.ProfitLoss.StringFixed(2))
	assert.Equal(t, "10.00", aapl.ProfitLossPercentage.StringFixed(2))
	assert.Equal(t, "2024-01-15", aapl.BuyDate)

	jpm := view.Holdings[1]
	assert.Equal(t, "-35.00", jpm.ProfitLoss.StringFixed(2))
	assert.Equal(t, "-5.00", jpm.ProfitLossPercentage.StringFixed(2))

	assert.Equal(t, "3595.00", view.TotalValue.StringFixed(2))
	assert.Equal(t, "3480.00", view.TotalCost.StringFixed(2))
	assert.Equal(t, "115.00", view.TotalProfitLoss.StringFixed(2))
	// 115/3480 = 0.033045.. rounds to 0.0330 before scaling
	assert.Equal(t, "3.30", view.TotalProfitLossPercentage.StringFixed(2))

	assert.Equal(t, "3595.00", view.AssetAllocation.Stocks.StringFixed(2))
	assert.True(t, view.AssetAllocation.Bonds.IsZero())
	assert.True(t, view.AssetAllocation.Crypto.IsZero())
	assert.Equal(t, "2500.00", view.AssetAllocation.Cash.StringFixed(2))

	for _, symbol := range []string{"AAPL", "JPM", "JNJ"} {
		assert.Equal(t, 1, f.prices.Calls(symbol), symbol)
	}
}

func TestGetPortfolioEmptyCreatesBalance(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, err := f.portfolios.EnsurePortfolio(ctx, userID, "John's Portfolio")
	require.NoError(t, err)

	view, err := f.svc.GetPortfolio(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, view.Holdings)
	assert.True(t, view.TotalProfitLossPercentage.IsZero())
	assert.True(t, view.AssetAllocation.Cash.IsZero())
}

func TestPercentOfZeroBase(t *testing.T) {
	assert.True(t, percentOf(dec("10"), decimal.Zero).IsZero())
	assert.Equal(t, "33.33", percentOf(dec("1"), dec("3")).StringFixed(2))
}
