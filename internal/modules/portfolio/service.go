// Package portfolio values a user's holdings and settles buys and sells
// against their bank balance.
package portfolio

import (
	"context"
	"errors"
	"fmt"

	"github.com/aristath/portfolio-manager/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// PortfolioStore persists the per-user portfolio container
type PortfolioStore interface {
	PortfolioByUserID(ctx context.Context, userID int64) (*domain.Portfolio, error)
	EnsurePortfolio(ctx context.Context, userID int64, name string) (*domain.Portfolio, error)
}

// StockResolver returns the instrument for a symbol, adding it on first sight
type StockResolver interface {
	EnsureStock(ctx context.Context, symbol string) (*domain.Stock, error)
}

// HoldingView is one valued holding
type HoldingView struct {
	BuyPrice             decimal.Decimal `json:"buyPrice"`
	CurrentPrice         decimal.Decimal `json:"currentPrice"`
	CurrentValue         decimal.Decimal `json:"currentValue"`
	ProfitLoss           decimal.Decimal `json:"profitLoss"`
	ProfitLossPercentage decimal.Decimal `json:"profitLossPercentage"`
	Symbol               string          `json:"symbol"`
	CompanyName          string          `json:"companyName"`
	Sector               string          `json:"sector"`
	BuyDate              string          `json:"buyDate"`
	InvestmentID         int64           `json:"investmentId"`
	Quantity             int             `json:"quantity"`
}

// AssetAllocation splits the user's wealth by asset class
type AssetAllocation struct {
	Stocks decimal.Decimal `json:"stocks"`
	Bonds  decimal.Decimal `json:"bonds"`
	Crypto decimal.Decimal `json:"crypto"`
	Cash   decimal.Decimal `json:"cash"`
}

// View is a valued portfolio
type View struct {
	TotalValue                decimal.Decimal `json:"totalValue"`
	TotalCost                 decimal.Decimal `json:"totalCost"`
	TotalProfitLoss           decimal.Decimal `json:"totalProfitLoss"`
	TotalProfitLossPercentage decimal.Decimal `json:"totalProfitLossPercentage"`
	AssetAllocation           AssetAllocation `json:"assetAllocation"`
	UserName                  string          `json:"userName"`
	PortfolioName             string          `json:"portfolioName"`
	Description               string          `json:"description"`
	Holdings                  []HoldingView   `json:"holdings"`
	PortfolioID               int64           `json:"portfolioId"`
	UserID                    int64           `json:"userId"`
}

// Sale is the outcome of a sell
type Sale struct {
	Price             decimal.Decimal `json:"price"`
	Proceeds          decimal.Decimal `json:"proceeds"`
	Balance           decimal.Decimal `json:"balance"`
	Symbol            string          `json:"symbol"`
	InvestmentID      int64           `json:"investmentId"`
	QuantitySold      int             `json:"quantitySold"`
	RemainingQuantity int             `json:"remainingQuantity"`
}

var hundred = decimal.NewFromInt(100)

// Service values portfolios and executes trades.
// Buy and sell touch the balance and the holding in separate writes with no rollback.
type Service struct {
	portfolios PortfolioStore
	holdings   domain.HoldingsStore
	balances   domain.BalanceStore
	users      domain.UserLookup
	prices     domain.PriceLookup
	stocks     StockResolver
	log        zerolog.Logger
}

// NewService creates a new portfolio service
func NewService(
	portfolios PortfolioStore,
	holdings domain.HoldingsStore,
	balances domain.BalanceStore,
	users domain.UserLookup,
	prices domain.PriceLookup,
	stocks StockResolver,
	log zerolog.Logger,
) *Service {
	return &Service{
		portfolios: portfolios,
		holdings:   holdings,
		balances:   balances,
		users:      users,
		prices:     prices,
		stocks:     stocks,
		log:        log.With().Str("service", "portfolio").Logger(),
	}
}

// GetPortfolio values every holding at its current price. Each holding costs
// one price lookup. Cash in the allocation is the bank balance, created if absent.
func (s *Service) GetPortfolio(ctx context.Context, userID int64) (*View, error) {
	p, err := s.portfolios.PortfolioByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.NotFoundBy("Portfolio", "userId", userID)
	}

	view := &View{
		PortfolioID:   p.ID,
		UserID:        userID,
		PortfolioName: p.Name,
		Description:   p.Description,
	}

	user, err := s.users.ByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user != nil {
		view.UserName = user.FirstName + " " + user.LastName
	}

	holdings, err := s.holdings.HoldingsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load holdings: %w", err)
	}

	view.Holdings = make([]HoldingView, 0, len(holdings))
	for _, h := range holdings {
		hv := s.value(ctx, h)
		view.Holdings = append(view.Holdings, hv)
		view.TotalValue = view.TotalValue.Add(hv.CurrentValue)
		view.TotalCost = view.TotalCost.Add(h.Cost())
	}

	view.TotalProfitLoss = view.TotalValue.Sub(view.TotalCost)
	view.TotalProfitLossPercentage = percentOf(view.TotalProfitLoss, view.TotalCost)

	account, err := s.balances.EnsureAccount(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load bank balance: %w", err)
	}
	view.AssetAllocation = AssetAllocation{
		Stocks: view.TotalValue,
		Bonds:  decimal.Zero,
		Crypto: decimal.Zero,
		Cash:   account.Balance,
	}

	return view, nil
}

// BuyStock debits price*quantity from the bank balance and records the holding.
// The balance check happens before anything is written.
func (s *Service) BuyStock(ctx context.Context, userID int64, symbol string, quantity int, price decimal.Decimal) (*domain.Holding, error) {
	if quantity <= 0 {
		return nil, domain.InvalidOperation("Quantity must be greater than 0")
	}
	if price.IsNegative() {
		return nil, domain.InvalidOperation("Buy price cannot be negative")
	}

	user, err := s.users.ByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return nil, domain.NotFound("User", userID)
	}

	p, err := s.portfolios.EnsurePortfolio(ctx, userID, user.FirstName+"'s Portfolio")
	if err != nil {
		return nil, err
	}

	stock, err := s.stocks.EnsureStock(ctx, symbol)
	if err != nil {
		return nil, err
	}

	account, err := s.balances.EnsureAccount(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load bank balance: %w", err)
	}

	cost := price.Mul(decimal.NewFromInt(int64(quantity)))
	if account.Balance.LessThan(cost) {
		return nil, domain.InvalidOperation("Insufficient bank balance")
	}

	h := &domain.Holding{
		PortfolioID: p.ID,
		UserID:      userID,
		StockID:     stock.ID,
		Symbol:      stock.Symbol,
		CompanyName: stock.CompanyName,
		Sector:      stock.Sector,
		Industry:    stock.Industry,
		AssetType:   domain.AssetTypeStock,
		Quantity:    quantity,
		BuyPrice:    price,
	}
	if err := s.holdings.Save(ctx, h); err != nil {
		return nil, fmt.Errorf("failed to record holding: %w", err)
	}

	if _, err := s.balances.Adjust(ctx, userID, cost.Neg()); err != nil {
		var short *domain.InsufficientBalanceError
		if errors.As(err, &short) {
			// another debit landed since the check above
			if derr := s.holdings.Delete(ctx, h.ID); derr != nil {
				s.log.Error().Err(derr).Int64("holding_id", h.ID).Msg("Failed to roll back holding after losing balance race")
			}
			return nil, domain.InvalidOperation("Insufficient bank balance")
		}
		s.log.Error().Err(err).Int64("holding_id", h.ID).Msg("Holding recorded but balance debit failed")
		return nil, fmt.Errorf("failed to debit balance: %w", err)
	}

	s.log.Info().
		Int64("user_id", userID).
		Str("symbol", h.Symbol).
		Int("quantity", quantity).
		Str("cost", cost.String()).
		Msg("Stock bought")
	return h, nil
}

// SellStock credits currentPrice*quantity and shrinks or removes the holding.
// The price is fetched first, then the balance is credited, then the holding changes.
func (s *Service) SellStock(ctx context.Context, userID, holdingID int64, quantity int) (*Sale, error) {
	if quantity <= 0 {
		return nil, domain.InvalidOperation("Quantity must be greater than 0")
	}

	h, err := s.holdings.ByID(ctx, holdingID)
	if err != nil {
		return nil, fmt.Errorf("failed to load holding: %w", err)
	}
	if h == nil {
		return nil, domain.NotFound("Investment", holdingID)
	}
	if h.UserID != userID {
		return nil, domain.InvalidOperation("Investment does not belong to user")
	}
	if quantity > h.Quantity {
		return nil, domain.InvalidOperation("Cannot sell more than owned")
	}

	quote := s.prices.CurrentPrice(ctx, h.Symbol)
	proceeds := quote.CurrentPrice.Mul(decimal.NewFromInt(int64(quantity)))

	account, err := s.balances.Adjust(ctx, userID, proceeds)
	if err != nil {
		return nil, fmt.Errorf("failed to credit balance: %w", err)
	}

	remaining := h.Quantity - quantity
	if remaining == 0 {
		err = s.holdings.Delete(ctx, h.ID)
	} else {
		h.Quantity = remaining
		err = s.holdings.Save(ctx, h)
	}
	if err != nil {
		s.log.Error().Err(err).Int64("holding_id", h.ID).Msg("Balance credited but holding update failed")
		return nil, fmt.Errorf("failed to update holding: %w", err)
	}

	s.log.Info().
		Int64("user_id", userID).
		Str("symbol", h.Symbol).
		Int("quantity", quantity).
		Str("proceeds", proceeds.String()).
		Str("price_source", string(quote.Source)).
		Msg("Stock sold")

	return &Sale{
		InvestmentID:      h.ID,
		Symbol:            h.Symbol,
		QuantitySold:      quantity,
		RemainingQuantity: remaining,
		Price:             quote.CurrentPrice,
		Proceeds:          proceeds,
		Balance:           account.Balance,
	}, nil
}

func (s *Service) value(ctx context.Context, h domain.Holding) HoldingView {
	price := s.prices.CurrentPrice(ctx, h.Symbol).CurrentPrice
	current := price.Mul(decimal.NewFromInt(int64(h.Quantity)))
	profitLoss := current.Sub(h.Cost())

	return HoldingView{
		InvestmentID:         h.ID,
		Symbol:               h.Symbol,
		CompanyName:          h.CompanyName,
		Sector:               h.Sector,
		Quantity:             h.Quantity,
		BuyPrice:             h.BuyPrice,
		BuyDate:              h.BuyDate.Format(buyDateLayout),
		CurrentPrice:         price,
		CurrentValue:         current,
		ProfitLoss:           profitLoss,
		ProfitLossPercentage: percentOf(profitLoss, h.Cost()),
	}
}

// percentOf divides at 4 decimal places, half-up, then scales to a percentage.
// A zero base yields 0.
func percentOf(part, base decimal.Decimal) decimal.Decimal {
	if !base.IsPositive() {
		return decimal.Zero
	}
	return part.DivRound(base, 4).Mul(hundred)
}
