package testing

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aristath/portfolio-manager/internal/domain"
	"github.com/shopspring/decimal"
)

// MockHoldingsStore is an in-memory implementation of domain.HoldingsStore for testing
type MockHoldingsStore struct {
	mu       sync.RWMutex
	holdings map[int64]domain.Holding
	nextID   int64
	err      error
}

// NewMockHoldingsStore creates a new mock holdings store
func NewMockHoldingsStore() *MockHoldingsStore {
	return &MockHoldingsStore{
		holdings: make(map[int64]domain.Holding),
		nextID:   1,
	}
}

// SetHoldings replaces the stored holdings. Holdings without an ID get one.
func (m *MockHoldingsStore) SetHoldings(holdings []domain.Holding) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.holdings = make(map[int64]domain.Holding, len(holdings))
	for _, h := range holdings {
		if h.ID == 0 {
			h.ID = m.nextID
		}
		if h.ID >= m.nextID {
			m.nextID = h.ID + 1
		}
		m.holdings[h.ID] = h
	}
}

// SetError sets the error to return
func (m *MockHoldingsStore) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// HoldingsForUser returns the user's holdings ordered by ID
func (m *MockHoldingsStore) HoldingsForUser(_ context.Context, userID int64) ([]domain.Holding, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, m.err
	}

	result := make([]domain.Holding, 0)
	for _, h := range m.holdings {
		if h.UserID == userID {
			result = append(result, h)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// ByID returns a holding, or nil when absent
func (m *MockHoldingsStore) ByID(_ context.Context, id int64) (*domain.Holding, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	h, ok := m.holdings[id]
	if !ok {
		return nil, nil
	}
	return &h, nil
}

// Save inserts or updates a holding
func (m *MockHoldingsStore) Save(_ context.Context, h *domain.Holding) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if h.ID == 0 {
		h.ID = m.nextID
		m.nextID++
	}
	m.holdings[h.ID] = *h
	return nil
}

// Delete removes a holding
func (m *MockHoldingsStore) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	delete(m.holdings, id)
	return nil
}

// Count returns the number of stored holdings
func (m *MockHoldingsStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.holdings)
}

// MockRiskProfileStore is an in-memory implementation of domain.RiskProfileStore
type MockRiskProfileStore struct {
	mu       sync.RWMutex
	profiles map[int64]domain.RiskProfile
	saves    int
	err      error
}

// NewMockRiskProfileStore creates a new mock risk profile store
func NewMockRiskProfileStore() *MockRiskProfileStore {
	return &MockRiskProfileStore{profiles: make(map[int64]domain.RiskProfile)}
}

// SetError sets the error to return
func (m *MockRiskProfileStore) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// ByUserID returns the stored profile, or nil when absent
func (m *MockRiskProfileStore) ByUserID(_ context.Context, userID int64) (*domain.RiskProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.profiles[userID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// Save stores a profile keyed by user
func (m *MockRiskProfileStore) Save(_ context.Context, p *domain.RiskProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if p.ID == 0 {
		p.ID = int64(len(m.profiles) + 1)
	}
	m.profiles[p.UserID] = *p
	m.saves++
	return nil
}

// Saves returns how many times Save succeeded
func (m *MockRiskProfileStore) Saves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}

// MockBalanceStore is an in-memory implementation of domain.BalanceStore
type MockBalanceStore struct {
	mu        sync.RWMutex
	accounts  map[int64]domain.BankAccount
	err       error
	adjustErr error
}

// NewMockBalanceStore creates a new mock balance store
func NewMockBalanceStore() *MockBalanceStore {
	return &MockBalanceStore{accounts: make(map[int64]domain.BankAccount)}
}

// SetBalance sets a user's balance, creating the account if needed
func (m *MockBalanceStore) SetBalance(userID int64, balance decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := m.accounts[userID]
	a.UserID = userID
	a.Balance = balance
	if a.ID == 0 {
		a.ID = userID
		a.AccountNumber = fmt.Sprintf("ACC%010d", userID)
	}
	m.accounts[userID] = a
}

// Balance returns a user's balance, zero when no account exists
func (m *MockBalanceStore) Balance(userID int64) decimal.Decimal {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.accounts[userID].Balance
}

// SetError sets the error to return
func (m *MockBalanceStore) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// EnsureAccount returns the account, creating it with a zero balance when absent
func (m *MockBalanceStore) EnsureAccount(_ context.Context, userID int64) (*domain.BankAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	a, ok := m.accounts[userID]
	if !ok {
		a = domain.BankAccount{
			ID:            userID,
			UserID:        userID,
			AccountNumber: fmt.Sprintf("ACC%010d", userID),
			BankName:      "Test Bank",
			AccountType:   "SAVINGS",
			Balance:       decimal.Zero,
		}
		m.accounts[userID] = a
	}
	return &a, nil
}

// Adjust adds delta to the balance, creating the account when absent
func (m *MockBalanceStore) Adjust(ctx context.Context, userID int64, delta decimal.Decimal) (*domain.BankAccount, error) {
	a, err := m.EnsureAccount(ctx, userID)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.adjustErr != nil {
		return nil, m.adjustErr
	}
	current := m.accounts[userID]
	next := current.Balance.Add(delta)
	if next.IsNegative() {
		return nil, &domain.InsufficientBalanceError{Available: current.Balance}
	}
	current.Balance = next
	m.accounts[userID] = current
	a.Balance = next
	return a, nil
}

// SetAdjustError makes Adjust fail while EnsureAccount keeps working
func (m *MockBalanceStore) SetAdjustError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.adjustErr = err
}

// MockUserLookup is an in-memory implementation of domain.UserLookup
type MockUserLookup struct {
	mu    sync.RWMutex
	users map[int64]domain.User
	err   error
}

// NewMockUserLookup creates a user lookup preloaded with the given users
func NewMockUserLookup(users ...domain.User) *MockUserLookup {
	m := &MockUserLookup{users: make(map[int64]domain.User)}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

// SetError sets the error to return
func (m *MockUserLookup) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// ByID returns the user, or nil when absent
func (m *MockUserLookup) ByID(_ context.Context, id int64) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

// MockPriceLookup is a fixed-table implementation of domain.PriceLookup.
// Unknown symbols are priced at 100.00.
type MockPriceLookup struct {
	mu     sync.RWMutex
	prices map[string]decimal.Decimal
	calls  map[string]int
}

// NewMockPriceLookup creates a new mock price lookup
func NewMockPriceLookup() *MockPriceLookup {
	return &MockPriceLookup{
		prices: make(map[string]decimal.Decimal),
		calls:  make(map[string]int),
	}
}

// SetPrice sets the price returned for a symbol
func (m *MockPriceLookup) SetPrice(symbol string, price decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices[symbol] = price
}

// Calls returns how many times a symbol was priced
func (m *MockPriceLookup) Calls(symbol string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls[symbol]
}

// CurrentPrice returns the configured quote
func (m *MockPriceLookup) CurrentPrice(_ context.Context, symbol string) domain.Quote {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[symbol]++

	price, ok := m.prices[symbol]
	if !ok {
		price = decimal.NewFromInt(100)
	}
	return domain.Quote{
		Symbol:        symbol,
		CompanyName:   symbol + " Corp",
		CurrentPrice:  price,
		PreviousClose: price,
		Trend:         domain.TrendUp,
		Currency:      "USD",
		Source:        domain.QuoteSourceFallback,
	}
}

// Trending prices every configured symbol in alphabetical order
func (m *MockPriceLookup) Trending(ctx context.Context) []domain.Quote {
	m.mu.RLock()
	symbols := make([]string, 0, len(m.prices))
	for symbol := range m.prices {
		symbols = append(symbols, symbol)
	}
	m.mu.RUnlock()
	sort.Strings(symbols)

	quotes := make([]domain.Quote, 0, len(symbols))
	for _, symbol := range symbols {
		quotes = append(quotes, m.CurrentPrice(ctx, symbol))
	}
	return quotes
}

// MockPortfolioStore is an in-memory portfolio container store
type MockPortfolioStore struct {
	mu         sync.RWMutex
	portfolios map[int64]domain.Portfolio
}

// NewMockPortfolioStore creates a new mock portfolio store
func NewMockPortfolioStore() *MockPortfolioStore {
	return &MockPortfolioStore{portfolios: make(map[int64]domain.Portfolio)}
}

// PortfolioByUserID returns the user's portfolio, or nil when absent
func (m *MockPortfolioStore) PortfolioByUserID(_ context.Context, userID int64) (*domain.Portfolio, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.portfolios[userID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// EnsurePortfolio returns the user's portfolio, creating it when absent
func (m *MockPortfolioStore) EnsurePortfolio(_ context.Context, userID int64, name string) (*domain.Portfolio, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.portfolios[userID]
	if !ok {
		p = domain.Portfolio{ID: userID, UserID: userID, Name: name}
		m.portfolios[userID] = p
	}
	return &p, nil
}

// MockStockResolver hands out instruments for any symbol
type MockStockResolver struct {
	mu     sync.Mutex
	stocks map[string]domain.Stock
}

// NewMockStockResolver creates a resolver preloaded with the given stocks
func NewMockStockResolver(stocks ...domain.Stock) *MockStockResolver {
	m := &MockStockResolver{stocks: make(map[string]domain.Stock)}
	for _, s := range stocks {
		m.stocks[s.Symbol] = s
	}
	return m
}

// EnsureStock returns the known stock or registers "<SYMBOL> Inc."
func (m *MockStockResolver) EnsureStock(_ context.Context, symbol string) (*domain.Stock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stocks[symbol]
	if !ok {
		s = domain.Stock{
			ID:          int64(len(m.stocks) + 1),
			Symbol:      symbol,
			CompanyName: symbol + " Inc.",
			Currency:    "USD",
		}
		m.stocks[symbol] = s
	}
	return &s, nil
}
