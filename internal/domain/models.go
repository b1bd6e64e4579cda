// Package domain provides core domain models and types.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RiskCategory is the coarse classification of a portfolio's risk
type RiskCategory string

const (
	RiskConservative RiskCategory = "CONSERVATIVE"
	RiskModerate     RiskCategory = "MODERATE"
	RiskAggressive   RiskCategory = "AGGRESSIVE"
)

// Valid reports whether c is one of the three known categories
func (c RiskCategory) Valid() bool {
	switch c {
	case RiskConservative, RiskModerate, RiskAggressive:
		return true
	}
	return false
}

// InvestmentHorizon is the user's intended holding period
type InvestmentHorizon string

const (
	HorizonShort  InvestmentHorizon = "SHORT"
	HorizonMedium InvestmentHorizon = "MEDIUM"
	HorizonLong   InvestmentHorizon = "LONG"
)

// Asset types
const (
	AssetTypeStock  = "STOCK"
	AssetTypeBond   = "BOND"
	AssetTypeCrypto = "CRYPTO"
	AssetTypeCash   = "CASH"
)

// User is a registered account holder
type User struct {
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Phone        string    `json:"phone"`
	ID           int64     `json:"id"`
}

// Stock is an instrument in the universe
type Stock struct {
	Symbol      string `json:"symbol"`
	CompanyName string `json:"companyName"`
	Sector      string `json:"sector"`
	Industry    string `json:"industry"`
	Currency    string `json:"currency"`
	ID          int64  `json:"id"`
}

// Portfolio is the container a user's holdings belong to
type Portfolio struct {
	CreatedAt   time.Time `json:"createdAt"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	ID          int64     `json:"id"`
	UserID      int64     `json:"userId"`
}

// Holding is a user's position in one instrument.
// Quantity is always positive; a fully sold holding is deleted.
type Holding struct {
	BuyDate     time.Time       `json:"buyDate"`
	BuyPrice    decimal.Decimal `json:"buyPrice"`
	Symbol      string          `json:"symbol"`
	CompanyName string          `json:"companyName"`
	Sector      string          `json:"sector"`
	Industry    string          `json:"industry"`
	AssetType   string          `json:"assetType"`
	ID          int64           `json:"id"`
	PortfolioID int64           `json:"portfolioId"`
	UserID      int64           `json:"userId"`
	StockID     int64           `json:"stockId"`
	Quantity    int             `json:"quantity"`
}

// Cost returns buyPrice * quantity
func (h Holding) Cost() decimal.Decimal {
	return h.BuyPrice.Mul(decimal.NewFromInt(int64(h.Quantity)))
}

// RiskProfile is the cached last-computed risk classification of a user
type RiskProfile struct {
	LastAnalyzedAt       time.Time         `json:"lastAnalyzedAt"`
	VolatilityScore      decimal.Decimal   `json:"volatilityScore"`
	DiversificationScore decimal.Decimal   `json:"diversificationScore"`
	MaxLossTolerance     decimal.Decimal   `json:"maxLossTolerance"`
	Category             RiskCategory      `json:"riskCategory"`
	InvestmentHorizon    InvestmentHorizon `json:"investmentHorizon"`
	ID                   int64             `json:"id"`
	UserID               int64             `json:"userId"`
}

// BankAccount holds a user's cash balance. Balance never goes negative.
type BankAccount struct {
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
	Balance       decimal.Decimal `json:"currentBalance"`
	AccountNumber string          `json:"accountNumber"`
	BankName      string          `json:"bankName"`
	AccountType   string          `json:"accountType"`
	ID            int64           `json:"id"`
	UserID        int64           `json:"userId"`
}

// QuoteSource records where a quote came from
type QuoteSource string

const (
	QuoteSourceProvider   QuoteSource = "provider"
	QuoteSourceCache      QuoteSource = "cache"
	QuoteSourceStaleCache QuoteSource = "stale_cache"
	QuoteSourceFallback   QuoteSource = "fallback"
)

// Trend directions
const (
	TrendUp   = "UP"
	TrendDown = "DOWN"
)

// Quote is a current price for a symbol
type Quote struct {
	CurrentPrice  decimal.Decimal `json:"currentPrice"`
	PreviousClose decimal.Decimal `json:"previousClose"`
	Change        decimal.Decimal `json:"change"`
	ChangePercent decimal.Decimal `json:"changePercent"`
	Symbol        string          `json:"symbol"`
	CompanyName   string          `json:"companyName,omitempty"`
	Trend         string          `json:"trend"`
	Currency      string          `json:"currency"`
	Source        QuoteSource     `json:"source"`
}
