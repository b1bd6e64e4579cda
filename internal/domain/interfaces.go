package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// HoldingsStore persists holdings.
// Lookups return (nil, nil) when the holding does not exist.
type HoldingsStore interface {
	HoldingsForUser(ctx context.Context, userID int64) ([]Holding, error)
	ByID(ctx context.Context, id int64) (*Holding, error)
	// Save inserts a holding when ID is zero (setting ID) and updates its quantity otherwise
	Save(ctx context.Context, h *Holding) error
	Delete(ctx context.Context, id int64) error
}

// RiskProfileStore persists the per-user cached risk classification.
// ByUserID returns (nil, nil) when no profile exists yet.
type RiskProfileStore interface {
	ByUserID(ctx context.Context, userID int64) (*RiskProfile, error)
	Save(ctx context.Context, p *RiskProfile) error
}

// BalanceStore persists bank balances.
// EnsureAccount returns the user's account, creating it with a zero balance if absent.
// Adjust adds delta to the balance atomically and returns the updated account; a
// debit larger than the balance fails with *InsufficientBalanceError.
type BalanceStore interface {
	EnsureAccount(ctx context.Context, userID int64) (*BankAccount, error)
	Adjust(ctx context.Context, userID int64, delta decimal.Decimal) (*BankAccount, error)
}

// UserLookup resolves users. ByID returns (nil, nil) when the user does not exist.
type UserLookup interface {
	ByID(ctx context.Context, id int64) (*User, error)
}

// PriceLookup returns the current quote for a symbol.
// It never fails: provider errors degrade to a deterministic fallback quote.
type PriceLookup interface {
	CurrentPrice(ctx context.Context, symbol string) Quote
}

// CompletionService turns a prompt into free text
type CompletionService interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
