// Package banking manages the per-user cash balance used to settle trades.
package banking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aristath/portfolio-manager/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// DefaultAccountType is used when a request leaves the type empty
const DefaultAccountType = "CHECKING"

// maxAdjustAttempts bounds the retries of a balance write that lost a race
const maxAdjustAttempts = 10

const accountsColumns = `id, user_id, account_number, bank_name, account_type, balance, created_at, updated_at`

// Defaults are applied to accounts created lazily
type Defaults struct {
	BankName            string
	AccountNumberPrefix string
}

// Repository stores bank accounts and implements domain.BalanceStore
type Repository struct {
	db       *sql.DB
	defaults Defaults
	now      func() time.Time
	log      zerolog.Logger

	// adjustMu serializes balance writes from this process; the
	// compare-and-swap in Adjust covers writers in other processes
	adjustMu sync.Mutex
}

// NewRepository creates a new bank account repository
func NewRepository(db *sql.DB, defaults Defaults, log zerolog.Logger) *Repository {
	return &Repository{
		db:       db,
		defaults: defaults,
		now:      time.Now,
		log:      log.With().Str("repo", "bank_account").Logger(),
	}
}

// ByUserID returns the user's account, or nil when none exists
func (r *Repository) ByUserID(ctx context.Context, userID int64) (*domain.BankAccount, error) {
	a, err := scanAccount(r.db.QueryRowContext(ctx,
		"SELECT "+accountsColumns+" FROM bank_accounts WHERE user_id = ?", userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query bank account: %w", err)
	}
	return a, nil
}

// EnsureAccount returns the user's account, creating it with a zero balance
// and the configured defaults when absent. Concurrent callers get the same row.
func (r *Repository) EnsureAccount(ctx context.Context, userID int64) (*domain.BankAccount, error) {
	now := r.now().Unix()

	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO bank_accounts
		(user_id, account_number, bank_name, account_type, balance, created_at, updated_at)
		VALUES (?, ?, ?, ?, '0', ?, ?)`,
		userID, r.newAccountNumber(), r.defaults.BankName, DefaultAccountType, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure bank account: %w", err)
	}

	a, err := r.ByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, fmt.Errorf("bank account for user %d missing after insert", userID)
	}
	return a, nil
}

// Create inserts a new account and sets its ID
func (r *Repository) Create(ctx context.Context, a *domain.BankAccount) error {
	now := r.now().UTC().Truncate(time.Second)

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO bank_accounts
		(user_id, account_number, bank_name, account_type, balance, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.UserID, a.AccountNumber, a.BankName, a.AccountType, a.Balance.String(), now.Unix(), now.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert bank account: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get bank account id: %w", err)
	}
	a.ID = id
	a.CreatedAt = now
	a.UpdatedAt = now
	return nil
}

// Save writes the account's details. The balance only changes through Adjust.
func (r *Repository) Save(ctx context.Context, a *domain.BankAccount) error {
	now := r.now().UTC().Truncate(time.Second)

	_, err := r.db.ExecContext(ctx,
		`UPDATE bank_accounts
		SET account_number = ?, bank_name = ?, account_type = ?, updated_at = ?
		WHERE id = ?`,
		a.AccountNumber, a.BankName, a.AccountType, now.Unix(), a.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to save bank account: %w", err)
	}

	a.UpdatedAt = now
	return nil
}

// Adjust adds delta to the user's balance, creating the account when absent.
// The write only lands if the balance is unchanged since it was read, so
// concurrent trades and transfers never overwrite each other.
func (r *Repository) Adjust(ctx context.Context, userID int64, delta decimal.Decimal) (*domain.BankAccount, error) {
	r.adjustMu.Lock()
	defer r.adjustMu.Unlock()

	for attempt := 0; attempt < maxAdjustAttempts; attempt++ {
		a, err := r.EnsureAccount(ctx, userID)
		if err != nil {
			return nil, err
		}

		var stored string
		err = r.db.QueryRowContext(ctx, "SELECT balance FROM bank_accounts WHERE id = ?", a.ID).Scan(&stored)
		if err != nil {
			return nil, fmt.Errorf("failed to read balance: %w", err)
		}
		current, err := decimal.NewFromString(stored)
		if err != nil {
			return nil, fmt.Errorf("invalid balance %q: %w", stored, err)
		}

		next := current.Add(delta)
		if next.IsNegative() {
			return nil, &domain.InsufficientBalanceError{Available: current}
		}

		now := r.now().UTC().Truncate(time.Second)
		res, err := r.db.ExecContext(ctx,
			"UPDATE bank_accounts SET balance = ?, updated_at = ? WHERE id = ? AND balance = ?",
			next.String(), now.Unix(), a.ID, stored,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to update balance: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to update balance: %w", err)
		}
		if n == 1 {
			a.Balance = next
			a.UpdatedAt = now
			r.log.Debug().Int64("user_id", userID).Str("delta", delta.String()).Str("balance", next.String()).Msg("Balance adjusted")
			return a, nil
		}
		r.log.Debug().Int64("user_id", userID).Int("attempt", attempt+1).Msg("Balance changed concurrently, retrying")
	}
	return nil, fmt.Errorf("balance for user %d kept changing, gave up after %d attempts", userID, maxAdjustAttempts)
}

// AccountNumberExists reports whether any account uses number
func (r *Repository) AccountNumberExists(ctx context.Context, number string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM bank_accounts WHERE account_number = ?", number).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check account number: %w", err)
	}
	return n > 0, nil
}

func (r *Repository) newAccountNumber() string {
	digits := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return r.defaults.AccountNumberPrefix + digits[:12]
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAccount(row rowScanner) (*domain.BankAccount, error) {
	var a domain.BankAccount
	var balance string
	var createdAt, updatedAt int64
	err := row.Scan(&a.ID, &a.UserID, &a.AccountNumber, &a.BankName, &a.AccountType,
		&balance, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if a.Balance, err = decimal.NewFromString(balance); err != nil {
		return nil, fmt.Errorf("invalid balance %q: %w", balance, err)
	}
	a.CreatedAt = time.Unix(createdAt, 0).UTC()
	a.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &a, nil
}
