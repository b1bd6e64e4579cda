package banking

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aristath/portfolio-manager/internal/domain"
	testingpkg "github.com/aristath/portfolio-manager/internal/testing"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDefaults = Defaults{BankName: "HSBC Bank", AccountNumberPrefix: "ACC"}

func newRepo(t *testing.T) (*Repository, *sql.DB) {
	t.Helper()
	db, cleanup := testingpkg.NewTestDB(t, "portfolio")
	t.Cleanup(cleanup)
	return NewRepository(db.Conn(), testDefaults, zerolog.Nop()), db.Conn()
}

func insertUser(t *testing.T, db *sql.DB, username string) int64 {
	t.Helper()
	res, err := db.Exec(`INSERT INTO users (username, email, password_hash, created_at, updated_at)
		VALUES (?, ?, 'x', 0, 0)`, username, username+"@example.com")
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}

func TestEnsureAccountCreatesOnce(t *testing.T) {
	repo, db := newRepo(t)
	userID := insertUser(t, db, "jdoe")
	ctx := context.Background()

	none, err := repo.ByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Nil(t, none)

	a, err := repo.EnsureAccount(ctx, userID)
	require.NoError(t, err)
	assert.True(t, a.Balance.IsZero())
	assert.Equal(t, "HSBC Bank", a.BankName)
	assert.Equal(t, DefaultAccountType, a.AccountType)
	assert.True(t, strings.HasPrefix(a.AccountNumber, "ACC"))
	assert.Len(t, a.AccountNumber, 15)

	again, err := repo.EnsureAccount(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, again.ID)
	assert.Equal(t, a.AccountNumber, again.AccountNumber)
}

func TestEnsureAccountConcurrent(t *testing.T) {
	repo, db := newRepo(t)
	userID := insertUser(t, db, "jdoe")

	var wg sync.WaitGroup
	ids := make([]int64, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, err := repo.EnsureAccount(context.Background(), userID)
			if assert.NoError(t, err) {
				ids[i] = a.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestAdjustKeepsExactBalance(t *testing.T) {
	repo, db := newRepo(t)
	userID := insertUser(t, db, "jdoe")
	ctx := context.Background()

	a, err := repo.Adjust(ctx, userID, decimal.RequireFromString("48500.10"))
	require.NoError(t, err)
	assert.Equal(t, "48500.10", a.Balance.StringFixed(2))

	a, err = repo.Adjust(ctx, userID, decimal.RequireFromString("-0.03"))
	require.NoError(t, err)
	assert.Equal(t, "48500.07", a.Balance.StringFixed(2))

	loaded, err := repo.ByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "48500.07", loaded.Balance.StringFixed(2))

	taken, err := repo.AccountNumberExists(ctx, a.AccountNumber)
	require.NoError(t, err)
	assert.True(t, taken)
}

func TestAdjustRejectsOverdraft(t *testing.T) {
	repo, db := newRepo(t)
	userID := insertUser(t, db, "jdoe")
	ctx := context.Background()

	_, err := repo.Adjust(ctx, userID, decimal.RequireFromString("100"))
	require.NoError(t, err)

	_, err = repo.Adjust(ctx, userID, decimal.RequireFromString("-100.01"))
	var short *domain.InsufficientBalanceError
	require.ErrorAs(t, err, &short)
	assert.Equal(t, "100.00", short.Available.StringFixed(2))
	assert.True(t, domain.IsInvalidOperation(err))

	a, err := repo.Adjust(ctx, userID, decimal.RequireFromString("-100"))
	require.NoError(t, err)
	assert.True(t, a.Balance.IsZero())
}

func TestConcurrentAdjustmentsAreNotLost(t *testing.T) {
	repo, db := newRepo(t)
	userID := insertUser(t, db, "jdoe")
	ctx := context.Background()

	_, err := repo.Adjust(ctx, userID, decimal.RequireFromString("1000"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			delta := decimal.RequireFromString("12.50")
			if i%2 == 1 {
				delta = decimal.RequireFromString("-7.25")
			}
			_, err := repo.Adjust(ctx, userID, delta)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	a, err := repo.ByUserID(ctx, userID)
	require.NoError(t, err)
	// 1000 + 10*12.50 - 10*7.25
	assert.Equal(t, "1052.50", a.Balance.StringFixed(2))
}

func TestSaveLeavesBalanceAlone(t *testing.T) {
	repo, db := newRepo(t)
	userID := insertUser(t, db, "jdoe")
	ctx := context.Background()

	stale, err := repo.EnsureAccount(ctx, userID)
	require.NoError(t, err)

	_, err = repo.Adjust(ctx, userID, decimal.RequireFromString("250"))
	require.NoError(t, err)

	stale.BankName = "Monzo"
	require.NoError(t, repo.Save(ctx, stale))

	loaded, err := repo.ByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "Monzo", loaded.BankName)
	assert.Equal(t, "250.00", loaded.Balance.StringFixed(2))
}

func TestAdjustRetriesAfterConcurrentWrite(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db, testDefaults, zerolog.Nop())
	ctx := context.Background()
	columns := strings.Split(strings.ReplaceAll(accountsColumns, " ", ""), ",")

	expectRead := func(balance string) {
		mock.ExpectExec("INSERT OR IGNORE INTO bank_accounts").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT (.+) FROM bank_accounts WHERE user_id = ?").
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows(columns).AddRow(1, 7, "ACC1", "HSBC Bank", "CHECKING", balance, 0, 0))
		mock.ExpectQuery("SELECT balance FROM bank_accounts WHERE id = ?").
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(balance))
	}

	expectRead("10.00")
	mock.ExpectExec("UPDATE bank_accounts SET balance = (.+) WHERE id = (.+) AND balance = ?").
		WithArgs("15", sqlmock.AnyArg(), int64(1), "10.00").
		WillReturnResult(sqlmock.NewResult(0, 0))
	expectRead("20")
	mock.ExpectExec("UPDATE bank_accounts SET balance = (.+) WHERE id = (.+) AND balance = ?").
		WithArgs("25", sqlmock.AnyArg(), int64(1), "20").
		WillReturnResult(sqlmock.NewResult(0, 1))

	a, err := repo.Adjust(ctx, 7, decimal.RequireFromString("5"))
	require.NoError(t, err)
	assert.Equal(t, "25", a.Balance.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryDatabaseFailures(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db, testDefaults, zerolog.Nop())
	ctx := context.Background()

	mock.ExpectQuery("SELECT (.+) FROM bank_accounts WHERE user_id = ?").
		WithArgs(int64(7)).
		WillReturnError(errors.New("disk I/O error"))
	_, err = repo.ByUserID(ctx, 7)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to query bank account")

	mock.ExpectExec("INSERT OR IGNORE INTO bank_accounts").
		WillReturnError(errors.New("database is locked"))
	_, err = repo.EnsureAccount(ctx, 7)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to ensure bank account")

	mock.ExpectQuery("SELECT (.+) FROM bank_accounts WHERE user_id = ?").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(strings.Split(strings.ReplaceAll(accountsColumns, " ", ""), ",")).
			AddRow(1, 7, "ACC1", "HSBC Bank", "CHECKING", "not-a-number", 0, 0))
	_, err = repo.ByUserID(ctx, 7)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid balance")

	assert.NoError(t, mock.ExpectationsWereMet())
}
