package banking

import (
	"context"
	"errors"
	"strings"

	"github.com/aristath/portfolio-manager/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// AccountRequest carries the editable account details
type AccountRequest struct {
	AccountNumber string `json:"accountNumber"`
	BankName      string `json:"bankName"`
	AccountType   string `json:"accountType"`
}

// TransactionRequest is a deposit or withdrawal
type TransactionRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

// Service manages bank accounts
type Service struct {
	accounts *Repository
	users    domain.UserLookup
	log      zerolog.Logger
}

// NewService creates a new banking service
func NewService(accounts *Repository, users domain.UserLookup, log zerolog.Logger) *Service {
	return &Service{
		accounts: accounts,
		users:    users,
		log:      log.With().Str("service", "banking").Logger(),
	}
}

// Get returns the user's account, creating it when absent
func (s *Service) Get(ctx context.Context, userID int64) (*domain.BankAccount, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.accounts.EnsureAccount(ctx, userID)
}

// Create opens an account with the requested details and a zero balance
func (s *Service) Create(ctx context.Context, userID int64, req AccountRequest) (*domain.BankAccount, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	existing, err := s.accounts.ByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.InvalidOperation("Bank account already exists for this user")
	}
	if err := s.requireFreeNumber(ctx, req.AccountNumber); err != nil {
		return nil, err
	}

	a := &domain.BankAccount{
		UserID:        userID,
		AccountNumber: req.AccountNumber,
		BankName:      req.BankName,
		AccountType:   accountType(req.AccountType),
		Balance:       decimal.Zero,
	}
	if err := s.accounts.Create(ctx, a); err != nil {
		return nil, err
	}

	s.log.Info().Int64("user_id", userID).Str("bank", a.BankName).Msg("Bank account created")
	return a, nil
}

// Update changes the account details, keeping the balance
func (s *Service) Update(ctx context.Context, userID int64, req AccountRequest) (*domain.BankAccount, error) {
	a, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	if a.AccountNumber != req.AccountNumber {
		if err := s.requireFreeNumber(ctx, req.AccountNumber); err != nil {
			return nil, err
		}
	}

	a.AccountNumber = req.AccountNumber
	a.BankName = req.BankName
	a.AccountType = accountType(req.AccountType)
	if err := s.accounts.Save(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Deposit adds a positive amount to the balance
func (s *Service) Deposit(ctx context.Context, userID int64, req TransactionRequest) (*domain.BankAccount, error) {
	if !req.Amount.IsPositive() {
		return nil, domain.InvalidOperation("Deposit amount must be greater than 0")
	}

	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}

	a, err := s.accounts.Adjust(ctx, userID, req.Amount)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("user_id", userID).
		Str("amount", req.Amount.String()).
		Str("description", req.Description).
		Msg("Deposit")
	return a, nil
}

// Withdraw removes a positive amount no larger than the balance
func (s *Service) Withdraw(ctx context.Context, userID int64, req TransactionRequest) (*domain.BankAccount, error) {
	if !req.Amount.IsPositive() {
		return nil, domain.InvalidOperation("Withdrawal amount must be greater than 0")
	}

	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}

	a, err := s.accounts.Adjust(ctx, userID, req.Amount.Neg())
	var short *domain.InsufficientBalanceError
	if errors.As(err, &short) {
		return nil, domain.InvalidOperationf("Insufficient balance. Available: %s", short.Available.StringFixed(2))
	}
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("user_id", userID).
		Str("amount", req.Amount.String()).
		Str("description", req.Description).
		Msg("Withdrawal")
	return a, nil
}

func (s *Service) requireUser(ctx context.Context, userID int64) error {
	u, err := s.users.ByID(ctx, userID)
	if err != nil {
		return err
	}
	if u == nil {
		return domain.NotFound("User", userID)
	}
	return nil
}

func (s *Service) requireFreeNumber(ctx context.Context, number string) error {
	taken, err := s.accounts.AccountNumberExists(ctx, number)
	if err != nil {
		return err
	}
	if taken {
		return domain.InvalidOperation("Account number already exists")
	}
	return nil
}

func validateRequest(req AccountRequest) error {
	if strings.TrimSpace(req.AccountNumber) == "" {
		return domain.InvalidOperation("Account number is required")
	}
	if strings.TrimSpace(req.BankName) == "" {
		return domain.InvalidOperation("Bank name is required")
	}
	return nil
}

func accountType(t string) string {
	if t == "" {
		return DefaultAccountType
	}
	return t
}
