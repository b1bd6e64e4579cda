package users

import (
	"context"
	"fmt"
	"strings"

	"github.com/aristath/portfolio-manager/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

const invalidCredentials = "Invalid username/email or password"

// AccountFinder looks up a user's bank account without creating it
type AccountFinder interface {
	ByUserID(ctx context.Context, userID int64) (*domain.BankAccount, error)
}

// SignupRequest is the payload of POST /api/auth/signup and POST /api/users
type SignupRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
}

// LoginRequest accepts either a username or an email
type LoginRequest struct {
	UsernameOrEmail string `json:"usernameOrEmail"`
	Password        string `json:"password"`
}

// UpdateRequest carries the editable profile fields. An empty password keeps the old one.
type UpdateRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
	Password  string `json:"password"`
}

// LoginResponse is returned by signup and login
type LoginResponse struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Token     string `json:"token"`
	Message   string `json:"message"`
	UserID    int64  `json:"userId"`
}

// AccountSummary is the bank account attached to a user view
type AccountSummary struct {
	CurrentBalance decimal.Decimal `json:"currentBalance"`
	AccountNumber  string          `json:"accountNumber"`
	BankName       string          `json:"bankName"`
	AccountType    string          `json:"accountType"`
	ID             int64           `json:"id"`
}

// UserView is a user without credentials, with the bank account when one exists
type UserView struct {
	BankAccount *AccountSummary `json:"bankAccount,omitempty"`
	Username    string          `json:"username"`
	Email       string          `json:"email"`
	FirstName   string          `json:"firstName"`
	LastName    string          `json:"lastName"`
	Phone       string          `json:"phone"`
	ID          int64           `json:"id"`
}

// Service handles signup, login and user CRUD
type Service struct {
	users    *Repository
	accounts AccountFinder
	tokens   *TokenManager
	hashCost int
	log      zerolog.Logger
}

// NewService creates a new user service. accounts may be nil.
func NewService(users *Repository, accounts AccountFinder, tokens *TokenManager, log zerolog.Logger) *Service {
	return &Service{
		users:    users,
		accounts: accounts,
		tokens:   tokens,
		hashCost: bcrypt.DefaultCost,
		log:      log.With().Str("service", "users").Logger(),
	}
}

// Signup registers the user and returns a token for them
func (s *Service) Signup(ctx context.Context, req SignupRequest) (*LoginResponse, error) {
	u, err := s.register(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.respond(u, "Signup successful")
}

// Create registers the user without issuing a token
func (s *Service) Create(ctx context.Context, req SignupRequest) (*UserView, error) {
	u, err := s.register(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, u)
}

// Login checks the password of the user matched by username, then by email
func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	identifier := strings.TrimSpace(req.UsernameOrEmail)

	u, err := s.users.ByUsername(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if u == nil {
		if u, err = s.users.ByEmail(ctx, identifier); err != nil {
			return nil, err
		}
	}
	if u == nil {
		return nil, domain.InvalidOperation(invalidCredentials)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		s.log.Debug().Int64("user_id", u.ID).Msg("Password mismatch")
		return nil, domain.InvalidOperation(invalidCredentials)
	}

	return s.respond(u, "Login successful")
}

// Get returns the user view or NotFound
func (s *Service) Get(ctx context.Context, id int64) (*UserView, error) {
	u, err := s.mustFind(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, u)
}

// List returns every user
func (s *Service) List(ctx context.Context) ([]UserView, error) {
	all, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]UserView, 0, len(all))
	for i := range all {
		v, err := s.view(ctx, &all[i])
		if err != nil {
			return nil, err
		}
		views = append(views, *v)
	}
	return views, nil
}

// Update edits the profile fields of the user
func (s *Service) Update(ctx context.Context, id int64, req UpdateRequest) (*UserView, error) {
	u, err := s.mustFind(ctx, id)
	if err != nil {
		return nil, err
	}

	u.FirstName = req.FirstName
	u.LastName = req.LastName
	u.Phone = req.Phone
	if req.Password != "" {
		if u.PasswordHash, err = s.hash(req.Password); err != nil {
			return nil, err
		}
	}

	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	return s.view(ctx, u)
}

// Delete removes the user or returns NotFound
func (s *Service) Delete(ctx context.Context, id int64) error {
	if _, err := s.mustFind(ctx, id); err != nil {
		return err
	}
	return s.users.Delete(ctx, id)
}

func (s *Service) register(ctx context.Context, req SignupRequest) (*domain.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return nil, domain.InvalidOperation("Username, email and password are required")
	}

	existing, err := s.users.ByUsername(ctx, req.Username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.InvalidOperation("Username already exists")
	}
	if existing, err = s.users.ByEmail(ctx, req.Email); err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.InvalidOperation("Email already exists")
	}

	hash, err := s.hash(req.Password)
	if err != nil {
		return nil, err
	}

	u := &domain.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Phone:        req.Phone,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) respond(u *domain.User, message string) (*LoginResponse, error) {
	token, err := s.tokens.Issue(u.ID, u.Username)
	if err != nil {
		return nil, err
	}
	return &LoginResponse{
		UserID:    u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Token:     token,
		Message:   message,
	}, nil
}

func (s *Service) mustFind(ctx context.Context, id int64) (*domain.User, error) {
	u, err := s.users.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, domain.NotFound("User", id)
	}
	return u, nil
}

func (s *Service) view(ctx context.Context, u *domain.User) (*UserView, error) {
	v := &UserView{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Phone:     u.Phone,
	}
	if s.accounts == nil {
		return v, nil
	}

	account, err := s.accounts.ByUserID(ctx, u.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load bank account: %w", err)
	}
	if account != nil {
		v.BankAccount = &AccountSummary{
			ID:             account.ID,
			AccountNumber:  account.AccountNumber,
			BankName:       account.BankName,
			CurrentBalance: account.Balance,
			AccountType:    account.AccountType,
		}
	}
	return v, nil
}

func (s *Service) hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}
