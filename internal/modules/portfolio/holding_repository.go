package portfolio

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/portfolio-manager/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const buyDateLayout = "2006-01-02"

// holdingsQuery joins an investment with its portfolio owner and instrument
const holdingsQuery = `SELECT i.id, i.portfolio_id, p.user_id, i.stock_id, s.symbol, s.company_name,
	s.sector, s.industry, i.asset_type, i.quantity, i.buy_price, i.buy_date
	FROM investments i
	JOIN portfolios p ON p.id = i.portfolio_id
	JOIN stocks s ON s.id = i.stock_id`

// Repository stores portfolios and their holdings in portfolio.db.
// It implements domain.HoldingsStore.
type Repository struct {
	db  *sql.DB
	now func() time.Time
	log zerolog.Logger
}

// NewRepository creates a new portfolio repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		now: time.Now,
		log: log.With().Str("repo", "portfolio").Logger(),
	}
}

// PortfolioByUserID returns the user's portfolio, or nil when none exists
func (r *Repository) PortfolioByUserID(ctx context.Context, userID int64) (*domain.Portfolio, error) {
	var p domain.Portfolio
	var createdAt int64
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, description, created_at FROM portfolios WHERE user_id = ?`, userID,
	).Scan(&p.ID, &p.UserID, &p.Name, &p.Description, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolio: %w", err)
	}
	p.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &p, nil
}

// EnsurePortfolio returns the user's portfolio, creating it with name when absent
func (r *Repository) EnsurePortfolio(ctx context.Context, userID int64, name string) (*domain.Portfolio, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO portfolios (user_id, name, description, created_at) VALUES (?, ?, '', ?)`,
		userID, name, r.now().Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure portfolio: %w", err)
	}

	p, err := r.PortfolioByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("portfolio for user %d missing after insert", userID)
	}
	return p, nil
}

// HoldingsForUser returns the user's holdings in purchase order
func (r *Repository) HoldingsForUser(ctx context.Context, userID int64) ([]domain.Holding, error) {
	rows, err := r.db.QueryContext(ctx, holdingsQuery+" WHERE p.user_id = ? ORDER BY i.id", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	holdings := make([]domain.Holding, 0)
	for rows.Next() {
		h, err := scanHolding(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		holdings = append(holdings, *h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holdings: %w", err)
	}
	return holdings, nil
}

// ByID returns the holding, or nil when absent
func (r *Repository) ByID(ctx context.Context, id int64) (*domain.Holding, error) {
	h, err := scanHolding(r.db.QueryRowContext(ctx, holdingsQuery+" WHERE i.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query holding: %w", err)
	}
	return h, nil
}

// Save inserts the holding when its ID is zero, otherwise updates its quantity
func (r *Repository) Save(ctx context.Context, h *domain.Holding) error {
	if h.ID != 0 {
		_, err := r.db.ExecContext(ctx, `UPDATE investments SET quantity = ? WHERE id = ?`, h.Quantity, h.ID)
		if err != nil {
			return fmt.Errorf("failed to update holding: %w", err)
		}
		return nil
	}

	if h.AssetType == "" {
		h.AssetType = domain.AssetTypeStock
	}
	if h.BuyDate.IsZero() {
		h.BuyDate = r.now().UTC()
	}

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO investments (portfolio_id, stock_id, asset_type, quantity, buy_price, buy_date)
		VALUES (?, ?, ?, ?, ?, ?)`,
		h.PortfolioID, h.StockID, h.AssetType, h.Quantity, h.BuyPrice.String(), h.BuyDate.Format(buyDateLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to insert holding: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get holding id: %w", err)
	}
	h.ID = id
	return nil
}

// Delete removes the holding
func (r *Repository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM investments WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete holding: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanHolding(row rowScanner) (*domain.Holding, error) {
	var h domain.Holding
	var buyPrice, buyDate string
	err := row.Scan(&h.ID, &h.PortfolioID, &h.UserID, &h.StockID, &h.Symbol, &h.CompanyName,
		&h.Sector, &h.Industry, &h.AssetType, &h.Quantity, &buyPrice, &buyDate)
	if err != nil {
		return nil, err
	}

	if h.BuyPrice, err = decimal.NewFromString(buyPrice); err != nil {
		return nil, fmt.Errorf("invalid buy price %q: %w", buyPrice, err)
	}
	if h.BuyDate, err = time.Parse(buyDateLayout, buyDate); err != nil {
		return nil, fmt.Errorf("invalid buy date %q: %w", buyDate, err)
	}
	return &h, nil
}
