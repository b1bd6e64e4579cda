package universe

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/aristath/portfolio-manager/internal/domain"
	"github.com/rs/zerolog"
)

// stocksColumns is the column list for the stocks table
const stocksColumns = `id, symbol, company_name, sector, industry, currency`

// StockRepository handles instrument database operations
type StockRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewStockRepository creates a new stock repository
func NewStockRepository(db *sql.DB, log zerolog.Logger) *StockRepository {
	return &StockRepository{
		db:  db,
		log: log.With().Str("repo", "stock").Logger(),
	}
}

// NormalizeSymbol upper-cases and trims a ticker
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// BySymbol returns the stock, or nil when it is not in the universe
func (r *StockRepository) BySymbol(ctx context.Context, symbol string) (*domain.Stock, error) {
	query := "SELECT " + stocksColumns + " FROM stocks WHERE symbol = ?"

	s, err := scanStock(r.db.QueryRowContext(ctx, query, NormalizeSymbol(symbol)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query stock by symbol: %w", err)
	}
	return s, nil
}

// List returns every stock ordered by symbol
func (r *StockRepository) List(ctx context.Context) ([]domain.Stock, error) {
	query := "SELECT " + stocksColumns + " FROM stocks ORDER BY symbol"
	return r.queryStocks(ctx, query)
}

// Search matches the query against symbol and company name, case-insensitive
func (r *StockRepository) Search(ctx context.Context, q string) ([]domain.Stock, error) {
	query := "SELECT " + stocksColumns + ` FROM stocks
		WHERE LOWER(symbol) LIKE ? OR LOWER(company_name) LIKE ?
		ORDER BY symbol`

	pattern := "%" + strings.ToLower(strings.TrimSpace(q)) + "%"
	return r.queryStocks(ctx, query, pattern, pattern)
}

// Create inserts a stock and sets its ID
func (r *StockRepository) Create(ctx context.Context, s *domain.Stock) error {
	s.Symbol = NormalizeSymbol(s.Symbol)
	if s.Currency == "" {
		s.Currency = "USD"
	}

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO stocks (symbol, company_name, sector, industry, currency) VALUES (?, ?, ?, ?, ?)`,
		s.Symbol, s.CompanyName, s.Sector, s.Industry, s.Currency,
	)
	if err != nil {
		return fmt.Errorf("failed to insert stock: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get stock id: %w", err)
	}
	s.ID = id

	r.log.Info().Str("symbol", s.Symbol).Str("name", s.CompanyName).Msg("Stock added to universe")
	return nil
}

func (r *StockRepository) queryStocks(ctx context.Context, query string, args ...interface{}) ([]domain.Stock, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query stocks: %w", err)
	}
	defer rows.Close()

	stocks := make([]domain.Stock, 0)
	for rows.Next() {
		s, err := scanStock(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stock: %w", err)
		}
		stocks = append(stocks, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stocks: %w", err)
	}
	return stocks, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanStock(row rowScanner) (*domain.Stock, error) {
	var s domain.Stock
	if err := row.Scan(&s.ID, &s.Symbol, &s.CompanyName, &s.Sector, &s.Industry, &s.Currency); err != nil {
		return nil, err
	}
	return &s, nil
}
