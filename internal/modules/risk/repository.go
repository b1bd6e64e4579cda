package risk

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

// ProfileRepository stores risk profiles in portfolio.db
type ProfileRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewProfileRepository creates a new risk profile repository
func NewProfileRepository(db *sql.DB, log zerolog.Logger) *ProfileRepository {
	return &ProfileRepository{
		db:  db,
		log: log.With().Str("repo", "risk_profile").Logger(),
	}
}

// ByUserID returns the user's profile, or nil when none exists yet
func (r *ProfileRepository) ByUserID(ctx context.Context, userID int64) (*domain.RiskProfile, error) {
	query := `SELECT id, user_id, risk_category, volatility_score, diversification_score,
		max_loss_tolerance, investment_horizon, last_analyzed_at
		FROM risk_profiles WHERE user_id = ?`

	var p domain.RiskProfile
	var volatility, diversification, maxLoss, category, horizon string
	var analyzedAt int64
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&p.ID, &p.UserID, &category, &volatility, &diversification,
		&maxLoss, &horizon, &analyzedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query risk profile: %w", err)
	}

	p.Category = domain.RiskCategory(category)
	p.InvestmentHorizon = domain.InvestmentHorizon(horizon)
	p.LastAnalyzedAt = time.Unix(analyzedAt, 0).UTC()

	if p.VolatilityScore, err = decimal.NewFromString(volatility); err != nil {
		return nil, fmt.Errorf("invalid volatility score %q: %w", volatility, err)
	}
	if p.DiversificationScore, err = decimal.NewFromString(diversification); err != nil {
		return nil, fmt.Errorf("invalid diversification score %q: %w", diversification, err)
	}
	if p.MaxLossTolerance, err = decimal.NewFromString(maxLoss); err != nil {
		return nil, fmt.Errorf("invalid max loss tolerance %q: %w", maxLoss, err)
	}

	return &p, nil
}

// Save upserts the profile keyed by user and sets its ID
func (r *ProfileRepository) Save(ctx context.Context, p *domain.RiskProfile) error {
	horizon := p.InvestmentHorizon
	if horizon == "" {
		horizon = domain.HorizonMedium
	}

	query := `INSERT INTO risk_profiles
		(user_id, risk_category, volatility_score, diversification_score,
		 max_loss_tolerance, investment_horizon, last_analyzed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			risk_category = excluded.risk_category,
			volatility_score = excluded.volatility_score,
			diversification_score = excluded.diversification_score,
			max_loss_tolerance = excluded.max_loss_tolerance,
			investment_horizon = excluded.investment_horizon,
			last_analyzed_at = excluded.last_analyzed_at
		RETURNING id`

	err := r.db.QueryRowContext(ctx, query,
		p.UserID,
		string(p.Category),
		p.VolatilityScore.String(),
		p.DiversificationScore.String(),
		p.MaxLossTolerance.String(),
		string(horizon),
		p.LastAnalyzedAt.Unix(),
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("failed to save risk profile: %w", err)
	}

	p.InvestmentHorizon = horizon
	r.log.Debug().Int64("user_id", p.UserID).Str("category", string(p.Category)).Msg("Risk profile saved")
	return nil
}
