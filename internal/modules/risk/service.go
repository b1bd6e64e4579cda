package risk

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/portfolio-manager/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Analysis is the result of a risk analysis run
type Analysis struct {
	VolatilityScore      decimal.Decimal          `json:"volatilityScore"`
	DiversificationScore decimal.Decimal          `json:"diversificationScore"`
	MaxLossTolerance     decimal.Decimal          `json:"maxLossTolerance"`
	UserName             string                   `json:"userName"`
	Category             domain.RiskCategory      `json:"riskCategory"`
	InvestmentHorizon    domain.InvestmentHorizon `json:"investmentHorizon"`
	RiskLevel            string                   `json:"riskLevel"`
	Recommendation       string                   `json:"recommendation"`
	RiskFactors          []string                 `json:"riskFactors"`
	Suggestions          []string                 `json:"suggestions"`
	UserID               int64                    `json:"userId"`
	HoldingCount         int                      `json:"holdingCount"`
}

// Service analyzes a user's holdings and keeps their risk profile current
type Service struct {
	users    domain.UserLookup
	holdings domain.HoldingsStore
	profiles domain.RiskProfileStore
	now      func() time.Time
	log      zerolog.Logger
}

// NewService creates a new risk analysis service
func NewService(
	users domain.UserLookup,
	holdings domain.HoldingsStore,
	profiles domain.RiskProfileStore,
	log zerolog.Logger,
) *Service {
	return &Service{
		users:    users,
		holdings: holdings,
		profiles: profiles,
		now:      time.Now,
		log:      log.With().Str("service", "risk").Logger(),
	}
}

// AnalyzeRisk scores the user's holdings, overwrites the stored profile with
// the fresh classification and returns the analysis. Every call persists.
func (s *Service) AnalyzeRisk(ctx context.Context, userID int64) (*Analysis, error) {
	user, err := s.users.ByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return nil, domain.NotFound("User", userID)
	}

	holdings, err := s.holdings.HoldingsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load holdings: %w", err)
	}

	volatility := VolatilityScore(holdings)
	diversification := DiversificationScore(holdings)
	category := CategoryFor(volatility, diversification)

	profile, err := s.profiles.ByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load risk profile: %w", err)
	}
	if profile == nil {
		profile = &domain.RiskProfile{
			UserID:            userID,
			InvestmentHorizon: domain.HorizonMedium,
		}
	}

	profile.Category = category
	profile.VolatilityScore = volatility
	profile.DiversificationScore = diversification
	profile.MaxLossTolerance = MaxLossTolerance(category)
	profile.LastAnalyzedAt = s.now().UTC()

	if err := s.profiles.Save(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to save risk profile: %w", err)
	}

	s.log.Info().
		Int64("user_id", userID).
		Str("category", string(category)).
		Str("volatility", volatility.String()).
		Str("diversification", diversification.String()).
		Int("holdings", len(holdings)).
		Msg("Risk analyzed")

	return &Analysis{
		UserID:               userID,
		UserName:             user.FirstName + " " + user.LastName,
		Category:             profile.Category,
		VolatilityScore:      profile.VolatilityScore,
		DiversificationScore: profile.DiversificationScore,
		MaxLossTolerance:     profile.MaxLossTolerance,
		InvestmentHorizon:    profile.InvestmentHorizon,
		RiskLevel:            RiskLevelDescription(profile.Category),
		Recommendation:       recommendation(profile, len(holdings)),
		RiskFactors:          riskFactors(profile, len(holdings)),
		Suggestions:          suggestions(profile, len(holdings)),
		HoldingCount:         len(holdings),
	}, nil
}
