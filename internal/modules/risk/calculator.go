// Package risk scores a user's holdings and maintains their cached risk profile.
package risk

import (
	"strings"

	"github.com/aristath/portfolio-manager/internal/domain"
	"github.com/shopspring/decimal"
)

// Score thresholds
var (
	highVolatilityThreshold     = decimal.RequireFromString("7.0")
	moderateVolatilityThreshold = decimal.RequireFromString("4.0")
	maxScore                    = decimal.NewFromInt(10)
)

// categoryTraits is the per-category lookup for fixed values and text
type categoryTraits struct {
	maxLossTolerance decimal.Decimal
	description      string
}

var traits = map[domain.RiskCategory]categoryTraits{
	domain.RiskConservative: {
		maxLossTolerance: decimal.RequireFromString("5.00"),
		description:      "Low Risk - Focus on capital preservation",
	},
	domain.RiskModerate: {
		maxLossTolerance: decimal.RequireFromString("15.00"),
		description:      "Medium Risk - Balanced growth and stability",
	},
	domain.RiskAggressive: {
		maxLossTolerance: decimal.RequireFromString("25.00"),
		description:      "High Risk - Focus on aggressive growth",
	},
}

// VolatilityScore is a 0-10 proxy for price-swing risk based on the share of
// technology holdings: round2(round2(tech/total)*8 + 2). Empty input scores 0.
func VolatilityScore(holdings []domain.Holding) decimal.Decimal {
	if len(holdings) == 0 {
		return decimal.Zero
	}

	tech := 0
	for _, h := range holdings {
		if strings.Contains(strings.ToLower(h.Sector), "technology") {
			tech++
		}
	}

	ratio := decimal.NewFromInt(int64(tech)).DivRound(decimal.NewFromInt(int64(len(holdings))), 2)
	return ratio.Mul(decimal.NewFromInt(8)).Add(decimal.NewFromInt(2)).Round(2)
}

// DiversificationScore is a 0-10 proxy for spread across sectors, industries
// and holding count. Empty input scores 0.
func DiversificationScore(holdings []domain.Holding) decimal.Decimal {
	if len(holdings) == 0 {
		return decimal.Zero
	}

	sectors := make(map[string]struct{})
	industries := make(map[string]struct{})
	for _, h := range holdings {
		if h.Sector != "" {
			sectors[h.Sector] = struct{}{}
		}
		if h.Industry != "" {
			industries[h.Industry] = struct{}{}
		}
	}

	total := min(len(sectors)*2, 10) + min(len(industries), 5) + min(len(holdings), 5)
	score := decimal.NewFromInt(int64(total)).DivRound(decimal.NewFromInt(2), 2)
	return decimal.Min(score, maxScore)
}

// CategoryFor classifies a portfolio. Only volatility decides the category;
// the diversification score is accepted but currently ignored.
func CategoryFor(volatility, _ decimal.Decimal) domain.RiskCategory {
	switch {
	case volatility.GreaterThan(highVolatilityThreshold):
		return domain.RiskAggressive
	case volatility.GreaterThan(moderateVolatilityThreshold):
		return domain.RiskModerate
	default:
		return domain.RiskConservative
	}
}

// MaxLossTolerance returns the fixed tolerated loss percentage for a category.
// Unknown categories are treated as conservative.
func MaxLossTolerance(category domain.RiskCategory) decimal.Decimal {
	return traitsFor(category).maxLossTolerance
}

// RiskLevelDescription returns the one-line description for a category
func RiskLevelDescription(category domain.RiskCategory) string {
	return traitsFor(category).description
}

func traitsFor(category domain.RiskCategory) categoryTraits {
	if t, ok := traits[category]; ok {
		return t
	}
	return traits[domain.RiskConservative]
}
