package risk

import (
	"github.com/aristath/portfolio-manager/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	lowDiversificationThreshold     = decimal.RequireFromString("5.0")
	suggestDiversificationThreshold = decimal.RequireFromString("6.0")
	moderateHighVolatilityThreshold = decimal.RequireFromString("6.0")
)

const (
	minHoldingsBeforeFactor        = 3
	minHoldingsBeforeConcentration = 5
)

// narrative is the category-specific prose used when assembling an analysis
type narrative struct {
	opening string
	// closing picks the second sentence of the recommendation paragraph
	closing    func(volatility, diversification decimal.Decimal, holdings int) string
	suggestion string
}

var narratives = map[domain.RiskCategory]narrative{
	domain.RiskConservative: {
		opening: "Your portfolio is conservative. ",
		closing: func(_, diversification decimal.Decimal, _ int) string {
			if diversification.LessThan(lowDiversificationThreshold) {
				return "Consider diversifying across more sectors."
			}
			return "Maintain current strategy for capital preservation."
		},
		suggestion: "✅ Your conservative approach aligns with capital preservation goals",
	},
	domain.RiskModerate: {
		opening: "Your portfolio has moderate risk. ",
		closing: func(volatility, _ decimal.Decimal, _ int) string {
			if volatility.GreaterThan(moderateHighVolatilityThreshold) {
				return "Consider adding some stable stocks to balance volatility."
			}
			return "Good balance between growth and stability."
		},
		suggestion: "✅ Balanced portfolio suitable for moderate risk tolerance",
	},
	domain.RiskAggressive: {
		opening: "Your portfolio is aggressive. Monitor closely and be prepared for higher volatility. ",
		closing: func(_, _ decimal.Decimal, holdings int) string {
			if holdings < minHoldingsBeforeConcentration {
				return "Consider diversifying to reduce concentration risk."
			}
			return ""
		},
		suggestion: "⚡ Monitor portfolio closely due to high-risk strategy",
	},
}

func recommendation(p *domain.RiskProfile, holdings int) string {
	n, ok := narratives[p.Category]
	if !ok {
		return ""
	}
	return n.opening + n.closing(p.VolatilityScore, p.DiversificationScore, holdings)
}

func riskFactors(p *domain.RiskProfile, holdings int) []string {
	var factors []string

	if p.VolatilityScore.GreaterThan(highVolatilityThreshold) {
		factors = append(factors, "High volatility detected in portfolio")
	}
	if p.DiversificationScore.LessThan(lowDiversificationThreshold) {
		factors = append(factors, "Low diversification - concentrated in few sectors")
	}
	if holdings < minHoldingsBeforeFactor {
		factors = append(factors, "Limited number of holdings - concentration risk")
	}

	if len(factors) == 0 {
		factors = append(factors, "No significant risk factors identified")
	}
	return factors
}

func suggestions(p *domain.RiskProfile, holdings int) []string {
	var out []string

	if p.DiversificationScore.LessThan(suggestDiversificationThreshold) {
		out = append(out,
			"💡 Diversify across at least 5 different sectors",
			"💡 Consider adding bonds or stable dividend stocks",
		)
	}
	if p.VolatilityScore.GreaterThan(highVolatilityThreshold) {
		out = append(out,
			"⚠️ High volatility - consider adding defensive stocks",
			"⚠️ Maintain adequate cash reserves (10-20%)",
		)
	}
	if holdings < minHoldingsBeforeConcentration {
		out = append(out, "📊 Add more holdings to reduce concentration risk")
	}

	if n, ok := narratives[p.Category]; ok {
		out = append(out, n.suggestion)
	}

	if len(out) == 0 {
		out = append(out, "✅ Your portfolio is well-balanced")
	}
	return out
}
