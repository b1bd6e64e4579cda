// Package recommendations generates buy/sell suggestion text from a risk
// category and the user's holdings.
package recommendations

import (
	"fmt"

	"github.com/aristath/portfolio-manager/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	diversificationTip = "💡 Diversification Tip: Your portfolio has limited sector diversity. Consider adding stocks from different sectors."
	balancedLine       = "✅ Your portfolio looks balanced. No immediate sell recommendations."
	noProfileAdvice    = "Please complete your risk profile assessment to receive personalized advice."

	minSectorsBeforeTip = 3
)

var (
	conservativeSellThreshold = decimal.RequireFromString("-10.0")
	takeProfitThreshold       = decimal.RequireFromString("30.0")
	hundred                   = decimal.NewFromInt(100)
)

// strategy is the per-category text table
type strategy struct {
	buyLines []string
	advice   string
}

var strategies = map[domain.RiskCategory]strategy{
	domain.RiskConservative: {
		buyLines: []string{
			"Consider adding: JNJ (Healthcare - Stable), PG (Consumer Defensive - Reliable)",
			"Focus on sectors: Healthcare, Consumer Defensive, Utilities",
		},
		advice: "📊 Conservative Strategy:\n" +
			"• Focus on blue-chip stocks and dividend-paying companies\n" +
			"• Maintain 20-30% cash reserves\n" +
			"• Consider bonds for stability\n" +
			"• Rebalance quarterly",
	},
	domain.RiskModerate: {
		buyLines: []string{
			"Consider adding: MSFT (Technology - Growth), JPM (Financial Services - Stability)",
			"Diversify into: Technology, Financial Services, Healthcare",
		},
		advice: "📊 Moderate Strategy:\n" +
			"• Balanced mix of growth and value stocks\n" +
			"• Maintain 10-20% cash reserves\n" +
			"• Diversify across 5-7 sectors\n" +
			"• Rebalance semi-annually",
	},
	domain.RiskAggressive: {
		buyLines: []string{
			"Consider adding: NVDA (Technology - High Growth), TSLA (Consumer Cyclical - Innovation)",
			"Focus on: Technology, Consumer Cyclical, Emerging Markets",
		},
		advice: "📊 Aggressive Strategy:\n" +
			"• Focus on high-growth technology and innovation stocks\n" +
			"• Maintain 5-10% cash reserves\n" +
			"• Accept higher volatility for potential returns\n" +
			"• Monitor and rebalance monthly",
	},
}

// PricedHolding pairs a holding with the price it is evaluated at
type PricedHolding struct {
	Symbol       string
	BuyPrice     decimal.Decimal
	CurrentPrice decimal.Decimal
}

// Engine produces recommendation text. It is stateless.
type Engine struct{}

// NewEngine creates a recommendation engine
func NewEngine() *Engine {
	return &Engine{}
}

// StocksToBuy returns the category's canned suggestion block plus a
// diversification tip when fewer than three sectors are owned. An unknown
// or empty category yields no lines.
func (e *Engine) StocksToBuy(category domain.RiskCategory, ownedSymbols, ownedSectors []string) []string {
	s, ok := strategies[category]
	if !ok {
		return []string{}
	}

	lines := make([]string, 0, len(s.buyLines)+1)
	lines = append(lines, s.buyLines...)

	if countDistinct(ownedSectors) < minSectorsBeforeTip {
		lines = append(lines, diversificationTip)
	}

	return lines
}

// StocksToSell flags conservative holdings down more than 10% and any holding
// up more than 30%. When nothing qualifies it returns a single balanced line.
func (e *Engine) StocksToSell(category domain.RiskCategory, holdings []PricedHolding) []string {
	var lines []string

	for _, h := range holdings {
		pct := ProfitLossPercent(h.BuyPrice, h.CurrentPrice)

		if category == domain.RiskConservative && pct.LessThan(conservativeSellThreshold) {
			lines = append(lines, fmt.Sprintf(
				"⚠️ Consider selling %s: Down %s%%. May not align with conservative strategy.",
				h.Symbol, pct.StringFixed(2),
			))
		}

		if pct.GreaterThan(takeProfitThreshold) {
			lines = append(lines, fmt.Sprintf(
				"💰 Consider taking profits on %s: Up %s%%. Lock in gains.",
				h.Symbol, pct.StringFixed(2),
			))
		}
	}

	if len(lines) == 0 {
		return []string{balancedLine}
	}

	return lines
}

// InvestmentAdvice returns the multi-line strategy text for a category
func (e *Engine) InvestmentAdvice(category domain.RiskCategory) string {
	s, ok := strategies[category]
	if !ok {
		return noProfileAdvice
	}
	return s.advice
}

// ProfitLossPercent returns round2(round4((current-buy)/buy) * 100), or 0 when buy is 0
func ProfitLossPercent(buy, current decimal.Decimal) decimal.Decimal {
	if buy.IsZero() {
		return decimal.Zero
	}
	return current.Sub(buy).DivRound(buy, 4).Mul(hundred).Round(2)
}

func countDistinct(values []string) int {
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v != "" {
			seen[v] = struct{}{}
		}
	}
	return len(seen)
}
