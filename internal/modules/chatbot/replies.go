package chatbot

import (
	"context"
	"fmt"
	"strings"

	"github.com/aristath/portfolio-manager/internal/domain"
	"github.com/aristath/portfolio-manager/internal/modules/recommendations"
	"github.com/shopspring/decimal"
)

// Fixed texts of the consent exchange
const (
	ConsentPrompt          = "🔒 Privacy Notice: Do you allow me to access your portfolio and bank details to provide personalized investment advice?"
	ConsentAcknowledgement = "✅ Thank you! I now have permission to access your portfolio data. How can I help you today?"
)

const (
	contextUnavailable = "Portfolio information unavailable"

	freeTextFallback = "I understand your question. For specific portfolio information, try asking about:\n" +
		"• Portfolio value\n" +
		"• Risk analysis\n" +
		"• Stock recommendations\n" +
		"• Holdings"

	promptTemplate = "You are a helpful financial portfolio assistant. " +
		"User's portfolio context:\n%s\n\n" +
		"User question: %s\n\n" +
		"Provide a concise, helpful response (2-3 sentences max)."
)

func (s *Service) category(ctx context.Context, userID int64) (domain.RiskCategory, error) {
	profile, err := s.profiles.ByUserID(ctx, userID)
	if err != nil {
		return "", err
	}
	if profile == nil {
		return "", nil
	}
	return profile.Category, nil
}

func (s *Service) recommendBuys(ctx context.Context, userID int64) (string, error) {
	category, err := s.category(ctx, userID)
	if err != nil {
		return "", err
	}
	holdings, err := s.holdings.HoldingsForUser(ctx, userID)
	if err != nil {
		return "", err
	}

	symbols := make([]string, 0, len(holdings))
	sectors := make([]string, 0, len(holdings))
	for _, h := range holdings {
		symbols = append(symbols, h.Symbol)
		sectors = append(sectors, h.Sector)
	}

	lines := s.engine.StocksToBuy(category, symbols, sectors)
	return "📈 **Stock Recommendations to Buy:**\n\n" +
		strings.Join(lines, "\n") + "\n\n" +
		s.engine.InvestmentAdvice(category), nil
}

func (s *Service) recommendSells(ctx context.Context, userID int64) (string, error) {
	category, err := s.category(ctx, userID)
	if err != nil {
		return "", err
	}
	holdings, err := s.holdings.HoldingsForUser(ctx, userID)
	if err != nil {
		return "", err
	}

	priced := make([]recommendations.PricedHolding, 0, len(holdings))
	for _, h := range holdings {
		priced = append(priced, recommendations.PricedHolding{
			Symbol:       h.Symbol,
			BuyPrice:     h.BuyPrice,
			CurrentPrice: s.prices.CurrentPrice(ctx, h.Symbol).CurrentPrice,
		})
	}

	lines := s.engine.StocksToSell(category, priced)
	return "📉 **Stock Recommendations to Sell:**\n\n" + strings.Join(lines, "\n"), nil
}

func (s *Service) portfolioValue(ctx context.Context, userID int64) (string, error) {
	view, err := s.portfolios.GetPortfolio(ctx, userID)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("📊 **Your Portfolio Summary:**\n\n"+
		"💰 Total Value: $%s\n"+
		"💵 Total Cost: $%s\n"+
		"📈 Profit/Loss: $%s (%s%%)\n\n"+
		"You have %d holdings in your portfolio.",
		formatMoney(view.TotalValue),
		formatMoney(view.TotalCost),
		formatMoney(view.TotalProfitLoss),
		view.TotalProfitLossPercentage.StringFixed(2),
		len(view.Holdings),
	), nil
}

func (s *Service) riskAnalysis(ctx context.Context, userID int64) (string, error) {
	a, err := s.risk.AnalyzeRisk(ctx, userID)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("⚠️ **Risk Analysis:**\n\n"+
		"Risk Category: %s\n"+
		"Volatility Score: %s/10\n"+
		"Diversification Score: %s/10\n"+
		"Max Loss Tolerance: %s%%\n\n"+
		"%s\n\n"+
		"**Recommendations:**\n%s",
		a.Category,
		a.VolatilityScore.StringFixed(2),
		a.DiversificationScore.StringFixed(2),
		a.MaxLossTolerance.StringFixed(2),
		a.RiskLevel,
		strings.Join(a.Suggestions, "\n"),
	), nil
}

func (s *Service) holdingsList(ctx context.Context, userID int64) (string, error) {
	view, err := s.portfolios.GetPortfolio(ctx, userID)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("📋 **Your Holdings:**\n\n")
	for _, h := range view.Holdings {
		fmt.Fprintf(&sb, "• %s (%s): %d shares @ $%s\n  Current: $%s | P/L: $%s (%s%%)\n\n",
			h.Symbol,
			h.CompanyName,
			h.Quantity,
			h.BuyPrice.StringFixed(2),
			h.CurrentPrice.StringFixed(2),
			h.ProfitLoss.StringFixed(2),
			h.ProfitLossPercentage.StringFixed(2),
		)
	}
	return sb.String(), nil
}

// freeText asks the completion service and falls back to a canned hint
func (s *Service) freeText(ctx context.Context, userID int64, message string) string {
	prompt := fmt.Sprintf(promptTemplate, s.portfolioContext(ctx, userID), message)

	text, err := s.completion.Complete(ctx, prompt)
	if err != nil {
		s.log.Warn().Err(err).Int64("user_id", userID).Msg("Completion failed, using fallback reply")
		return freeTextFallback
	}
	return text
}

func (s *Service) portfolioContext(ctx context.Context, userID int64) string {
	view, err := s.portfolios.GetPortfolio(ctx, userID)
	if err != nil {
		s.log.Warn().Err(err).Int64("user_id", userID).Msg("Answering without portfolio context")
		return contextUnavailable
	}
	analysis, err := s.risk.AnalyzeRisk(ctx, userID)
	if err != nil {
		s.log.Warn().Err(err).Int64("user_id", userID).Msg("Answering without risk context")
		return contextUnavailable
	}

	return fmt.Sprintf("Portfolio Value: $%s, Holdings: %d, Risk Category: %s",
		view.TotalValue.StringFixed(2), len(view.Holdings), analysis.Category)
}

// formatMoney renders d with two decimals and comma thousands separators
func formatMoney(d decimal.Decimal) string {
	s := d.StringFixed(2)

	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}

	whole, frac := s[:len(s)-3], s[len(s)-3:]
	var sb strings.Builder
	sb.WriteString(sign)
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			sb.WriteByte(',')
		}
		sb.WriteRune(r)
	}
	sb.WriteString(frac)
	return sb.String()
}
