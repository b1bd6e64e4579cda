// Package chatbot answers canned questions about a user's portfolio and
// forwards anything else to a completion service.
package chatbot

import (
	"context"
	"strings"
	"time"

	"github.com/aristath/portfolio-manager/internal/domain"
	"github.com/aristath/portfolio-manager/internal/modules/portfolio"
	"github.com/aristath/portfolio-manager/internal/modules/recommendations"
	"github.com/aristath/portfolio-manager/internal/modules/risk"
	"github.com/rs/zerolog"
)

const timestampLayout = "2006-01-02T15:04:05"

// QuickActions is attached to every reply given after consent
var QuickActions = []string{
	"📈 Recommend Stocks to Buy",
	"📉 Suggest Stocks to Sell",
	"💰 Portfolio Value",
	"⚠️ Risk Analysis",
}

// PortfolioReader values a user's portfolio
type PortfolioReader interface {
	GetPortfolio(ctx context.Context, userID int64) (*portfolio.View, error)
}

// RiskAnalyzer runs a risk analysis for a user
type RiskAnalyzer interface {
	AnalyzeRisk(ctx context.Context, userID int64) (*risk.Analysis, error)
}

// Request is one chat message
type Request struct {
	Message      string `json:"message"`
	UserID       int64  `json:"userId"`
	ConsentGiven bool   `json:"consentGiven"`
}

// Response is the assistant's reply
type Response struct {
	Response        string   `json:"response"`
	Timestamp       string   `json:"timestamp"`
	QuickActions    []string `json:"quickActions,omitempty"`
	RequiresConsent bool     `json:"requiresConsent"`
}

// Service routes chat messages to canned handlers. Chat never fails: every
// internal error turns into an apology.
type Service struct {
	consent    ConsentStore
	portfolios PortfolioReader
	risk       RiskAnalyzer
	profiles   domain.RiskProfileStore
	holdings   domain.HoldingsStore
	prices     domain.PriceLookup
	completion domain.CompletionService
	engine     *recommendations.Engine
	now        func() time.Time
	log        zerolog.Logger
}

// Deps groups the collaborators of the chatbot service
type Deps struct {
	Consent    ConsentStore
	Portfolios PortfolioReader
	Risk       RiskAnalyzer
	Profiles   domain.RiskProfileStore
	Holdings   domain.HoldingsStore
	Prices     domain.PriceLookup
	Completion domain.CompletionService
	Engine     *recommendations.Engine
}

// NewService creates a new chatbot service
func NewService(deps Deps, log zerolog.Logger) *Service {
	engine := deps.Engine
	if engine == nil {
		engine = recommendations.NewEngine()
	}
	return &Service{
		consent:    deps.Consent,
		portfolios: deps.Portfolios,
		risk:       deps.Risk,
		profiles:   deps.Profiles,
		holdings:   deps.Holdings,
		prices:     deps.Prices,
		completion: deps.Completion,
		engine:     engine,
		now:        time.Now,
		log:        log.With().Str("service", "chatbot").Logger(),
	}
}

type route struct {
	keywords []string
	handle   func(s *Service, ctx context.Context, userID int64) (string, error)
	apology  string
}

// routes are tried in order and the first keyword hit wins
var routes = []route{
	{
		keywords: []string{"recommend", "buy", "suggest stocks"},
		handle:   (*Service).recommendBuys,
		apology:  "Sorry, I couldn't generate recommendations. Please try again.",
	},
	{
		keywords: []string{"sell", "suggest sell"},
		handle:   (*Service).recommendSells,
		apology:  "Sorry, I couldn't generate sell recommendations. Please try again.",
	},
	{
		keywords: []string{"portfolio value", "total value", "worth"},
		handle:   (*Service).portfolioValue,
		apology:  "Sorry, I couldn't retrieve your portfolio information. Please try again.",
	},
	{
		keywords: []string{"risk", "risky", "volatility"},
		handle:   (*Service).riskAnalysis,
		apology:  "Sorry, I couldn't analyze your risk profile. Please try again.",
	},
	{
		keywords: []string{"holdings", "stocks", "investments"},
		handle:   (*Service).holdingsList,
		apology:  "Sorry, I couldn't retrieve your holdings. Please try again.",
	},
}

// Chat answers one message. Until the user consents, every message without
// consentGiven gets the privacy prompt.
func (s *Service) Chat(ctx context.Context, req Request) *Response {
	consented, err := s.consent.HasConsent(ctx, req.UserID)
	if err != nil {
		s.log.Warn().Err(err).Int64("user_id", req.UserID).Msg("Consent lookup failed, asking again")
		consented = false
	}

	if !consented {
		if !req.ConsentGiven {
			return s.reply(ConsentPrompt, true)
		}
		if err := s.consent.Grant(ctx, req.UserID); err != nil {
			s.log.Error().Err(err).Int64("user_id", req.UserID).Msg("Failed to record consent")
			return s.reply("Sorry, I couldn't save your consent. Please try again.", true)
		}
		s.log.Info().Int64("user_id", req.UserID).Msg("Chat consent granted")
		return s.reply(ConsentAcknowledgement, false)
	}

	text := strings.ToLower(strings.TrimSpace(req.Message))
	for _, rt := range routes {
		if !containsAny(text, rt.keywords) {
			continue
		}
		answer, err := rt.handle(s, ctx, req.UserID)
		if err != nil {
			s.log.Error().Err(err).Int64("user_id", req.UserID).Str("keyword_route", rt.keywords[0]).Msg("Chat handler failed")
			return s.reply(rt.apology, false)
		}
		return s.reply(answer, false)
	}

	return s.reply(s.freeText(ctx, req.UserID, req.Message), false)
}

// ClearConsent resets the user to the no-consent state
func (s *Service) ClearConsent(ctx context.Context, userID int64) error {
	if err := s.consent.Clear(ctx, userID); err != nil {
		return err
	}
	s.log.Info().Int64("user_id", userID).Msg("Chat consent cleared")
	return nil
}

func (s *Service) reply(text string, requiresConsent bool) *Response {
	resp := &Response{
		Response:        text,
		RequiresConsent: requiresConsent,
		Timestamp:       s.now().Format(timestampLayout),
	}
	if !requiresConsent {
		resp.QuickActions = QuickActions
	}
	return resp
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}
