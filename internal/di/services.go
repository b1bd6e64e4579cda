package di

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"github.com/aristath/portfolio-manager/internal/clients/alphavantage"
	"github.com/aristath/portfolio-manager/internal/clients/finnhub"
	"github.com/aristath/portfolio-manager/internal/clients/gemini"
	"github.com/aristath/portfolio-manager/internal/clients/newsapi"
	"github.com/aristath/portfolio-manager/internal/config"
	"github.com/aristath/portfolio-manager/internal/domain"
	"github.com/aristath/portfolio-manager/internal/modules/banking"
	"github.com/aristath/portfolio-manager/internal/modules/chatbot"
	"github.com/aristath/portfolio-manager/internal/modules/market"
	"github.com/aristath/portfolio-manager/internal/modules/portfolio"
	"github.com/aristath/portfolio-manager/internal/modules/recommendations"
	"github.com/aristath/portfolio-manager/internal/modules/risk"
	"github.com/aristath/portfolio-manager/internal/modules/universe"
	"github.com/aristath/portfolio-manager/internal/modules/users"
	"github.com/aristath/portfolio-manager/internal/reliability"
)

// InitializeServices creates clients and services. Repositories must exist.
func InitializeServices(ctx context.Context, container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container.UserRepo == nil {
		return fmt.Errorf("repositories must be initialized before services")
	}

	// Clients
	container.QuoteProvider = newQuoteProvider(cfg, log)
	container.NewsClient = newsapi.NewClient(cfg.News.BaseURL, cfg.News.APIKey, cfg.MarketData.Timeout, log)
	container.Completion = newCompletionService(ctx, cfg, log)

	consent, redisClient, err := newConsentStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	container.ConsentStore = consent
	container.RedisClient = redisClient

	// Market data
	container.QuoteService = market.NewQuoteService(
		container.QuoteProvider,
		container.ClientCache,
		cfg.MarketData.Timeout,
		log,
	)
	container.NewsService = market.NewNewsService(container.NewsClient, container.ClientCache, log)
	container.UniverseService = universe.NewService(container.StockRepo, container.QuoteService, log)

	// Users and accounts
	container.TokenManager = users.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry)
	container.UserService = users.NewService(container.UserRepo, container.BankRepo, container.TokenManager, log)
	container.BankingService = banking.NewService(container.BankRepo, container.UserRepo, log)

	// Portfolio and risk
	container.PortfolioService = portfolio.NewService(
		container.HoldingRepo,
		container.HoldingRepo,
		container.BankRepo,
		container.UserRepo,
		container.QuoteService,
		container.UniverseService,
		log,
	)
	container.RiskService = risk.NewService(
		container.UserRepo,
		container.HoldingRepo,
		container.RiskProfileRepo,
		log,
	)

	// Chatbot
	container.ChatbotService = chatbot.NewService(chatbot.Deps{
		Consent:    container.ConsentStore,
		Portfolios: container.PortfolioService,
		Risk:       container.RiskService,
		Profiles:   container.RiskProfileRepo,
		Holdings:   container.HoldingRepo,
		Prices:     container.QuoteService,
		Completion: container.Completion,
		Engine:     recommendations.NewEngine(),
	}, log)

	// Backups
	if cfg.Backup.Enabled() {
		store, err := reliability.NewS3Store(ctx, reliability.S3Config{
			Bucket:          cfg.Backup.Bucket,
			Prefix:          cfg.Backup.Prefix,
			Region:          cfg.Backup.Region,
			Endpoint:        cfg.Backup.Endpoint,
			AccessKeyID:     cfg.Backup.AccessKeyID,
			SecretAccessKey: cfg.Backup.SecretKey,
		}, log)
		if err != nil {
			return fmt.Errorf("failed to create backup store: %w", err)
		}
		container.BackupService = reliability.NewBackupService(container.Databases(), store, cfg.DataDir, log)
	}

	log.Info().
		Str("quote_provider", container.QuoteProvider.Name()).
		Bool("redis_consent", container.RedisClient != nil).
		Bool("backups", container.BackupService != nil).
		Msg("Services initialized")
	return nil
}

func newQuoteProvider(cfg *config.Config, log zerolog.Logger) market.QuoteProvider {
	if cfg.MarketData.Provider == config.ProviderFinnhub {
		return finnhub.NewClient(cfg.MarketData.FinnhubAPIKey, log,
			finnhub.WithTimeout(cfg.MarketData.Timeout),
			finnhub.WithRatePerMinute(cfg.MarketData.RatePerMinute),
		)
	}
	return alphavantage.NewClient(cfg.MarketData.AlphaVantageAPIKey, log,
		alphavantage.WithTimeout(cfg.MarketData.Timeout),
		alphavantage.WithRatePerMinute(cfg.MarketData.RatePerMinute),
	)
}

// newCompletionService returns the Gemini client, or a disabled service when
// no key is configured so the chatbot answers free text with its fallback.
func newCompletionService(ctx context.Context, cfg *config.Config, log zerolog.Logger) domain.CompletionService {
	if cfg.Gemini.APIKey == "" {
		log.Warn().Msg("GEMINI_API_KEY not set, free-text chat will use the fallback reply")
		return gemini.Disabled{}
	}

	client, err := gemini.NewClient(ctx, gemini.Config{
		APIKey:  cfg.Gemini.APIKey,
		Model:   cfg.Gemini.Model,
		Timeout: cfg.Gemini.Timeout,
	}, log)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create Gemini client, free-text chat disabled")
		return gemini.Disabled{}
	}
	return client
}

func newConsentStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (chatbot.ConsentStore, *redis.Client, error) {
	if cfg.RedisURL == "" {
		return chatbot.NewMemoryConsentStore(), nil, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Info().Str("addr", opts.Addr).Msg("Chatbot consent stored in redis")
	return chatbot.NewRedisConsentStore(client), client, nil
}
