/**
 * Package di provides dependency injection type definitions.
 *
 * The Container holds every long-lived dependency of the service and is the
 * single source of truth for service instances. It is built by Wire() and
 * handed to the HTTP server.
 */
package di

import (
	"github.com/go-redis/redis/v8"

	"github.com/aristath/portfolio-manager/internal/clientdata"
	"github.com/aristath/portfolio-manager/internal/clients/newsapi"
	"github.com/aristath/portfolio-manager/internal/database"
	"github.com/aristath/portfolio-manager/internal/domain"
	"github.com/aristath/portfolio-manager/internal/modules/banking"
	"github.com/aristath/portfolio-manager/internal/modules/chatbot"
	"github.com/aristath/portfolio-manager/internal/modules/market"
	"github.com/aristath/portfolio-manager/internal/modules/portfolio"
	"github.com/aristath/portfolio-manager/internal/modules/risk"
	"github.com/aristath/portfolio-manager/internal/modules/universe"
	"github.com/aristath/portfolio-manager/internal/modules/users"
	"github.com/aristath/portfolio-manager/internal/reliability"
	"github.com/aristath/portfolio-manager/internal/scheduler"
)

/**
 * Container holds all dependencies for the application.
 *
 * Layout:
 * - Databases: portfolio.db (users, accounts, holdings, profiles) and
 *   client_data.db (quote and news cache)
 * - Clients: quote provider, news feed, completion service, Redis
 * - Repositories and services, one per module
 * - Scheduler with its jobs
 */
type Container struct {
	// Databases
	PortfolioDB  *database.DB
	ClientDataDB *database.DB

	// Clients
	QuoteProvider market.QuoteProvider
	NewsClient    *newsapi.Client
	Completion    domain.CompletionService
	RedisClient   *redis.Client // nil when consent is kept in memory

	// Repositories
	UserRepo        *users.Repository
	BankRepo        *banking.Repository
	HoldingRepo     *portfolio.Repository
	StockRepo       *universe.StockRepository
	RiskProfileRepo *risk.ProfileRepository
	ClientCache     *clientdata.Cache

	// Services
	TokenManager     *users.TokenManager
	UserService      *users.Service
	BankingService   *banking.Service
	QuoteService     *market.QuoteService
	NewsService      *market.NewsService
	UniverseService  *universe.Service
	PortfolioService *portfolio.Service
	RiskService      *risk.Service
	ConsentStore     chatbot.ConsentStore
	ChatbotService   *chatbot.Service
	BackupService    *reliability.BackupService // nil when backups are disabled

	// Scheduling
	Scheduler *scheduler.Scheduler
	Jobs      *JobInstances
}

// JobInstances holds the registered background jobs
type JobInstances struct {
	CacheCleanup  scheduler.Job
	WALCheckpoint scheduler.Job
	Backup        scheduler.Job // nil when backups are disabled
}

// Databases returns the open databases keyed by name
func (c *Container) Databases() map[string]*database.DB {
	dbs := make(map[string]*database.DB, 2)
	if c.PortfolioDB != nil {
		dbs[c.PortfolioDB.Name()] = c.PortfolioDB
	}
	if c.ClientDataDB != nil {
		dbs[c.ClientDataDB.Name()] = c.ClientDataDB
	}
	return dbs
}
