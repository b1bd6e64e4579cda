package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/portfolio-manager/internal/clientdata"
	"github.com/aristath/portfolio-manager/internal/config"
	"github.com/aristath/portfolio-manager/internal/modules/banking"
	"github.com/aristath/portfolio-manager/internal/modules/portfolio"
	"github.com/aristath/portfolio-manager/internal/modules/risk"
	"github.com/aristath/portfolio-manager/internal/modules/universe"
	"github.com/aristath/portfolio-manager/internal/modules/users"
)

// InitializeRepositories creates all repositories
func InitializeRepositories(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container.PortfolioDB == nil || container.ClientDataDB == nil {
		return fmt.Errorf("databases must be initialized before repositories")
	}

	portfolioConn := container.PortfolioDB.Conn()

	container.UserRepo = users.NewRepository(portfolioConn, log)
	container.BankRepo = banking.NewRepository(portfolioConn, banking.Defaults{
		BankName:            cfg.Banking.DefaultBankName,
		AccountNumberPrefix: cfg.Banking.AccountNumberPrefix,
	}, log)
	container.HoldingRepo = portfolio.NewRepository(portfolioConn, log)
	container.StockRepo = universe.NewStockRepository(portfolioConn, log)
	container.RiskProfileRepo = risk.NewProfileRepository(portfolioConn, log)
	container.ClientCache = clientdata.NewCache(container.ClientDataDB.Conn())

	log.Debug().Msg("Repositories initialized")
	return nil
}
