package di

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/aristath/portfolio-manager/internal/config"
	"github.com/aristath/portfolio-manager/internal/database"
)

/**
 * dbSpec pairs a database with the container slot it fills.
 * portfolio.db holds users, accounts, stocks, holdings and risk profiles.
 * client_data.db only holds provider responses and can be deleted at any time.
 */
type dbSpec struct {
	name    string
	profile database.DatabaseProfile
	slot    func(*Container) **database.DB
}

var dbSpecs = []dbSpec{
	{database.NamePortfolio, database.ProfileStandard, func(c *Container) **database.DB { return &c.PortfolioDB }},
	{database.NameClientData, database.ProfileCache, func(c *Container) **database.DB { return &c.ClientDataDB }},
}

// InitializeDatabases opens and migrates every database under cfg.DataDir.
// On failure nothing is left open.
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	for _, spec := range dbSpecs {
		db, err := database.New(database.Config{
			Path:    filepath.Join(cfg.DataDir, spec.name+".db"),
			Profile: spec.profile,
			Name:    spec.name,
		})
		if err != nil {
			closeDatabases(container)
			return nil, fmt.Errorf("open %s database: %w", spec.name, err)
		}
		*spec.slot(container) = db

		if err := db.Migrate(); err != nil {
			closeDatabases(container)
			return nil, fmt.Errorf("migrate %s database: %w", spec.name, err)
		}
		log.Debug().Str("database", spec.name).Str("profile", string(spec.profile)).Msg("Database ready")
	}

	log.Info().Str("data_dir", cfg.DataDir).Msg("Databases initialized")
	return container, nil
}

func closeDatabases(c *Container) {
	for _, spec := range dbSpecs {
		if db := *spec.slot(c); db != nil {
			_ = db.Close()
		}
	}
}
