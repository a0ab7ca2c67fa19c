package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/deliverycart/pkg/config"
	"github.com/angelmondragon/deliverycart/pkg/db"
	"github.com/angelmondragon/deliverycart/pkg/logger"
)

// MaybeRunDev applies pending migrations on startup. It runs only in dev with
// DELIVERYCART_AUTO_MIGRATE set.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	count, err := ValidateDir(DefaultDir)
	if err != nil {
		return fmt.Errorf("validating migrations: %w", err)
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"env":        cfg.App.Env,
		"dir":        DefaultDir,
		"driver":     client.Driver(),
		"migrations": count,
	})
	logg.Info(ctx, "applying migrations")

	if err := Run(ctx, sqlDB, client.Driver(), DefaultDir, "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}

	logg.Info(ctx, "migrations applied")
	return nil
}
