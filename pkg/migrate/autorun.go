package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/bazaar-backend/pkg/config"
	"github.com/angelmondragon/bazaar-backend/pkg/db"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

// MaybeRunDev applies the embedded migrations on boot in dev when
// BAZAAR_AUTO_MIGRATE is set. SQLite dev databases are migrated from the models.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}
	if cfg.FeatureFlags.UseSQLite {
		logg.Info(ctx, "auto-migrating sqlite schema from models")
		return client.DB().WithContext(ctx).AutoMigrate(models.All()...)
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	source, err := Source("")
	if err != nil {
		return err
	}
	runner, err := NewRunner(sqlDB, source, nil)
	if err != nil {
		return err
	}

	pending, err := runner.Pending(ctx)
	if err != nil {
		return err
	}
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "pending": pending})
	if pending == 0 {
		logg.Debug(ctx, "schema up to date")
		return nil
	}
	logg.Info(ctx, "applying embedded migrations")
	if err := runner.Up(ctx); err != nil {
		return err
	}
	logg.Info(ctx, "embedded migrations applied")
	return nil
}
