package catalog

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/shark-voyager/voyager-cli/internal/config"
)

// Open creates a Store for the configured driver and applies migrations.
func Open(ctx context.Context, cfg config.CatalogConfig) (Store, error) {
	var store Store
	switch cfg.Driver {
	case "sqlite", "":
		s, err := NewSQLite(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		store = s
	case "postgres":
		s, err := NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		store = s
	default:
		return nil, eris.Errorf("catalog: unknown driver %q", cfg.Driver)
	}

	if err := store.Migrate(ctx); err != nil {
		store.Close() //nolint:errcheck,gosec
		return nil, err
	}
	return store, nil
}
