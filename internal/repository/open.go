// Package repository opens the conversation store selected by configuration.
package repository

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/Rrens/neuralizard/internal/config"
	"github.com/Rrens/neuralizard/internal/domain"
	"github.com/Rrens/neuralizard/internal/repository/migrations"
	"github.com/Rrens/neuralizard/internal/repository/postgres"
	"github.com/Rrens/neuralizard/internal/repository/sqlstore"
)

// Open applies pending migrations and connects the configured backend.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*domain.Store, error) {
	backend := cfg.Backend()
	switch backend {
	case config.DriverPostgres, config.DriverSQLite, config.DriverMySQL:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", backend)
	}

	if err := migrations.Up(cfg); err != nil {
		return nil, err
	}

	switch backend {
	case config.DriverPostgres:
		db, err := postgres.NewDB(ctx, cfg)
		if err != nil {
			return nil, err
		}
		log.Info().Str("driver", backend).Msg("Connected to database")
		return postgres.NewStore(db), nil
	case config.DriverSQLite, config.DriverMySQL:
		db, err := sqlstore.Open(ctx, cfg)
		if err != nil {
			return nil, err
		}
		log.Info().Str("driver", backend).Msg("Connected to database")
		return sqlstore.NewStore(db), nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", backend)
}
