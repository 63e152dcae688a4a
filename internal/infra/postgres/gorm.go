package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/scantrail/scantrail/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewGorm opens the primary ORM connection used by the code registry and the
// scan ledger. Pool sizing follows the same config knobs as the pgx pool so
// both connections share one tuning surface.
func NewGorm(cfg config.PostgresConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(ConnString(cfg)), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Warn),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: open gorm connection: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("postgres: retrieve sql db: %w", err)
	}

	if cfg.MaxConns > 0 {
		sqlDB.SetMaxOpenConns(int(cfg.MaxConns))
	}
	if cfg.MinConns > 0 {
		sqlDB.SetMaxIdleConns(int(cfg.MinConns))
	}
	lifetime := 5 * time.Minute
	if cfg.MaxConnLifetime != "" {
		if parsed, err := time.ParseDuration(cfg.MaxConnLifetime); err == nil {
			lifetime = parsed
		}
	}
	sqlDB.SetConnMaxLifetime(lifetime)

	return db, nil
}

// AutoMigrate creates or updates the schema for the given models on startup.
func AutoMigrate(ctx context.Context, db *gorm.DB, models ...interface{}) error {
	if db == nil || len(models) == 0 {
		return nil
	}
	if err := db.WithContext(ctx).AutoMigrate(models...); err != nil {
		return fmt.Errorf("postgres: auto migrate: %w", err)
	}
	return nil
}
