// Package store persists moments, thoughts, matches and learning records in
// a relational database through gorm. Postgres is the production driver;
// sqlite serves single-node deployments and tests.
package store

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/fyrsmithlabs/momentd/internal/config"
	"github.com/fyrsmithlabs/momentd/internal/learning"
	"github.com/fyrsmithlabs/momentd/internal/logging"
	"github.com/fyrsmithlabs/momentd/internal/moments"
)

var (
	// ErrUnsupportedDriver is returned by Open for drivers other than
	// postgres and sqlite.
	ErrUnsupportedDriver = errors.New("unsupported database driver")

	// ErrNotFound is returned for moments and thoughts outside the user's
	// scope.
	ErrNotFound = moments.ErrNotFound
)

// Store implements moments.Store and learning.Store.
type Store struct {
	db     *gorm.DB
	logger *logging.Logger
}

// Open connects to the configured database and, when AutoMigrate is set,
// creates or updates the schema.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *logging.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN.Value())
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN.Value())
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         newGormLogger(logger.Named("gorm")),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access connection pool: %w", err)
	}
	switch {
	case cfg.Driver == "sqlite":
		// sqlite allows a single writer.
		sqlDB.SetMaxOpenConns(1)
	case cfg.MaxOpenConns > 0:
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	s := &Store{db: db, logger: logger}
	if err := s.Ping(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	if cfg.AutoMigrate {
		if err := s.Migrate(ctx); err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
	}

	logger.Info(ctx, "database connected", zap.String("driver", cfg.Driver))
	return s, nil
}

// Migrate creates or updates every table.
func (s *Store) Migrate(ctx context.Context) error {
	err := s.db.WithContext(ctx).AutoMigrate(
		&thoughtModel{},
		&momentModel{},
		&matchModel{},
		&learningRecordModel{},
	)
	if err != nil {
		return fmt.Errorf("failed to auto migrate: %w", err)
	}
	return nil
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var (
	_ moments.Store  = (*Store)(nil)
	_ learning.Store = (*Store)(nil)
)
