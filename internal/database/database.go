// Package database opens the shared Postgres pool and applies the embedded schema.
package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"devcollab/platform-backend/internal/config"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

const uniqueViolation = "23505"

// Handles bundles the two views of the same connection pool: sqlx for hand-written
// queries and gorm for the domain repositories.
type Handles struct {
	SQL  *sqlx.DB
	Gorm *gorm.DB
}

// Open connects to Postgres and configures the pool.
func Open(cfg config.DatabaseConfig, logger *zap.Logger) (*Handles, error) {
	db, err := sqlx.Connect("postgres", cfg.GetDatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if cfg.MaxConnections > 0 {
		db.SetMaxOpenConns(cfg.MaxConnections)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.MaxLifetime)
	}

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialise gorm: %w", err)
	}

	logger.Info("Connected to database",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("db", cfg.DBName),
	)
	return &Handles{SQL: db, Gorm: gdb}, nil
}

func (h *Handles) Close() error {
	return h.SQL.Close()
}

// Migrate applies every pending up migration.
func Migrate(db *sql.DB, logger *zap.Logger) error {
	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	defer src.Close()

	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("migration setup: %w", err)
	}

	// m.Close is not called: it would close the shared pool.
	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("Database schema up to date")
			return nil
		}
		return fmt.Errorf("apply migrations: %w", err)
	}

	version, dirty, _ := m.Version()
	logger.Info("Database migrated", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

// IsUniqueViolation reports whether err came from a UNIQUE constraint. When
// constraint is non-empty the violated constraint or index must match it.
func IsUniqueViolation(err error, constraint string) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation && (constraint == "" || pgErr.ConstraintName == constraint)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolation && (constraint == "" || pqErr.Constraint == constraint)
	}
	// gorm's translated form carries no constraint name.
	return constraint == "" && errors.Is(err, gorm.ErrDuplicatedKey)
}
