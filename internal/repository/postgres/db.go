package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/andresuchdata/reseller-forecast/backend-go/internal/config"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"golang.org/x/sync/semaphore"
)

// DB is a connection pool that also caps how many queries run at once.
type DB struct {
	*sqlx.DB
	sem *semaphore.Weighted
}

// NewDB opens and pings a connection pool. DATABASE_URL wins over the
// individual DB_* settings.
func NewDB(ctx context.Context, cfg *config.DatabaseConfig) (*DB, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = "pgx"
	}

	db, err := sqlx.ConnectContext(ctx, driver, DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &DB{
		DB:  db,
		sem: semaphore.NewWeighted(10),
	}, nil
}

// DSN returns the connection string for cfg.
func DSN(cfg *config.DatabaseConfig) string {
	if cfg.URL != "" {
		return cfg.URL
	}
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, sslMode)
}

// acquire reserves a query slot until release is called.
func (db *DB) acquire(ctx context.Context) (release func(), err error) {
	if err := db.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("could not acquire semaphore: %w", err)
	}
	return func() { db.sem.Release(1) }, nil
}
