package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/siwarga/rwrt-backend/internal/config"
)

//go:embed migrations/*.sql
var migrations embed.FS

type Database struct {
	pool *pgxpool.Pool
}

func New(cfg *config.DatabaseConfig) (*Database, error) {
	pool, err := pgxpool.New(context.Background(), cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Activate and test the connection
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Database{pool: pool}, nil
}

// FromPool wraps an existing pool, e.g. one owned by a test container.
func FromPool(pool *pgxpool.Pool) *Database {
	return &Database{pool: pool}
}

func (d *Database) Close() {
	if d.pool != nil {
		d.pool.Close()
	}
}

func (d *Database) Pool() *pgxpool.Pool {
	return d.pool
}

func (d *Database) Ping(ctx context.Context) error {
	return d.pool.Ping(ctx)
}

// Migrate applies the embedded goose migrations.
func (d *Database) Migrate(ctx context.Context) error {
	return d.withGoose(func(db *sql.DB) error {
		if err := goose.UpContext(ctx, db, "migrations"); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		return nil
	})
}

// Reset rolls every migration back and applies them again, leaving empty
// tables behind.
func (d *Database) Reset(ctx context.Context) error {
	return d.withGoose(func(db *sql.DB) error {
		if err := goose.ResetContext(ctx, db, "migrations"); err != nil {
			return fmt.Errorf("failed to reset migrations: %w", err)
		}
		if err := goose.UpContext(ctx, db, "migrations"); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		return nil
	})
}

func (d *Database) withGoose(fn func(*sql.DB) error) error {
	sqlDB := stdlib.OpenDBFromPool(d.pool)
	defer sqlDB.Close()

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return fn(sqlDB)
}
