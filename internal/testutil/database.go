package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/siwarga/rwrt-backend/internal/database"
	"github.com/siwarga/rwrt-backend/internal/store"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestDatabase wraps a real PostgreSQL database for testing
type TestDatabase struct {
	*database.Database
	container testcontainers.Container
	pool      *pgxpool.Pool
}

// NewTestDatabase creates a new test database using testcontainers
func NewTestDatabase(t *testing.T) *TestDatabase {
	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForAll(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second),
				wait.ForListeningPort("5432/tcp").
					WithStartupTimeout(30*time.Second),
			),
		),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "Failed to get connection string")

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err, "Failed to create connection pool")
	require.NoError(t, pool.Ping(ctx), "Failed to ping database")

	testDB := &TestDatabase{
		Database:  database.FromPool(pool),
		container: postgresContainer,
		pool:      pool,
	}

	t.Cleanup(func() {
		pool.Close()
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	})

	return testDB
}

// RunMigrations applies the embedded goose migrations
func (tdb *TestDatabase) RunMigrations(t *testing.T) {
	require.NoError(t, tdb.Migrate(context.Background()), "Failed to run goose migrations")
}

// Store returns a document store backed by this database
func (tdb *TestDatabase) Store() *store.Postgres {
	return store.NewPostgres(tdb.pool)
}

// Cleanup closes the database connection and terminates the container
func (tdb *TestDatabase) Cleanup() {
	tdb.pool.Close()
	_ = tdb.container.Terminate(context.Background())
}

// CleanupDatabase truncates all tables for test isolation
func (tdb *TestDatabase) CleanupDatabase(t *testing.T) {
	ctx := context.Background()

	for _, table := range []string{"documents", "admin_accounts"} {
		if _, err := tdb.pool.Exec(ctx, "TRUNCATE TABLE "+table+" CASCADE"); err != nil {
			t.Logf("Failed to truncate table %s: %v", table, err)
		}
	}
}
