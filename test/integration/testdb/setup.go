// Package testdb stands up the payments ledger schema for integration
// tests: real postgres, real goose migrations, truncated between tests.
package testdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// Config holds test database configuration
type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
}

// GetConfig reads the TEST_DB_* environment, falling back to a local
// postgres with stock credentials.
func GetConfig() Config {
	return Config{
		Host:     envOr("TEST_DB_HOST", "localhost"),
		Port:     envOr("TEST_DB_PORT", "5432"),
		User:     envOr("TEST_DB_USER", "postgres"),
		Password: envOr("TEST_DB_PASSWORD", "postgres"),
		Database: envOr("TEST_DB_NAME", "p2c_test"),
	}
}

// ConnString returns the postgres connection string for the test database
func (c Config) ConnString() string {
	return fmt.Sprintf(
		"user=%s password=%s host=%s port=%s dbname=%s sslmode=disable",
		c.User, c.Password, c.Host, c.Port, c.Database,
	)
}

// Setup connects to the test database, migrates it to the latest schema,
// and hands back a clean pool. Tests are skipped, not failed, when no
// database is reachable, so the unit suite stays runnable anywhere.
func Setup(t *testing.T) *pgxpool.Pool {
	t.Helper()

	cfg := GetConfig()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.ConnString())
	if err != nil {
		t.Fatalf("parse pool config: %v", err)
	}
	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		t.Skipf("test database unavailable: %v", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Skipf("test database unavailable: %v", err)
	}

	if err := migrate(cfg); err != nil {
		pool.Close()
		t.Fatalf("migrate test database: %v", err)
	}

	Clean(t, pool)
	t.Cleanup(pool.Close)

	return pool
}

// Clean truncates the ledger for a fresh test state
func Clean(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	if _, err := pool.Exec(context.Background(), "TRUNCATE TABLE payments"); err != nil {
		t.Fatalf("truncate payments: %v", err)
	}
}

// migrate runs the repository's goose migrations, the same ones
// cmd/migrate applies in deployments
func migrate(cfg Config) error {
	db, err := sql.Open("pgx", cfg.ConnString())
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer db.Close()

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	goose.SetLogger(goose.NopLogger())

	return goose.Up(db, migrationsDir())
}

// migrationsDir locates migrations/ relative to this source file
func migrationsDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "..", "migrations")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
