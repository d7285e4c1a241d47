package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// Database holds the PostgreSQL connection pool
type Database struct {
	pool *pgxpool.Pool
}

// schema bootstraps the tables this service owns. Business content fields
// for sites and articles live in the dashboard's own storage; only the
// columns needed for credentials and reconciliation exist here.
const schema = `
CREATE TABLE IF NOT EXISTS api_keys (
	id UUID PRIMARY KEY,
	owner_id VARCHAR(255) NOT NULL,
	key_value VARCHAR(255) UNIQUE NOT NULL,
	key_prefix VARCHAR(32) NOT NULL,
	label VARCHAR(255) NOT NULL,
	revoked BOOLEAN NOT NULL DEFAULT false,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	last_used TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_api_keys_owner ON api_keys(owner_id);

CREATE TABLE IF NOT EXISTS sites (
	id UUID PRIMARY KEY,
	wp_base_url TEXT NOT NULL DEFAULT '',
	wp_username VARCHAR(255) NOT NULL DEFAULT '',
	wp_app_password BYTEA NOT NULL DEFAULT ''::bytea,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS articles (
	id UUID PRIMARY KEY,
	site_id UUID NOT NULL REFERENCES sites(id) ON DELETE CASCADE,
	remote_post_id VARCHAR(64),
	status VARCHAR(20) NOT NULL DEFAULT 'draft',
	link TEXT NOT NULL DEFAULT '',
	first_published TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CONSTRAINT articles_status_check CHECK (status IN ('draft', 'scheduled', 'published'))
);

CREATE INDEX IF NOT EXISTS idx_articles_remote ON articles(remote_post_id) WHERE remote_post_id IS NOT NULL;
`

// New creates a new database connection and bootstraps the schema
func New(ctx context.Context, databaseURL string) (*Database, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	// Configure connection pool
	config.MaxConns = 25
	config.MinConns = 5
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	db := &Database{pool: pool}

	if err := db.initializeSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool
func (db *Database) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// GetPool returns the connection pool
func (db *Database) GetPool() *pgxpool.Pool {
	return db.pool
}

// initializeSchema executes the embedded schema
func (db *Database) initializeSchema(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	log.Info().Msg("database schema initialized")
	return nil
}

// Health checks if the database is healthy
func (db *Database) Health(ctx context.Context) error {
	if db == nil || db.pool == nil {
		return fmt.Errorf("database connection not initialized")
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return db.pool.Ping(ctx)
}
