package infra

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	postgresConnectTimeout = 5 * time.Second
	// The bank serves one interactive user; a few connections cover the
	// whole-document reads and upserts.
	postgresMaxConns = 4
)

// NewPostgresPool opens the pool backing the document store and verifies it
// within a bounded time.
func NewPostgresPool(ctx context.Context, rawURL string) (*pgxpool.Pool, error) {
	dsn, err := postgresDSN(rawURL)
	if err != nil {
		return nil, err
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	cfg.MaxConns = postgresMaxConns
	if cfg.ConnConfig.ConnectTimeout == 0 || cfg.ConnConfig.ConnectTimeout > postgresConnectTimeout {
		cfg.ConnConfig.ConnectTimeout = postgresConnectTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, postgresConnectTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

// postgresDSN accepts either a postgres:// URL or a key=value DSN.
func postgresDSN(raw string) (string, error) {
	clean := strings.Trim(strings.TrimSpace(raw), "\"'")
	if !strings.Contains(clean, "://") {
		if clean == "" {
			return "", fmt.Errorf("postgres url is required")
		}
		return clean, nil
	}
	return sanitizeURL(clean, "postgres", "postgres", "postgresql")
}
