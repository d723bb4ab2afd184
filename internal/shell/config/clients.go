package config

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver
	"github.com/redis/go-redis/v9"
)

// NewPGXPool opens a pgx pool for the order store and verifies the
// connection before returning it.
func NewPGXPool(ctx context.Context, cfg PostgresConfig) (*pgxpool.Pool, error) {
	poolConfig, parseErr := pgxpool.ParseConfig(cfg.DSN)
	if parseErr != nil {
		return nil, fmt.Errorf("failed to parse postgres dsn: %w", parseErr)
	}

	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = cfg.MinConns
	}
	if cfg.MaxConnIdle > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdle
	}

	pool, newErr := pgxpool.NewWithConfig(ctx, poolConfig)
	if newErr != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", newErr)
	}

	if pingErr := pool.Ping(ctx); pingErr != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", pingErr)
	}

	return pool, nil
}

// NewSQLXDB opens a sqlx connection for deployments that run the order
// store over database/sql instead of the native pgx pool.
func NewSQLXDB(ctx context.Context, cfg PostgresConfig) (*sqlx.DB, error) {
	db, openErr := sqlx.Open("postgres", cfg.DSN)
	if openErr != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", openErr)
	}

	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(int(cfg.MaxConns))
	}
	if cfg.MinConns > 0 {
		db.SetMaxIdleConns(int(cfg.MinConns))
	}
	if cfg.MaxConnIdle > 0 {
		db.SetConnMaxIdleTime(cfg.MaxConnIdle)
	}

	if pingErr := db.PingContext(ctx); pingErr != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", pingErr)
	}

	return db, nil
}

// NewRedisClient opens the redis client backing the profile cache.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if pingErr := client.Ping(ctx).Err(); pingErr != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", pingErr)
	}

	return client, nil
}
