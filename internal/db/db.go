package db

import (
	"context"
	"fmt"
	"time"

	"bidding-engine/internal/config"

	"github.com/jackc/pgx/v5/pgxpool"
)

// InitDb connects to Postgres and returns a pool, failing if the server cannot be reached within the store timeout
func InitDb(cfg config.Config) (*pgxpool.Pool, error) {
	if cfg.PostgresConn == "" {
		return nil, fmt.Errorf("postgres connection string is missing")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConn)
	if err != nil {
		return nil, fmt.Errorf("invalid postgres connection string: %w", err)
	}
	poolCfg.ConnConfig.ConnectTimeout = cfg.StoreTimeout

	dbPool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.StoreTimeout+time.Second)
	defer cancel()
	if err := dbPool.Ping(ctx); err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("unable to reach database: %w", err)
	}

	return dbPool, nil
}
