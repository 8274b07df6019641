// Package db owns the Postgres connection pool.
package db

import (
	"context"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"census-backend/internal/config"
)

// Connect opens the pgx pool and verifies connectivity. Startup without
// a reachable database is a misconfiguration, so failures are fatal.
func Connect(cfg *config.Config) *pgxpool.Pool {
	poolCfg, err := pgxpool.ParseConfig(cfg.Database.DSN())
	if err != nil {
		log.Fatalf("Invalid database configuration: %v", err)
	}
	poolCfg.MaxConns = cfg.Database.MaxConns

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Failed to connect to database %s@%s:%d/%s: %v",
			cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Name, err)
	}

	log.Printf("Connected to database %s:%d/%s", cfg.Database.Host, cfg.Database.Port, cfg.Database.Name)
	return pool
}
