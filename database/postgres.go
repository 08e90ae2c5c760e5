package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"broadway/config"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PgPool is the global PostgreSQL pool backing the catalog and the order ledger.
var PgPool *pgxpool.Pool

// InitPostgres connects to PostgreSQL, retrying a few times while the server starts.
func InitPostgres() {
	pool, err := connectPostgres(context.Background(), config.AppConfig.PostgresURL)
	if err != nil {
		log.Fatalf("failed to connect to PostgreSQL: %v", err)
	}
	PgPool = pool
	log.Println("Connected to PostgreSQL successfully!")
}

func connectPostgres(ctx context.Context, url string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}
	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	const maxRetries = 5
	var pool *pgxpool.Pool
	for i := 0; i < maxRetries; i++ {
		pool, err = pgxpool.NewWithConfig(ctx, poolConfig)
		if err == nil {
			pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = pool.Ping(pctx)
			cancel()
			if err == nil {
				return pool, nil
			}
			pool.Close()
		}
		if i < maxRetries-1 {
			wait := time.Duration(i+1) * 2 * time.Second
			log.Printf("PostgreSQL not ready, retrying in %v: %v", wait, err)
			time.Sleep(wait)
		}
	}
	return nil, fmt.Errorf("failed to connect after %d attempts: %w", maxRetries, err)
}

// ClosePostgres releases the pool.
func ClosePostgres() {
	if PgPool != nil {
		PgPool.Close()
	}
}
