package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS daily_closes (
		symbol     TEXT             NOT NULL,
		trade_date DATE             NOT NULL,
		close      DOUBLE PRECISION NOT NULL CHECK (close > 0),
		fetched_at TIMESTAMPTZ      NOT NULL DEFAULT NOW(),
		PRIMARY KEY (symbol, trade_date)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_daily_closes_fetched ON daily_closes (symbol, fetched_at)`,
}

// Migrate creates the series cache tables if they are missing.
func Migrate(ctx context.Context, p *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := p.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
