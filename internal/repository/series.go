package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kjannette/tickerguess/internal/models"
)

// SeriesRepo caches normalized daily closes per symbol. A symbol's rows are
// always replaced together, so they share one fetched_at.
type SeriesRepo struct {
	pool *pgxpool.Pool
}

func NewSeriesRepo(pool *pgxpool.Pool) *SeriesRepo {
	return &SeriesRepo{pool: pool}
}

// Load returns the cached series for symbol, or nil if there is none fresher
// than maxAge.
func (r *SeriesRepo) Load(ctx context.Context, symbol string, maxAge time.Duration) (models.Series, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT trade_date, close FROM daily_closes
		 WHERE symbol = $1 AND fetched_at >= $2
		 ORDER BY trade_date ASC`,
		symbol, time.Now().Add(-maxAge),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSeries(rows)
}

// Save replaces the cached series for symbol.
func (r *SeriesRepo) Save(ctx context.Context, symbol string, series models.Series) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM daily_closes WHERE symbol = $1`, symbol); err != nil {
		return fmt.Errorf("clear %s: %w", symbol, err)
	}

	now := time.Now()
	batch := &pgx.Batch{}
	for _, p := range series {
		d, err := time.Parse("2006-01-02", p.Date)
		if err != nil {
			return fmt.Errorf("bad date %q: %w", p.Date, err)
		}
		batch.Queue(
			`INSERT INTO daily_closes (symbol, trade_date, close, fetched_at) VALUES ($1, $2, $3, $4)`,
			symbol, d, p.Close, now,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert %s: %w", symbol, err)
	}
	return tx.Commit(ctx)
}

// Symbols lists cached tickers with their point counts.
func (r *SeriesRepo) Symbols(ctx context.Context) (map[string]int, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT symbol, COUNT(*) FROM daily_closes GROUP BY symbol ORDER BY symbol`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var sym string
		var n int
		if err := rows.Scan(&sym, &n); err != nil {
			return nil, err
		}
		out[sym] = n
	}
	return out, rows.Err()
}

// --- scan helpers ---

type rowsIter interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func collectSeries(rows rowsIter) (models.Series, error) {
	var out models.Series
	for rows.Next() {
		var d time.Time
		var c float64
		if err := rows.Scan(&d, &c); err != nil {
			return nil, err
		}
		out = append(out, models.PricePoint{Date: d.Format("2006-01-02"), Close: c})
	}
	return out, rows.Err()
}
