package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kjannette/tickerguess/internal/api"
	"github.com/kjannette/tickerguess/internal/config"
	"github.com/kjannette/tickerguess/internal/db"
	"github.com/kjannette/tickerguess/internal/external"
	"github.com/kjannette/tickerguess/internal/game"
	"github.com/kjannette/tickerguess/internal/notifications"
	"github.com/kjannette/tickerguess/internal/quota"
	"github.com/kjannette/tickerguess/internal/repository"
	"github.com/kjannette/tickerguess/internal/scheduler"
	"github.com/kjannette/tickerguess/internal/session"
)

const banner = `
╔══════════════════════════════════════╗
║        Ticker Guess Game v0.1        ║
║   will tomorrow close up or down?    ║
╚══════════════════════════════════════╝
`

func main() {
	fmt.Print(banner)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	cfg.Print()

	// Graceful shutdown context
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Optional series cache
	var pool *pgxpool.Pool
	opts := game.ServiceOptions{CacheMaxAge: cfg.CacheMaxAge()}
	if cfg.CacheEnabled {
		pool = openCache(ctx, cfg)
		defer func() {
			pool.Close()
			fmt.Println("[DB] Connection pool closed")
		}()
		opts.Cache = repository.NewSeriesRepo(pool)
	} else {
		fmt.Println("[DB] Skipped - series cache disabled")
	}

	// Quote provider, rationed by the call budget
	quotes := external.NewAlphaVantageClient(external.AlphaVantageOptions{
		APIKey:      cfg.AlphaVantageAPIKey,
		BaseURL:     cfg.AlphaVantageBaseURL,
		Timeout:     cfg.QuoteTimeout(),
		MaxAttempts: cfg.QuoteMaxAttempts,
	})
	opts.Guard = quota.NewGuardian(quota.Limits{
		MaxPerMinute: cfg.MaxFetchesPerMinute,
		MaxPerDay:    cfg.MaxFetchesPerDay,
	}, nil)

	games := game.NewService(quotes, opts)
	store := session.NewStore()
	notify := notifications.NewSender(cfg.WebhookURL, cfg.AppName)

	// 1. Idle session sweeper
	sweeper := scheduler.NewSweeper(store, scheduler.SweeperConfig{
		Schedule: cfg.SweepSchedule,
		MaxIdle:  cfg.SessionIdle(),
	})
	if err := sweeper.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "[SWEEPER] Start failed: %v\n", err)
		os.Exit(1)
	}

	// 2. API server
	apiOpts := api.Options{
		Port:            cfg.Port,
		CORSAllowOrigin: cfg.CORSAllowOrigin,
		Notifier:        notify,
	}
	if pool != nil {
		apiOpts.DB = pool
	}
	srv := api.NewServer(games, store, apiOpts)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "[API] Server error: %v\n", err)
			os.Exit(1)
		}
	}()

	fmt.Println("\nAll services started successfully")

	// Wait for shutdown signal
	<-ctx.Done()
	fmt.Println("\nShutting down gracefully...")

	sweeper.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "[API] Shutdown error: %v\n", err)
	}
	fmt.Println("[API] Server closed")
	fmt.Println("Shutdown complete")
}

// openCache connects to Postgres and prepares the series table. Any failure
// is fatal since the operator asked for the cache.
func openCache(ctx context.Context, cfg *config.Config) *pgxpool.Pool {
	fmt.Printf("\n[DB] Connecting to %s:%d/%s ...\n", cfg.DBHost, cfg.DBPort, cfg.DBName)
	pool, err := db.Connect(ctx, cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "[DB] Connection failed: %v\n", err)
		os.Exit(1)
	}

	if err := db.TestConnection(ctx, pool); err != nil {
		pool.Close()
		fmt.Fprintf(os.Stderr, "[DB] Test query failed: %v\n", err)
		os.Exit(1)
	}

	if err := db.Migrate(ctx, pool); err != nil {
		pool.Close()
		fmt.Fprintf(os.Stderr, "[DB] Migration failed: %v\n", err)
		os.Exit(1)
	}

	repo := repository.NewSeriesRepo(pool)
	if symbols, err := repo.Symbols(ctx); err == nil && len(symbols) > 0 {
		fmt.Printf("[CACHE] %d ticker(s) cached\n", len(symbols))
	}
	return pool
}
