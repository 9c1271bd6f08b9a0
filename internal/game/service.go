package game

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/kjannette/tickerguess/internal/models"
)

// Fetcher retrieves the raw daily series payload for a symbol.
type Fetcher interface {
	FetchDailySeries(ctx context.Context, symbol string) ([]byte, error)
}

// SeriesCache stores normalized series between games. Load returns a nil
// series on a miss.
type SeriesCache interface {
	Load(ctx context.Context, symbol string, maxAge time.Duration) (models.Series, error)
	Save(ctx context.Context, symbol string, series models.Series) error
}

// FetchGuard rations calls to the quote provider.
type FetchGuard interface {
	PreFetchCheck(ctx context.Context) error
	RecordFetch(ctx context.Context) error
}

type ServiceOptions struct {
	Cache       SeriesCache // optional
	CacheMaxAge time.Duration
	Guard       FetchGuard // optional
	Rand        Rand
	Now         func() time.Time
}

// Service runs the start-game flow: validate, load the series, pick a start.
type Service struct {
	fetcher     Fetcher
	cache       SeriesCache
	cacheMaxAge time.Duration
	guard       FetchGuard
	now         func() time.Time

	randMu sync.Mutex
	rand   Rand

	inflight singleflight.Group
}

func NewService(fetcher Fetcher, opts ServiceOptions) *Service {
	if opts.Rand == nil {
		opts.Rand = DefaultRand
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.CacheMaxAge <= 0 {
		opts.CacheMaxAge = 12 * time.Hour
	}
	return &Service{
		fetcher:     fetcher,
		cache:       opts.Cache,
		cacheMaxAge: opts.CacheMaxAge,
		guard:       opts.Guard,
		now:         opts.Now,
		rand:        opts.Rand,
	}
}

// NormalizeSymbol trims and upper-cases a ticker.
func NormalizeSymbol(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// Start builds a new active session for the ticker. On error nothing is
// created and no existing state is touched.
func (s *Service) Start(ctx context.Context, rawSymbol string) (*Session, error) {
	symbol := NormalizeSymbol(rawSymbol)
	if symbol == "" {
		return nil, fmt.Errorf("%w: empty ticker", ErrValidation)
	}

	series, err := s.Series(ctx, symbol)
	if err != nil {
		return nil, err
	}

	s.randMu.Lock()
	idx, ok := SelectStart(series, s.now(), s.rand)
	s.randMu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s has no start date %d-%d days back (%d points)",
			ErrInsufficientData, symbol, MinAgeDays, MaxAgeDays, len(series))
	}

	sess := NewSession()
	if err := sess.Start(symbol, series, idx); err != nil {
		return nil, err
	}
	fmt.Printf("[GAME] %s started at %s (index %d of %d)\n", symbol, sess.StartDate(), idx, len(series))
	return sess, nil
}

// Series returns the normalized history for symbol. Concurrent calls for the
// same symbol share one lookup, which outlives any single caller's
// cancellation. The quote client's timeout still bounds it.
func (s *Service) Series(ctx context.Context, symbol string) (models.Series, error) {
	v, err, shared := s.inflight.Do(symbol, func() (any, error) {
		return s.loadSeries(context.WithoutCancel(ctx), symbol)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		fmt.Printf("[QUOTES] %s served from a shared in-flight fetch\n", symbol)
	}
	return v.(models.Series), nil
}

func (s *Service) loadSeries(ctx context.Context, symbol string) (models.Series, error) {
	if s.cache != nil {
		cached, err := s.cache.Load(ctx, symbol, s.cacheMaxAge)
		if err != nil {
			fmt.Printf("[CACHE] Load %s failed: %v\n", symbol, err)
		} else if len(cached) > 0 {
			fmt.Printf("[CACHE] Hit for %s (%d points)\n", symbol, len(cached))
			return cached, nil
		}
	}

	if s.guard != nil {
		if err := s.guard.PreFetchCheck(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRateLimited, err)
		}
	}

	payload, err := s.fetcher.FetchDailySeries(ctx, symbol)
	if s.guard != nil {
		if rerr := s.guard.RecordFetch(ctx); rerr != nil {
			fmt.Printf("[QUOTES] Could not record fetch: %v\n", rerr)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	series, err := NormalizeDaily(payload)
	if err != nil {
		return nil, err
	}
	fmt.Printf("[QUOTES] %s: %d daily closes\n", symbol, len(series))

	if s.cache != nil && len(series) > 0 {
		if err := s.cache.Save(ctx, symbol, series); err != nil {
			fmt.Printf("[CACHE] Save %s failed: %v\n", symbol, err)
		}
	}
	return series, nil
}
