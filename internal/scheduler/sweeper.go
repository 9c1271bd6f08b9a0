package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweepable is anything holding sessions that can expire.
type Sweepable interface {
	Sweep(maxIdle time.Duration) int
	Len() int
}

type SweeperConfig struct {
	Schedule string        // cron spec, e.g. "@every 5m"
	MaxIdle  time.Duration // sessions untouched this long are dropped
}

// Sweeper periodically evicts idle game sessions.
type Sweeper struct {
	store Sweepable
	cfg   SweeperConfig
	cron  *cron.Cron

	mu      sync.Mutex
	running bool
}

func NewSweeper(store Sweepable, cfg SweeperConfig) *Sweeper {
	if cfg.Schedule == "" {
		cfg.Schedule = "@every 5m"
	}
	if cfg.MaxIdle <= 0 {
		cfg.MaxIdle = 30 * time.Minute
	}
	return &Sweeper{store: store, cfg: cfg}
}

func (s *Sweeper) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		fmt.Println("[SWEEPER] Already running")
		return nil
	}
	// A stopped cron keeps its entries, so every start gets a fresh one.
	c := cron.New()
	if _, err := c.AddFunc(s.cfg.Schedule, func() { s.SweepNow() }); err != nil {
		return fmt.Errorf("register sweep %q: %w", s.cfg.Schedule, err)
	}
	s.cron = c
	s.cron.Start()
	s.running = true
	fmt.Printf("[SWEEPER] Started (%s, idle limit %s)\n", s.cfg.Schedule, s.cfg.MaxIdle)
	return nil
}

func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
	fmt.Println("[SWEEPER] Stopped")
}

func (s *Sweeper) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// SweepNow evicts idle sessions immediately.
func (s *Sweeper) SweepNow() int {
	n := s.store.Sweep(s.cfg.MaxIdle)
	if n > 0 {
		fmt.Printf("[SWEEPER] Dropped %d idle session(s), %d active\n", n, s.store.Len())
	}
	return n
}
