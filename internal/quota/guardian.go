package quota

import (
	"context"
	"fmt"
	"time"
)

// FetchCounter abstracts fetch bookkeeping so Guardian can be tested without
// real traffic.
type FetchCounter interface {
	CountSince(ctx context.Context, since time.Time) (int, error)
	Record(ctx context.Context, at time.Time) error
}

// Limits holds the upstream call budget.
// A zero value for any field means that check is disabled.
type Limits struct {
	MaxPerMinute int
	MaxPerDay    int
}

type Guardian struct {
	limits  Limits
	counter FetchCounter
	now     func() time.Time
}

func NewGuardian(limits Limits, counter FetchCounter) *Guardian {
	if counter == nil {
		counter = NewMemoryCounter()
	}
	return &Guardian{limits: limits, counter: counter, now: time.Now}
}

// PreFetchCheck returns nil if another provider call fits the budget, a
// descriptive error if it does not.
func (g *Guardian) PreFetchCheck(ctx context.Context) error {
	now := g.now()

	if g.limits.MaxPerMinute > 0 {
		n, err := g.counter.CountSince(ctx, now.Add(-time.Minute))
		if err != nil {
			return fmt.Errorf("fetch blocked: unable to verify minute budget: %w", err)
		}
		if n >= g.limits.MaxPerMinute {
			return fmt.Errorf("fetch blocked: %d/%d provider calls in the last minute",
				n, g.limits.MaxPerMinute)
		}
	}

	if g.limits.MaxPerDay > 0 {
		n, err := g.counter.CountSince(ctx, now.Add(-24*time.Hour))
		if err != nil {
			return fmt.Errorf("fetch blocked: unable to verify daily budget: %w", err)
		}
		if n >= g.limits.MaxPerDay {
			return fmt.Errorf("fetch blocked: daily limit of %d provider calls reached", g.limits.MaxPerDay)
		}
	}

	return nil
}

// RecordFetch counts one provider call at the current time.
func (g *Guardian) RecordFetch(ctx context.Context) error {
	return g.counter.Record(ctx, g.now())
}
