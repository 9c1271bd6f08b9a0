package game

import (
	"math/rand/v2"
	"time"

	"github.com/kjannette/tickerguess/internal/models"
)

// Start-date eligibility window.
const (
	MinAgeDays   = 7
	MaxAgeDays   = 100
	LookbackDays = 7
)

// Rand is the randomness the selector needs. *rand.Rand from math/rand/v2
// satisfies it.
type Rand interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// DefaultRand draws from the process-wide source and is safe for concurrent use.
var DefaultRand Rand = globalRand{}

// EligibleStarts returns every index of series that may begin a game on the
// given day: 7 to 100 days old, a weekday, with a full lookback window and at
// least one later point to reveal.
func EligibleStarts(series models.Series, today time.Time) []int {
	ref := utcDate(today)
	var out []int
	for i, p := range series {
		if i-LookbackDays < 0 || i+1 >= len(series) {
			continue
		}
		d, err := time.Parse(dateLayout, p.Date)
		if err != nil {
			continue
		}
		age := ageDays(d, ref)
		if age < MinAgeDays || age > MaxAgeDays {
			continue
		}
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		out = append(out, i)
	}
	return out
}

// SelectStart picks a uniformly random eligible start index. ok is false when
// no index qualifies.
func SelectStart(series models.Series, today time.Time, rng Rand) (idx int, ok bool) {
	eligible := EligibleStarts(series, today)
	if len(eligible) == 0 {
		return 0, false
	}
	if rng == nil {
		rng = DefaultRand
	}
	return eligible[rng.IntN(len(eligible))], true
}

func utcDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ageDays is the absolute whole-day distance between two UTC midnights.
func ageDays(a, b time.Time) int {
	diff := b.Sub(a)
	if diff < 0 {
		diff = -diff
	}
	return int(diff / (24 * time.Hour))
}
