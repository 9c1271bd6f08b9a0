package quota

import (
	"context"
	"sync"
	"time"
)

const retention = 24 * time.Hour

// MemoryCounter keeps call timestamps for the last day in process memory.
type MemoryCounter struct {
	mu    sync.Mutex
	calls []time.Time
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{}
}

func (m *MemoryCounter) CountSince(_ context.Context, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.calls {
		if t.After(since) {
			n++
		}
	}
	return n, nil
}

func (m *MemoryCounter) Record(_ context.Context, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, at)

	cutoff := at.Add(-retention)
	keep := m.calls[:0]
	for _, t := range m.calls {
		if t.After(cutoff) {
			keep = append(keep, t)
		}
	}
	m.calls = keep
	return nil
}
