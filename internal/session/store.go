package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kjannette/tickerguess/internal/game"
	"github.com/kjannette/tickerguess/internal/view"
)

// Entry pairs a game with the board that renders it. Use Do for any access.
type Entry struct {
	ID string

	mu       sync.Mutex
	game     *game.Session
	board    *view.Board
	lastSeen time.Time
}

// Do runs fn with exclusive access to the entry's game and board.
func (e *Entry) Do(fn func(g *game.Session, b *view.Board)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.game, e.board)
}

type Store struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	now     func() time.Time
}

func NewStore() *Store {
	return &Store{entries: make(map[string]*Entry), now: time.Now}
}

// Put registers a started game under a fresh ID.
func (s *Store) Put(g *game.Session, b *view.Board) *Entry {
	e := &Entry{ID: uuid.NewString(), game: g, board: b, lastSeen: s.now()}
	s.mu.Lock()
	s.entries[e.ID] = e
	s.mu.Unlock()
	return e
}

// Get returns the entry for id and marks it as recently used.
func (s *Store) Get(id string) (*Entry, bool) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	e.mu.Lock()
	e.lastSeen = s.now()
	e.mu.Unlock()
	return e, true
}

func (s *Store) Delete(id string) {
	s.mu.Lock()
	delete(s.entries, id)
	s.mu.Unlock()
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Sweep drops entries idle for longer than maxIdle and reports how many went.
func (s *Store) Sweep(maxIdle time.Duration) int {
	cutoff := s.now().Add(-maxIdle)
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.entries {
		e.mu.Lock()
		idle := e.lastSeen.Before(cutoff)
		e.mu.Unlock()
		if idle {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}
