package session

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/kjannette/tickerguess/internal/game"
	"github.com/kjannette/tickerguess/internal/models"
	"github.com/kjannette/tickerguess/internal/view"
)

func newGame(t *testing.T) (*game.Session, *view.Board) {
	t.Helper()
	series := models.Series{
		{Date: "2024-05-01", Close: 100},
		{Date: "2024-05-02", Close: 101},
		{Date: "2024-05-03", Close: 99},
	}
	g := game.NewSession()
	if err := g.Start("IBM", series, 0); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return g, view.NewBoard(g)
}

func TestStore_PutGetDelete(t *testing.T) {
	s := NewStore()
	e := s.Put(newGame(t))

	if _, err := uuid.Parse(e.ID); err != nil {
		t.Fatalf("ID is not a uuid: %q", e.ID)
	}
	got, ok := s.Get(e.ID)
	if !ok || got != e {
		t.Fatal("expected to find the stored entry")
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", s.Len())
	}

	s.Delete(e.ID)
	if _, ok := s.Get(e.ID); ok {
		t.Fatal("entry should be gone")
	}
}

func TestStore_SweepDropsIdleOnly(t *testing.T) {
	now := time.Date(2024, 6, 28, 12, 0, 0, 0, time.UTC)
	s := NewStore()
	s.now = func() time.Time { return now }

	stale := s.Put(newGame(t))
	fresh := s.Put(newGame(t))

	now = now.Add(20 * time.Minute)
	s.Get(fresh.ID)
	now = now.Add(15 * time.Minute)

	if n := s.Sweep(30 * time.Minute); n != 1 {
		t.Fatalf("expected 1 swept entry, got %d", n)
	}
	if _, ok := s.Get(stale.ID); ok {
		t.Fatal("stale entry should be swept")
	}
	if _, ok := s.Get(fresh.ID); !ok {
		t.Fatal("recently used entry should survive")
	}
}

func TestEntry_DoSerializesPredictions(t *testing.T) {
	s := NewStore()
	e := s.Put(newGame(t))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.Do(func(g *game.Session, b *view.Board) {
				if o, err := g.Predict(game.Up); err == nil {
					b.Apply(o)
				}
			})
		}()
	}
	wg.Wait()

	e.Do(func(g *game.Session, b *view.Board) {
		if g.CurrentIndex() != 2 || g.Running() {
			t.Fatalf("expected exactly two accepted predictions, cursor at %d", g.CurrentIndex())
		}
		if len(b.Values) != 3 {
			t.Fatalf("board should show 3 points, has %d", len(b.Values))
		}
	})
}
