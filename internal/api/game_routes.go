package api

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/kjannette/tickerguess/internal/game"
	"github.com/kjannette/tickerguess/internal/session"
	"github.com/kjannette/tickerguess/internal/view"
)

//go:embed web/index.html
var indexHTML []byte

const maxBodyBytes = 1 << 12

var errPredictFailed = errors.New("prediction failed")

type startRequest struct {
	Symbol   string `json:"symbol"`
	Replaces string `json:"replaces,omitempty"`
}

type predictRequest struct {
	Direction string `json:"direction"`
}

type gameJSON struct {
	ID    string `json:"id"`
	State string `json:"state"`
	*view.Board
}

type predictJSON struct {
	Game    gameJSON     `json:"game"`
	Outcome game.Outcome `json:"outcome"`
}

func snapshot(id string, g *game.Session, b *view.Board) gameJSON {
	cp := *b
	cp.Labels = append([]string(nil), b.Labels...)
	cp.Values = append([]float64(nil), b.Values...)
	return gameJSON{ID: id, State: g.State().String(), Board: &cp}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

func (s *Server) handleStartGame(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "validation")
		return
	}

	sess, err := s.games.Start(r.Context(), req.Symbol)
	if err != nil {
		fmt.Printf("[API] Start %q failed: %v\n", req.Symbol, err)
		writeGameError(w, err)
		return
	}

	board := view.NewBoard(sess)
	e := s.store.Put(sess, board)

	if req.Replaces != "" && req.Replaces != e.ID {
		s.store.Delete(req.Replaces)
	}

	var out gameJSON
	e.Do(func(g *game.Session, b *view.Board) { out = snapshot(e.ID, g, b) })
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	e, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var out gameJSON
	e.Do(func(g *game.Session, b *view.Board) { out = snapshot(e.ID, g, b) })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	e, ok := s.lookup(w, r)
	if !ok {
		return
	}

	var req predictRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "validation")
		return
	}
	dir, err := game.ParseDirection(req.Direction)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Direction must be \"up\" or \"down\".", game.Kind(err))
		return
	}

	var (
		out     predictJSON
		perr    error
		summary *gameOver
	)
	e.Do(func(g *game.Session, b *view.Board) {
		out.Outcome, perr = s.predict(g, b, dir)
		out.Game = snapshot(e.ID, g, b)
		if perr == nil && out.Outcome.Ended {
			summary = summarize(g)
		}
	})

	switch {
	case errors.Is(perr, errPredictFailed):
		writeError(w, http.StatusInternalServerError, "An error occurred. Please try again.", "internal")
		return
	case perr != nil:
		writeGameError(w, perr)
		return
	}

	s.announce(summary)
	writeJSON(w, http.StatusOK, out)
}

// predict scores one guess and feeds the outcome to the board. A panic here
// rolls the session back to its state before the guess and is reported as
// errPredictFailed.
func (s *Server) predict(g *game.Session, b *view.Board, dir game.Direction) (out game.Outcome, err error) {
	saved := *g
	defer func() {
		if rec := recover(); rec != nil {
			fmt.Printf("[API] Prediction for %s panicked: %v\n", g.Symbol(), rec)
			*g = saved
			b.Fail()
			out, err = game.Outcome{}, errPredictFailed
		}
	}()

	out, err = g.Predict(dir)
	if err != nil {
		return out, err
	}
	s.applyOutcome(b, out)
	return out, nil
}

func (s *Server) handleEndGame(w http.ResponseWriter, r *http.Request) {
	e, ok := s.lookup(w, r)
	if !ok {
		return
	}

	var (
		out     gameJSON
		summary *gameOver
	)
	e.Do(func(g *game.Session, b *view.Board) {
		if g.Running() {
			summary = summarize(g)
		}
		g.End()
		b.End()
		out = snapshot(e.ID, g, b)
	})

	s.announce(summary)
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	e, ok := s.lookup(w, r)
	if !ok {
		return
	}

	var (
		buf bytes.Buffer
		err error
	)
	e.Do(func(_ *game.Session, b *view.Board) { err = b.Render(&buf) })
	if err != nil {
		fmt.Printf("[API] Chart for %s failed: %v\n", e.ID, err)
		writeError(w, http.StatusInternalServerError, "failed to render chart", "internal")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*session.Entry, bool) {
	id := r.PathValue("id")
	e, ok := s.store.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "Game not found. Start a new one with another ticker!", "not_found")
		return nil, false
	}
	return e, true
}

type gameOver struct {
	symbol    string
	score     int
	guesses   int
	startDate string
	lastDate  string
}

func summarize(g *game.Session) *gameOver {
	return &gameOver{
		symbol:    g.Symbol(),
		score:     g.Score(),
		guesses:   g.CurrentIndex() - g.StartIndex(),
		startDate: g.StartDate(),
		lastDate:  g.Current().Date,
	}
}

// announce sends the summary off the request path.
func (s *Server) announce(sum *gameOver) {
	if sum == nil || s.notify == nil {
		return
	}
	go s.notify.GameOver(sum.symbol, sum.score, sum.guesses, sum.startDate, sum.lastDate)
}
