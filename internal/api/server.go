package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/kjannette/tickerguess/internal/game"
	"github.com/kjannette/tickerguess/internal/session"
	"github.com/kjannette/tickerguess/internal/view"
)

// GameStarter creates a running game for a ticker.
type GameStarter interface {
	Start(ctx context.Context, symbol string) (*game.Session, error)
}

// Notifier announces finished games.
type Notifier interface {
	GameOver(symbol string, score, guesses int, startDate, lastDate string)
}

// Pinger reports database reachability. *pgxpool.Pool satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	Port            int
	CORSAllowOrigin string
	DB              Pinger   // nil when the series cache is disabled
	Notifier        Notifier // optional
}

type Server struct {
	games      GameStarter
	store      *session.Store
	db         Pinger
	notify     Notifier
	httpServer *http.Server

	// applyOutcome updates the board after a prediction.
	applyOutcome func(b *view.Board, o game.Outcome)
}

func NewServer(games GameStarter, store *session.Store, opts Options) *Server {
	s := &Server{
		games:        games,
		store:        store,
		db:           opts.DB,
		notify:       opts.Notifier,
		applyOutcome: (*view.Board).Apply,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleIndex)

	// Game routes
	mux.HandleFunc("POST /v1/games", s.handleStartGame)
	mux.HandleFunc("GET /v1/games/{id}", s.handleGetGame)
	mux.HandleFunc("POST /v1/games/{id}/predict", s.handlePredict)
	mux.HandleFunc("POST /v1/games/{id}/end", s.handleEndGame)
	mux.HandleFunc("GET /v1/games/{id}/chart", s.handleChart)

	mux.HandleFunc("GET /health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", opts.Port),
		Handler:      logMiddleware(corsMiddleware(mux, opts.CORSAllowOrigin)),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return s
}

// Handler exposes the full middleware chain, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) Start() error {
	fmt.Printf("[API] Game server started on http://localhost%s\n", s.httpServer.Addr)
	fmt.Printf("[API] Health check: http://localhost%s/health\n", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// --- middleware ---

func corsMiddleware(next http.Handler, allowOrigin string) http.Handler {
	if allowOrigin == "" {
		allowOrigin = "*"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		if r.URL.Path == "/health" {
			return
		}
		fmt.Printf("[API] %s %s %d %s\n", r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Millisecond))
	})
}

// --- response helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg, kind string) {
	writeJSON(w, status, map[string]string{"error": msg, "kind": kind})
}

var statusByKind = map[string]int{
	"validation":        http.StatusBadRequest,
	"invalid_symbol":    http.StatusUnprocessableEntity,
	"insufficient_data": http.StatusUnprocessableEntity,
	"rate_limited":      http.StatusTooManyRequests,
	"network":           http.StatusBadGateway,
	"data_unavailable":  http.StatusBadGateway,
	"not_active":        http.StatusConflict,
}

// writeGameError maps a game error to its status and player-facing message.
func writeGameError(w http.ResponseWriter, err error) {
	kind := game.Kind(err)
	status, ok := statusByKind[kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	writeError(w, status, game.UserMessage(err), kind)
}
