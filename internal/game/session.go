package game

import (
	"fmt"
	"strings"

	"github.com/kjannette/tickerguess/internal/models"
)

type State int

const (
	StateUninitialized State = iota
	StateActive
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateEnded:
		return "ended"
	default:
		return "uninitialized"
	}
}

type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// ParseDirection accepts "up" or "down" in any case.
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case Up:
		return Up, nil
	case Down:
		return Down, nil
	}
	return "", fmt.Errorf("%w: direction must be \"up\" or \"down\", got %q", ErrValidation, s)
}

const (
	NoticeMostRecent = "No more data available. You reached the most recent day."
	NoticeEndOfData  = "No further data. Game over!"
)

// Outcome reports one prediction. It is the only channel from a session to
// whatever renders it.
type Outcome struct {
	RevealedDate  string  `json:"revealedDate,omitempty"`
	RevealedClose float64 `json:"revealedClose,omitempty"`
	WentUp        bool    `json:"wentUp"`
	Correct       bool    `json:"correct"`
	NewScore      int     `json:"newScore"`
	Ended         bool    `json:"ended"`
	// Exhausted means nothing was revealed because the cursor was already on
	// the last point.
	Exhausted bool   `json:"exhausted,omitempty"`
	Notice    string `json:"notice,omitempty"`
}

// Session holds one player's game. It is not safe for concurrent use; callers
// serialise access per session.
type Session struct {
	symbol       string
	series       models.Series
	startIndex   int
	currentIndex int
	score        int
	state        State
}

func NewSession() *Session {
	return &Session{}
}

// Start begins a game at startIndex, replacing whatever the session held.
func (s *Session) Start(symbol string, series models.Series, startIndex int) error {
	if startIndex < 0 || startIndex >= len(series) {
		return fmt.Errorf("%w: start index %d outside series of %d points",
			ErrInsufficientData, startIndex, len(series))
	}
	s.symbol = symbol
	s.series = series
	s.startIndex = startIndex
	s.currentIndex = startIndex
	s.score = 0
	s.state = StateActive
	return nil
}

// Predict scores a guess about the next close and advances the cursor by one.
// An unchanged close counts as down.
func (s *Session) Predict(dir Direction) (Outcome, error) {
	if s.state != StateActive {
		return Outcome{}, ErrNotActive
	}

	next := s.currentIndex + 1
	if next >= len(s.series) {
		s.state = StateEnded
		return Outcome{
			NewScore:  s.score,
			Ended:     true,
			Exhausted: true,
			Notice:    NoticeMostRecent,
		}, nil
	}

	cur, nxt := s.series[s.currentIndex], s.series[next]
	wentUp := nxt.Close > cur.Close
	correct := wentUp == (dir == Up)
	if correct {
		s.score++
	}
	s.currentIndex = next

	out := Outcome{
		RevealedDate:  nxt.Date,
		RevealedClose: nxt.Close,
		WentUp:        wentUp,
		Correct:       correct,
		NewScore:      s.score,
	}
	if s.currentIndex+1 >= len(s.series) {
		s.state = StateEnded
		out.Ended = true
		out.Notice = NoticeEndOfData
	}
	return out, nil
}

// End stops the game. Ending an ended session changes nothing.
func (s *Session) End() {
	s.state = StateEnded
}

func (s *Session) Symbol() string { return s.symbol }
func (s *Session) State() State { return s.state }
func (s *Session) Running() bool { return s.state == StateActive }
func (s *Session) Score() int { return s.score }
func (s *Session) StartIndex() int { return s.startIndex }
func (s *Session) CurrentIndex() int { return s.currentIndex }
func (s *Session) Series() models.Series { return s.series }

// StartDate is the date the game began on, or "" before Start.
func (s *Session) StartDate() string {
	if s.state == StateUninitialized {
		return ""
	}
	return s.series[s.startIndex].Date
}

// Current is the point under the cursor.
func (s *Session) Current() models.PricePoint {
	if s.state == StateUninitialized {
		return models.PricePoint{}
	}
	return s.series[s.currentIndex]
}

// Window returns up to n points before the start date followed by the start
// point itself.
func (s *Session) Window(n int) models.Series {
	if s.state == StateUninitialized {
		return nil
	}
	from := max(s.startIndex-n, 0)
	out := make(models.Series, s.startIndex-from+1)
	copy(out, s.series[from:s.startIndex+1])
	return out
}
