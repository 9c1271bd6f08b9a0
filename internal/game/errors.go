package game

import "errors"

// Error kinds surfaced by the start-game flow. Callers classify with errors.Is.
var (
	ErrValidation       = errors.New("validation error")
	ErrNetwork          = errors.New("network error")
	ErrRateLimited      = errors.New("rate limited")
	ErrInvalidSymbol    = errors.New("invalid symbol")
	ErrDataUnavailable  = errors.New("data unavailable")
	ErrInsufficientData = errors.New("insufficient data")
)

// ErrNotActive is returned by Predict when the session is not running.
var ErrNotActive = errors.New("no active game")

type kindInfo struct {
	err     error
	kind    string
	message string
}

var kinds = []kindInfo{
	{ErrValidation, "validation", "Please enter a ticker symbol."},
	{ErrNetwork, "network", "Network error fetching data"},
	{ErrRateLimited, "rate_limited", "Rate limit reached. Please wait a minute and try again."},
	{ErrInvalidSymbol, "invalid_symbol", "Invalid ticker symbol. Please try another."},
	{ErrDataUnavailable, "data_unavailable", "Data not available for this ticker."},
	{ErrInsufficientData, "insufficient_data", "Not enough recent data to start a game (7-100 days window)."},
	{ErrNotActive, "not_active", "No active game. Start a new one with another ticker!"},
}

// Kind returns a short machine-readable name for err, or "internal".
func Kind(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return "internal"
}

// UserMessage returns the text shown to the player for err.
func UserMessage(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.message
		}
	}
	return "Failed to start game."
}
