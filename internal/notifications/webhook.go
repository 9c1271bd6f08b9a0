package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kjannette/tickerguess/internal/httputil"
)

const defaultAppName = "TickerGuess"

// Sender posts game announcements to a Slack- or Discord-style webhook and
// echoes them to stdout.
type Sender struct {
	webhookURL string
	appName    string
	httpClient *http.Client
	retry      httputil.RetryConfig
}

func NewSender(webhookURL, appName string) *Sender {
	if appName == "" {
		appName = defaultAppName
	}
	return &Sender{
		webhookURL: webhookURL,
		appName:    appName,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		retry: httputil.RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   1 * time.Second,
			MaxDelay:    5 * time.Second,
			Tag:         "WEBHOOK",
		},
	}
}

func (s *Sender) Send(msg string) {
	formatted := fmt.Sprintf("[%s] %s", s.appName, msg)
	fmt.Printf("[%s] %s\n", time.Now().UTC().Format(time.RFC3339), formatted)

	if s.webhookURL == "" {
		return
	}

	body, err := json.Marshal(s.formatPayload(formatted))
	if err != nil {
		fmt.Printf("[WEBHOOK] marshal: %v\n", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	resp, err := httputil.Do(ctx, s.httpClient, s.retry, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		fmt.Printf("[WEBHOOK] Failed to send notification after retries: %v\n", err)
		return
	}
	resp.Body.Close()
}

// GameOver announces a finished game.
func (s *Sender) GameOver(symbol string, score, guesses int, startDate, lastDate string) {
	s.Send(GameOverMessage(symbol, score, guesses, startDate, lastDate))
}

// GameOverMessage formats the end-of-game summary line.
func GameOverMessage(symbol string, score, guesses int, startDate, lastDate string) string {
	if guesses == 0 {
		return fmt.Sprintf("%s game over with no guesses (started %s)", symbol, startDate)
	}
	return fmt.Sprintf("%s game over: %d/%d correct (%s to %s)", symbol, score, guesses, startDate, lastDate)
}

func (s *Sender) formatPayload(msg string) map[string]string {
	if strings.Contains(s.webhookURL, "discord") {
		return map[string]string{
			"content":  msg,
			"username": s.appName,
		}
	}
	return map[string]string{
		"text":     fmt.Sprintf("`%s`", msg),
		"username": s.appName,
	}
}

func (s *Sender) Enabled() bool {
	return s.webhookURL != ""
}
