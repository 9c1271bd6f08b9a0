// Package view turns game outcomes into what the player sees: chart points
// and feedback text. It never feeds anything back into the game.
package view

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/kjannette/tickerguess/internal/game"
)

// HistoryPoints is how many closes before the start date the chart opens with.
const HistoryPoints = 7

const (
	msgStart = "Predict whether the next day closes higher or lower."
	msgEnded = "Game ended. Start a new one with another ticker!"
	msgRetry = "An error occurred. Please try again."
)

type Board struct {
	Symbol      string    `json:"symbol"`
	StartDate   string    `json:"startDate"`
	CurrentDate string    `json:"currentDate"`
	Score       int       `json:"score"`
	Running     bool      `json:"running"`
	Feedback    string    `json:"feedback"`
	Labels      []string  `json:"labels"`
	Values      []float64 `json:"values"`
}

// NewBoard seeds the chart with the start date and the closes before it.
func NewBoard(sess *game.Session) *Board {
	w := sess.Window(HistoryPoints)
	return &Board{
		Symbol:      sess.Symbol(),
		StartDate:   sess.StartDate(),
		CurrentDate: sess.StartDate(),
		Score:       sess.Score(),
		Running:     sess.Running(),
		Feedback:    msgStart,
		Labels:      w.Dates(),
		Values:      w.Closes(),
	}
}

// Apply records one prediction outcome.
func (b *Board) Apply(o game.Outcome) {
	b.Score = o.NewScore
	b.Feedback = Feedback(o)
	if o.Ended {
		b.Running = false
	}
	if o.Exhausted {
		return
	}
	b.Labels = append(b.Labels, o.RevealedDate)
	b.Values = append(b.Values, o.RevealedClose)
	b.CurrentDate = o.RevealedDate
}

// End marks the game as stopped by the player.
func (b *Board) End() {
	b.Running = false
	b.Feedback = msgEnded
}

// Fail shows the generic retry prompt after a failed prediction.
func (b *Board) Fail() {
	b.Feedback = msgRetry
}

// Feedback is the sentence shown after a prediction.
func Feedback(o game.Outcome) string {
	if o.Exhausted {
		return o.Notice
	}
	dir := "down"
	if o.WentUp {
		dir = "up"
	}
	verdict := "Wrong."
	if o.Correct {
		verdict = "Correct!"
	}
	msg := fmt.Sprintf("%s %s close: $%.2f (%s)", verdict, o.RevealedDate, o.RevealedClose, dir)
	if o.Ended && o.Notice != "" {
		msg += " — " + o.Notice
	}
	return msg
}

// Render writes the board as a standalone HTML line chart.
func (b *Board) Render(w io.Writer) error {
	data := make([]opts.LineData, len(b.Values))
	for i, v := range b.Values {
		data[i] = opts.LineData{Value: v}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: b.Symbol + " close",
			Width:     "900px",
			Height:    "420px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    b.Symbol,
			Subtitle: fmt.Sprintf("Score %d · %s", b.Score, b.CurrentDate),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithYAxisOpts(opts.YAxis{Scale: opts.Bool(true)}),
	)
	line.SetXAxis(b.Labels).
		AddSeries("Close Price", data).
		SetSeriesOptions(
			charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true), ShowSymbol: opts.Bool(true)}),
		)

	if err := line.Render(w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}
