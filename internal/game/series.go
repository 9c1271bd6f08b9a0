package game

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"github.com/kjannette/tickerguess/internal/models"
)

const (
	dateLayout = "2006-01-02"

	keyNote        = "Note"
	keyInformation = "Information"
	keyError       = "Error Message"
	keyDailySeries = "Time Series (Daily)"
	keyClose       = "4. close"
	keyAdjClose    = "5. adjusted close"
)

// NormalizeDaily converts a TIME_SERIES_DAILY_ADJUSTED payload into an
// ascending Series. Throttle and error notices are checked before the series
// container. Entries without a usable close are dropped.
func NormalizeDaily(payload []byte) (models.Series, error) {
	if !gjson.ValidBytes(payload) {
		return nil, fmt.Errorf("%w: payload is not valid JSON", ErrDataUnavailable)
	}
	root := gjson.ParseBytes(payload)
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: payload is not an object", ErrDataUnavailable)
	}

	// Keys contain spaces, dots and parentheses, so walk the object instead of
	// building gjson paths.
	var note, errMsg, container gjson.Result
	root.ForEach(func(key, value gjson.Result) bool {
		switch key.String() {
		case keyNote, keyInformation:
			if !note.Exists() {
				note = value
			}
		case keyError:
			errMsg = value
		case keyDailySeries:
			container = value
		}
		return true
	})

	if note.Exists() {
		return nil, fmt.Errorf("%w: %s", ErrRateLimited, note.String())
	}
	if errMsg.Exists() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSymbol, errMsg.String())
	}
	if !container.Exists() || !container.IsObject() {
		return nil, fmt.Errorf("%w: missing %q", ErrDataUnavailable, keyDailySeries)
	}

	byDate := make(map[string]float64)
	container.ForEach(func(key, value gjson.Result) bool {
		date := key.String()
		if _, err := time.Parse(dateLayout, date); err != nil {
			return true
		}
		if c, ok := recordClose(value); ok {
			byDate[date] = c
		} else {
			delete(byDate, date)
		}
		return true
	})

	out := make(models.Series, 0, len(byDate))
	for date, c := range byDate {
		out = append(out, models.PricePoint{Date: date, Close: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

// recordClose picks the close field, falling back to the adjusted close.
func recordClose(rec gjson.Result) (float64, bool) {
	if !rec.IsObject() {
		return 0, false
	}
	var primary, adjusted gjson.Result
	rec.ForEach(func(key, value gjson.Result) bool {
		switch key.String() {
		case keyClose:
			primary = value
		case keyAdjClose:
			adjusted = value
		}
		return true
	})
	if c, ok := parseClose(primary); ok {
		return c, true
	}
	return parseClose(adjusted)
}

func parseClose(v gjson.Result) (float64, bool) {
	if !v.Exists() || (v.Type != gjson.String && v.Type != gjson.Number) {
		return 0, false
	}
	d, err := decimal.NewFromString(v.String())
	if err != nil || !d.IsPositive() {
		return 0, false
	}
	f, _ := d.Float64()
	if math.IsInf(f, 0) || math.IsNaN(f) || f <= 0 {
		return 0, false
	}
	return f, true
}
