package game

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/kjannette/tickerguess/internal/models"
)

// weekdaySeries returns n consecutive weekday points ending on or before end.
// Closes walk up and down so both directions occur.
func weekdaySeries(end time.Time, n int) models.Series {
	out := make(models.Series, n)
	d := utcDate(end)
	for i := n - 1; i >= 0; {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			out[i] = models.PricePoint{Date: d.Format(dateLayout), Close: 100 + float64((i*7)%11)}
			i--
		}
		d = d.AddDate(0, 0, -1)
	}
	return out
}

// dailyPayload renders series in the provider's TIME_SERIES_DAILY_ADJUSTED shape,
// newest first as the provider sends it.
func dailyPayload(t *testing.T, series models.Series) []byte {
	t.Helper()
	days := make(map[string]map[string]string, len(series))
	for _, p := range series {
		c := fmt.Sprintf("%.4f", p.Close)
		days[p.Date] = map[string]string{
			"1. open":           c,
			"4. close":          c,
			"5. adjusted close": c,
			"6. volume":         "1000",
		}
	}
	b, err := json.Marshal(map[string]any{
		"Meta Data":           map[string]string{"2. Symbol": "TEST"},
		"Time Series (Daily)": days,
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return b
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return d
}
