package chart

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the date format used in chart URLs.
const DateLayout = "2006-01-02"

// ChartDate snaps an arbitrary date to the chart's publication day.
// Billboard publishes weekly charts dated on Saturdays; ties between
// the surrounding Saturdays break toward the nearer one, with an exact
// midpoint (Wednesday) rounding forward.
func ChartDate(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	forward := (int(time.Saturday) - int(day.Weekday()) + 7) % 7
	backward := (int(day.Weekday()) - int(time.Saturday) + 7) % 7
	if forward <= backward {
		return day.AddDate(0, 0, forward)
	}
	return day.AddDate(0, 0, -backward)
}

// URL builds the chart page URL for a date.
func URL(baseURL string, date time.Time) string {
	return fmt.Sprintf("%s/%s/", strings.TrimRight(baseURL, "/"), date.Format(DateLayout))
}
