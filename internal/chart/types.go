// Package chart extracts ranked chart entries from Billboard chart pages.
package chart

import (
	"errors"
	"fmt"
	"time"
)

// Entry represents a single chart position.
type Entry struct {
	Rank   int    `json:"rank"`
	Title  string `json:"title"`
	Artist string `json:"artist"`
}

// Snapshot is the ranked list for one chart week. Entries are ordered
// by ascending rank, contiguous from 1.
type Snapshot struct {
	Date    time.Time `json:"date"`
	Entries []Entry   `json:"entries"`
	// Strategy records which parse strategy produced the entries.
	Strategy string `json:"strategy,omitempty"`
}

// ErrNoEntries indicates that neither parse strategy produced a usable
// entry list.
var ErrNoEntries = errors.New("no entries found")

// ExtractionError wraps a parse failure with the chart week it was for.
type ExtractionError struct {
	Date time.Time
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract chart %s: %v", e.Date.Format("2006-01-02"), e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}
