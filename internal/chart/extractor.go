package chart

import (
	"bytes"
	"html"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// ParseStrategy extracts candidate entries from a parsed document.
// Strategies tolerate partially broken documents and return whatever
// they found; the extractor validates and renumbers afterwards.
type ParseStrategy interface {
	Name() string
	// MinEntries is the acceptance threshold: a strategy whose valid
	// yield falls below it is treated as having found nothing.
	MinEntries() int
	Parse(doc *goquery.Document, limit int) []Entry
}

// Extractor turns a chart page document into a Snapshot, trying
// strategies in fixed priority order.
type Extractor struct {
	strategies []ParseStrategy
	logger     *zap.Logger
}

// NewExtractor builds an Extractor with the structured-data strategy
// first and the markup fallback second.
func NewExtractor(logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{
		strategies: []ParseStrategy{
			&structuredDataStrategy{logger: logger},
			&markupStrategy{logger: logger},
		},
		logger: logger,
	}
}

// Extract parses the document into a Snapshot for the given chart week.
// limit bounds the yield (<= 0 means no bound); callers may truncate
// further. Returns an ExtractionError wrapping ErrNoEntries when no
// strategy produces an acceptable entry list.
func (e *Extractor) Extract(document []byte, date time.Time, limit int) (Snapshot, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(document))
	if err != nil {
		return Snapshot{}, &ExtractionError{Date: date, Err: err}
	}

	for _, strategy := range e.strategies {
		raw := strategy.Parse(doc, limit)
		entries := sanitize(raw)
		if dropped := len(raw) - len(entries); dropped > 0 {
			e.logger.Warn("dropped malformed chart entries",
				zap.String("strategy", strategy.Name()),
				zap.Int("dropped", dropped),
			)
		}
		if len(entries) >= strategy.MinEntries() && len(entries) > 0 {
			e.logger.Debug("chart extracted",
				zap.String("strategy", strategy.Name()),
				zap.Int("entries", len(entries)),
			)
			return Snapshot{Date: date, Entries: entries, Strategy: strategy.Name()}, nil
		}
	}
	return Snapshot{}, &ExtractionError{Date: date, Err: ErrNoEntries}
}

// sanitize drops entries with empty title or artist, keeps the first
// occurrence of a duplicated rank, and renumbers the survivors into a
// contiguous ascending sequence starting at 1.
func sanitize(raw []Entry) []Entry {
	entries := make([]Entry, 0, len(raw))
	seenRank := make(map[int]bool, len(raw))
	for _, entry := range raw {
		if entry.Title == "" || entry.Artist == "" {
			continue
		}
		if entry.Rank > 0 {
			if seenRank[entry.Rank] {
				continue
			}
			seenRank[entry.Rank] = true
		}
		entries = append(entries, entry)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Rank < entries[j].Rank
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// clean trims, decodes HTML entities and collapses internal whitespace.
func clean(s string) string {
	return whitespaceRun.ReplaceAllString(strings.TrimSpace(html.UnescapeString(s)), " ")
}
