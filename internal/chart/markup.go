package chart

import (
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// markupStrategy scans the rendered markup for the repeating
// per-position pattern: a list item holding an h3 title and an artist
// span. It deliberately avoids exact class names, the most volatile
// part of the page, and relies on structure instead.
type markupStrategy struct {
	logger *zap.Logger
}

func (s *markupStrategy) Name() string { return "markup" }

// A single structural match is almost always a false positive on a
// page this busy; require at least two.
func (s *markupStrategy) MinEntries() int { return 2 }

// Chart movement badges that share the artist span's shape.
var badgeText = map[string]bool{
	"NEW":      true,
	"RE-ENTRY": true,
}

func (s *markupStrategy) Parse(doc *goquery.Document, limit int) []Entry {
	var entries []Entry
	seen := make(map[string]bool)

	doc.Find("li h3").EachWithBreak(func(_ int, h3 *goquery.Selection) bool {
		title := clean(h3.Text())
		if title == "" {
			return true
		}
		item := h3.Closest("li")
		artist := findArtist(item)

		key := strings.ToLower(title) + "\x00" + strings.ToLower(artist)
		if seen[key] {
			return true
		}
		seen[key] = true
		entries = append(entries, Entry{Rank: len(entries) + 1, Title: title, Artist: artist})

		return limit <= 0 || len(entries) < limit
	})
	return entries
}

// findArtist picks the first span under the list item that looks like
// an artist name rather than a rank number or movement badge.
func findArtist(item *goquery.Selection) string {
	if item == nil || item.Length() == 0 {
		return ""
	}
	artist := ""
	item.Find("span").EachWithBreak(func(_ int, span *goquery.Selection) bool {
		text := clean(span.Text())
		if text == "" {
			return true
		}
		if badgeText[strings.ToUpper(text)] {
			return true
		}
		if len(text) < 2 || isDigits(text) {
			return true
		}
		artist = text
		return false
	})
	return artist
}

func isDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}
