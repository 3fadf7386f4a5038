package chart

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// structuredDataStrategy reads JSON-LD blocks embedded in the page.
// JSON-LD survives markup redesigns, so it is the preferred source.
type structuredDataStrategy struct {
	logger *zap.Logger
}

func (s *structuredDataStrategy) Name() string { return "structured_data" }

func (s *structuredDataStrategy) MinEntries() int { return 1 }

func (s *structuredDataStrategy) Parse(doc *goquery.Document, limit int) []Entry {
	var entries []Entry
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		raw := strings.TrimSpace(sel.Text())
		if raw == "" {
			return true
		}
		var data any
		if err := json.Unmarshal([]byte(raw), &data); err != nil {
			s.logger.Debug("skipping unparseable json-ld block", zap.Error(err))
			return true
		}
		for _, obj := range flattenGraph(data) {
			if extracted := s.parseItemList(obj, limit); len(extracted) > 0 {
				entries = extracted
				return false
			}
		}
		return true
	})
	return entries
}

// flattenGraph normalizes a JSON-LD payload into candidate objects:
// top-level arrays are expanded, and @graph members are appended.
func flattenGraph(data any) []map[string]any {
	var queue []map[string]any
	switch v := data.(type) {
	case []any:
		for _, item := range v {
			if obj, ok := item.(map[string]any); ok {
				queue = append(queue, obj)
			}
		}
	case map[string]any:
		queue = append(queue, v)
	}
	for _, obj := range queue {
		graph, ok := obj["@graph"].([]any)
		if !ok {
			continue
		}
		for _, item := range graph {
			if nested, ok := item.(map[string]any); ok {
				queue = append(queue, nested)
			}
		}
	}
	return queue
}

// parseItemList maps an ItemList-shaped object into entries. Items with
// a missing title are skipped rather than failing the whole list.
func (s *structuredDataStrategy) parseItemList(obj map[string]any, limit int) []Entry {
	if !isRankedListType(obj["@type"]) {
		return nil
	}
	items, ok := obj["itemListElement"].([]any)
	if !ok {
		return nil
	}

	var entries []Entry
	for _, raw := range items {
		listItem, ok := raw.(map[string]any)
		if !ok || stringField(listItem, "@type") != "ListItem" {
			continue
		}
		item, ok := listItem["item"].(map[string]any)
		if !ok {
			continue
		}

		title := clean(stringField(item, "name"))
		if title == "" {
			s.logger.Debug("json-ld list item missing name, skipping")
			continue
		}
		artist := clean(artistName(item["byArtist"]))

		rank := asRank(listItem["position"])
		if rank <= 0 {
			rank = len(entries) + 1
		}
		entries = append(entries, Entry{Rank: rank, Title: title, Artist: artist})

		if limit > 0 && len(entries) >= limit {
			break
		}
	}
	return entries
}

// isRankedListType accepts ItemList/MusicPlaylist type declarations,
// whether given as a string or a list of strings.
func isRankedListType(v any) bool {
	switch t := v.(type) {
	case string:
		return t == "ItemList" || t == "MusicPlaylist"
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok && (s == "ItemList" || s == "MusicPlaylist") {
				return true
			}
		}
	}
	return false
}

func artistName(v any) string {
	switch by := v.(type) {
	case map[string]any:
		return stringField(by, "name")
	case []any:
		if len(by) > 0 {
			if first, ok := by[0].(map[string]any); ok {
				return stringField(first, "name")
			}
		}
	}
	return ""
}

func stringField(obj map[string]any, key string) string {
	s, _ := obj[key].(string)
	return s
}

func asRank(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0
		}
		return parsed
	}
	return 0
}
