package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Tifany-Devil/Billboard-Minerva/internal/chart"
	"github.com/Tifany-Devil/Billboard-Minerva/internal/config"
	"github.com/Tifany-Devil/Billboard-Minerva/internal/fetcher"
	"github.com/Tifany-Devil/Billboard-Minerva/internal/links"
)

// routedFetcher serves canned responses by URL substring.
type routedFetcher struct {
	mu     sync.Mutex
	routes map[string]fetcher.Response
	errs   map[string]error
	calls  []string
}

func (f *routedFetcher) Fetch(_ context.Context, req fetcher.Request) (fetcher.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req.URL)
	for key, err := range f.errs {
		if strings.Contains(req.URL, key) {
			return fetcher.Response{}, err
		}
	}
	for key, resp := range f.routes {
		if strings.Contains(req.URL, key) {
			return resp, nil
		}
	}
	return fetcher.Response{StatusCode: http.StatusNotFound}, nil
}

func (f *routedFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func chartPage(entries int) []byte {
	items := make([]string, 0, entries)
	for i := 1; i <= entries; i++ {
		items = append(items, fmt.Sprintf(
			`{"@type":"ListItem","position":%d,"item":{"name":"Song %d","byArtist":{"name":"Artist %d"}}}`,
			i, i, i,
		))
	}
	return []byte(`<html><head><script type="application/ld+json">` +
		`{"@type":"ItemList","itemListElement":[` + strings.Join(items, ",") + `]}` +
		`</script></head></html>`)
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	return cfg
}

func TestGetChartTruncatesAndSnapsDate(t *testing.T) {
	t.Parallel()

	f := &routedFetcher{routes: map[string]fetcher.Response{
		"billboard.com": {StatusCode: http.StatusOK, Body: chartPage(100)},
	}}
	a := newApp(testConfig(t), zap.NewNop(), f)

	// A Wednesday request resolves to the Saturday chart.
	wednesday := time.Date(2022, time.July, 27, 0, 0, 0, 0, time.UTC)
	snapshot, err := a.GetChart(context.Background(), wednesday, 10)
	require.NoError(t, err)
	require.Equal(t, time.Date(2022, time.July, 30, 0, 0, 0, 0, time.UTC), snapshot.Date)
	require.Len(t, snapshot.Entries, 10)
	require.Equal(t, chart.Entry{Rank: 1, Title: "Song 1", Artist: "Artist 1"}, snapshot.Entries[0])
	require.Contains(t, f.calls[0], "/2022-07-30/")
}

func TestGetChartUsesCacheWithinTTL(t *testing.T) {
	t.Parallel()

	f := &routedFetcher{routes: map[string]fetcher.Response{
		"billboard.com": {StatusCode: http.StatusOK, Body: chartPage(30)},
	}}
	a := newApp(testConfig(t), zap.NewNop(), f)
	date := time.Date(2022, time.July, 30, 0, 0, 0, 0, time.UTC)

	_, err := a.GetChart(context.Background(), date, 10)
	require.NoError(t, err)
	require.Equal(t, 1, f.callCount())

	// Different size, same week: served from cache.
	snapshot, err := a.GetChart(context.Background(), date, 20)
	require.NoError(t, err)
	require.Len(t, snapshot.Entries, 20)
	require.Equal(t, 1, f.callCount())
}

func TestGetChartDefaultAndMaxSize(t *testing.T) {
	t.Parallel()

	f := &routedFetcher{routes: map[string]fetcher.Response{
		"billboard.com": {StatusCode: http.StatusOK, Body: chartPage(100)},
	}}
	cfg := testConfig(t)
	a := newApp(cfg, zap.NewNop(), f)
	date := time.Date(2022, time.July, 30, 0, 0, 0, 0, time.UTC)

	snapshot, err := a.GetChart(context.Background(), date, 0)
	require.NoError(t, err)
	require.Len(t, snapshot.Entries, cfg.Chart.DefaultSize)

	snapshot, err = a.GetChart(context.Background(), date, 10_000)
	require.NoError(t, err)
	require.Len(t, snapshot.Entries, cfg.Chart.MaxSize)
}

func TestGetChartFetchFailurePropagates(t *testing.T) {
	t.Parallel()

	f := &routedFetcher{errs: map[string]error{"billboard.com": errors.New("connection refused")}}
	a := newApp(testConfig(t), zap.NewNop(), f)

	_, err := a.GetChart(context.Background(), time.Now(), 10)
	require.Error(t, err)
}

func TestGetChartBadStatusPropagates(t *testing.T) {
	t.Parallel()

	f := &routedFetcher{routes: map[string]fetcher.Response{
		"billboard.com": {StatusCode: http.StatusNotFound, Body: []byte("no chart this week")},
	}}
	a := newApp(testConfig(t), zap.NewNop(), f)

	_, err := a.GetChart(context.Background(), time.Now(), 10)
	require.Error(t, err)
	require.NotErrorIs(t, err, chart.ErrNoEntries)
}

func TestGetChartExtractionFailurePropagates(t *testing.T) {
	t.Parallel()

	f := &routedFetcher{routes: map[string]fetcher.Response{
		"billboard.com": {StatusCode: http.StatusOK, Body: []byte("<html><body>redesigned</body></html>")},
	}}
	a := newApp(testConfig(t), zap.NewNop(), f)

	_, err := a.GetChart(context.Background(), time.Now(), 10)
	require.ErrorIs(t, err, chart.ErrNoEntries)
}

func TestGetLinkProviderChainAndCache(t *testing.T) {
	t.Parallel()

	f := &routedFetcher{routes: map[string]fetcher.Response{
		"itunes.apple.com": {
			StatusCode: http.StatusOK,
			Body:       []byte(`{"results":[{"trackViewUrl":"https://music.apple.com/us/album/1"}]}`),
		},
		"song.link": {
			StatusCode: http.StatusOK,
			Body:       []byte(`{"linksByPlatform":{"spotify":{"url":"https://open.spotify.com/track/abc"}}}`),
		},
	}}
	a := newApp(testConfig(t), zap.NewNop(), f)

	link := a.GetLink(context.Background(), "Bad Habit", "Steve Lacy")
	require.Equal(t, links.Link{URL: "https://open.spotify.com/track/abc", Source: links.SourceProviderChain}, link)
	require.Equal(t, 2, f.callCount())

	// Cached within the TTL window: no further provider traffic.
	again := a.GetLink(context.Background(), "bad habit", "STEVE LACY")
	require.Equal(t, link, again)
	require.Equal(t, 2, f.callCount())
}

func TestGetLinkDegradesToSearchFallback(t *testing.T) {
	t.Parallel()

	f := &routedFetcher{errs: map[string]error{
		"itunes.apple.com": errors.New("unreachable"),
		"song.link":        errors.New("unreachable"),
	}}
	a := newApp(testConfig(t), zap.NewNop(), f)

	link := a.GetLink(context.Background(), "Bad Habit", "Steve Lacy")
	require.Equal(t, links.SourceSearchFallback, link.Source)
	require.Equal(t, "https://open.spotify.com/search/Bad%20Habit%20Steve%20Lacy", link.URL)

	// Fallback results are not cached; the chain is retried next time.
	calls := f.callCount()
	_ = a.GetLink(context.Background(), "Bad Habit", "Steve Lacy")
	require.Greater(t, f.callCount(), calls)
}
