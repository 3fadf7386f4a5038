// Package app wires the pipelines together and applies the caching the
// core deliberately does not own.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Tifany-Devil/Billboard-Minerva/internal/cache"
	"github.com/Tifany-Devil/Billboard-Minerva/internal/chart"
	"github.com/Tifany-Devil/Billboard-Minerva/internal/clock"
	"github.com/Tifany-Devil/Billboard-Minerva/internal/config"
	"github.com/Tifany-Devil/Billboard-Minerva/internal/fetcher"
	collyfetcher "github.com/Tifany-Devil/Billboard-Minerva/internal/fetcher/colly"
	"github.com/Tifany-Devil/Billboard-Minerva/internal/links"
	"github.com/Tifany-Devil/Billboard-Minerva/internal/metrics"
)

// ChartService is the caller-facing chart API.
type ChartService interface {
	GetChart(ctx context.Context, date time.Time, size int) (chart.Snapshot, error)
}

// LinkService is the caller-facing link API. GetLink is total.
type LinkService interface {
	GetLink(ctx context.Context, title, artist string) links.Link
}

// App owns the wired pipelines plus their TTL caches.
type App struct {
	cfg        config.Config
	logger     *zap.Logger
	fetch      fetcher.Fetcher
	extractor  *chart.Extractor
	resolver   *links.Resolver
	chartCache *cache.Store[chart.Snapshot]
	linkCache  *cache.Store[links.Link]
}

// New builds the application from config: one shared access layer, the
// extractor, the resolution chain and the caches.
func New(cfg config.Config, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	fetch := fetcher.NewRetrying(
		collyfetcher.New(collyfetcher.Config{
			UserAgent:      cfg.HTTP.UserAgent,
			AcceptLanguage: cfg.HTTP.AcceptLanguage,
			Timeout:        cfg.FetchTimeout(),
			PerHostRPS:     cfg.HTTP.PerHostRPS,
			PerHostBurst:   cfg.HTTP.PerHostBurst,
		}),
		fetcher.NewExponentialRetryPolicy(),
		logger.Named("fetcher"),
	)
	return newApp(cfg, logger, fetch)
}

// newApp wires the pipelines around an injected access layer.
func newApp(cfg config.Config, logger *zap.Logger, fetch fetcher.Fetcher) *App {
	resolver := links.NewResolver(
		links.Config{
			SearchBaseURL: cfg.Links.SearchBaseURL,
			StepTimeout:   cfg.StepTimeout(),
		},
		links.NewOdesli(fetch, cfg.Links.OdesliBaseURL, cfg.Links.Platform),
		logger.Named("links"),
		links.NewITunes(fetch, cfg.Links.ITunesBaseURL, cfg.Links.ITunesCountry),
	)

	clk := clock.System{}
	return &App{
		cfg:        cfg,
		logger:     logger,
		fetch:      fetch,
		extractor:  chart.NewExtractor(logger.Named("chart")),
		resolver:   resolver,
		chartCache: cache.New[chart.Snapshot](cfg.ChartTTL(), clk),
		linkCache:  cache.New[links.Link](cfg.LinkTTL(), clk),
	}
}

// GetChart retrieves and extracts the chart for the week containing
// date, truncated to size entries. Failures propagate: a wrong or
// empty chart is worse than an error.
func (a *App) GetChart(ctx context.Context, date time.Time, size int) (chart.Snapshot, error) {
	week := chart.ChartDate(date)
	size = a.clampSize(size)

	key := week.Format(chart.DateLayout)
	if snapshot, ok := a.chartCache.Get(key); ok {
		return truncate(snapshot, size), nil
	}

	pageURL := chart.URL(a.cfg.Chart.BaseURL, week)
	resp, err := a.fetch.Fetch(ctx, fetcher.Request{URL: pageURL})
	if err != nil {
		metrics.ObserveChartFetch("fetch_failed")
		return chart.Snapshot{}, fmt.Errorf("fetch chart page: %w", err)
	}
	if !resp.OK() {
		metrics.ObserveChartFetch("fetch_failed")
		return chart.Snapshot{}, fmt.Errorf("fetch chart page %s: status %d", pageURL, resp.StatusCode)
	}

	snapshot, err := a.extractor.Extract(resp.Body, week, a.cfg.Chart.MaxSize)
	if err != nil {
		metrics.ObserveChartFetch("extraction_failed")
		return chart.Snapshot{}, err
	}
	metrics.ObserveChartFetch("ok")
	metrics.ObserveEntriesExtracted(snapshot.Strategy, len(snapshot.Entries))
	a.logger.Info("chart loaded",
		zap.String("week", key),
		zap.String("strategy", snapshot.Strategy),
		zap.Int("entries", len(snapshot.Entries)),
	)

	a.chartCache.Put(key, snapshot)
	return truncate(snapshot, size), nil
}

// GetLink resolves a best-effort link for the track. Always returns a
// usable link; provider failures degrade to the search fallback.
func (a *App) GetLink(ctx context.Context, title, artist string) links.Link {
	key := strings.ToLower(strings.TrimSpace(title)) + "\x00" + strings.ToLower(strings.TrimSpace(artist))
	if link, ok := a.linkCache.Get(key); ok {
		return link
	}

	link := a.resolver.Resolve(ctx, title, artist)
	metrics.ObserveResolution(string(link.Source))

	// Fallback links are deterministic and cheap; only provider hits
	// are worth keeping for the TTL window.
	if link.Source == links.SourceProviderChain {
		a.linkCache.Put(key, link)
	}
	return link
}

func (a *App) clampSize(size int) int {
	if size <= 0 {
		return a.cfg.Chart.DefaultSize
	}
	if size > a.cfg.Chart.MaxSize {
		return a.cfg.Chart.MaxSize
	}
	return size
}

func truncate(snapshot chart.Snapshot, size int) chart.Snapshot {
	if size > 0 && len(snapshot.Entries) > size {
		snapshot.Entries = snapshot.Entries[:size]
	}
	return snapshot
}
