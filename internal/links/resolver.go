// Package links resolves chart entries to playable platform URLs
// without a licensed platform API.
package links

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Source tells the caller how a link was obtained.
type Source string

// Resolution sources.
const (
	SourceProviderChain  Source = "provider_chain"
	SourceSearchFallback Source = "search_fallback"
)

// Link is the result of a resolution. Resolve never returns a zero
// Link; at worst the URL is a search page.
type Link struct {
	URL    string `json:"url"`
	Source Source `json:"source"`
}

// ErrNoMatch reports that a provider answered but had no usable result.
var ErrNoMatch = errors.New("no match")

// ProviderError wraps a failure inside one chain step. It never leaves
// the resolver; the chain absorbs it and moves on.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Catalog looks up a track by free-text query and returns a
// catalog-specific track URL. Site specifics stay inside the
// implementation; the resolver only sees this seam.
type Catalog interface {
	Name() string
	TrackURL(ctx context.Context, title, artist string) (string, error)
}

// Translator maps a track URL on one platform to the target platform.
type Translator interface {
	Name() string
	PlatformURL(ctx context.Context, sourceURL string) (string, error)
}

// Resolver runs the resolution chain: ordered catalog lookups feed the
// translator, and a deterministic search URL is the guaranteed floor.
type Resolver struct {
	catalogs    []Catalog
	translator  Translator
	searchBase  string
	stepTimeout time.Duration
	logger      *zap.Logger
}

// Config controls resolver behavior.
type Config struct {
	// SearchBaseURL is the target platform's search page prefix, e.g.
	// https://open.spotify.com/search.
	SearchBaseURL string
	// StepTimeout bounds each chain step independently.
	StepTimeout time.Duration
}

// NewResolver builds a Resolver. Catalogs are tried in the given order.
func NewResolver(cfg Config, translator Translator, logger *zap.Logger, catalogs ...Catalog) *Resolver {
	if cfg.SearchBaseURL == "" {
		cfg.SearchBaseURL = "https://open.spotify.com/search"
	}
	if cfg.StepTimeout <= 0 {
		cfg.StepTimeout = 8 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		catalogs:    catalogs,
		translator:  translator,
		searchBase:  cfg.SearchBaseURL,
		stepTimeout: cfg.StepTimeout,
		logger:      logger,
	}
}

// Resolve returns the best-effort link for a track. It is a total
// function: provider failures degrade to the search fallback and are
// never surfaced to the caller.
func (r *Resolver) Resolve(ctx context.Context, title, artist string) Link {
	for _, catalog := range r.catalogs {
		trackURL, err := r.lookup(ctx, catalog, title, artist)
		if err != nil {
			r.logger.Debug("catalog lookup failed",
				zap.String("provider", catalog.Name()),
				zap.String("title", title),
				zap.String("artist", artist),
				zap.Error(err),
			)
			continue
		}
		resolved, err := r.translate(ctx, trackURL)
		if err != nil {
			r.logger.Debug("platform translation failed",
				zap.String("provider", r.translator.Name()),
				zap.String("track_url", trackURL),
				zap.Error(err),
			)
			continue
		}
		return Link{URL: resolved, Source: SourceProviderChain}
	}
	return Link{URL: SearchURL(r.searchBase, title, artist), Source: SourceSearchFallback}
}

func (r *Resolver) lookup(ctx context.Context, catalog Catalog, title, artist string) (string, error) {
	stepCtx, cancel := context.WithTimeout(ctx, r.stepTimeout)
	defer cancel()
	trackURL, err := catalog.TrackURL(stepCtx, title, artist)
	if err != nil {
		return "", &ProviderError{Provider: catalog.Name(), Err: err}
	}
	if trackURL == "" {
		return "", &ProviderError{Provider: catalog.Name(), Err: ErrNoMatch}
	}
	return trackURL, nil
}

func (r *Resolver) translate(ctx context.Context, trackURL string) (string, error) {
	if r.translator == nil {
		return "", &ProviderError{Provider: "translator", Err: errors.New("not configured")}
	}
	stepCtx, cancel := context.WithTimeout(ctx, r.stepTimeout)
	defer cancel()
	resolved, err := r.translator.PlatformURL(stepCtx, trackURL)
	if err != nil {
		return "", &ProviderError{Provider: r.translator.Name(), Err: err}
	}
	if resolved == "" {
		return "", &ProviderError{Provider: r.translator.Name(), Err: ErrNoMatch}
	}
	return resolved, nil
}

// SearchURL builds the deterministic search fallback: title and artist
// joined by a single space, URL-encoded into the search path.
func SearchURL(baseURL, title, artist string) string {
	query := strings.TrimSpace(title + " " + artist)
	return strings.TrimRight(baseURL, "/") + "/" + url.PathEscape(query)
}
