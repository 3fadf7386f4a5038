package links

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/Tifany-Devil/Billboard-Minerva/internal/fetcher"
)

// DefaultOdesliBaseURL is the public song.link resolution endpoint.
const DefaultOdesliBaseURL = "https://api.song.link/v1-alpha.1/links"

// Odesli implements Translator over the song.link API, which maps a
// track URL on one platform to its equivalents elsewhere.
type Odesli struct {
	fetcher  fetcher.Fetcher
	baseURL  string
	platform string
}

// NewOdesli builds the translator for one target platform key (e.g.
// "spotify").
func NewOdesli(f fetcher.Fetcher, baseURL, platform string) *Odesli {
	if baseURL == "" {
		baseURL = DefaultOdesliBaseURL
	}
	if platform == "" {
		platform = "spotify"
	}
	return &Odesli{fetcher: f, baseURL: baseURL, platform: platform}
}

// Name identifies the provider in logs and metrics.
func (t *Odesli) Name() string { return "odesli" }

type odesliResponse struct {
	LinksByPlatform map[string]struct {
		URL string `json:"url"`
	} `json:"linksByPlatform"`
}

// PlatformURL returns the target platform's URL for the given source
// track URL, or ErrNoMatch when the platform key is absent.
func (t *Odesli) PlatformURL(ctx context.Context, sourceURL string) (string, error) {
	if sourceURL == "" {
		return "", ErrNoMatch
	}

	resp, err := t.fetcher.Fetch(ctx, fetcher.Request{
		URL: t.baseURL + "?url=" + url.QueryEscape(sourceURL),
	})
	if err != nil {
		return "", err
	}
	if !resp.OK() {
		return "", fmt.Errorf("odesli lookup: status %d", resp.StatusCode)
	}

	var payload odesliResponse
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return "", fmt.Errorf("odesli lookup: decode: %w", err)
	}
	entry, ok := payload.LinksByPlatform[t.platform]
	if !ok || entry.URL == "" {
		return "", ErrNoMatch
	}
	return entry.URL, nil
}
