package links

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/Tifany-Devil/Billboard-Minerva/internal/fetcher"
)

// DefaultITunesBaseURL is the public iTunes Search endpoint.
const DefaultITunesBaseURL = "https://itunes.apple.com/search"

// ITunes implements Catalog over the iTunes Search API.
type ITunes struct {
	fetcher fetcher.Fetcher
	baseURL string
	country string
}

// NewITunes builds the catalog. Empty baseURL/country fall back to the
// public endpoint and US storefront.
func NewITunes(f fetcher.Fetcher, baseURL, country string) *ITunes {
	if baseURL == "" {
		baseURL = DefaultITunesBaseURL
	}
	if country == "" {
		country = "US"
	}
	return &ITunes{fetcher: f, baseURL: baseURL, country: country}
}

// Name identifies the provider in logs and metrics.
func (c *ITunes) Name() string { return "itunes" }

type itunesResponse struct {
	Results []struct {
		TrackViewURL string `json:"trackViewUrl"`
	} `json:"results"`
}

// TrackURL searches for the track and returns the first candidate's
// view URL; the catalog's own ranking decides ties.
func (c *ITunes) TrackURL(ctx context.Context, title, artist string) (string, error) {
	term := strings.TrimSpace(title + " " + artist)
	if term == "" {
		return "", ErrNoMatch
	}

	params := url.Values{}
	params.Set("term", term)
	params.Set("media", "music")
	params.Set("entity", "song")
	params.Set("limit", "1")
	params.Set("country", c.country)

	resp, err := c.fetcher.Fetch(ctx, fetcher.Request{URL: c.baseURL + "?" + params.Encode()})
	if err != nil {
		return "", err
	}
	if !resp.OK() {
		return "", fmt.Errorf("itunes search: status %d", resp.StatusCode)
	}

	var payload itunesResponse
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return "", fmt.Errorf("itunes search: decode: %w", err)
	}
	if len(payload.Results) == 0 || payload.Results[0].TrackViewURL == "" {
		return "", ErrNoMatch
	}
	return payload.Results[0].TrackViewURL, nil
}
