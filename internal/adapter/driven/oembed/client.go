// Package oembed implements the SourceResolver port against an oEmbed endpoint.
package oembed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/gregjones/httpcache"

	"github.com/ericfisherdev/antigravity/internal/domain/model"
	"github.com/ericfisherdev/antigravity/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SourceResolver = (*Client)(nil)

const maxResponseBytes = 1 << 20

// Client resolves source metadata through an oEmbed provider endpoint such as
// https://www.youtube.com/oembed. Responses are cached in memory and honor
// the provider's cache headers.
type Client struct {
	http     *http.Client
	endpoint string
}

// NewClient creates a Client with an in-memory HTTP cache transport.
func NewClient(endpoint string) *Client {
	cacheTransport := httpcache.NewMemoryCacheTransport()
	return &Client{
		http: &http.Client{
			Transport: cacheTransport,
			Timeout:   10 * time.Second,
		},
		endpoint: endpoint,
	}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client.
// This constructor is intended for testing with an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, endpoint string) *Client {
	return &Client{http: httpClient, endpoint: endpoint}
}

// response is the subset of the oEmbed response we read.
type response struct {
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	ProviderName string `json:"provider_name"`
}

// Resolve fetches oEmbed metadata for sourceURL.
func (c *Client) Resolve(ctx context.Context, sourceURL string) (model.SourceInfo, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return model.SourceInfo{}, fmt.Errorf("parse oembed endpoint: %w", err)
	}
	q := u.Query()
	q.Set("url", sourceURL)
	q.Set("format", "json")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return model.SourceInfo{}, fmt.Errorf("build oembed request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return model.SourceInfo{}, fmt.Errorf("oembed request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return model.SourceInfo{}, fmt.Errorf("oembed %s: unexpected status %d", sourceURL, resp.StatusCode)
	}

	// Read to EOF so the cache transport stores the response.
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return model.SourceInfo{}, fmt.Errorf("read oembed response: %w", err)
	}

	var body response
	if err := json.Unmarshal(data, &body); err != nil {
		return model.SourceInfo{}, fmt.Errorf("decode oembed response: %w", err)
	}

	return model.SourceInfo{
		Title:    body.Title,
		Author:   body.AuthorName,
		Provider: body.ProviderName,
	}, nil
}
