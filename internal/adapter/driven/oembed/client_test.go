package oembed_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/gregjones/httpcache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/antigravity/internal/adapter/driven/oembed"
)

func TestClient_Resolve(t *testing.T) {
	var gotURL, gotFormat string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURL = r.URL.Query().Get("url")
		gotFormat = r.URL.Query().Get("format")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"title":"Robot arm at work","author_name":"mixkit","provider_name":"YouTube","html":"<iframe></iframe>"}`))
	}))
	t.Cleanup(server.Close)

	client := oembed.NewClientWithHTTPClient(server.Client(), server.URL+"/oembed")

	info, err := client.Resolve(context.Background(), "https://youtube.com/watch?v=abc")
	require.NoError(t, err)
	assert.Equal(t, "Robot arm at work", info.Title)
	assert.Equal(t, "mixkit", info.Author)
	assert.Equal(t, "YouTube", info.Provider)
	assert.Equal(t, "https://youtube.com/watch?v=abc", gotURL)
	assert.Equal(t, "json", gotFormat)
}

func TestClient_ResolveNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "Not Found", http.StatusNotFound)
	}))
	t.Cleanup(server.Close)

	client := oembed.NewClientWithHTTPClient(server.Client(), server.URL)

	_, err := client.Resolve(context.Background(), "https://example.com/private")
	assert.ErrorContains(t, err, "unexpected status 404")
}

func TestClient_ResolveMalformed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	}))
	t.Cleanup(server.Close)

	client := oembed.NewClientWithHTTPClient(server.Client(), server.URL)

	_, err := client.Resolve(context.Background(), "https://example.com/x")
	assert.ErrorContains(t, err, "decode oembed response")
}

func TestClient_ResolveUsesCache(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.Header().Set("Cache-Control", "max-age=3600")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"title":"cached"}`))
	}))
	t.Cleanup(server.Close)

	cached := httpcache.NewMemoryCacheTransport()
	cached.Transport = server.Client().Transport
	client := oembed.NewClientWithHTTPClient(&http.Client{Transport: cached}, server.URL)

	for range 3 {
		info, err := client.Resolve(context.Background(), "https://youtube.com/watch?v=abc")
		require.NoError(t, err)
		assert.Equal(t, "cached", info.Title)
	}
	assert.Equal(t, int32(1), hits.Load())
}
