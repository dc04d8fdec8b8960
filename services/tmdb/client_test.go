package tmdb

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"movieverse/services/httpretry"
)

func newTestClient(baseURL, key string) *Client {
	retrier := httpretry.New(nil, httpretry.Options{Target: "tmdb", BaseDelay: time.Millisecond})
	return New(retrier, Options{BaseURL: baseURL, APIKey: key, MaxRetries: 2, AttemptTimeout: time.Second})
}

func TestSearch_MissingAPIKey(t *testing.T) {
	c := newTestClient("http://127.0.0.1:1", "")
	_, err := c.Search(context.Background(), KindMovie, "heat", 1)
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestSearch_InvalidKind(t *testing.T) {
	c := newTestClient("http://127.0.0.1:1", "key")
	_, err := c.Search(context.Background(), "person", "heat", 1)
	assert.ErrorIs(t, err, ErrInvalidKind)
}

func TestSearch_EmptyQuerySkipsUpstream(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	page, err := newTestClient(srv.URL, "key").Search(context.Background(), KindTV, "   ", 3)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Empty(t, page.Results)
	assert.Equal(t, 0, page.TotalPages)
	assert.Equal(t, int32(0), atomic.LoadInt32(&hits))
}

func TestSearch_BuildsRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/tv", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "the wire", q.Get("query"))
		assert.Equal(t, "2", q.Get("page"))
		assert.Equal(t, "false", q.Get("include_adult"))
		assert.Equal(t, "en-US", q.Get("language"))
		assert.Equal(t, "secret", q.Get("api_key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"page":2,"results":[{"id":1438,"name":"The Wire"}],"total_pages":4,"total_results":61}`))
	}))
	defer srv.Close()

	page, err := newTestClient(srv.URL, "secret").Search(context.Background(), KindTV, " the wire ", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 4, page.TotalPages)
	assert.Equal(t, 61, page.TotalResults)
	require.Len(t, page.Results, 1)
	assert.JSONEq(t, `{"id":1438,"name":"The Wire"}`, string(page.Results[0]))
}

func TestSearch_DefaultsMissingFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":[{"id":1},{"id":2}]}`))
	}))
	defer srv.Close()

	page, err := newTestClient(srv.URL, "k").Search(context.Background(), KindMovie, "x", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 0, page.TotalPages)
	assert.Equal(t, 2, page.TotalResults)
}

func TestSearch_RetriesThenSucceeds(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"page":1,"results":[],"total_pages":0,"total_results":0}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, "k").Search(context.Background(), KindMovie, "x", 1)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestSearch_UpstreamStatusBubbles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"status_message":"Invalid API key"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, "bad").Search(context.Background(), KindMovie, "x", 1)
	var upstream *httpretry.UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, http.StatusUnauthorized, upstream.Status)
}

func TestSearch_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	_, err := newTestClient(srv.URL, "k").Search(context.Background(), KindMovie, "x", 1)
	var transport *httpretry.TransportError
	require.True(t, errors.As(err, &transport))
	assert.Equal(t, 3, transport.Attempts)
}
