// Package tmdb proxies title searches to The Movie Database using a server-side
// credential.
package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"movieverse/models"
	"movieverse/services/httpretry"
)

var (
	ErrMissingAPIKey = errors.New("tmdb: api key not configured")
	ErrInvalidKind   = errors.New("tmdb: type must be movie or tv")
)

const (
	KindMovie = "movie"
	KindTV    = "tv"
)

// Options configures a Client.
type Options struct {
	BaseURL        string
	APIKey         string
	MaxRetries     int
	AttemptTimeout time.Duration
}

// Client performs TMDB searches through a retrying transport.
type Client struct {
	retrier        *httpretry.Client
	baseURL        string
	apiKey         string
	maxRetries     int
	attemptTimeout time.Duration
}

func New(retrier *httpretry.Client, opts Options) *Client {
	if opts.AttemptTimeout <= 0 {
		opts.AttemptTimeout = httpretry.DefaultAttemptTimeout
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	return &Client{
		retrier:        retrier,
		baseURL:        strings.TrimRight(opts.BaseURL, "/"),
		apiKey:         strings.TrimSpace(opts.APIKey),
		maxRetries:     opts.MaxRetries,
		attemptTimeout: opts.AttemptTimeout,
	}
}

// EmptyPage is the response for a blank query.
func EmptyPage() *models.TMDBSearchPage {
	return &models.TMDBSearchPage{Results: []json.RawMessage{}, Page: 1}
}

// Search looks up query among movies or tv shows. A blank query returns an
// empty page without contacting TMDB. A final non-2xx status is returned as
// *httpretry.UpstreamError and network failures as *httpretry.TransportError.
func (c *Client) Search(ctx context.Context, kind, query string, page int) (*models.TMDBSearchPage, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if kind != KindMovie && kind != KindTV {
		return nil, ErrInvalidKind
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return EmptyPage(), nil
	}
	if page < 1 {
		page = 1
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("page", strconv.Itoa(page))
	params.Set("include_adult", "false")
	params.Set("language", "en-US")
	params.Set("api_key", c.apiKey)

	resp, err := c.retrier.Do(ctx, httpretry.Call{
		Method:         http.MethodGet,
		URL:            fmt.Sprintf("%s/search/%s?%s", c.baseURL, kind, params.Encode()),
		Header:         http.Header{"Accept": []string{"application/json"}},
		MaxRetries:     c.maxRetries,
		AttemptTimeout: c.attemptTimeout,
	})
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}

	var body struct {
		Results      []json.RawMessage `json:"results"`
		Page         *int              `json:"page"`
		TotalPages   *int              `json:"total_pages"`
		TotalResults *int              `json:"total_results"`
	}
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return nil, fmt.Errorf("decode tmdb response: %w", err)
	}

	out := &models.TMDBSearchPage{Results: body.Results, Page: 1}
	if out.Results == nil {
		out.Results = []json.RawMessage{}
	}
	if body.Page != nil {
		out.Page = *body.Page
	}
	if body.TotalPages != nil {
		out.TotalPages = *body.TotalPages
	}
	out.TotalResults = len(out.Results)
	if body.TotalResults != nil {
		out.TotalResults = *body.TotalResults
	}
	return out, nil
}
