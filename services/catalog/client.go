// Package catalog talks to the upstream content catalog service that owns the
// movie and series records.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"movieverse/models"
	"movieverse/services/httpretry"
)

var (
	ErrNotFound       = errors.New("catalog item not found")
	ErrInvalidPayload = errors.New("invalid catalog payload")
	ErrInvalidTable   = errors.New("invalid table")
)

// RequestError carries the upstream's explanation for a rejected request.
type RequestError struct {
	Status  int
	Message string
}

func (e *RequestError) Error() string { return e.Message }

// Options configures a Client.
type Options struct {
	BaseURL  string
	ListTTL  time.Duration
	TokenTTL time.Duration
}

// Client is a thin JSON client for the catalog API.
type Client struct {
	httpc    *http.Client
	baseURL  string
	cache    *ResponseCache
	listTTL  time.Duration
	tokenTTL time.Duration
}

// New creates a Client. cache may be nil, in which case every call goes
// upstream.
func New(httpc *http.Client, cache *ResponseCache, opts Options) *Client {
	if httpc == nil {
		httpc = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		httpc:    httpc,
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		cache:    cache,
		listTTL:  opts.ListTTL,
		tokenTTL: opts.TokenTTL,
	}
}

// Movies fetches one page of movies. count <= 0 asks the upstream for its own
// estimate.
func (c *Client) Movies(ctx context.Context, page, count int) (*models.Page, error) {
	return c.listPage(ctx, models.TableMovies, page, count)
}

// Series fetches one page of series.
func (c *Client) Series(ctx context.Context, page, count int) (*models.Page, error) {
	return c.listPage(ctx, models.TableSeries, page, count)
}

// Trending fetches the trending movies rail.
func (c *Client) Trending(ctx context.Context, page int) ([]json.RawMessage, error) {
	if page < 1 {
		page = 1
	}
	body, err := c.getJSON(ctx, "/api/trendingmovies?page="+strconv.Itoa(page), c.listTTL)
	if err != nil {
		return nil, fmt.Errorf("fetch trending: %w", err)
	}
	p, err := decodePage(body)
	if err != nil {
		return nil, fmt.Errorf("fetch trending: %w", err)
	}
	return p.Results, nil
}

func (c *Client) listPage(ctx context.Context, table string, page, count int) (*models.Page, error) {
	if page < 1 {
		page = 1
	}
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	if count > 0 {
		params.Set("count", strconv.Itoa(count))
	} else {
		params.Set("count", "estimated")
	}
	body, err := c.getJSON(ctx, "/api/"+table+"?"+params.Encode(), c.listTTL)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", table, err)
	}
	p, err := decodePage(body)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", table, err)
	}
	return p, nil
}

func decodePage(body []byte) (*models.Page, error) {
	var p models.Page
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if p.Results == nil {
		return nil, ErrInvalidPayload
	}
	return &p, nil
}

// Get looks up one record by id in table. The upstream may answer with the
// record itself, an array, or a page; the element whose id matches is returned.
func (c *Client) Get(ctx context.Context, table, id string) (json.RawMessage, error) {
	if !validTable(table) {
		return nil, ErrInvalidTable
	}
	body, err := c.getJSON(ctx, "/api/"+table+"?id="+url.QueryEscape(id), 0)
	if err != nil {
		var upstream *httpretry.UpstreamError
		if errors.As(err, &upstream) && upstream.Status == http.StatusNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if item, ok := matchID(body, id); ok {
		return item, nil
	}
	return nil, ErrNotFound
}

func matchID(body []byte, id string) (json.RawMessage, bool) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, false
	}
	var candidates []json.RawMessage
	switch body[0] {
	case '[':
		_ = json.Unmarshal(body, &candidates)
	case '{':
		var page struct {
			Results []json.RawMessage `json:"results"`
		}
		if err := json.Unmarshal(body, &page); err == nil && page.Results != nil {
			candidates = append(candidates, page.Results...)
		}
		candidates = append([]json.RawMessage{body}, candidates...)
	}
	for _, cand := range candidates {
		if models.PayloadID(cand) == id && id != "" {
			return cand, true
		}
	}
	return nil, false
}

// SubmitRequest asks the catalog to add a title.
func (c *Client) SubmitRequest(ctx context.Context, payload models.RequestPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/request", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("submit request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		msg := strings.TrimSpace(string(text))
		if msg == "" {
			msg = fmt.Sprintf("Request failed (%d)", resp.StatusCode)
		}
		return &RequestError{Status: resp.StatusCode, Message: msg}
	}
	return nil
}

// HLSToken returns the current playback token.
func (c *Client) HLSToken(ctx context.Context) (string, error) {
	body, err := c.getJSON(ctx, "/api/hlstoken/1", c.tokenTTL)
	if err != nil {
		return "", fmt.Errorf("fetch hls token: %w", err)
	}
	var tok struct {
		Token *string `json:"hlstoken"`
	}
	if err := json.Unmarshal(body, &tok); err != nil || tok.Token == nil {
		return "", fmt.Errorf("fetch hls token: %w", ErrInvalidPayload)
	}
	return *tok.Token, nil
}

// getJSON GETs path relative to the base URL. With ttl > 0 a fresh cached body
// is served and successful bodies are stored.
func (c *Client) getJSON(ctx context.Context, path string, ttl time.Duration) ([]byte, error) {
	key := path
	if ttl > 0 && c.cache != nil {
		if body, ok := c.cache.Get(key); ok {
			return body, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &httpretry.UpstreamError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if ttl > 0 && c.cache != nil {
		if err := c.cache.Set(key, body, ttl); err != nil {
			log.Printf("[catalog] cache store %s failed: %v", path, err)
		}
	}
	return body, nil
}

func validTable(table string) bool {
	_, ok := models.KindForTable(table)
	return ok
}
