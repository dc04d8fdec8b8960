package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"movieverse/config"
	"movieverse/internal/visitor"
	"movieverse/models"
)

const (
	testTab     = "tab-1"
	testProfile = "profile-1"
)

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := NewRenderer(config.Default().Images)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	return r
}

// withVisitor attaches the identities VisitorMiddleware would resolve.
func withVisitor(req *http.Request) *http.Request {
	ctx := visitor.WithVisitor(req.Context(), models.Visitor{TabID: testTab, ProfileID: testProfile})
	return req.WithContext(ctx)
}

func parseHTML(t *testing.T, rec *httptest.ResponseRecorder) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(rec.Body)
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body["error"]
}

// fakeCatalog serves canned pages and records calls.
type fakeCatalog struct {
	mu        sync.Mutex
	movies    *models.Page
	series    *models.Page
	trending  []json.RawMessage
	search    []json.RawMessage
	item      json.RawMessage
	token     string
	featured  map[string]bool
	moviesErr error
	seriesErr error
	trendErr  error
	searchErr error
	getErr    error
	tokenErr  error

	listCalls   []listCall
	searchCalls []string
}

type listCall struct {
	table       string
	page, count int
}

func (f *fakeCatalog) Movies(_ context.Context, page, count int) (*models.Page, error) {
	f.mu.Lock()
	f.listCalls = append(f.listCalls, listCall{"movies", page, count})
	f.mu.Unlock()
	return f.movies, f.moviesErr
}

func (f *fakeCatalog) Series(_ context.Context, page, count int) (*models.Page, error) {
	f.mu.Lock()
	f.listCalls = append(f.listCalls, listCall{"series", page, count})
	f.mu.Unlock()
	return f.series, f.seriesErr
}

func (f *fakeCatalog) Trending(context.Context, int) ([]json.RawMessage, error) {
	return f.trending, f.trendErr
}

func (f *fakeCatalog) Search(_ context.Context, table, q string, _ int) ([]json.RawMessage, error) {
	f.mu.Lock()
	f.searchCalls = append(f.searchCalls, table+":"+q)
	f.mu.Unlock()
	return f.search, f.searchErr
}

func (f *fakeCatalog) Get(context.Context, string, string) (json.RawMessage, error) {
	return f.item, f.getErr
}

func (f *fakeCatalog) HLSToken(context.Context) (string, error) {
	return f.token, f.tokenErr
}

func (f *fakeCatalog) IsFeatured(_ context.Context, id string) bool {
	return f.featured[id]
}

// fakeCache is an in-memory payloadCache keyed by tab and route.
type fakeCache struct {
	mu      sync.Mutex
	data    map[string]map[string]json.RawMessage
	cleared []string
	reject  bool
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: map[string]map[string]json.RawMessage{}}
}

func (c *fakeCache) Write(_ context.Context, tab, route string, payload json.RawMessage) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.reject || !json.Valid(payload) {
		return false
	}
	if c.data[tab] == nil {
		c.data[tab] = map[string]json.RawMessage{}
	}
	c.data[tab][route] = payload
	return true
}

func (c *fakeCache) Read(_ context.Context, tab, route string) (json.RawMessage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[tab][route]
	return v, ok
}

func (c *fakeCache) Clear(_ context.Context, tab string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, tab)
	c.cleared = append(c.cleared, tab)
}

func rawRows(rows ...string) []json.RawMessage {
	out := make([]json.RawMessage, 0, len(rows))
	for _, r := range rows {
		out = append(out, json.RawMessage(r))
	}
	return out
}
