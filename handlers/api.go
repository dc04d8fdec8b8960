package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"movieverse/internal/visitor"
	"movieverse/models"
	"movieverse/services/catalog"
	"movieverse/services/httpretry"
	"movieverse/services/payloadcache"
	"movieverse/services/tmdb"
)

type catalogSearcher interface {
	Search(ctx context.Context, table, q string, limit int) ([]json.RawMessage, error)
}

type tokenSource interface {
	HLSToken(ctx context.Context) (string, error)
}

type tmdbSearcher interface {
	Search(ctx context.Context, kind, query string, page int) (*models.TMDBSearchPage, error)
}

type itemGetter interface {
	Get(ctx context.Context, table, id string) (json.RawMessage, error)
}

func noStore(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
}

// SearchHandler serves live catalog search for client scripts.
type SearchHandler struct {
	Catalog      catalogSearcher
	DefaultLimit int
}

func NewSearchHandler(catalog catalogSearcher, defaultLimit int) *SearchHandler {
	return &SearchHandler{Catalog: catalog, DefaultLimit: defaultLimit}
}

// Search handles GET /api/{table}/search?q=&limit=.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	table := mux.Vars(r)["table"]
	if _, ok := models.KindForTable(table); !ok {
		jsonError(w, "Invalid table", http.StatusBadRequest)
		return
	}
	noStore(w)

	limit := queryInt(r, "limit", h.DefaultLimit)
	rows, err := h.Catalog.Search(r.Context(), table, r.URL.Query().Get("q"), catalog.ClampLimit(limit))
	if err != nil {
		var upstream *httpretry.UpstreamError
		if errors.As(err, &upstream) {
			jsonError(w, "Upstream failed", upstream.Status)
			return
		}
		log.Printf("[api] search %s: %v", table, err)
		jsonError(w, "Search error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, models.SearchResults{Results: rows})
}

// TMDBHandler proxies metadata search so the API key stays server-side.
type TMDBHandler struct {
	Client tmdbSearcher
}

func NewTMDBHandler(client tmdbSearcher) *TMDBHandler {
	return &TMDBHandler{Client: client}
}

// Search handles GET /api/tmdb/search?q=&type=movie|tv&page=.
func (h *TMDBHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	kind := strings.ToLower(strings.TrimSpace(q.Get("type")))
	if kind == "" {
		kind = tmdb.KindMovie
	}
	page, err := h.Client.Search(r.Context(), kind, q.Get("q"), queryInt(r, "page", 1))
	if err != nil {
		status, msg := tmdbErrorStatus(err)
		if status >= http.StatusInternalServerError {
			log.Printf("[api] tmdb search: %v", err)
		}
		jsonError(w, msg, status)
		return
	}
	noStore(w)
	writeJSON(w, http.StatusOK, page)
}

// tmdbErrorStatus maps a metadata search failure to a response status and
// message. The request page renders the same messages inline.
func tmdbErrorStatus(err error) (int, string) {
	var upstream *httpretry.UpstreamError
	switch {
	case errors.Is(err, tmdb.ErrMissingAPIKey):
		return http.StatusInternalServerError, "Missing TMDB_API_KEY"
	case errors.Is(err, tmdb.ErrInvalidKind):
		return http.StatusBadRequest, "Invalid type"
	case errors.As(err, &upstream):
		return upstream.Status, "TMDB error " + strconv.Itoa(upstream.Status)
	default:
		return http.StatusBadGateway, "Failed to query TMDB (timeout or network)"
	}
}

// TokenHandler hands out the catalog's HLS token.
type TokenHandler struct {
	Source tokenSource
}

func NewTokenHandler(source tokenSource) *TokenHandler {
	return &TokenHandler{Source: source}
}

// HLSToken handles GET /api/hlstoken.
func (h *TokenHandler) HLSToken(w http.ResponseWriter, r *http.Request) {
	noStore(w)
	token, err := h.Source.HLSToken(r.Context())
	if err != nil {
		var upstream *httpretry.UpstreamError
		switch {
		case errors.As(err, &upstream):
			jsonError(w, "Upstream failed", upstream.Status)
		case errors.Is(err, catalog.ErrInvalidPayload):
			jsonError(w, "Invalid HLS token payload", http.StatusInternalServerError)
		default:
			log.Printf("[api] hls token: %v", err)
			jsonError(w, "Failed to fetch HLS token", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, models.HLSToken{Token: token})
}

// CacheHandler exposes the tab's payload cache to client scripts.
type CacheHandler struct {
	Cache payloadCache
}

func NewCacheHandler(cache payloadCache) *CacheHandler {
	return &CacheHandler{Cache: cache}
}

type cacheResponse struct {
	Key    string          `json:"key"`
	Data   json.RawMessage `json:"data"`
	Stored *bool           `json:"stored,omitempty"`
}

func cacheRoute(w http.ResponseWriter, r *http.Request) (string, bool) {
	route := strings.TrimSpace(r.URL.Query().Get("route"))
	if !strings.HasPrefix(route, "/") {
		jsonError(w, "route must be an absolute path", http.StatusBadRequest)
		return "", false
	}
	return route, true
}

// Get handles GET /api/cache?route=. A miss answers data: null.
func (h *CacheHandler) Get(w http.ResponseWriter, r *http.Request) {
	route, ok := cacheRoute(w, r)
	if !ok {
		return
	}
	noStore(w)
	data, found := h.Cache.Read(r.Context(), visitor.TabID(r), route)
	if !found {
		data = json.RawMessage("null")
	}
	writeJSON(w, http.StatusOK, cacheResponse{Key: payloadcache.Key(route), Data: data})
}

// Put handles PUT /api/cache?route= with the payload as the body.
func (h *CacheHandler) Put(w http.ResponseWriter, r *http.Request) {
	route, ok := cacheRoute(w, r)
	if !ok {
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		jsonError(w, "Failed to read body", http.StatusBadRequest)
		return
	}
	if !json.Valid(body) {
		jsonError(w, "Body must be JSON", http.StatusBadRequest)
		return
	}
	stored := h.Cache.Write(r.Context(), visitor.TabID(r), route, body)
	writeJSON(w, http.StatusOK, cacheResponse{Key: payloadcache.Key(route), Data: body, Stored: &stored})
}

// Clear handles DELETE /api/cache.
func (h *CacheHandler) Clear(w http.ResponseWriter, r *http.Request) {
	h.Cache.Clear(r.Context(), visitor.TabID(r))
	w.WriteHeader(http.StatusNoContent)
}

// ItemHandler exposes catalog lookups by id.
type ItemHandler struct {
	Catalog itemGetter
}

func NewItemHandler(catalog itemGetter) *ItemHandler {
	return &ItemHandler{Catalog: catalog}
}

// Item handles GET /api/{table}/{id}.
func (h *ItemHandler) Item(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	raw, err := h.Catalog.Get(r.Context(), vars["table"], vars["id"])
	switch {
	case errors.Is(err, catalog.ErrInvalidTable):
		jsonError(w, "Invalid table", http.StatusBadRequest)
		return
	case errors.Is(err, catalog.ErrNotFound):
		jsonError(w, "Not found", http.StatusNotFound)
		return
	case err != nil:
		log.Printf("[api] get %s/%s: %v", vars["table"], vars["id"], err)
		jsonError(w, "Failed to load item", http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(raw)
}
