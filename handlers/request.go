package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/mux"

	"movieverse/internal/visitor"
	"movieverse/models"
	"movieverse/services/catalog"
	"movieverse/services/requests"
	"movieverse/services/tmdb"
)

type requestService interface {
	Requested(ctx context.Context, profileID, itemID string) bool
	Send(ctx context.Context, profileID string, payload models.RequestPayload) error
	History(ctx context.Context, profileID string) ([]models.RequestedMarker, error)
}

type featuredChecker interface {
	IsFeatured(ctx context.Context, id string) bool
}

// RequestHandler serves the "request a title" flow.
type RequestHandler struct {
	TMDB     tmdbSearcher
	Featured featuredChecker
	Requests requestService
	Cache    payloadCache
	Renderer *Renderer
}

func NewRequestHandler(tmdbClient tmdbSearcher, featured featuredChecker, reqs requestService, cache payloadCache, renderer *Renderer) *RequestHandler {
	return &RequestHandler{
		TMDB:     tmdbClient,
		Featured: featured,
		Requests: reqs,
		Cache:    cache,
		Renderer: renderer,
	}
}

type requestSearchPage struct {
	Query      string
	Type       string
	Page       int
	TotalPages int
	HasPrev    bool
	HasNext    bool
	PrevPage   int
	NextPage   int
	Cards      []card
	Err        string
}

// SearchPage renders GET /request.
func (h *RequestHandler) SearchPage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	data := requestSearchPage{
		Query: strings.TrimSpace(q.Get("q")),
		Type:  strings.ToLower(strings.TrimSpace(q.Get("type"))),
		Page:  max(1, queryInt(r, "page", 1)),
	}
	if data.Type == "" {
		data.Type = tmdb.KindMovie
	}
	if data.Query == "" {
		h.Renderer.Render(w, r, http.StatusOK, "request_search", data)
		return
	}

	page, err := h.TMDB.Search(r.Context(), data.Type, data.Query, data.Page)
	if err != nil {
		status, msg := tmdbErrorStatus(err)
		if status >= http.StatusInternalServerError {
			log.Printf("[pages] request search %q: %v", data.Query, err)
		}
		data.Err = msg
		h.Renderer.Render(w, r, status, "request_search", data)
		return
	}

	kind := models.KindMovie
	if data.Type == tmdb.KindTV {
		kind = models.KindSeries
	}
	rows := make([]json.RawMessage, 0, len(page.Results))
	for _, raw := range page.Results {
		rows = append(rows, withMediaType(raw, data.Type))
	}
	data.Cards = h.Renderer.cards(kind, "/request/", rows)
	data.Page = page.Page
	data.TotalPages = page.TotalPages
	data.HasPrev = page.Page > 1
	data.HasNext = page.Page < page.TotalPages
	data.PrevPage = page.Page - 1
	data.NextPage = page.Page + 1
	h.Renderer.Render(w, r, http.StatusOK, "request_search", data)
}

// withMediaType tags a metadata search hit so the detail page can tell movies
// from series once the payload comes back out of the cache.
func withMediaType(raw json.RawMessage, mediaType string) json.RawMessage {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return raw
	}
	if _, ok := fields["media_type"]; ok {
		return raw
	}
	fields["media_type"], _ = json.Marshal(mediaType)
	out, err := json.Marshal(fields)
	if err != nil {
		return raw
	}
	return out
}

type requestDetailPage struct {
	Item       *models.Item
	Poster     string
	Featured   bool
	Requested  bool
	LibraryURL string
	Action     string
	Sent       bool
	Err        string
}

func (h *RequestHandler) detail(r *http.Request) (requestDetailPage, json.RawMessage) {
	var data requestDetailPage
	id := mux.Vars(r)["id"]
	data.Action = "/request/" + url.PathEscape(id)
	raw, ok := h.Cache.Read(r.Context(), visitor.TabID(r), "/request/"+id)
	if !ok {
		// direct visits still learn whether the id is already in the catalog
		if id != "" {
			data.Featured = h.Featured.IsFeatured(r.Context(), id)
		}
		return data, nil
	}
	table := models.InferTable(raw)
	kind, _ := models.KindForTable(table)
	item, err := models.Normalize(kind, raw)
	if err != nil {
		log.Printf("[pages] cached request payload %s: %v", id, err)
		data.Featured = h.Featured.IsFeatured(r.Context(), id)
		return data, nil
	}
	if item.ID == "" {
		item.ID = id
	}
	data.Item = &item
	data.Poster = h.Renderer.poster(item.PosterPath)
	data.Featured = h.Featured.IsFeatured(r.Context(), item.ID)
	data.Requested = h.Requests.Requested(r.Context(), visitor.ProfileID(r), item.ID)
	data.LibraryURL = "/" + table + "?q=" + url.QueryEscape(item.Title)
	data.Action = "/request/" + url.PathEscape(item.ID)
	return data, raw
}

// Detail renders GET /request/{id} from the cached search hit.
func (h *RequestHandler) Detail(w http.ResponseWriter, r *http.Request) {
	data, _ := h.detail(r)
	data.Sent = data.Item != nil && r.URL.Query().Get("sent") == "1"
	h.Renderer.Render(w, r, http.StatusOK, "request_detail", data)
}

// Submit handles POST /request/{id}: on success the marker is set and the
// browser is redirected back; failures re-render the page with the reason.
func (h *RequestHandler) Submit(w http.ResponseWriter, r *http.Request) {
	data, raw := h.detail(r)
	if raw == nil {
		data.Err = "Nothing to request."
		h.Renderer.Render(w, r, http.StatusBadRequest, "request_detail", data)
		return
	}

	payload, err := requests.BuildPayload(raw, "")
	if err == nil {
		err = h.Requests.Send(r.Context(), visitor.ProfileID(r), payload)
	}
	if err != nil {
		status, msg := requestErrorStatus(err)
		log.Printf("[pages] request %s failed: %v", data.Item.ID, err)
		data.Err = msg
		h.Renderer.Render(w, r, status, "request_detail", data)
		return
	}
	http.Redirect(w, r, tabLink("/request/"+url.PathEscape(data.Item.ID), visitor.TabID(r), "sent", "1"), http.StatusSeeOther)
}

func requestErrorStatus(err error) (int, string) {
	var rejected *catalog.RequestError
	switch {
	case errors.Is(err, requests.ErrInvalidPayload):
		return http.StatusBadRequest, "This title cannot be requested."
	case errors.As(err, &rejected):
		return http.StatusBadGateway, rejected.Message
	default:
		return http.StatusBadGateway, "Failed to send request."
	}
}

// History handles GET /api/requests for the calling profile.
func (h *RequestHandler) History(w http.ResponseWriter, r *http.Request) {
	markers, err := h.Requests.History(r.Context(), visitor.ProfileID(r))
	if err != nil {
		log.Printf("[api] request history: %v", err)
		jsonError(w, "Failed to load requests", http.StatusInternalServerError)
		return
	}
	if markers == nil {
		markers = []models.RequestedMarker{}
	}
	noStore(w)
	writeJSON(w, http.StatusOK, map[string]any{"requests": markers})
}
