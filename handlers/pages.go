package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/sourcegraph/conc"

	"movieverse/internal/visitor"
	"movieverse/models"
)

const (
	homeTrendingCount = 10
	homeRowCount      = 6

	listDefaultCount = 24
	listMinCount     = 12
	listMaxCount     = 60
)

// catalogService is the slice of the catalog client the pages need.
type catalogService interface {
	Movies(ctx context.Context, page, count int) (*models.Page, error)
	Series(ctx context.Context, page, count int) (*models.Page, error)
	Trending(ctx context.Context, page int) ([]json.RawMessage, error)
	Search(ctx context.Context, table, q string, limit int) ([]json.RawMessage, error)
}

// payloadCache is the tab-scoped hand-off store between list and detail pages.
type payloadCache interface {
	Write(ctx context.Context, tab, route string, payload json.RawMessage) bool
	Read(ctx context.Context, tab, route string) (json.RawMessage, bool)
	Clear(ctx context.Context, tab string)
}

var openTargetPattern = regexp.MustCompile(`^/(movies|series|request)/[A-Za-z0-9_-][A-Za-z0-9_.-]*$`)

// PageHandler serves the browsing pages.
type PageHandler struct {
	Catalog  catalogService
	Cache    payloadCache
	Renderer *Renderer
}

func NewPageHandler(catalog catalogService, cache payloadCache, renderer *Renderer) *PageHandler {
	return &PageHandler{Catalog: catalog, Cache: cache, Renderer: renderer}
}

type homeSection struct {
	ID    string
	Title string
	More  string
	Cards []card
	Err   string
}

type homePage struct {
	Sections []homeSection
}

// Home clears the tab's payload cache and renders the three rows. Each row
// is loaded independently so one failing upstream only blanks its own row.
func (h *PageHandler) Home(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	h.Cache.Clear(ctx, visitor.TabID(r))

	data := homePage{Sections: []homeSection{
		{ID: "trending", Title: "Trending", More: "/movies"},
		{ID: "movies", Title: "Movies", More: "/movies"},
		{ID: "series", Title: "Series", More: "/series"},
	}}

	var wg conc.WaitGroup
	wg.Go(func() {
		rows, err := h.Catalog.Trending(ctx, 1)
		if err != nil {
			log.Printf("[pages] trending: %v", err)
			data.Sections[0].Err = "Failed to load trending titles."
			return
		}
		if len(rows) > homeTrendingCount {
			rows = rows[:homeTrendingCount]
		}
		data.Sections[0].Cards = h.Renderer.cards(models.KindMovie, "/movies/", rows)
	})
	wg.Go(func() {
		page, err := h.Catalog.Movies(ctx, 1, homeRowCount)
		if err != nil {
			log.Printf("[pages] movies row: %v", err)
			data.Sections[1].Err = "Failed to load movies."
			return
		}
		data.Sections[1].Cards = h.Renderer.cards(models.KindMovie, "/movies/", page.Results)
	})
	wg.Go(func() {
		page, err := h.Catalog.Series(ctx, 1, homeRowCount)
		if err != nil {
			log.Printf("[pages] series row: %v", err)
			data.Sections[2].Err = "Failed to load series."
			return
		}
		data.Sections[2].Cards = h.Renderer.cards(models.KindSeries, "/series/", page.Results)
	})
	wg.Wait()

	h.Renderer.Render(w, r, http.StatusOK, "home", data)
}

type listPage struct {
	Heading    string
	Base       string
	Query      string
	Page       int
	Count      int
	TotalPages int
	HasPrev    bool
	HasNext    bool
	PrevPage   int
	NextPage   int
	Cards      []card
	Err        string
}

// ListMovies renders /movies.
func (h *PageHandler) ListMovies(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, models.KindMovie)
}

// ListSeries renders /series.
func (h *PageHandler) ListSeries(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, models.KindSeries)
}

func (h *PageHandler) list(w http.ResponseWriter, r *http.Request, kind models.Kind) {
	table := kind.Table()
	data := listPage{
		Heading: "Movies",
		Base:    "/" + table,
		Query:   strings.TrimSpace(r.URL.Query().Get("q")),
		Page:    max(1, queryInt(r, "page", 1)),
		Count:   clampCount(queryInt(r, "count", listDefaultCount)),
	}
	if kind == models.KindSeries {
		data.Heading = "Series"
	}
	routePrefix := data.Base + "/"

	if data.Query != "" {
		rows, err := h.Catalog.Search(r.Context(), table, data.Query, data.Count)
		if err != nil {
			log.Printf("[pages] search %s %q: %v", table, data.Query, err)
			data.Err = "Search failed. Please try again."
			h.Renderer.Render(w, r, http.StatusBadGateway, "list", data)
			return
		}
		data.Cards = h.Renderer.cards(kind, routePrefix, rows)
		h.Renderer.Render(w, r, http.StatusOK, "list", data)
		return
	}

	fetch := h.Catalog.Movies
	if kind == models.KindSeries {
		fetch = h.Catalog.Series
	}
	page, err := fetch(r.Context(), data.Page, data.Count)
	if err != nil {
		log.Printf("[pages] list %s page %d: %v", table, data.Page, err)
		data.Err = "Failed to load " + table + "."
		data.HasPrev = data.Page > 1
		data.PrevPage = data.Page - 1
		h.Renderer.Render(w, r, http.StatusBadGateway, "list", data)
		return
	}

	data.Cards = h.Renderer.cards(kind, routePrefix, page.Results)
	data.TotalPages = page.TotalPages
	data.HasPrev = data.Page > 1
	data.HasNext = hasNextPage(data.Page, page.TotalPages, len(page.Results), data.Count)
	data.PrevPage = data.Page - 1
	data.NextPage = data.Page + 1
	h.Renderer.Render(w, r, http.StatusOK, "list", data)
}

func clampCount(count int) int {
	return min(listMaxCount, max(listMinCount, count))
}

// hasNextPage trusts the upstream page count when present and otherwise
// assumes more rows exist when the page came back full.
func hasNextPage(page, totalPages, rows, count int) bool {
	if totalPages > 0 {
		return page < totalPages
	}
	return rows == count
}

// Open stores the activated card's payload for its destination and redirects
// there. The redirect happens whether or not the write succeeded.
func (h *PageHandler) Open(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	to := strings.TrimSpace(r.PostForm.Get("to"))
	if !openTargetPattern.MatchString(to) {
		http.Error(w, "Invalid destination", http.StatusBadRequest)
		return
	}
	if payload := strings.TrimSpace(r.PostForm.Get("payload")); payload != "" {
		h.Cache.Write(r.Context(), visitor.TabID(r), to, json.RawMessage(payload))
	}
	http.Redirect(w, r, tabLink(to, visitor.TabID(r)), http.StatusSeeOther)
}

type moviePage struct {
	Item     *models.Item
	Poster   string
	Backdrop string
	Rating   string
	Runtime  string
	WatchURL string
}

// Movie renders a movie from the payload cached on activation.
func (h *PageHandler) Movie(w http.ResponseWriter, r *http.Request) {
	var data moviePage
	item, ok := h.cachedItem(r, models.KindMovie)
	if !ok {
		h.Renderer.Render(w, r, http.StatusOK, "movie", data)
		return
	}
	data.Item = item
	data.Poster = h.Renderer.poster(item.PosterPath)
	data.Backdrop = h.Renderer.backdrop(item.BackdropPath)
	data.Rating = rating(item.VoteAverage)
	data.Runtime = runtimeLabel(item.Runtime)
	data.WatchURL = watchURL(item.VideoURL, item.Title)
	h.Renderer.Render(w, r, http.StatusOK, "movie", data)
}

type seasonLink struct {
	Label    string
	Href     string
	Selected bool
}

type episodeLink struct {
	Title    string
	Overview string
	Runtime  string
	Href     string
	Selected bool
}

type seriesPage struct {
	Item         *models.Item
	Poster       string
	Backdrop     string
	Rating       string
	Seasons      []seasonLink
	Episodes     []episodeLink
	EpisodeTitle string
	WatchURL     string
}

// Series renders a series with its season and episode selectors. Selection
// lives in ?season= and ?episode= (zero-based indices).
func (h *PageHandler) Series(w http.ResponseWriter, r *http.Request) {
	var data seriesPage
	item, ok := h.cachedItem(r, models.KindSeries)
	if !ok {
		h.Renderer.Render(w, r, http.StatusOK, "series", data)
		return
	}
	data.Item = item
	data.Poster = h.Renderer.poster(item.PosterPath)
	data.Backdrop = h.Renderer.backdrop(item.BackdropPath)
	data.Rating = rating(item.VoteAverage)

	if len(item.Seasons) > 0 {
		base := "/series/" + url.PathEscape(item.ID)
		season := selectedSeason(item.Seasons, r.URL.Query().Get("season"))
		for i, s := range item.Seasons {
			data.Seasons = append(data.Seasons, seasonLink{
				Label:    s.Label(i),
				Href:     base + "?season=" + strconv.Itoa(i),
				Selected: i == season,
			})
		}

		episodes := item.Seasons[season].Episodes
		episode := queryIndex(r.URL.Query().Get("episode"), len(episodes), 0)
		for i, e := range episodes {
			link := episodeLink{
				Title:    e.Title(i),
				Runtime:  runtimeLabel(e.Runtime),
				Href:     base + "?season=" + strconv.Itoa(season) + "&episode=" + strconv.Itoa(i),
				Selected: i == episode,
			}
			if e.Overview != nil {
				link.Overview = *e.Overview
			}
			data.Episodes = append(data.Episodes, link)
		}
		if episode < len(episodes) {
			e := episodes[episode]
			data.EpisodeTitle = e.Title(episode)
			if e.VideoURL != nil {
				data.WatchURL = watchURL(*e.VideoURL, item.Title+" · "+data.EpisodeTitle)
			}
		}
	}
	if data.WatchURL == "" && len(data.Episodes) == 0 {
		data.WatchURL = watchURL(item.VideoURL, item.Title)
	}
	h.Renderer.Render(w, r, http.StatusOK, "series", data)
}

// selectedSeason resolves ?season=, defaulting to the season numbered 1 (so
// specials in season 0 are skipped) and then to the first season.
func selectedSeason(seasons []models.Season, raw string) int {
	def := 0
	for i, s := range seasons {
		if s.SeasonNumber != nil && *s.SeasonNumber == 1 {
			def = i
			break
		}
	}
	return queryIndex(raw, len(seasons), def)
}

func queryIndex(raw string, n, fallback int) int {
	i, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || i < 0 || i >= n {
		return fallback
	}
	return i
}

func (h *PageHandler) cachedItem(r *http.Request, kind models.Kind) (*models.Item, bool) {
	raw, ok := h.Cache.Read(r.Context(), visitor.TabID(r), r.URL.Path)
	if !ok {
		return nil, false
	}
	item, err := models.Normalize(kind, raw)
	if err != nil {
		log.Printf("[pages] cached payload for %s: %v", r.URL.Path, err)
		return nil, false
	}
	if item.ID == "" {
		item.ID = mux.Vars(r)["id"]
	}
	return &item, true
}

func watchURL(src, title string) string {
	if strings.TrimSpace(src) == "" {
		return ""
	}
	q := url.Values{}
	q.Set("src", src)
	if title != "" {
		q.Set("title", title)
	}
	return "/watch?" + q.Encode()
}

// NotFound renders the not-found page, or a JSON error under /api/.
func (h *PageHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		jsonError(w, "Not found", http.StatusNotFound)
		return
	}
	h.Renderer.Render(w, r, http.StatusNotFound, "notfound", "")
}
