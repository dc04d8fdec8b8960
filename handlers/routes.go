package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Routes bundles everything Register mounts.
type Routes struct {
	Pages    *PageHandler
	Requests *RequestHandler
	Watch    *WatchHandler
	Search   *SearchHandler
	TMDB     *TMDBHandler
	Token    *TokenHandler
	Cache    *CacheHandler
	Items    *ItemHandler
	Version  *VersionHandler
	Logs     *LogsHandler
	Static   http.Handler
	Metrics  http.Handler

	// SearchLimit guards the credentialed metadata search; nil disables it.
	SearchLimit mux.MiddlewareFunc
}

// Register mounts the pages and the JSON API on r. Specific /api paths are
// registered before the {table} patterns that would otherwise shadow them.
// Routes called cross-origin accept OPTIONS so the CORS middleware can answer
// preflights.
func Register(r *mux.Router, h Routes) {
	tmdbSearch := http.Handler(http.HandlerFunc(h.TMDB.Search))
	if h.SearchLimit != nil {
		tmdbSearch = h.SearchLimit(tmdbSearch)
	}

	api := r.PathPrefix("/api").Subrouter()
	api.Handle("/tmdb/search", tmdbSearch).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/hlstoken", h.Token.HLSToken).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/version", h.Version.GetVersion).Methods(http.MethodGet)
	api.HandleFunc("/cache", h.Cache.Get).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/cache", h.Cache.Put).Methods(http.MethodPut)
	api.HandleFunc("/cache", h.Cache.Clear).Methods(http.MethodDelete)
	api.HandleFunc("/player/manifest", h.Watch.Manifest).Methods(http.MethodGet)
	api.HandleFunc("/requests", h.Requests.History).Methods(http.MethodGet)
	if h.Logs != nil {
		api.HandleFunc("/logs", h.Logs.Tail).Methods(http.MethodGet)
	}
	api.HandleFunc("/{table}/search", h.Search.Search).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/{table:movies|series}/{id}", h.Items.Item).Methods(http.MethodGet)

	if h.Metrics != nil {
		r.Handle("/metrics", h.Metrics).Methods(http.MethodGet)
	}
	if h.Static != nil {
		r.PathPrefix("/static/").Handler(h.Static).Methods(http.MethodGet, http.MethodHead)
	}

	r.HandleFunc("/", h.Pages.Home).Methods(http.MethodGet)
	r.HandleFunc("/movies", h.Pages.ListMovies).Methods(http.MethodGet)
	r.HandleFunc("/series", h.Pages.ListSeries).Methods(http.MethodGet)
	r.HandleFunc("/movies/{id}", h.Pages.Movie).Methods(http.MethodGet)
	r.HandleFunc("/series/{id}", h.Pages.Series).Methods(http.MethodGet)
	r.HandleFunc("/open", h.Pages.Open).Methods(http.MethodPost)
	r.HandleFunc("/request", h.Requests.SearchPage).Methods(http.MethodGet)
	r.HandleFunc("/request/{id}", h.Requests.Detail).Methods(http.MethodGet)
	r.HandleFunc("/request/{id}", h.Requests.Submit).Methods(http.MethodPost)
	r.HandleFunc("/watch", h.Watch.Watch).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(h.Pages.NotFound)
}
