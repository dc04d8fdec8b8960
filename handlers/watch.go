package handlers

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"strings"

	"movieverse/services/player"
	"movieverse/utils"
)

// WatchHandler renders the player page. Each request loads the playlist
// through a fresh engine so the page can list qualities and tracks. Sources
// gates which hosts the server fetches playlists from.
type WatchHandler struct {
	NewEngine func() player.Engine
	Sources   *utils.MediaHostPolicy
	Renderer  *Renderer
}

// NewWatchHandler creates a WatchHandler. A nil sources policy refuses
// internal hosts.
func NewWatchHandler(newEngine func() player.Engine, sources *utils.MediaHostPolicy, renderer *Renderer) *WatchHandler {
	if sources == nil {
		sources = utils.NewMediaHostPolicy(nil, false)
	}
	return &WatchHandler{NewEngine: newEngine, Sources: sources, Renderer: renderer}
}

type watchPage struct {
	Title string
	State player.State
}

// load parses the source and applies optional ?quality=, ?audio= and
// ?subtitles= selections. The returned state always carries the source.
func (h *WatchHandler) load(ctx context.Context, r *http.Request) (player.State, bool) {
	raw := r.URL.Query().Get("src")
	src, err := utils.NormalizeMediaURL(raw)
	if err != nil {
		return player.State{Source: raw, Error: "Invalid stream URL"}, false
	}
	if err := h.Sources.Check(src); err != nil {
		log.Printf("[player] refused source %s: %v", src, err)
		return player.State{Source: src, Error: "Stream host not allowed"}, false
	}

	ctrl := player.NewController(h.NewEngine())
	defer ctrl.Close()

	if err := ctrl.Load(ctx, src); err != nil {
		log.Printf("[player] load %s: %v", src, err)
	}
	selectIndex(r, "quality", ctrl.SelectQuality)
	selectIndex(r, "audio", ctrl.SelectAudioTrack)
	selectIndex(r, "subtitles", ctrl.SelectSubtitleTrack)
	return ctrl.State(), true
}

func selectIndex(r *http.Request, key string, apply func(int) error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return
	}
	i, err := strconv.Atoi(raw)
	if err != nil {
		return
	}
	if err := apply(i); err != nil {
		log.Printf("[player] select %s=%d: %v", key, i, err)
	}
}

// Watch handles GET /watch?src=&title=.
func (h *WatchHandler) Watch(w http.ResponseWriter, r *http.Request) {
	state, ok := h.load(r.Context(), r)
	status := http.StatusOK
	if !ok {
		status = http.StatusBadRequest
	}
	h.Renderer.Render(w, r, status, "watch", watchPage{
		Title: strings.TrimSpace(r.URL.Query().Get("title")),
		State: state,
	})
}

// Manifest handles GET /api/player/manifest?src= and returns the player
// state after the playlist was parsed.
func (h *WatchHandler) Manifest(w http.ResponseWriter, r *http.Request) {
	state, ok := h.load(r.Context(), r)
	if !ok {
		jsonError(w, state.Error, http.StatusBadRequest)
		return
	}
	noStore(w)
	writeJSON(w, http.StatusOK, state)
}
