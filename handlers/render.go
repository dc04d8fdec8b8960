package handlers

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"net/url"
	"strconv"

	"movieverse/config"
	"movieverse/internal/visitor"
	"movieverse/models"
	"movieverse/services/player"
	"movieverse/utils"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{
	"home", "list", "movie", "series", "request_search", "request_detail",
	"watch", "notfound", "error",
}

// Renderer executes the embedded page templates inside the shared layout.
type Renderer struct {
	pages  map[string]*template.Template
	images config.ImageSettings
}

// NewRenderer parses every page template up front so that a broken template
// fails at startup.
func NewRenderer(images config.ImageSettings) (*Renderer, error) {
	funcs := template.FuncMap{
		"formatTime": player.FormatTime,
		// bound per request in Render
		"link":  func(target string, kv ...any) string { return tabLink(target, "", kv...) },
		"tabID": func() string { return "" },
	}
	r := &Renderer{pages: make(map[string]*template.Template, len(pageNames)), images: images}
	for _, name := range pageNames {
		t, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// Render writes page name with status. Links rendered through "link" keep
// the tab session of req. Output is buffered so a template error never leaves
// a half-written page.
func (r *Renderer) Render(w http.ResponseWriter, req *http.Request, status int, name string, data any) {
	page, ok := r.pages[name]
	if !ok {
		http.Error(w, "unknown page "+name, http.StatusInternalServerError)
		return
	}
	t, err := page.Clone()
	if err != nil {
		log.Printf("[pages] clone %s failed: %v", name, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	tab := visitor.TabID(req)
	t.Funcs(template.FuncMap{
		"link":  func(target string, kv ...any) string { return tabLink(target, tab, kv...) },
		"tabID": func() string { return tab },
	})

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		log.Printf("[pages] render %s failed: %v", name, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

// tabLink adds the kv query pairs and the tab session id to target. Targets
// that do not parse are returned unchanged.
func tabLink(target, tab string, kv ...any) string {
	u, err := url.Parse(target)
	if err != nil {
		return target
	}
	q := u.Query()
	for i := 0; i+1 < len(kv); i += 2 {
		q.Set(fmt.Sprint(kv[i]), fmt.Sprint(kv[i+1]))
	}
	if tab != "" {
		q.Set(visitor.TabParam, tab)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func (r *Renderer) poster(path string) string {
	return utils.ImageURL(r.images.PosterBase, path, r.images.Placeholder)
}

func (r *Renderer) backdrop(path string) string {
	if path == "" {
		return ""
	}
	return utils.ImageURL(r.images.BackdropBase, path, "")
}

// card is one activatable list entry. Payload is the raw JSON handed to the
// payload cache by POST /open.
type card struct {
	Route   string
	Title   string
	Year    string
	Rating  string
	Poster  string
	Payload string
}

func (r *Renderer) cards(kind models.Kind, routePrefix string, raws []json.RawMessage) []card {
	out := make([]card, 0, len(raws))
	for _, raw := range raws {
		item, err := models.Normalize(kind, raw)
		if err != nil || item.ID == "" {
			continue
		}
		out = append(out, card{
			Route:   routePrefix + item.ID,
			Title:   item.Title,
			Year:    year(item.ReleaseDate),
			Rating:  rating(item.VoteAverage),
			Poster:  r.poster(item.PosterPath),
			Payload: string(raw),
		})
	}
	return out
}

func year(date string) string {
	if len(date) >= 4 {
		return date[:4]
	}
	return ""
}

func rating(v *float64) string {
	if v == nil || *v <= 0 {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 1, 64)
}

func runtimeLabel(minutes *int) string {
	if minutes == nil || *minutes <= 0 {
		return ""
	}
	if *minutes < 60 {
		return fmt.Sprintf("%dm", *minutes)
	}
	return fmt.Sprintf("%dh %dm", *minutes/60, *minutes%60)
}

// jsonError writes the standard {"error": "..."} body.
func jsonError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": message,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[api] encode response failed: %v", err)
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return fallback
	}
	return v
}
