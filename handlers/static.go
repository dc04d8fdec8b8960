package handlers

import (
	"bytes"
	"embed"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/afero"
)

//go:embed static/*
var staticAssets embed.FS

// StaticHandler serves assets from an afero filesystem: the embedded bundle by
// default, or an on-disk directory when one is configured.
type StaticHandler struct {
	fs afero.Fs
}

// NewStaticHandler serves dir when set and the embedded assets otherwise.
func NewStaticHandler(dir string) *StaticHandler {
	if strings.TrimSpace(dir) != "" {
		return &StaticHandler{fs: afero.NewReadOnlyFs(afero.NewBasePathFs(afero.NewOsFs(), dir))}
	}
	staticFS, err := fs.Sub(staticAssets, "static")
	if err != nil {
		panic("failed to get static subdirectory: " + err.Error())
	}
	return &StaticHandler{fs: afero.FromIOFS{FS: staticFS}}
}

// NewStaticHandlerFS serves an arbitrary filesystem.
func NewStaticHandlerFS(fsys afero.Fs) *StaticHandler {
	return &StaticHandler{fs: fsys}
}

// ServeHTTP serves the file named by the path after /static/.
func (h *StaticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := path.Clean("/" + strings.TrimPrefix(r.URL.Path, "/static"))
	if name == "/" {
		http.NotFound(w, r)
		return
	}
	name = strings.TrimPrefix(name, "/")

	info, err := h.fs.Stat(name)
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}
	data, err := afero.ReadFile(h.fs, name)
	if err != nil {
		http.Error(w, "Failed to read asset", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentType(name, data))
	w.Header().Set("Cache-Control", "public, max-age=31536000")
	http.ServeContent(w, r, name, info.ModTime(), bytes.NewReader(data))
}

// contentType sniffs data and falls back to the extension for text formats
// the sniffer reports as plain text.
func contentType(name string, data []byte) string {
	detected := mimetype.Detect(data)
	if detected.Is("text/plain") || detected.Is("application/octet-stream") {
		if byExt := mime.TypeByExtension(path.Ext(name)); byExt != "" {
			return byExt
		}
	}
	return detected.String()
}
