package handlers

import (
	"net/http"
	"os"
	"runtime"
	"strings"
	"sync"
)

// BuildVersion may be set with -ldflags "-X movieverse/handlers.BuildVersion=...".
var BuildVersion string

var (
	version     string
	versionOnce sync.Once
)

type VersionHandler struct{}

type VersionResponse struct {
	Version   string `json:"version"`
	GoVersion string `json:"goVersion"`
}

func NewVersionHandler() *VersionHandler {
	return &VersionHandler{}
}

// GetVersion returns the build version, falling back to version.txt (cached
// after first read).
func GetVersion() string {
	versionOnce.Do(func() {
		if BuildVersion != "" {
			version = BuildVersion
			return
		}
		for _, path := range []string{"version.txt", "/app/version.txt"} {
			data, err := os.ReadFile(path)
			if err == nil {
				version = strings.TrimSpace(string(data))
				return
			}
		}
		version = "unknown"
	})
	return version
}

func (h *VersionHandler) GetVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{
		Version:   GetVersion(),
		GoVersion: runtime.Version(),
	})
}
