package utils

import (
	"encoding/json"
	"math"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

func corsMiddleware(policy *OriginPolicy) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && policy.Allows(origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Tab-ID")
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// NewRouter constructs the base router with CORS and the health route.
// started anchors the reported uptime.
func NewRouter(policy *OriginPolicy, started time.Time) *mux.Router {
	if policy == nil {
		policy = NewOriginPolicy(nil, true)
	}
	r := mux.NewRouter()
	r.Use(corsMiddleware(policy))

	r.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		uptime := math.Round(time.Since(started).Seconds()*1000) / 1000
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{"ok": true, "uptime": uptime})
	}).Methods(http.MethodGet, http.MethodOptions)
	return r
}
