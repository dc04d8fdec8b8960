package api

import (
	"encoding/json"
	"log"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"movieverse/internal/visitor"
	"movieverse/models"
)

const (
	ProfileCookie = "mv_profile"
	profileMaxAge = 400 * 24 * time.Hour
)

var (
	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "movieverse_http_request_duration_seconds",
		Help:    "HTTP request latency by route template and status.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method", "status"})
)

// VisitorMiddleware resolves the visitor identities. The tab session comes
// from the tab query parameter or header so that every browser tab keeps its
// own; a request without one starts a fresh tab. The profile is a long-lived
// cookie shared by all tabs. Missing or malformed ids are replaced.
func VisitorMiddleware(secure bool) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			v := models.Visitor{
				TabID:     tabID(r),
				ProfileID: cookieID(r, ProfileCookie),
			}
			if v.TabID == "" {
				v.TabID = uuid.NewString()
			}
			if v.ProfileID == "" {
				v.ProfileID = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     ProfileCookie,
					Value:    v.ProfileID,
					Path:     "/",
					MaxAge:   int(profileMaxAge / time.Second),
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			next.ServeHTTP(w, r.WithContext(visitor.WithVisitor(r.Context(), v)))
		})
	}
}

func cookieID(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return parseID(c.Value)
}

func tabID(r *http.Request) string {
	if id := parseID(r.URL.Query().Get(visitor.TabParam)); id != "" {
		return id
	}
	return parseID(r.Header.Get(visitor.TabHeader))
}

func parseID(raw string) string {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return id.String()
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (s *statusRecorder) WriteHeader(code int) {
	if !s.wrote {
		s.status = code
		s.wrote = true
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if !s.wrote {
		s.status = http.StatusOK
		s.wrote = true
	}
	return s.ResponseWriter.Write(b)
}

func (s *statusRecorder) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// AccessLogMiddleware logs one line per request and records latency metrics.
func AccessLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start)

		route := "unmatched"
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		requestDuration.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).Observe(elapsed.Seconds())

		if r.URL.Path == "/api/health" || strings.HasPrefix(r.URL.Path, "/static/") {
			return
		}
		log.Printf("[http] %s %s %d %s %s", r.Method, r.URL.Path, rec.status, elapsed.Round(time.Millisecond), ClientIP(r))
	})
}

// RecoverMiddleware turns handler panics into a 500.
func RecoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				log.Printf("[http] panic serving %s %s: %v\n%s", r.Method, r.URL.Path, p, debug.Stack())
				if strings.HasPrefix(r.URL.Path, "/api/") {
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{"error": "internal server error"})
					return
				}
				http.Error(w, "Something went wrong.", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
