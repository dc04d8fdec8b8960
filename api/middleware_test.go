package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"movieverse/internal/visitor"
	"movieverse/models"
)

func captureVisitor(got *models.Visitor) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*got = visitor.FromRequest(r)
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestVisitorMiddleware_MintsIdentities(t *testing.T) {
	var got models.Visitor
	h := VisitorMiddleware(false)(captureVisitor(&got))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if _, err := uuid.Parse(got.TabID); err != nil {
		t.Fatalf("expected uuid tab id, got %q", got.TabID)
	}
	if _, err := uuid.Parse(got.ProfileID); err != nil {
		t.Fatalf("expected uuid profile id, got %q", got.ProfileID)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != ProfileCookie {
		t.Fatalf("expected only the profile cookie, got %v", cookies)
	}
	if cookies[0].Value != got.ProfileID || cookies[0].MaxAge <= 0 {
		t.Fatalf("expected persistent profile cookie, got %+v", cookies[0])
	}
}

func TestVisitorMiddleware_TabFromQueryOrHeader(t *testing.T) {
	var got models.Visitor
	h := VisitorMiddleware(false)(captureVisitor(&got))
	fromQuery, fromHeader := uuid.NewString(), uuid.NewString()

	req := httptest.NewRequest(http.MethodGet, "/movies/42?tab="+fromQuery, nil)
	req.Header.Set(visitor.TabHeader, fromHeader)
	h.ServeHTTP(httptest.NewRecorder(), req)
	if got.TabID != fromQuery {
		t.Fatalf("expected query tab %s, got %s", fromQuery, got.TabID)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/cache?route=/movies/42", nil)
	req.Header.Set(visitor.TabHeader, fromHeader)
	h.ServeHTTP(httptest.NewRecorder(), req)
	if got.TabID != fromHeader {
		t.Fatalf("expected header tab %s, got %s", fromHeader, got.TabID)
	}
}

func TestVisitorMiddleware_TabsDoNotShareIdentity(t *testing.T) {
	var got models.Visitor
	h := VisitorMiddleware(false)(captureVisitor(&got))
	profile := uuid.NewString()

	// two tabs of one browser share the profile cookie only
	first := httptest.NewRequest(http.MethodGet, "/", nil)
	first.AddCookie(&http.Cookie{Name: ProfileCookie, Value: profile})
	h.ServeHTTP(httptest.NewRecorder(), first)
	tabA := got.TabID

	second := httptest.NewRequest(http.MethodGet, "/", nil)
	second.AddCookie(&http.Cookie{Name: ProfileCookie, Value: profile})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, second)

	if got.TabID == tabA {
		t.Fatalf("expected a distinct tab id, both got %s", tabA)
	}
	if got.ProfileID != profile {
		t.Fatalf("expected profile %s, got %s", profile, got.ProfileID)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Errorf("expected no Set-Cookie, got %v", rec.Result().Cookies())
	}
}

func TestVisitorMiddleware_ReplacesMalformedIDs(t *testing.T) {
	var got models.Visitor
	h := VisitorMiddleware(false)(captureVisitor(&got))

	req := httptest.NewRequest(http.MethodGet, "/?tab=..%2F..%2Fetc", nil)
	req.AddCookie(&http.Cookie{Name: ProfileCookie, Value: "../../etc"})
	h.ServeHTTP(httptest.NewRecorder(), req)

	if _, err := uuid.Parse(got.TabID); err != nil {
		t.Fatalf("expected a fresh tab id, got %q", got.TabID)
	}
	if _, err := uuid.Parse(got.ProfileID); err != nil {
		t.Fatalf("expected a fresh profile id, got %q", got.ProfileID)
	}
}

func TestRecoverMiddleware(t *testing.T) {
	panicky := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { panic("boom") })
	h := RecoverMiddleware(panicky)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected JSON error for API path, got %q", ct)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/movies", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestAccessLogMiddleware_PassesThrough(t *testing.T) {
	r := mux.NewRouter()
	r.Use(AccessLogMiddleware)
	r.HandleFunc("/movies/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/movies/1", nil))
	if rec.Code != http.StatusTeapot {
		t.Fatalf("expected 418, got %d", rec.Code)
	}
}
