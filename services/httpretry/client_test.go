package httpretry

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// recordingTimer fires immediately and remembers every requested delay.
type recordingTimer struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordingTimer) After(d time.Duration) <-chan time.Time {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	ch := make(chan time.Time, 1)
	ch <- time.Now()
	return ch
}

func (r *recordingTimer) recorded() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

func newTestClient(timer *recordingTimer) *Client {
	c := New(nil, Options{Target: "test", BaseDelay: 300 * time.Millisecond, MaxJitter: 150 * time.Millisecond})
	c.timer = timer
	c.jitter = func(int64) int64 { return int64(100 * time.Millisecond) }
	return c
}

func TestDo_SuccessFirstAttempt(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	timer := &recordingTimer{}
	resp, err := newTestClient(timer).Do(context.Background(), Call{URL: server.URL, MaxRetries: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hits.Load() != 1 {
		t.Fatalf("expected exactly 1 attempt, got %d", hits.Load())
	}
	if resp.Attempts != 1 || resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if string(resp.Body) != `{"ok":true}` {
		t.Fatalf("unexpected body %q", resp.Body)
	}
	if len(timer.recorded()) != 0 {
		t.Fatalf("expected no sleeps, got %v", timer.recorded())
	}
}

func TestDo_RetriesServiceUnavailableUntilSuccess(t *testing.T) {
	const succeedOn = 4
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < succeedOn {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	timer := &recordingTimer{}
	resp, err := newTestClient(timer).Do(context.Background(), Call{URL: server.URL, MaxRetries: succeedOn - 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hits.Load() != succeedOn {
		t.Fatalf("expected %d attempts, got %d", succeedOn, hits.Load())
	}
	if resp.Attempts != succeedOn || !resp.OK() {
		t.Fatalf("unexpected response: %+v", resp)
	}

	delays := timer.recorded()
	if len(delays) != succeedOn-1 {
		t.Fatalf("expected %d delays, got %v", succeedOn-1, delays)
	}
	want := []time.Duration{400 * time.Millisecond, 700 * time.Millisecond, 1300 * time.Millisecond}
	for i := range delays {
		if delays[i] != want[i] {
			t.Errorf("delay %d = %v, want %v", i, delays[i], want[i])
		}
		if i > 0 && delays[i] < delays[i-1] {
			t.Errorf("delays must not decrease: %v", delays)
		}
	}
}

func TestDo_NotFoundIsNotRetried(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.NotFound(w, r)
	}))
	defer server.Close()

	resp, err := newTestClient(&recordingTimer{}).Do(context.Background(), Call{URL: server.URL, MaxRetries: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hits.Load() != 1 {
		t.Fatalf("expected exactly 1 attempt, got %d", hits.Load())
	}
	var ue *UpstreamError
	if !errors.As(resp.Err(), &ue) || ue.Status != http.StatusNotFound {
		t.Fatalf("expected upstream 404 error, got %v", resp.Err())
	}
}

func TestDo_ExhaustedRetryableStatusReturnsLastResponse(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("bad gateway"))
	}))
	defer server.Close()

	resp, err := newTestClient(&recordingTimer{}).Do(context.Background(), Call{URL: server.URL, MaxRetries: 2})
	if err != nil {
		t.Fatalf("exhausted status retries must not error, got %v", err)
	}
	if hits.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", hits.Load())
	}
	if resp.StatusCode != http.StatusBadGateway || resp.Attempts != 3 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if string(resp.Body) != "bad gateway" {
		t.Fatalf("expected last body to be preserved, got %q", resp.Body)
	}
}

func TestDo_HonorsRetryAfter(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.Header().Set("Retry-After", "2")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	timer := &recordingTimer{}
	if _, err := newTestClient(timer).Do(context.Background(), Call{URL: server.URL, MaxRetries: 2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	delays := timer.recorded()
	if len(delays) != 1 || delays[0] != 2*time.Second {
		t.Fatalf("expected a single 2s Retry-After delay, got %v", delays)
	}
}

func TestDo_TimeoutEveryAttempt(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	const retries = 2
	resp, err := newTestClient(&recordingTimer{}).Do(context.Background(), Call{
		URL:            server.URL,
		MaxRetries:     retries,
		AttemptTimeout: 30 * time.Millisecond,
	})
	if resp != nil {
		t.Fatalf("expected no response, got %+v", resp)
	}
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if !te.Timeout {
		t.Fatalf("expected timeout classification, got %+v", te)
	}
	if te.Attempts != 1+retries {
		t.Fatalf("expected %d attempts, got %d", 1+retries, te.Attempts)
	}
	if hits.Load() != 1+retries {
		t.Fatalf("server saw %d attempts, want %d", hits.Load(), 1+retries)
	}
}

func TestDo_CallerCancellationStopsRetrying(t *testing.T) {
	var hits atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		cancel()
		<-r.Context().Done()
	}))
	defer server.Close()

	_, err := newTestClient(&recordingTimer{}).Do(ctx, Call{URL: server.URL, MaxRetries: 5})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if hits.Load() != 1 {
		t.Fatalf("expected a single attempt, got %d", hits.Load())
	}
}

func TestDo_ReplaysRequestBody(t *testing.T) {
	var (
		mu     sync.Mutex
		bodies []string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, string(data))
		count := len(bodies)
		mu.Unlock()
		if count == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	resp, err := newTestClient(&recordingTimer{}).Do(context.Background(), Call{
		Method:     http.MethodPost,
		URL:        server.URL,
		Body:       []byte(`{"a":1}`),
		MaxRetries: 1,
	})
	if err != nil || resp.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected result: %+v %v", resp, err)
	}
	if len(bodies) != 2 || bodies[0] != `{"a":1}` || bodies[1] != `{"a":1}` {
		t.Fatalf("body not replayed: %q", bodies)
	}
}

func TestRetryAfter(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		value string
		want  time.Duration
		ok    bool
	}{
		{"", 0, false},
		{"3", 3 * time.Second, true},
		{"0.5", 500 * time.Millisecond, true},
		{"120", MaxRetryAfter, true},
		{"-1", 0, false},
		{"soon", 0, false},
		{now.Add(5 * time.Second).Format(http.TimeFormat), 5 * time.Second, true},
	}
	for _, tt := range tests {
		h := http.Header{}
		if tt.value != "" {
			h.Set("Retry-After", tt.value)
		}
		got, ok := RetryAfter(h, now)
		if ok != tt.ok || got != tt.want {
			t.Errorf("RetryAfter(%q) = %v,%v want %v,%v", tt.value, got, ok, tt.want, tt.ok)
		}
	}
}
