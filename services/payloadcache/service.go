// Package payloadcache hands a clicked card's payload to the detail page it
// links to without a second catalog round-trip.
package payloadcache

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"path"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"movieverse/models"
)

const keyPrefix = "detail:"

var opsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "movieverse_payload_cache_ops_total",
	Help: "Payload cache operations by op and result.",
}, []string{"op", "result"})

// Service applies the read/write/clear contract on top of a Store: writes and
// clears never fail the caller and reads degrade to "no data".
type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// Key derives the cache key for a destination route.
func Key(route string) string {
	route = strings.TrimSpace(route)
	if route == "" {
		return keyPrefix
	}
	if !strings.HasPrefix(route, "/") {
		route = "/" + route
	}
	return keyPrefix + path.Clean(route)
}

// Write records payload for route in tab, replacing any older record. It
// reports whether the record was stored.
func (s *Service) Write(ctx context.Context, tab, route string, payload json.RawMessage) bool {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 || !json.Valid(payload) {
		opsTotal.WithLabelValues("write", "invalid").Inc()
		return false
	}
	raw, err := json.Marshal(models.NewCacheRecord(payload, s.now()))
	if err != nil {
		opsTotal.WithLabelValues("write", "error").Inc()
		return false
	}
	if err := s.store.Put(ctx, tab, Key(route), raw); err != nil {
		log.Printf("[payloadcache] write %s failed: %v", Key(route), err)
		opsTotal.WithLabelValues("write", "error").Inc()
		return false
	}
	opsTotal.WithLabelValues("write", "ok").Inc()
	return true
}

// Read returns the payload stored for route in tab. Missing, malformed or
// unreadable records all yield ok=false.
func (s *Service) Read(ctx context.Context, tab, route string) (json.RawMessage, bool) {
	raw, ok, err := s.store.Get(ctx, tab, Key(route))
	if err != nil {
		log.Printf("[payloadcache] read %s failed: %v", Key(route), err)
		opsTotal.WithLabelValues("read", "error").Inc()
		return nil, false
	}
	if !ok {
		opsTotal.WithLabelValues("read", "miss").Inc()
		return nil, false
	}

	var rec models.CacheRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		opsTotal.WithLabelValues("read", "malformed").Inc()
		return nil, false
	}
	data := bytes.TrimSpace(rec.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		opsTotal.WithLabelValues("read", "miss").Inc()
		return nil, false
	}
	opsTotal.WithLabelValues("read", "hit").Inc()
	return data, true
}

// Clear wipes every record of tab.
func (s *Service) Clear(ctx context.Context, tab string) {
	if err := s.store.Clear(ctx, tab); err != nil {
		log.Printf("[payloadcache] clear failed: %v", err)
		opsTotal.WithLabelValues("clear", "error").Inc()
		return
	}
	opsTotal.WithLabelValues("clear", "ok").Inc()
}

// Close releases the backing store.
func (s *Service) Close() error {
	return s.store.Close()
}
