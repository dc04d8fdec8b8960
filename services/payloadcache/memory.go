package payloadcache

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type tabEntries struct {
	values  map[string][]byte
	size    int
	touched time.Time
}

// MemoryStore keeps tabs in process memory. The number of live tabs is bounded
// by an LRU; a tab idle for longer than ttl is dropped on next access.
type MemoryStore struct {
	mu    sync.Mutex
	tabs  *lru.Cache[string, *tabEntries]
	quota int
	ttl   time.Duration
	now   func() time.Time
}

// NewMemoryStore creates an in-memory store holding at most maxTabs tabs with a
// per-tab quota in bytes (keys plus values).
func NewMemoryStore(maxTabs, quotaBytes int, ttl time.Duration) (*MemoryStore, error) {
	tabs, err := lru.New[string, *tabEntries](maxTabs)
	if err != nil {
		return nil, fmt.Errorf("create tab lru: %w", err)
	}
	return &MemoryStore{
		tabs:  tabs,
		quota: quotaBytes,
		ttl:   ttl,
		now:   time.Now,
	}, nil
}

// Put stores value under key for tab, replacing any previous value. On quota
// failure the previous value is left untouched.
func (m *MemoryStore) Put(_ context.Context, tab, key string, value []byte) error {
	if tab == "" {
		return ErrNoTab
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	entries := m.liveTabLocked(tab)
	if entries == nil {
		entries = &tabEntries{values: make(map[string][]byte)}
		m.tabs.Add(tab, entries)
	}

	size := entries.size + len(key) + len(value)
	if old, ok := entries.values[key]; ok {
		size -= len(key) + len(old)
	}
	if m.quota > 0 && size > m.quota {
		return ErrQuotaExceeded
	}

	entries.values[key] = append([]byte(nil), value...)
	entries.size = size
	entries.touched = m.now()
	return nil
}

// Get returns the value stored under key for tab.
func (m *MemoryStore) Get(_ context.Context, tab, key string) ([]byte, bool, error) {
	if tab == "" {
		return nil, false, ErrNoTab
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	entries := m.liveTabLocked(tab)
	if entries == nil {
		return nil, false, nil
	}
	v, ok := entries.values[key]
	if !ok {
		return nil, false, nil
	}
	entries.touched = m.now()
	return append([]byte(nil), v...), true, nil
}

// Clear drops every key of tab.
func (m *MemoryStore) Clear(_ context.Context, tab string) error {
	if tab == "" {
		return ErrNoTab
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tabs.Remove(tab)
	return nil
}

// Tabs reports how many tabs currently hold data.
func (m *MemoryStore) Tabs() int {
	return m.tabs.Len()
}

func (m *MemoryStore) Close() error {
	m.tabs.Purge()
	return nil
}

func (m *MemoryStore) liveTabLocked(tab string) *tabEntries {
	entries, ok := m.tabs.Get(tab)
	if !ok {
		return nil
	}
	if m.ttl > 0 && !entries.touched.IsZero() && m.now().Sub(entries.touched) > m.ttl {
		m.tabs.Remove(tab)
		return nil
	}
	return entries
}
