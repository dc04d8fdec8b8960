// Package search implements debounced as-you-type search over the catalog.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"
)

// DefaultDebounce is the quiet period required before a query is sent.
const DefaultDebounce = 300 * time.Millisecond

// Func runs one search. It must honor ctx cancellation.
type Func func(ctx context.Context, query string) ([]json.RawMessage, error)

// Result is what a dispatched (or cleared) query produced.
type Result struct {
	Query   string
	Results []json.RawMessage
	Err     error
}

// Live coalesces a stream of keystroke queries into search calls. Only the
// latest query is dispatched once the input has been quiet for the debounce
// window. Dispatching cancels the previous in-flight call, and a cancelled
// call's result is never applied.
type Live struct {
	search   Func
	debounce time.Duration
	apply    func(Result)

	// after schedules f after d and returns a stop function.
	after func(d time.Duration, f func()) func() bool

	mu       sync.Mutex
	base     context.Context
	stop     context.CancelFunc
	seq      uint64
	pending  func() bool
	inflight context.CancelFunc
	loading  bool
	wg       sync.WaitGroup
}

// NewLive creates a Live search. apply is called from a background goroutine
// for every applied result and must be safe for concurrent use with Update.
func NewLive(search Func, debounce time.Duration, apply func(Result)) *Live {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	base, stop := context.WithCancel(context.Background())
	return &Live{
		search:   search,
		debounce: debounce,
		apply:    apply,
		after: func(d time.Duration, f func()) func() bool {
			return time.AfterFunc(d, f).Stop
		},
		base: base,
		stop: stop,
	}
}

// Update records a new input value. An empty (or blank) query clears the
// results immediately without a call.
func (l *Live) Update(query string) {
	query = strings.TrimSpace(query)

	l.mu.Lock()
	l.seq++
	seq := l.seq
	if l.pending != nil {
		l.pending()
		l.pending = nil
	}
	if query == "" {
		if l.inflight != nil {
			l.inflight()
			l.inflight = nil
		}
		l.loading = false
		l.mu.Unlock()
		l.apply(Result{Results: []json.RawMessage{}})
		return
	}
	l.wg.Add(1)
	var once sync.Once
	done := func() { once.Do(l.wg.Done) }
	stop := l.after(l.debounce, func() {
		defer done()
		l.dispatch(seq, query)
	})
	l.pending = func() bool {
		stopped := stop()
		if stopped {
			done()
		}
		return stopped
	}
	l.mu.Unlock()
}

func (l *Live) dispatch(seq uint64, query string) {
	l.mu.Lock()
	if seq != l.seq || l.base.Err() != nil {
		l.mu.Unlock()
		return
	}
	l.pending = nil
	if l.inflight != nil {
		l.inflight()
	}
	ctx, cancel := context.WithCancel(l.base)
	l.inflight = cancel
	l.loading = true
	l.mu.Unlock()

	results, err := l.search(ctx, query)

	l.mu.Lock()
	cancelled := ctx.Err() != nil
	if !cancelled {
		l.loading = false
		l.inflight = nil
	}
	l.mu.Unlock()
	cancel()

	if cancelled || errors.Is(err, context.Canceled) {
		return
	}
	if results == nil {
		results = []json.RawMessage{}
	}
	l.apply(Result{Query: query, Results: results, Err: err})
}

// Loading reports whether a dispatched call is outstanding.
func (l *Live) Loading() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loading
}

// Close cancels pending and in-flight work and waits for it to wind down.
func (l *Live) Close() {
	l.mu.Lock()
	l.seq++
	if l.pending != nil {
		l.pending()
		l.pending = nil
	}
	l.stop()
	l.mu.Unlock()
	l.wg.Wait()
}
