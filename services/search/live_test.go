package search

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTimer struct {
	f       func()
	stopped bool
	fired   bool
}

type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (c *fakeClock) after(_ time.Duration, f func()) func() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{f: f}
	c.timers = append(c.timers, t)
	return func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		if t.fired || t.stopped {
			return false
		}
		t.stopped = true
		return true
	}
}

// fire runs every live timer inline.
func (c *fakeClock) fire() {
	c.mu.Lock()
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.fired && !t.stopped {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()
	for _, t := range due {
		t.f()
	}
}

type recorder struct {
	mu      sync.Mutex
	queries []string
	applied []Result
}

func (r *recorder) search(_ context.Context, q string) ([]json.RawMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queries = append(r.queries, q)
	return []json.RawMessage{json.RawMessage(`{"q":"` + q + `"}`)}, nil
}

func (r *recorder) apply(res Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.applied = append(r.applied, res)
}

func (r *recorder) snapshot() ([]string, []Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.queries...), append([]Result(nil), r.applied...)
}

func newFakeLive(search Func, apply func(Result)) (*Live, *fakeClock) {
	clock := &fakeClock{}
	l := NewLive(search, DefaultDebounce, apply)
	l.after = clock.after
	return l, clock
}

func TestLive_OnlyLatestQueryDispatched(t *testing.T) {
	rec := &recorder{}
	l, clock := newFakeLive(rec.search, rec.apply)
	defer l.Close()

	l.Update("a")
	l.Update("ab")
	l.Update("abc")
	clock.fire()

	queries, applied := rec.snapshot()
	assert.Equal(t, []string{"abc"}, queries)
	require.Len(t, applied, 1)
	assert.Equal(t, "abc", applied[0].Query)
	assert.NoError(t, applied[0].Err)
	assert.False(t, l.Loading())
}

func TestLive_EmptyQueryClearsWithoutCall(t *testing.T) {
	rec := &recorder{}
	l, clock := newFakeLive(rec.search, rec.apply)
	defer l.Close()

	l.Update("abc")
	l.Update("   ")
	clock.fire()

	queries, applied := rec.snapshot()
	assert.Empty(t, queries)
	require.Len(t, applied, 1)
	assert.Empty(t, applied[0].Results)
	assert.NotNil(t, applied[0].Results)
}

func TestLive_NewDispatchCancelsInflight(t *testing.T) {
	started := make(chan string, 2)
	rec := &recorder{}
	search := func(ctx context.Context, q string) ([]json.RawMessage, error) {
		started <- q
		if q == "slow" {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return rec.search(ctx, q)
	}
	l, clock := newFakeLive(search, rec.apply)
	defer l.Close()

	l.Update("slow")
	done := make(chan struct{})
	go func() {
		clock.fire()
		close(done)
	}()
	require.Equal(t, "slow", <-started)
	assert.True(t, l.Loading())

	l.Update("fast")
	clock.fire()
	require.Equal(t, "fast", <-started)
	<-done

	_, applied := rec.snapshot()
	require.Len(t, applied, 1)
	assert.Equal(t, "fast", applied[0].Query)
}

func TestLive_ErrorsAreApplied(t *testing.T) {
	rec := &recorder{}
	search := func(context.Context, string) ([]json.RawMessage, error) {
		return nil, errors.New("Search failed: 500")
	}
	l, clock := newFakeLive(search, rec.apply)
	defer l.Close()

	l.Update("x")
	clock.fire()

	_, applied := rec.snapshot()
	require.Len(t, applied, 1)
	assert.EqualError(t, applied[0].Err, "Search failed: 500")
	assert.NotNil(t, applied[0].Results)
}

func TestLive_CloseDropsPending(t *testing.T) {
	rec := &recorder{}
	l, clock := newFakeLive(rec.search, rec.apply)

	l.Update("x")
	l.Close()
	clock.fire()

	queries, applied := rec.snapshot()
	assert.Empty(t, queries)
	assert.Empty(t, applied)
}

func TestLive_RealTimerDebounce(t *testing.T) {
	rec := &recorder{}
	l := NewLive(rec.search, 20*time.Millisecond, rec.apply)
	defer l.Close()

	l.Update("a")
	l.Update("ab")
	l.Update("abc")

	require.Eventually(t, func() bool {
		_, applied := rec.snapshot()
		return len(applied) == 1
	}, time.Second, 5*time.Millisecond)

	time.Sleep(60 * time.Millisecond)
	queries, _ := rec.snapshot()
	assert.Equal(t, []string{"abc"}, queries)
}
