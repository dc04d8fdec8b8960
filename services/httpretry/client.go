// Package httpretry performs single logical outbound HTTP calls with bounded
// retries on transient failures.
package httpretry

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand/v2"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// DefaultMaxRetries gives 1 + 2 total attempts.
	DefaultMaxRetries     = 2
	DefaultAttemptTimeout = 8 * time.Second
	DefaultBaseDelay      = 300 * time.Millisecond
	DefaultMaxJitter      = 150 * time.Millisecond
	// MaxRetryAfter caps server supplied Retry-After hints.
	MaxRetryAfter = 30 * time.Second

	maxBodyBytes = 10 << 20
)

var attemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "movieverse_upstream_attempts_total",
	Help: "Outbound upstream attempts by target and outcome.",
}, []string{"target", "outcome"})

// Call describes one logical outbound request.
type Call struct {
	Method         string
	URL            string
	Header         http.Header
	Body           []byte
	MaxRetries     int
	AttemptTimeout time.Duration
}

// Response is a fully buffered upstream response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Attempts   int
}

// OK reports whether the response status is 2xx.
func (r *Response) OK() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Err returns an *UpstreamError for non-2xx responses and nil otherwise.
func (r *Response) Err() error {
	if r.OK() {
		return nil
	}
	return &UpstreamError{Status: r.StatusCode, Body: snippet(r.Body)}
}

// Options tunes backoff for a Client.
type Options struct {
	// Target labels metrics and log lines, e.g. "tmdb".
	Target    string
	BaseDelay time.Duration
	MaxJitter time.Duration
}

// Client executes Calls against an http.Client.
type Client struct {
	httpClient *http.Client
	target     string
	baseDelay  time.Duration
	maxJitter  time.Duration

	timer  retry.Timer
	jitter func(n int64) int64
}

// New creates a Client. A nil httpClient uses a client without a global
// timeout; per-attempt deadlines come from each Call.
func New(httpClient *http.Client, opts Options) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = DefaultBaseDelay
	}
	if opts.MaxJitter < 0 {
		opts.MaxJitter = 0
	}
	if strings.TrimSpace(opts.Target) == "" {
		opts.Target = "upstream"
	}
	return &Client{
		httpClient: httpClient,
		target:     opts.Target,
		baseDelay:  opts.BaseDelay,
		maxJitter:  opts.MaxJitter,
		jitter:     rand.Int64N,
	}
}

// Do runs call until it succeeds, fails permanently or runs out of attempts.
//
// A 2xx or a non-retryable status is returned immediately. 429 and 5xx are
// retried; when attempts run out the last such response is returned with a nil
// error. Transport failures (including per-attempt timeouts) are retried and,
// once exhausted, returned as *TransportError.
func (c *Client) Do(ctx context.Context, call Call) (*Response, error) {
	if call.Method == "" {
		call.Method = http.MethodGet
	}
	if call.MaxRetries < 0 {
		call.MaxRetries = 0
	}

	var (
		attempt int
		last    *Response
	)

	opts := []retry.Option{
		retry.Context(ctx),
		retry.Attempts(uint(call.MaxRetries) + 1),
		retry.LastErrorOnly(true),
		retry.DelayType(func(_ uint, err error, _ *retry.Config) time.Duration {
			delay := c.backoff(attempt, err)
			log.Printf("[httpretry] %s: %v, retrying in %v (attempt %d/%d)",
				c.target, err, delay, attempt, call.MaxRetries+1)
			return delay
		}),
	}
	if c.timer != nil {
		opts = append(opts, retry.WithTimer(c.timer))
	}

	err := retry.Do(func() error {
		attempt++
		resp, err := c.attempt(ctx, call)
		if err != nil {
			attemptsTotal.WithLabelValues(c.target, "transport_error").Inc()
			return err
		}
		resp.Attempts = attempt
		last = resp
		if retryableStatus(resp.StatusCode) {
			attemptsTotal.WithLabelValues(c.target, "retryable_status").Inc()
			return &statusError{resp: resp}
		}
		attemptsTotal.WithLabelValues(c.target, outcomeLabel(resp.StatusCode)).Inc()
		return nil
	}, opts...)

	if err == nil {
		return last, nil
	}

	var se *statusError
	if errors.As(err, &se) {
		log.Printf("[httpretry] %s: giving up after %d attempts with status %d", c.target, attempt, se.resp.StatusCode)
		return se.resp, nil
	}

	var te *TransportError
	if errors.As(err, &te) {
		te.Attempts = attempt
		return nil, te
	}
	// Cancellation while sleeping between attempts.
	return nil, &TransportError{Err: err, Attempts: attempt}
}

func (c *Client) attempt(ctx context.Context, call Call) (*Response, error) {
	attemptCtx := ctx
	cancel := context.CancelFunc(func() {})
	if call.AttemptTimeout > 0 {
		attemptCtx, cancel = context.WithTimeout(ctx, call.AttemptTimeout)
	}
	defer cancel()

	var body io.Reader
	if call.Body != nil {
		body = bytes.NewReader(call.Body)
	}
	req, err := http.NewRequestWithContext(attemptCtx, call.Method, call.URL, body)
	if err != nil {
		return nil, retry.Unrecoverable(&TransportError{Err: fmt.Errorf("build request: %w", err)})
	}
	if call.Header != nil {
		req.Header = call.Header.Clone()
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.transportError(ctx, attemptCtx, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, c.transportError(ctx, attemptCtx, fmt.Errorf("read body: %w", err))
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       data,
	}, nil
}

// transportError classifies a failed attempt. Caller cancellation is never
// retried; an expired per-attempt deadline is a retryable timeout.
func (c *Client) transportError(parent, attemptCtx context.Context, err error) error {
	if parent.Err() != nil {
		return retry.Unrecoverable(&TransportError{Err: parent.Err()})
	}
	timeout := errors.Is(attemptCtx.Err(), context.DeadlineExceeded)
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		timeout = true
	}
	return &TransportError{Err: err, Timeout: timeout}
}

// backoff picks the delay after the given (1-based) failed attempt.
func (c *Client) backoff(attempt int, err error) time.Duration {
	var se *statusError
	if errors.As(err, &se) {
		if d, ok := RetryAfter(se.resp.Header, time.Now()); ok {
			return d
		}
	}
	if attempt < 1 {
		attempt = 1
	}
	delay := c.baseDelay << uint(attempt-1)
	if c.maxJitter > 0 {
		delay += time.Duration(c.jitter(int64(c.maxJitter)))
	}
	return delay
}

// RetryAfter parses a Retry-After header given in seconds or as an HTTP date.
// The result is capped at MaxRetryAfter.
func RetryAfter(h http.Header, now time.Time) (time.Duration, bool) {
	v := strings.TrimSpace(h.Get("Retry-After"))
	if v == "" {
		return 0, false
	}
	var d time.Duration
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		if secs < 0 {
			return 0, false
		}
		d = time.Duration(secs * float64(time.Second))
	} else if at, err := http.ParseTime(v); err == nil {
		d = at.Sub(now)
		if d < 0 {
			d = 0
		}
	} else {
		return 0, false
	}
	if d > MaxRetryAfter {
		d = MaxRetryAfter
	}
	return d, true
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || (code >= 500 && code < 600)
}

func outcomeLabel(code int) string {
	if code >= 200 && code < 300 {
		return "ok"
	}
	return "client_error"
}

func snippet(body []byte) string {
	const limit = 512
	s := strings.TrimSpace(string(body))
	if len(s) > limit {
		return s[:limit]
	}
	return s
}
