package httpretry

import "fmt"

// UpstreamError reports that the upstream answered with a non-success status.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned status %d", e.Status)
}

// TransportError reports that a call could not complete (network failure or
// per-attempt timeout) after all attempts.
type TransportError struct {
	Err      error
	Timeout  bool
	Attempts int
}

func (e *TransportError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("upstream timed out: %v", e.Err)
	}
	return fmt.Sprintf("upstream unreachable: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// statusError carries a retryable response through the retry loop.
type statusError struct {
	resp *Response
}

func (e *statusError) Error() string {
	return fmt.Sprintf("retryable status %d", e.resp.StatusCode)
}
