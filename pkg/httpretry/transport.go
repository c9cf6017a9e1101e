package httpretry

import (
	"bytes"
	"io"
	"math/rand"
	"net/http"
	"time"
)

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = 500 * time.Millisecond
	defaultMaxDelay    = 5 * time.Second
	jitterWindow       = 250 * time.Millisecond
)

// Transport retries idempotent requests that fail with transient upstream
// statuses. Free-tier hosts spin machines down when idle, so the first
// request after a quiet period often lands on a cold instance and returns
// 502 or 503 until it wakes.
type Transport struct {
	// Base is the underlying round tripper. http.DefaultTransport when nil.
	Base http.RoundTripper

	// MaxAttempts caps total tries including the first one.
	MaxAttempts int

	// BaseDelay seeds the exponential backoff between attempts.
	BaseDelay time.Duration

	// MaxDelay bounds the backoff growth.
	MaxDelay time.Duration
}

// New returns a Transport with the default retry policy wrapping base.
func New(base http.RoundTripper) *Transport {
	return &Transport{Base: base}
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	attempts := t.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}
	baseDelay := t.BaseDelay
	if baseDelay <= 0 {
		baseDelay = defaultBaseDelay
	}
	maxDelay := t.MaxDelay
	if maxDelay <= 0 {
		maxDelay = defaultMaxDelay
	}

	var body []byte
	if req.Body != nil {
		buf, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		_ = req.Body.Close()
		body = buf
	}

	var resp *http.Response
	var err error
	delay := baseDelay
	for attempt := 1; attempt <= attempts; attempt++ {
		attemptReq := req
		if body != nil {
			attemptReq = req.Clone(req.Context())
			attemptReq.Body = io.NopCloser(bytes.NewReader(body))
			attemptReq.ContentLength = int64(len(body))
		}

		resp, err = base.RoundTrip(attemptReq)
		if err == nil && !retryableStatus(resp.StatusCode) {
			return resp, nil
		}
		if attempt == attempts {
			break
		}
		if resp != nil {
			// Drain so the connection can be reused.
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
			_ = resp.Body.Close()
		}

		select {
		case <-req.Context().Done():
			return nil, req.Context().Err()
		case <-time.After(withJitter(delay)):
		}
		delay = nextDelay(delay, maxDelay)
	}
	return resp, err
}

func retryableStatus(status int) bool {
	switch status {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout, http.StatusTooManyRequests:
		return true
	}
	return false
}

func nextDelay(current, max time.Duration) time.Duration {
	next := current * 2
	if next > max {
		return max
	}
	return next
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	// Top-level rand is safe for the concurrent RoundTrips sharing this
	// transport; a package-level *rand.Rand is not.
	jitter := time.Duration(rand.Int63n(int64(jitterWindow)))
	return d + jitter
}
