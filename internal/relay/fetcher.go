package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultTimeout bounds every upstream fetch. Exceeding it aborts the
// request and maps to a 504 on the relay's own response.
const DefaultTimeout = 30 * time.Second

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// StreamTypeHLS is the x-stream-type header value requesting provider-specific
// Origin/Referer spoofing on the upstream request.
const StreamTypeHLS = "hls"

// Result is a successful upstream fetch. Body streams the upstream response;
// the caller must Close it, which also releases the request's deadline.
type Result struct {
	Status      int
	ContentType string
	Header      http.Header
	Body        io.ReadCloser

	cancel context.CancelFunc
}

// Close releases the response body and the fetch deadline.
func (r *Result) Close() {
	r.Body.Close()
	r.cancel()
}

// Fetcher issues upstream requests on the client's behalf with browser-like
// headers, a bounded deadline, and no forwarding of client credentials.
type Fetcher struct {
	client       *http.Client
	timeout      time.Duration
	streamOrigin string
}

// NewFetcher returns a Fetcher with the given per-request timeout and the
// origin used to spoof Origin/Referer for HLS providers that require it.
// A timeout <= 0 falls back to DefaultTimeout.
func NewFetcher(timeout time.Duration, streamOrigin string) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Fetcher{
		// No cookie jar: client credentials are never forwarded upstream.
		client:       &http.Client{},
		timeout:      timeout,
		streamOrigin: streamOrigin,
	}
}

// Fetch requests target and classifies the outcome. A malformed or
// non-http(s) target fails with ErrBadTarget; a non-2xx upstream response
// fails with UpstreamStatusError; deadline expiry fails with ErrTimeout and
// DNS/connect failures with ErrNetwork. Cancellation of the caller's ctx
// fails with context.Canceled, not ErrTimeout. On success the caller owns
// the Result and must Close it.
func (f *Fetcher) Fetch(ctx context.Context, target, streamType string) (*Result, error) {
	parsed, err := url.Parse(target)
	if err != nil || !parsed.IsAbs() || parsed.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrBadTarget, target)
	}
	// Non-HTTP(S) schemes are rejected outright rather than attempted.
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrBadTarget, parsed.Scheme)
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %q", ErrBadTarget, target)
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")

	if streamType == StreamTypeHLS && f.streamOrigin != "" {
		req.Header.Set("Origin", f.streamOrigin)
		req.Header.Set("Referer", f.streamOrigin+"/")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		cancel()
		// The caller going away is not an upstream timeout.
		if errors.Is(err, context.Canceled) {
			return nil, context.Canceled
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		status := resp.StatusCode
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		cancel()
		return nil, &UpstreamStatusError{Status: status, URL: target}
	}

	return &Result{
		Status:      resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Header:      resp.Header,
		Body:        resp.Body,
		cancel:      cancel,
	}, nil
}
