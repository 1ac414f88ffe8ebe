package relay

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestFetcher_success(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp2t")
		w.Write([]byte("segment-bytes"))
	}))
	defer upstream.Close()

	f := NewFetcher(5*time.Second, "")
	result, err := f.Fetch(context.Background(), upstream.URL, "")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	defer result.Close()

	if result.Status != http.StatusOK {
		t.Errorf("status = %d, want 200", result.Status)
	}
	if result.ContentType != "video/mp2t" {
		t.Errorf("content type = %q", result.ContentType)
	}
	body, _ := io.ReadAll(result.Body)
	if string(body) != "segment-bytes" {
		t.Errorf("body = %q", body)
	}
}

func TestFetcher_spoofedHeaders(t *testing.T) {
	var gotUA, gotOrigin, gotReferer string
	var gotCookie bool
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotOrigin = r.Header.Get("Origin")
		gotReferer = r.Header.Get("Referer")
		_, err := r.Cookie("session")
		gotCookie = err == nil
	}))
	defer upstream.Close()

	f := NewFetcher(5*time.Second, "https://provider.example.com")

	t.Run("hls_hint_sets_origin_and_referer", func(t *testing.T) {
		result, err := f.Fetch(context.Background(), upstream.URL, StreamTypeHLS)
		if err != nil {
			t.Fatal(err)
		}
		result.Close()

		if gotUA == "" || gotUA == "Go-http-client/1.1" {
			t.Errorf("expected browser-like User-Agent, got %q", gotUA)
		}
		if gotOrigin != "https://provider.example.com" {
			t.Errorf("Origin = %q", gotOrigin)
		}
		if gotReferer != "https://provider.example.com/" {
			t.Errorf("Referer = %q", gotReferer)
		}
		if gotCookie {
			t.Error("client cookies must not be forwarded upstream")
		}
	})

	t.Run("no_hint_omits_origin", func(t *testing.T) {
		result, err := f.Fetch(context.Background(), upstream.URL, "")
		if err != nil {
			t.Fatal(err)
		}
		result.Close()

		if gotOrigin != "" || gotReferer != "" {
			t.Errorf("Origin/Referer should be empty without hls hint, got %q / %q", gotOrigin, gotReferer)
		}
	})
}

func TestFetcher_badTarget(t *testing.T) {
	f := NewFetcher(time.Second, "")

	tests := []struct {
		name   string
		target string
	}{
		{"not_a_url", "not-a-url"},
		{"relative_path", "/relative/path"},
		{"missing_host", "http://"},
		{"ftp_scheme", "ftp://example.com/file.ts"},
		{"file_scheme", "file:///etc/passwd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.Fetch(context.Background(), tt.target, "")
			if !errors.Is(err, ErrBadTarget) {
				t.Errorf("Fetch(%q): expected ErrBadTarget, got %v", tt.target, err)
			}
		})
	}
}

func TestFetcher_upstreamStatus(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer upstream.Close()

	f := NewFetcher(5*time.Second, "")
	_, err := f.Fetch(context.Background(), upstream.URL, "")

	var upstreamErr *UpstreamStatusError
	if !errors.As(err, &upstreamErr) {
		t.Fatalf("expected UpstreamStatusError, got %v", err)
	}
	if upstreamErr.Status != http.StatusNotFound {
		t.Errorf("status = %d, want 404", upstreamErr.Status)
	}
	if upstreamErr.URL != upstream.URL {
		t.Errorf("error should carry the target url, got %q", upstreamErr.URL)
	}
}

func TestFetcher_networkError(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	target := upstream.URL
	upstream.Close()

	f := NewFetcher(5*time.Second, "")
	_, err := f.Fetch(context.Background(), target, "")
	if !errors.Is(err, ErrNetwork) {
		t.Errorf("expected ErrNetwork, got %v", err)
	}
}

func TestFetcher_timeout(t *testing.T) {
	release := make(chan struct{})
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer func() {
		close(release)
		upstream.Close()
	}()

	f := NewFetcher(50*time.Millisecond, "")
	_, err := f.Fetch(context.Background(), upstream.URL, "")
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("expected ErrTimeout, got %v", err)
	}
}

func TestFetcher_callerCanceled(t *testing.T) {
	release := make(chan struct{})
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer func() {
		close(release)
		upstream.Close()
	}()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	f := NewFetcher(5*time.Second, "")
	_, err := f.Fetch(ctx, upstream.URL, "")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if errors.Is(err, ErrTimeout) {
		t.Error("caller cancellation must not classify as an upstream timeout")
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"missing_target", ErrMissingTarget, http.StatusBadRequest},
		{"bad_target", ErrBadTarget, http.StatusBadRequest},
		{"timeout", ErrTimeout, http.StatusGatewayTimeout},
		{"network", ErrNetwork, http.StatusBadGateway},
		{"upstream_passthrough", &UpstreamStatusError{Status: 403}, http.StatusForbidden},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatus(tt.err); got != tt.want {
				t.Errorf("HTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
