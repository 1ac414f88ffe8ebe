package relay

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"watchparty/internal/platform/metrics"
)

const fallbackContentType = "application/octet-stream"

// Upstream headers forwarded to the client on a successful relay response.
var forwardedHeaders = []string{
	"Content-Length",
	"Content-Encoding",
	"Date",
	"Last-Modified",
	"Etag",
}

var allowedRequestHeaders = strings.Join([]string{
	"Content-Type",
	"Authorization",
	"Origin",
	"Referer",
	"X-Stream-Type",
	"X-Original-Url",
}, ", ")

// Handler exposes the relay HTTP endpoint: it fetches third-party media on
// the client's behalf, rewrites playlists so nested references also route
// through the relay, and streams everything else as-is.
type Handler struct {
	fetcher  *Fetcher
	rewriter *Rewriter
	log      *slog.Logger
	metrics  *metrics.Metrics
}

// NewHandler returns a Handler using the given Fetcher, Rewriter, Logger, and
// optional Metrics. Metrics may be nil to disable metric recording (e.g. in tests).
func NewHandler(fetcher *Fetcher, rewriter *Rewriter, log *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{fetcher: fetcher, rewriter: rewriter, log: log, metrics: m}
}

// Relay handles GET /relay?url=<percent-encoded-absolute-url>.
// The optional x-stream-type header selects provider-specific header spoofing.
func (h *Handler) Relay(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("url")
	if target == "" {
		h.log.Debug("relay request missing url parameter")
		h.writeError(w, ErrMissingTarget, "")
		return
	}

	streamType := r.Header.Get("x-stream-type")

	result, err := h.fetcher.Fetch(r.Context(), target, streamType)
	if err != nil {
		// A client that disconnected mid-fetch cannot receive a response;
		// it is not an upstream failure.
		if errors.Is(err, context.Canceled) {
			h.log.Debug("relay request canceled by client", slog.String("url", target))
			return
		}
		h.log.Info("relay fetch failed",
			slog.String("url", target),
			slog.Int("status", HTTPStatus(err)),
			slog.String("error", err.Error()))
		if h.metrics != nil {
			h.metrics.IncUpstreamErrors()
		}
		h.writeError(w, err, target)
		return
	}
	defer result.Close()

	writeCORSHeaders(w)
	// Anti-caching applies to the relay's own response envelope regardless
	// of what the upstream said.
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")

	contentType := result.ContentType
	if contentType == "" {
		contentType = fallbackContentType
	}
	w.Header().Set("Content-Type", contentType)

	if IsManifest(result.ContentType, target) {
		body, err := io.ReadAll(result.Body)
		if err != nil {
			h.log.Error("reading upstream manifest failed",
				slog.String("url", target),
				slog.String("error", err.Error()))
			h.writeError(w, ErrNetwork, target)
			return
		}

		rewritten := h.rewriter.Rewrite(string(body), target)
		if h.metrics != nil {
			h.metrics.IncManifestRewrites()
		}

		w.WriteHeader(result.Status)
		w.Write([]byte(rewritten))
		return
	}

	for _, header := range forwardedHeaders {
		if v := result.Header.Get(header); v != "" {
			w.Header().Set(header, v)
		}
	}

	w.WriteHeader(result.Status)
	if _, err := io.Copy(w, result.Body); err != nil {
		h.log.Debug("relay stream interrupted",
			slog.String("url", target),
			slog.String("error", err.Error()))
	}
}

// Preflight handles OPTIONS /relay: CORS headers only, no body.
func (h *Handler) Preflight(w http.ResponseWriter, r *http.Request) {
	writeCORSHeaders(w)
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) writeError(w http.ResponseWriter, err error, target string) {
	writeCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(HTTPStatus(err))
	json.NewEncoder(w).Encode(map[string]string{
		"error": err.Error(),
		"url":   target,
	})
}

func writeCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", allowedRequestHeaders)
	w.Header().Set("Vary", "Origin")
}
