package relay

import (
	"log/slog"
	"net/url"
	"strings"
)

// Manifest MIME types that trigger playlist rewriting. Binary segment
// responses never match and stream through untouched.
var manifestContentTypes = []string{
	"application/vnd.apple.mpegurl",
	"application/x-mpegurl",
	"audio/x-mpegurl",
}

const manifestExtension = ".m3u8"

// IsManifest reports whether a relay response should be treated as an HLS
// playlist, based on the upstream content type or the target URL's extension.
func IsManifest(contentType, target string) bool {
	ct := strings.ToLower(contentType)
	for _, mt := range manifestContentTypes {
		if strings.Contains(ct, mt) {
			return true
		}
	}
	if u, err := url.Parse(target); err == nil {
		return strings.HasSuffix(u.Path, manifestExtension)
	}
	return strings.HasSuffix(target, manifestExtension)
}

// WrapTarget returns the relay-routed form of an absolute URL, so the next
// request for that resource also flows through the relay.
func WrapTarget(absolute string) string {
	return "/relay?url=" + url.QueryEscape(absolute)
}

// Rewriter rewrites HLS playlists so every referenced URI is routed back
// through the relay. Tag and comment lines are preserved byte-for-byte.
type Rewriter struct {
	log *slog.Logger
}

// NewRewriter returns a Rewriter that logs per-line resolution failures
// to log.
func NewRewriter(log *slog.Logger) *Rewriter {
	return &Rewriter{log: log}
}

// Rewrite processes manifest text fetched from sourceURL. Line count and
// ordering are preserved exactly. Every URI line is resolved to its absolute
// form and replaced with a relay-wrapped URL; a line that fails to resolve is
// logged and passed through unchanged rather than aborting the rewrite.
func (rw *Rewriter) Rewrite(manifest, sourceURL string) string {
	lines := strings.Split(manifest, "\n")

	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		absolute, err := Resolve(sourceURL, line)
		if err != nil {
			rw.log.Warn("failed to resolve manifest line",
				slog.String("line", line),
				slog.String("source", sourceURL),
				slog.String("error", err.Error()))
			continue
		}
		lines[i] = WrapTarget(absolute)
	}

	return strings.Join(lines, "\n")
}
