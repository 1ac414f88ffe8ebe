package relay

import (
	"fmt"
	"net/url"
	"strings"
)

// Resolve converts a playlist reference line into an absolute URL, using the
// manifest's own absolute URL as the base. Resolution rules, in priority order:
// an absolute http(s) line is used as-is; a protocol-relative line ("//host/x")
// inherits the manifest's scheme; a root-relative line ("/x") inherits scheme
// and host; anything else resolves against the manifest's directory (the path
// up to and including the last "/").
//
// line must be trimmed, non-empty, and not a tag or comment. A resolution
// failure is non-fatal for the caller: the rewriter falls back to passing the
// original line through unchanged.
func Resolve(manifestURL, line string) (string, error) {
	base, err := url.Parse(manifestURL)
	if err != nil {
		return "", fmt.Errorf("parse manifest url %q: %w", manifestURL, err)
	}

	switch {
	case strings.HasPrefix(line, "http://"), strings.HasPrefix(line, "https://"):
		return line, nil
	case strings.HasPrefix(line, "//"):
		return base.Scheme + ":" + line, nil
	case strings.HasPrefix(line, "/"):
		return base.Scheme + "://" + base.Host + line, nil
	default:
		ref, err := url.Parse(line)
		if err != nil {
			return "", fmt.Errorf("parse reference %q: %w", line, err)
		}
		return base.ResolveReference(ref).String(), nil
	}
}
