package relay

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrMissingTarget is returned when the relay request has no url parameter.
	ErrMissingTarget = errors.New("url parameter is required")

	// ErrBadTarget is returned when the target is not a syntactically valid
	// absolute http or https URL.
	ErrBadTarget = errors.New("invalid target url")

	// ErrTimeout is returned when the upstream fetch exceeded its deadline.
	ErrTimeout = errors.New("upstream request timed out")

	// ErrNetwork is returned on DNS or connection failures reaching the upstream.
	ErrNetwork = errors.New("unable to reach target server")
)

// UpstreamStatusError reports a non-2xx response from the upstream server.
// The upstream status is passed through to the relay's own response.
type UpstreamStatusError struct {
	Status int
	URL    string
}

func (e *UpstreamStatusError) Error() string {
	return fmt.Sprintf("target server responded with: %d %s", e.Status, http.StatusText(e.Status))
}

// HTTPStatus maps a fetch error to the status code the relay responds with.
func HTTPStatus(err error) int {
	var upstream *UpstreamStatusError
	switch {
	case errors.Is(err, ErrMissingTarget), errors.Is(err, ErrBadTarget):
		return http.StatusBadRequest
	case errors.Is(err, ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, ErrNetwork):
		return http.StatusBadGateway
	case errors.As(err, &upstream):
		return upstream.Status
	default:
		return http.StatusInternalServerError
	}
}
