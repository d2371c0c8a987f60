package kibana

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrTransport marks failures that persisted after all retries: network
// errors and server-side (5xx) responses.
var ErrTransport = errors.New("transport failure")

// StatusError is a non-success HTTP response.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	// Message is the server's explanation, when it sent one.
	Message string
	// Attempts is the number of requests sent, retries included.
	Attempts int
}

func (e *StatusError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}

	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, msg)
}

// IsStatus reports whether err carries an HTTP response with the given
// status code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

func retryable(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}
