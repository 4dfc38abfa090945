package registry

import (
	"errors"
	"fmt"
)

var ErrMissingDigest = errors.New("response has no Docker-Content-Digest header")

// StatusError is returned when the registry answers with a status the
// request does not accept.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s failed with status code: %d", e.Method, e.URL, e.StatusCode)
}
