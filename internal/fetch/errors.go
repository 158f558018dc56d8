package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotRetrieved is returned once every download attempt for a URL has
	// failed. Callers treat it as "skip this source".
	ErrNotRetrieved = errors.New("document not retrieved")
	// ErrPermanent marks failures that retrying cannot fix: bad schemes,
	// rejected content types and non-retryable HTTP statuses.
	ErrPermanent = errors.New("permanent failure")
)

// StatusError reports a non-success HTTP status.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d for %s", e.Code, e.URL)
}

// Is lets errors.Is(err, ErrPermanent) match statuses that will not change
// on retry.
func (e *StatusError) Is(target error) bool {
	return target == ErrPermanent && !transientStatus(e.Code)
}

func transientStatus(code int) bool {
	switch {
	case code >= 500 && code <= 599:
		return true
	case code == http.StatusRequestTimeout, code == http.StatusTooManyRequests:
		return true
	}
	return false
}

// isTransient reports whether another attempt could succeed. Transport
// errors and per-attempt timeouts are transient; cancellation is not.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrPermanent) || errors.Is(err, context.Canceled) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return transientStatus(se.Code)
	}
	return true
}
