package common

import (
	"errors"
	"fmt"
	"net/http"
)

// Error taxonomy for the access layer. Transport failures (no HTTP response
// at all) stay plain errors and pass through to the caller untouched; they
// never trigger the refresh protocol. Everything that did produce a status
// code becomes an *HTTPError, and a 401 is the single trigger for a refresh.

// HTTPError is a custom error that captures unexpected status codes and response bodies.
type HTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("unexpected status code: %d, body: %s", e.StatusCode, string(e.Body))
}

// IsAuthFailure reports whether err is a 401 from the server, i.e. the only
// class of failure the refresh coordinator reacts to. A RefreshError is never
// an auth failure, even when its cause is a 401 from the refresh endpoint:
// once a refresh has failed the error is terminal and the two classes must
// stay disjoint for callers that branch on them.
func IsAuthFailure(err error) bool {
	if IsRefreshFailed(err) {
		return false
	}
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusUnauthorized
}

// RefreshError marks a failed session refresh. It is terminal for every
// request that was waiting on that refresh attempt: the stored token has been
// cleared and the session-expired notifier has already fired by the time a
// caller sees this error.
type RefreshError struct {
	Err error
}

func (e *RefreshError) Error() string {
	if e.Err == nil {
		return "session refresh failed"
	}
	return fmt.Sprintf("session refresh failed: %v", e.Err)
}

func (e *RefreshError) Unwrap() error {
	return e.Err
}

// IsRefreshFailed reports whether err originated from a failed refresh attempt.
func IsRefreshFailed(err error) bool {
	var refreshErr *RefreshError
	return errors.As(err, &refreshErr)
}
