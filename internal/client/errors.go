package client

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed Bronto interaction so callers can reason
// about it: bad credentials are not the same as a service outage.
type ErrorKind string

const (
	KindAuthentication    ErrorKind = "authentication_error"
	KindRateLimited       ErrorKind = "rate_limited"
	KindRemoteUnavailable ErrorKind = "remote_unavailable"
	KindRemoteBadRequest  ErrorKind = "remote_bad_request"
	KindTimeout           ErrorKind = "timeout"
)

// APIError is the only error shape this package returns for remote
// failures. A non-success status is never surfaced as data.
type APIError struct {
	Kind    ErrorKind
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s (status %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// kindForStatus maps an HTTP status class to an error kind.
func kindForStatus(status int) ErrorKind {
	switch {
	case status == 401 || status == 403:
		return KindAuthentication
	case status == 429:
		return KindRateLimited
	case status >= 500:
		return KindRemoteUnavailable
	default:
		return KindRemoteBadRequest
	}
}

// messageForStatus gives the agent an actionable message per status class,
// mirroring the guidance the Bronto API documents for each failure.
func messageForStatus(status int, body string) string {
	switch {
	case status == 401:
		return "not authorised to query Bronto; check that the API key and the endpoint match"
	case status == 403:
		return "not allowed to perform this Bronto search; check the API key"
	case status == 429:
		return "Bronto rate limit exceeded; retry after a short delay"
	case status >= 500:
		return "Bronto is temporarily unavailable"
	case status == 400:
		return "a search parameter is unsuitable; check the filter syntax and the key names used in where, select and groups"
	default:
		return body
	}
}

// Kind extracts the error kind from err, or "" when err is not an APIError.
func Kind(err error) ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ""
}

// IsRetryable reports whether err is transient: rate limiting and timeouts
// may succeed on a retry, credential and request faults never do.
func IsRetryable(err error) bool {
	switch Kind(err) {
	case KindRateLimited, KindTimeout:
		return true
	default:
		return false
	}
}
