package githubapi

import "errors"

// ErrorKind classifies a failed GitHub API call. The batch orchestrator and
// the existence resolver branch on kinds, never on status codes.
type ErrorKind string

// Error kinds, mapped from response status codes in the gateway.
const (
	// KindUnauthenticated: missing credential or a 401. Never retried; a 401
	// also evicts the stored credential.
	KindUnauthenticated ErrorKind = "unauthenticated"
	// KindNotFound: 404. Benign during an existence check.
	KindNotFound ErrorKind = "not_found"
	// KindRateLimited: 403 with an exhausted rate-limit header.
	KindRateLimited ErrorKind = "rate_limited"
	// KindForbidden: any other 403.
	KindForbidden ErrorKind = "forbidden"
	// KindConflict: 409, typically a stale or missing blob sha on update.
	KindConflict ErrorKind = "conflict"
	// KindTransient: any other non-2xx, surfaced after retries exhaust.
	KindTransient ErrorKind = "transient"
	// KindNetwork: transport-level failure, surfaced after retries exhaust.
	KindNetwork ErrorKind = "network"
)

// APIError is the gateway's classified failure.
type APIError struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Kind)
}

// KindOf returns the ErrorKind wrapped anywhere in err's chain, or "".
func KindOf(err error) ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
