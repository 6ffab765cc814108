// Error taxonomy for the ServiceNow client.
//
// Every failure a caller can observe is one of the typed errors below, so
// callers branch with errors.As instead of matching message text. Validation
// errors (FieldError, EncodingError) are raised before any network call;
// the rest carry the remote status or transport diagnostic that caused them.
package servicenow

import "fmt"

// AuthError reports that ServiceNow rejected the supplied credentials.
// Returned after a 401 response that survives one forced credential refresh.
type AuthError struct {
	StatusCode int
	Body       string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("servicenow: authentication rejected (status %d): %s", e.StatusCode, e.Body)
}

// EncodingError reports a credential that cannot be represented in the
// Authorization header.
type EncodingError struct {
	Field string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("servicenow: %s contains characters outside the ASCII range and cannot be encoded for basic auth", e.Field)
}

// FieldError reports an incident field value outside its enumerated set.
// Detected before any request is sent.
type FieldError struct {
	Field   string
	Value   string
	Allowed []string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("servicenow: invalid value %q for field %s (allowed: %v)", e.Value, e.Field, e.Allowed)
}

// NotFoundError reports a table query that matched zero records.
type NotFoundError struct {
	Table string
	Query string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("servicenow: no %s record matched query %q", e.Table, e.Query)
}

// UserNotFoundError reports a user lookup during filter resolution that
// matched zero sys_user records.
type UserNotFoundError struct {
	Query string
}

func (e *UserNotFoundError) Error() string {
	return fmt.Sprintf("servicenow: no user matched %q", e.Query)
}

// AmbiguousUserError reports a user lookup during filter resolution that
// matched more than one sys_user record. The resolver never guesses.
type AmbiguousUserError struct {
	Query   string
	Matches int
}

func (e *AmbiguousUserError) Error() string {
	return fmt.Sprintf("servicenow: %d users matched %q, refusing to pick one", e.Matches, e.Query)
}

// TransportError reports a network-level failure: connection refused, DNS,
// timeout, or an unreadable response body.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("servicenow: transport failure: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RemoteError reports any other non-2xx response from ServiceNow.
type RemoteError struct {
	StatusCode int
	Body       string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("servicenow: remote error %d: %s", e.StatusCode, e.Body)
}
