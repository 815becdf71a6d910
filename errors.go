package ddns

import "errors"

var (
	// ErrConfig marks missing or invalid configuration.
	ErrConfig = errors.New("configuration error")

	// ErrAddressUnavailable is returned when the current address could not be determined.
	ErrAddressUnavailable = errors.New("address unavailable")

	// ErrNotFound marks an absent zone or record. It is not a failure for the reconciler.
	ErrNotFound = errors.New("not found")

	// ErrAuth marks rejected credentials or missing permissions. It aborts the whole pass.
	ErrAuth = errors.New("authentication failed")

	// ErrTransport marks network, server side and unexpected API failures.
	ErrTransport = errors.New("transport error")

	// ErrResponseParse marks an API response that did not match the expected envelope.
	// The provider cannot always tell this apart from a credential problem.
	ErrResponseParse = errors.New("unparseable API response")

	ErrCreate = errors.New("create record failed")
	ErrUpdate = errors.New("update record failed")

	// ErrAborted is recorded for records skipped after a pass-fatal error.
	ErrAborted = errors.New("pass aborted")
)

// isFatal reports whether err must abort the remaining records of a pass.
func isFatal(err error) bool {
	return errors.Is(err, ErrAuth)
}

// isZoneFatal reports whether a zone lookup error must abort the pass.
// An unparseable zone response is treated like a credential failure.
func isZoneFatal(err error) bool {
	return isFatal(err) || errors.Is(err, ErrResponseParse)
}
