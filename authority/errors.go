package authority

import "errors"

// Failure taxonomy for calls to the remote authentication service. The
// session manager collapses all three into the same recovery behavior, but
// consumers and tests can still tell them apart with errors.Is.
var (
	// ErrUnreachable means the authority could not be reached or did not
	// answer with a usable status.
	ErrUnreachable = errors.New("authority unreachable")

	// ErrRejected means the authority was reached and refused the
	// credential or principal.
	ErrRejected = errors.New("credential rejected")

	// ErrMalformedResponse means the authority answered with a body that
	// violates the expected shape.
	ErrMalformedResponse = errors.New("malformed authority response")
)
