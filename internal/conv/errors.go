package conv

import "errors"

// Error taxonomy for the sync engine. Adapter errors stay inside the
// adapter that hit them and surface as status; none of them ever abort a
// session.
var (
	// ErrMalformedEvent rejects an event missing its id or timestamp. The
	// event is dropped and logged, never inserted.
	ErrMalformedEvent = errors.New("conv: malformed event")

	// ErrSendFailed wraps a rejected confirm request. The optimistic
	// placeholder has been rolled back; the body is retrievable from the
	// Send for retry.
	ErrSendFailed = errors.New("conv: send failed")

	// ErrSubscriptionDropped reports a lost push channel. The listener
	// resubscribes; polling carries correctness in the interim.
	ErrSubscriptionDropped = errors.New("conv: subscription dropped")

	// ErrEmptyBody rejects a send with nothing but whitespace in it.
	ErrEmptyBody = errors.New("conv: empty message body")

	// ErrSessionClosed rejects operations on a deselected thread.
	ErrSessionClosed = errors.New("conv: session closed")
)
