package conv

import (
	"context"
	"time"
)

// Store is what the sync engine needs from the data access layer. The
// concrete implementation (Postgres + Redis pub/sub) lives in
// internal/store; tests plug in fakes.
// Declaring the interface here keeps the engine decoupled from the adapter,
// same as the TokenValidator split between middleware and user.
type Store interface {
	// FetchMessages returns confirmed messages for the thread with
	// CreatedAt strictly after since, ordered ascending. A zero since
	// returns the full history.
	FetchMessages(ctx context.Context, key ThreadKey, since time.Time) ([]Message, error)

	// InsertMessage persists a new message and returns it with the
	// server-assigned id and timestamp.
	InsertMessage(ctx context.Context, key ThreadKey, senderID, body string) (Message, error)

	// SubscribeInserts opens a push channel for inserts on the thread.
	SubscribeInserts(ctx context.Context, key ThreadKey) (Subscription, error)
}

// Subscription is a live feed of inserted messages for one thread. Events
// is closed when the connection drops; callers resubscribe. Close releases
// the channel on the backend.
type Subscription interface {
	Events() <-chan Message
	Close() error
}
