package conv

import "time"

// ---------------------------------------------
// Message & delivery lifecycle
// ---------------------------------------------

// DeliveryState tracks how far a message has made it towards the backend.
type DeliveryState string

const (
	// StateOptimistic marks a locally composed message rendered before the
	// backend confirmed it. It has a LocalID but no server ID yet.
	StateOptimistic DeliveryState = "optimistic"
	// StateConfirmed marks a message the backend has persisted. Confirmed
	// messages are immutable.
	StateConfirmed DeliveryState = "confirmed"
)

// Message is one entry in a conversation log.
type Message struct {
	// ID is the server-assigned identifier. Empty while optimistic.
	ID string `json:"id,omitempty"`
	// LocalID correlates an optimistic placeholder with its in-flight send.
	LocalID   string        `json:"local_id,omitempty"`
	Thread    string        `json:"thread"`
	Sender    string        `json:"sender"`
	Body      string        `json:"body"`
	CreatedAt time.Time     `json:"created_at"`
	State     DeliveryState `json:"state"`
}

// Confirmed reports whether the backend has persisted this message.
func (m Message) Confirmed() bool { return m.State == StateConfirmed }
