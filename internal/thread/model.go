package thread

import (
	"context"
	"time"
)

// SignalKind names the relations a conversation partner can be derived
// from. There is no contacts table; the partner set is implied by these.
type SignalKind string

const (
	// KindDirectMessage: a direct_messages row the user sent or received.
	KindDirectMessage SignalKind = "direct_message"
	// KindJobApplicant: someone applied to a job the user owns.
	KindJobApplicant SignalKind = "job_applicant"
	// KindJobOwner: the user applied to a job someone else owns.
	KindJobOwner SignalKind = "job_owner"
)

// Signal is one external fact implying a counterparty exists.
type Signal struct {
	CounterpartyID string
	At             time.Time
	// Preview carries the message body for direct-message signals; empty
	// for application-derived signals.
	Preview string
}

// Thread is a discovered conversation partner, as the inbox renders it.
// Recomputed on every listing; never persisted.
type Thread struct {
	OtherID     string     `json:"other_id"`
	OtherName   string     `json:"other_name"`
	LastMessage string     `json:"last_message,omitempty"`
	LastTime    *time.Time `json:"last_time,omitempty"`
}

// Source is what discovery needs from the data access layer.
type Source interface {
	FetchRelationSignals(ctx context.Context, userID string, kind SignalKind) ([]Signal, error)
	ResolveDisplayNames(ctx context.Context, ids []string) (map[string]string, error)
}
