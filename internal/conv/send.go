package conv

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// sendTimeout bounds the confirm request. It runs on a detached context so
// that deselecting the thread never strands a send in Pending.
const sendTimeout = 10 * time.Second

// SendState is the lifecycle of a locally composed message.
type SendState string

const (
	// SendComposed is text sitting in the compose box, not yet submitted.
	SendComposed SendState = "composed"
	// SendPending means the placeholder is in the log and the confirm
	// request is in flight.
	SendPending SendState = "pending"
	// SendConfirmed means the backend accepted it; the placeholder has
	// been replaced by the server message.
	SendConfirmed SendState = "confirmed"
	// SendFailed means the backend rejected it; the placeholder was
	// removed and Body is available for the compose box to restore.
	SendFailed SendState = "failed"
)

// Send tracks one outgoing message from submission to resolution.
type Send struct {
	// LocalID tags the optimistic placeholder until the server id exists.
	LocalID string
	// Body is the submitted text, kept verbatim so a failed send restores
	// the compose box and nothing is lost.
	Body string

	mu    sync.Mutex
	state SendState
	msg   Message
	err   error
	done  chan struct{}
}

// State returns the current lifecycle state.
func (d *Send) State() SendState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Message returns the confirmed server message. Zero until SendConfirmed.
func (d *Send) Message() Message {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.msg
}

// Err returns the failure, wrapped in ErrSendFailed. Nil unless SendFailed.
func (d *Send) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

func (d *Send) doneCh() <-chan struct{} { return d.done }

// Wait blocks until the send resolves or ctx expires.
func (d *Send) Wait(ctx context.Context) error {
	select {
	case <-d.done:
		return d.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Send) resolveConfirmed(msg Message) {
	d.mu.Lock()
	d.state = SendConfirmed
	d.msg = msg
	d.mu.Unlock()
	close(d.done)
}

func (d *Send) resolveFailed(err error) {
	d.mu.Lock()
	d.state = SendFailed
	d.err = fmt.Errorf("%w: %v", ErrSendFailed, err)
	d.mu.Unlock()
	close(d.done)
}

// Send submits body on the session's thread. The placeholder lands in the
// log immediately so the sender sees their own message; the confirm request
// runs concurrently. On rejection the placeholder is rolled back — a failed
// send never stays visible as if delivered.
//
// The confirm response settles its own placeholder by local id. A push or
// poll copy that arrives first only has the sender to go on and matches
// placeholders in submission order; two tabs sending as the same user at
// the same instant can cross-match there. Known race, accepted.
func (s *Session) Send(body string) (*Send, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrEmptyBody
	}
	if s.ctx == nil || s.ctx.Err() != nil {
		return nil, ErrSessionClosed
	}

	d := &Send{
		LocalID: uuid.NewString(),
		Body:    body,
		state:   SendPending,
		done:    make(chan struct{}),
	}

	placeholder := Message{
		LocalID:   d.LocalID,
		Thread:    s.key.String(),
		Sender:    s.self,
		Body:      body,
		CreatedAt: time.Now(),
		State:     StateOptimistic,
	}
	s.ingest(placeholder)
	s.wake()

	go s.confirm(d)
	return d, nil
}

func (s *Session) confirm(d *Send) {
	// Detached from the session context: a send that completes after the
	// thread was deselected still resolves, its result just isn't shown.
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	msg, err := s.store.InsertMessage(ctx, s.key, s.self, d.Body)
	if err != nil {
		s.recon.Remove(d.LocalID)
		d.resolveFailed(err)
		s.wake()
		return
	}

	// Replacement, not duplication: if push, poll or the bulk fetch
	// already delivered this server id, Confirm drops the placeholder
	// instead of replacing it. Either order leaves exactly one entry.
	if err := s.recon.Confirm(d.LocalID, msg); err != nil {
		log.Printf("conv: dropping confirmation on %s: %v", s.key, err)
	}
	d.resolveConfirmed(msg)
	s.wake()
}
