package conv

import (
	"sort"
	"sync"
	"time"
)

// Reconciler merges everything that claims to be part of one thread's
// history — the initial bulk load, push events, poll results and local
// optimistic sends — into a single ordered, duplicate-free log.
//
// It is the only writer of the log and the cursor. Adapters deliver racing,
// overlapping views of the same data; duplicates and out-of-order arrival
// are steady state here, not errors. One mutex per thread serializes all
// ingests; threads are independent, so there is no cross-thread locking.
type Reconciler struct {
	mu  sync.Mutex
	key ThreadKey

	// entries stay ordered by (sortTS, seq). sortTS is fixed when an entry
	// is inserted; replacing a placeholder keeps its slot, so settled
	// entries never move.
	entries []logEntry
	nextSeq uint64

	// seen holds every server id currently in the log.
	seen map[string]struct{}

	// cursor is the max CreatedAt over accepted *confirmed* messages. An
	// optimistic local timestamp must never advance it, or a poll could
	// skip server messages that raced ahead of the unconfirmed send.
	cursor time.Time
}

type logEntry struct {
	msg    Message
	sortTS time.Time
	seq    uint64
}

func NewReconciler(key ThreadKey) *Reconciler {
	return &Reconciler{
		key:  key,
		seen: make(map[string]struct{}),
	}
}

// Ingest applies one live message event — a push delivery, a poll result
// or the local send confirmation. The contract:
//
//   - a server id already in the log is dropped (idempotent no-op)
//   - a confirmed message from a sender with an unmatched optimistic
//     placeholder replaces that placeholder in place
//   - anything else is inserted in (timestamp, arrival) order
//   - the cursor advances to the max confirmed timestamp seen
//
// Only a malformed event (missing id or timestamp) returns an error; it is
// never inserted.
func (r *Reconciler) Ingest(msg Message) error {
	return r.ingest(msg, true)
}

// IngestBulk applies one message from a bulk history fetch. Bulk rows are
// settled server state, never the echo of an in-flight send, so they must
// not be matched against optimistic placeholders: old history from the
// local sender would otherwise swallow a fresh send that raced the fetch.
// Everything else works like Ingest.
func (r *Reconciler) IngestBulk(msg Message) error {
	return r.ingest(msg, false)
}

func (r *Reconciler) ingest(msg Message, correlate bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if msg.CreatedAt.IsZero() {
		return ErrMalformedEvent
	}

	if msg.State == StateOptimistic {
		if msg.LocalID == "" {
			return ErrMalformedEvent
		}
		r.insert(msg)
		return nil
	}

	if msg.ID == "" {
		return ErrMalformedEvent
	}
	if _, dup := r.seen[msg.ID]; dup {
		return nil
	}

	// Correlate with an in-flight send: first unmatched placeholder from
	// the same sender, in submission order. The placeholder has no server
	// id yet, so this heuristic is the only link. If the push or poll copy
	// of the confirmation wins this race, the later local confirm response
	// hits the duplicate check above instead — both orders converge on one
	// entry.
	if correlate {
		if i := r.firstPlaceholder(msg.Sender); i >= 0 {
			e := &r.entries[i]
			local := e.msg.LocalID
			e.msg = msg
			e.msg.LocalID = local
			// slot and sortTS stay put: replacement preserves logical position
			r.seen[msg.ID] = struct{}{}
			r.advanceCursor(msg.CreatedAt)
			return nil
		}
	}

	r.insert(msg)
	r.seen[msg.ID] = struct{}{}
	r.advanceCursor(msg.CreatedAt)
	return nil
}

// Confirm settles the send identified by localID with its server row. The
// confirm response is the one event that knows which placeholder it belongs
// to, so the match is exact, not the per-sender heuristic. If the same
// server id is already in the log — a push or poll copy won the race, or a
// bulk fetch delivered the row before the insert call returned — the
// placeholder is dropped instead of replaced. Either way exactly one entry
// remains.
func (r *Reconciler) Confirm(localID string, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if msg.CreatedAt.IsZero() || msg.ID == "" {
		return ErrMalformedEvent
	}

	if _, dup := r.seen[msg.ID]; dup {
		r.removeLocked(localID)
		return nil
	}

	for i := range r.entries {
		e := &r.entries[i]
		if e.msg.State == StateOptimistic && e.msg.LocalID == localID {
			local := e.msg.LocalID
			e.msg = msg
			e.msg.LocalID = local
			r.seen[msg.ID] = struct{}{}
			r.advanceCursor(msg.CreatedAt)
			return nil
		}
	}

	r.insert(msg)
	r.seen[msg.ID] = struct{}{}
	r.advanceCursor(msg.CreatedAt)
	return nil
}

// Remove drops the optimistic placeholder for a failed send. Returns false
// if no such placeholder remains, which is normal when a push event already
// confirmed the message the insert call claimed to have failed on.
func (r *Reconciler) Remove(localID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeLocked(localID)
}

func (r *Reconciler) removeLocked(localID string) bool {
	for i := range r.entries {
		if r.entries[i].msg.LocalID == localID && r.entries[i].msg.State == StateOptimistic {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Snapshot returns the current ordered log. The slice is a copy; callers
// may hold it across further ingests.
func (r *Reconciler) Snapshot() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Message, len(r.entries))
	for i := range r.entries {
		out[i] = r.entries[i].msg
	}
	return out
}

// Cursor returns the poll watermark: fetch strictly newer than this.
func (r *Reconciler) Cursor() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cursor
}

// Len returns the number of entries in the log.
func (r *Reconciler) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// insert places msg after every entry with an earlier-or-equal sort
// timestamp. Settled entries keep their positions; equal timestamps order
// by arrival.
func (r *Reconciler) insert(msg Message) {
	e := logEntry{msg: msg, sortTS: msg.CreatedAt, seq: r.nextSeq}
	r.nextSeq++

	pos := sort.Search(len(r.entries), func(i int) bool {
		return r.entries[i].sortTS.After(e.sortTS)
	})
	r.entries = append(r.entries, logEntry{})
	copy(r.entries[pos+1:], r.entries[pos:])
	r.entries[pos] = e
}

func (r *Reconciler) firstPlaceholder(sender string) int {
	for i := range r.entries {
		if r.entries[i].msg.State == StateOptimistic && r.entries[i].msg.Sender == sender {
			return i
		}
	}
	return -1
}

func (r *Reconciler) advanceCursor(ts time.Time) {
	if ts.After(r.cursor) {
		r.cursor = ts
	}
}
