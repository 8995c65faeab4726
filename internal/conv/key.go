package conv

import (
	"fmt"
	"strings"
)

// ThreadKey identifies a conversation. A thread is either scoped to a job
// (everyone chatting about job 42 shares one log) or to a pair of users
// (direct messages). The key is the thread's identity; there is no
// "conversation" row backing it.
type ThreadKey struct {
	JobID string
	// Direct pair, stored normalized: UserA < UserB lexically, so both
	// participants derive the identical key no matter who is "self".
	UserA string
	UserB string
}

// JobThread returns the key for the chat attached to a job listing.
func JobThread(jobID string) ThreadKey {
	return ThreadKey{JobID: jobID}
}

// DirectThread returns the normalized key for a user pair.
func DirectThread(a, b string) ThreadKey {
	if b < a {
		a, b = b, a
	}
	return ThreadKey{UserA: a, UserB: b}
}

func (k ThreadKey) IsJob() bool { return k.JobID != "" }

// OtherParty returns the participant that is not self. Only meaningful for
// direct threads.
func (k ThreadKey) OtherParty(self string) string {
	if k.UserA == self {
		return k.UserB
	}
	return k.UserA
}

func (k ThreadKey) String() string {
	if k.IsJob() {
		return "job:" + k.JobID
	}
	return fmt.Sprintf("dm:%s:%s", k.UserA, k.UserB)
}

// ParseThreadKey parses the wire form produced by String:
// "job:<id>" or "dm:<user>:<user>".
func ParseThreadKey(s string) (ThreadKey, error) {
	switch {
	case strings.HasPrefix(s, "job:"):
		id := strings.TrimPrefix(s, "job:")
		if id == "" {
			return ThreadKey{}, fmt.Errorf("thread key %q: empty job id", s)
		}
		return JobThread(id), nil
	case strings.HasPrefix(s, "dm:"):
		parts := strings.SplitN(strings.TrimPrefix(s, "dm:"), ":", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return ThreadKey{}, fmt.Errorf("thread key %q: want dm:<user>:<user>", s)
		}
		return DirectThread(parts[0], parts[1]), nil
	default:
		return ThreadKey{}, fmt.Errorf("thread key %q: unknown scheme", s)
	}
}
