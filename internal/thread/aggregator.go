package thread

import (
	"context"
	"log"
	"sort"
)

// unknownName is shown when a counterparty has no profile name.
const unknownName = "Ukjent"

// Aggregate is the pure merge at the center of discovery. Given the
// already-fetched signals from the three sources and the resolved names, it
// produces the deduplicated, ordered partner list.
//
// Rules:
//   - dms must be ordered newest first; the first occurrence of a
//     counterparty carries its preview and last-activity time
//   - counterparties seen only through applications are listed with no
//     preview (an interest with no message yet is still contactable)
//   - self references and empty ids are dropped
//   - order: last activity descending, then all no-activity threads, ties
//     broken by ascending counterparty id so repeated calls are stable
func Aggregate(selfID string, dms, applicants, owners []Signal, names map[string]string) []Thread {
	byID := make(map[string]Thread)
	for _, m := range dms {
		other := m.CounterpartyID
		if other == "" || other == selfID {
			continue
		}
		if _, ok := byID[other]; ok {
			continue
		}
		at := m.At
		byID[other] = Thread{
			OtherID:     other,
			OtherName:   displayName(names, other),
			LastMessage: m.Preview,
			LastTime:    &at,
		}
	}

	for _, sig := range append(applicants, owners...) {
		other := sig.CounterpartyID
		if other == "" || other == selfID {
			continue
		}
		if _, ok := byID[other]; ok {
			continue
		}
		byID[other] = Thread{
			OtherID:   other,
			OtherName: displayName(names, other),
		}
	}

	out := make([]Thread, 0, len(byID))
	for _, t := range byID {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.LastTime != nil && b.LastTime == nil:
			return true
		case a.LastTime == nil && b.LastTime != nil:
			return false
		case a.LastTime != nil && b.LastTime != nil && !a.LastTime.Equal(*b.LastTime):
			return a.LastTime.After(*b.LastTime)
		default:
			return a.OtherID < b.OtherID
		}
	})
	return out
}

func displayName(names map[string]string, id string) string {
	if n := names[id]; n != "" {
		return n
	}
	return unknownName
}

// Counterparties returns the deduplicated id set across all signal slices,
// for the batched name lookup.
func Counterparties(selfID string, signals ...[]Signal) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, list := range signals {
		for _, sig := range list {
			if sig.CounterpartyID == "" || sig.CounterpartyID == selfID {
				continue
			}
			if _, ok := seen[sig.CounterpartyID]; ok {
				continue
			}
			seen[sig.CounterpartyID] = struct{}{}
			ids = append(ids, sig.CounterpartyID)
		}
	}
	return ids
}

// Service runs discovery against a live source.
type Service struct {
	src Source
}

func NewService(src Source) *Service {
	return &Service{src: src}
}

// ListThreads computes the user's inbox. A single signal source failing
// degrades gracefully: partners derivable from the remaining sources are
// still returned. Only all three failing is an error.
func (s *Service) ListThreads(ctx context.Context, userID string) ([]Thread, error) {
	var failures int
	fetch := func(kind SignalKind) []Signal {
		sigs, err := s.src.FetchRelationSignals(ctx, userID, kind)
		if err != nil {
			log.Printf("thread: fetching %s signals for %s: %v", kind, userID, err)
			failures++
			return nil
		}
		return sigs
	}

	dms := fetch(KindDirectMessage)
	applicants := fetch(KindJobApplicant)
	owners := fetch(KindJobOwner)
	if failures == 3 {
		return nil, ErrAllSourcesFailed
	}

	ids := Counterparties(userID, dms, applicants, owners)
	names := map[string]string{}
	if len(ids) > 0 {
		resolved, err := s.src.ResolveDisplayNames(ctx, ids)
		if err != nil {
			// Names are cosmetic; list the threads anyway.
			log.Printf("thread: resolving names for %s: %v", userID, err)
		} else {
			names = resolved
		}
	}

	return Aggregate(userID, dms, applicants, owners, names), nil
}
