package thread

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ts(sec int64) time.Time { return time.Unix(sec, 0) }

func TestAggregateCombinesAllThreeSources(t *testing.T) {
	// One DM partner, one applicant to my job, one owner I applied to.
	dms := []Signal{{CounterpartyID: "dm-partner", At: ts(300), Preview: "siste melding"}}
	applicants := []Signal{{CounterpartyID: "applicant", At: ts(200)}}
	owners := []Signal{{CounterpartyID: "owner", At: ts(100)}}
	names := map[string]string{
		"dm-partner": "Dina",
		"applicant":  "Arne",
		"owner":      "Oda",
	}

	threads := Aggregate("me", dms, applicants, owners, names)

	require.Len(t, threads, 3)
	ids := []string{threads[0].OtherID, threads[1].OtherID, threads[2].OtherID}
	assert.Contains(t, ids, "dm-partner")
	assert.Contains(t, ids, "applicant")
	assert.Contains(t, ids, "owner")
}

func TestAggregateDeduplicatesOverlappingSources(t *testing.T) {
	// Same person shows up as DM partner and as applicant: one thread,
	// and the DM preview wins.
	dms := []Signal{{CounterpartyID: "x", At: ts(300), Preview: "hei"}}
	applicants := []Signal{{CounterpartyID: "x", At: ts(200)}}

	threads := Aggregate("me", dms, applicants, nil, map[string]string{"x": "Xenia"})

	require.Len(t, threads, 1)
	assert.Equal(t, "hei", threads[0].LastMessage)
	require.NotNil(t, threads[0].LastTime)
	assert.Equal(t, ts(300), *threads[0].LastTime)
}

func TestAggregateNewestDirectMessageWins(t *testing.T) {
	// dms arrive newest first; the first occurrence per counterparty
	// carries the preview.
	dms := []Signal{
		{CounterpartyID: "x", At: ts(300), Preview: "nyeste"},
		{CounterpartyID: "x", At: ts(100), Preview: "eldste"},
	}

	threads := Aggregate("me", dms, nil, nil, nil)

	require.Len(t, threads, 1)
	assert.Equal(t, "nyeste", threads[0].LastMessage)
}

func TestAggregateSignalOnlyThreadIsContactable(t *testing.T) {
	// Interest with no message yet is still a listed, contactable thread.
	applicants := []Signal{{CounterpartyID: "a", At: ts(100)}}

	threads := Aggregate("me", nil, applicants, nil, nil)

	require.Len(t, threads, 1)
	assert.Empty(t, threads[0].LastMessage)
	assert.Nil(t, threads[0].LastTime)
	assert.Equal(t, "Ukjent", threads[0].OtherName)
}

func TestAggregateOrdersByActivityThenID(t *testing.T) {
	dms := []Signal{
		{CounterpartyID: "old", At: ts(100), Preview: "a"},
		{CounterpartyID: "new", At: ts(300), Preview: "b"},
	}
	// No-activity threads sort after all active ones, by id.
	applicants := []Signal{
		{CounterpartyID: "zz-silent", At: ts(999)},
		{CounterpartyID: "aa-silent", At: ts(999)},
	}

	threads := Aggregate("me", dms, applicants, nil, nil)

	require.Len(t, threads, 4)
	assert.Equal(t, "new", threads[0].OtherID)
	assert.Equal(t, "old", threads[1].OtherID)
	assert.Equal(t, "aa-silent", threads[2].OtherID)
	assert.Equal(t, "zz-silent", threads[3].OtherID)
}

func TestAggregateIsStableAcrossCalls(t *testing.T) {
	dms := []Signal{
		{CounterpartyID: "b", At: ts(200), Preview: "x"},
		{CounterpartyID: "a", At: ts(200), Preview: "y"},
	}
	owners := []Signal{
		{CounterpartyID: "d", At: ts(0)},
		{CounterpartyID: "c", At: ts(0)},
	}

	first := Aggregate("me", dms, nil, owners, nil)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Aggregate("me", dms, nil, owners, nil))
	}
	// Equal timestamps tie-break by ascending counterparty id.
	assert.Equal(t, "a", first[0].OtherID)
	assert.Equal(t, "b", first[1].OtherID)
}

func TestAggregateDropsSelfAndEmpty(t *testing.T) {
	dms := []Signal{
		{CounterpartyID: "me", At: ts(100), Preview: "notat til meg selv"},
		{CounterpartyID: "", At: ts(100)},
		{CounterpartyID: "other", At: ts(100), Preview: "hei"},
	}

	threads := Aggregate("me", dms, nil, nil, nil)

	require.Len(t, threads, 1)
	assert.Equal(t, "other", threads[0].OtherID)
}

func TestCounterpartiesDeduplicates(t *testing.T) {
	ids := Counterparties("me",
		[]Signal{{CounterpartyID: "a"}, {CounterpartyID: "b"}},
		[]Signal{{CounterpartyID: "a"}, {CounterpartyID: "me"}, {CounterpartyID: ""}},
	)
	assert.Equal(t, []string{"a", "b"}, ids)
}

// fakeSource serves canned signals per kind; a nil slice with an error set
// simulates one relation being unreadable.
type fakeSource struct {
	signals  map[SignalKind][]Signal
	errs     map[SignalKind]error
	nameErr  error
	names    map[string]string
	nameReqs [][]string
}

func (f *fakeSource) FetchRelationSignals(ctx context.Context, userID string, kind SignalKind) ([]Signal, error) {
	if err := f.errs[kind]; err != nil {
		return nil, err
	}
	return f.signals[kind], nil
}

func (f *fakeSource) ResolveDisplayNames(ctx context.Context, ids []string) (map[string]string, error) {
	f.nameReqs = append(f.nameReqs, ids)
	if f.nameErr != nil {
		return nil, f.nameErr
	}
	return f.names, nil
}

func TestListThreadsResolvesNamesInOneBatch(t *testing.T) {
	src := &fakeSource{
		signals: map[SignalKind][]Signal{
			KindDirectMessage: {{CounterpartyID: "a", At: ts(100), Preview: "hei"}},
			KindJobApplicant:  {{CounterpartyID: "b", At: ts(50)}},
			KindJobOwner:      {{CounterpartyID: "c", At: ts(25)}},
		},
		names: map[string]string{"a": "Anna", "b": "Bo", "c": "Carl"},
	}

	threads, err := NewService(src).ListThreads(context.Background(), "me")
	require.NoError(t, err)
	require.Len(t, threads, 3)
	assert.Equal(t, "Anna", threads[0].OtherName)

	require.Len(t, src.nameReqs, 1, "names must resolve in a single batched lookup")
	assert.ElementsMatch(t, []string{"a", "b", "c"}, src.nameReqs[0])
}

func TestListThreadsDegradesOnPartialFailure(t *testing.T) {
	src := &fakeSource{
		signals: map[SignalKind][]Signal{
			KindDirectMessage: {{CounterpartyID: "a", At: ts(100), Preview: "hei"}},
			KindJobOwner:      {{CounterpartyID: "c", At: ts(25)}},
		},
		errs:  map[SignalKind]error{KindJobApplicant: errors.New("relation unavailable")},
		names: map[string]string{"a": "Anna", "c": "Carl"},
	}

	threads, err := NewService(src).ListThreads(context.Background(), "me")
	require.NoError(t, err)
	assert.Len(t, threads, 2)
}

func TestListThreadsFailsOnlyWhenAllSourcesFail(t *testing.T) {
	boom := errors.New("backend down")
	src := &fakeSource{
		errs: map[SignalKind]error{
			KindDirectMessage: boom,
			KindJobApplicant:  boom,
			KindJobOwner:      boom,
		},
	}

	_, err := NewService(src).ListThreads(context.Background(), "me")
	assert.ErrorIs(t, err, ErrAllSourcesFailed)
}

func TestListThreadsToleratesNameLookupFailure(t *testing.T) {
	src := &fakeSource{
		signals: map[SignalKind][]Signal{
			KindDirectMessage: {{CounterpartyID: "a", At: ts(100), Preview: "hei"}},
		},
		nameErr: errors.New("profiles unavailable"),
	}

	threads, err := NewService(src).ListThreads(context.Background(), "me")
	require.NoError(t, err)
	require.Len(t, threads, 1)
	assert.Equal(t, "Ukjent", threads[0].OtherName)
}
