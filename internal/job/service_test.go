package job

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LickLitty/ungservice2025/internal/conv"
)

type statusCall struct {
	jobID, applicant, status string
}

type readCall struct {
	id, userID string
}

// fakeRepo is an in-memory Store. It records the mutating calls so tests
// can assert on exactly what the service asked for.
type fakeRepo struct {
	jobs  map[string]*Job
	names map[string]string

	upserts       []InterestRequest
	notifications []Notification
	statusCalls   []statusCall
	readCalls     []readCall
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{jobs: map[string]*Job{}, names: map[string]string{}}
}

func (f *fakeRepo) CreateJob(ctx context.Context, owner string, req *CreateJobRequest) (*Job, error) {
	j := &Job{ID: "j-new", Owner: owner, Title: req.Title}
	f.jobs[j.ID] = j
	return j, nil
}

func (f *fakeRepo) ListJobs(ctx context.Context, category, owner string) ([]Job, error) {
	var out []Job
	for _, j := range f.jobs {
		if owner != "" && j.Owner != owner {
			continue
		}
		out = append(out, *j)
	}
	return out, nil
}

func (f *fakeRepo) GetJob(ctx context.Context, id string) (*Job, error) {
	j, ok := f.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return j, nil
}

func (f *fakeRepo) UpsertApplication(ctx context.Context, jobID, applicant string, req *InterestRequest) error {
	f.upserts = append(f.upserts, *req)
	return nil
}

func (f *fakeRepo) ListApplicants(ctx context.Context, jobID string) ([]Application, error) {
	return nil, nil
}

func (f *fakeRepo) UpdateApplicationStatus(ctx context.Context, jobID, applicant, status string) error {
	f.statusCalls = append(f.statusCalls, statusCall{jobID, applicant, status})
	return nil
}

func (f *fakeRepo) GetProfileName(ctx context.Context, id string) (string, error) {
	return f.names[id], nil
}

func (f *fakeRepo) CreateNotification(ctx context.Context, n *Notification) error {
	f.notifications = append(f.notifications, *n)
	return nil
}

func (f *fakeRepo) ListNotifications(ctx context.Context, userID string) ([]Notification, error) {
	return nil, nil
}

func (f *fakeRepo) MarkNotificationRead(ctx context.Context, id, userID string) error {
	f.readCalls = append(f.readCalls, readCall{id, userID})
	return nil
}

type sentMsg struct {
	key    conv.ThreadKey
	sender string
	body   string
}

type fakeMessenger struct {
	sent []sentMsg
	err  error
}

func (f *fakeMessenger) InsertMessage(ctx context.Context, key conv.ThreadKey, senderID, body string) (conv.Message, error) {
	if f.err != nil {
		return conv.Message{}, f.err
	}
	f.sent = append(f.sent, sentMsg{key: key, sender: senderID, body: body})
	return conv.Message{ID: "srv-1", Sender: senderID, Body: body}, nil
}

func TestInterestAnnouncesAndNotifiesOwner(t *testing.T) {
	repo := newFakeRepo()
	repo.jobs["j1"] = &Job{ID: "j1", Owner: "olaf", Title: "Klippe plen"}
	repo.names["kari"] = "Kari Hansen"
	m := &fakeMessenger{}
	s := NewService(repo, m)

	err := s.Interest(context.Background(), "j1", "kari", &InterestRequest{})
	require.NoError(t, err)

	require.Len(t, repo.upserts, 1)
	assert.Equal(t, "Viser interesse", repo.upserts[0].Message)

	require.Len(t, m.sent, 1)
	assert.Equal(t, conv.JobThread("j1"), m.sent[0].key)
	assert.Equal(t, "kari", m.sent[0].sender)
	assert.Equal(t, "Kari Hansen viste interesse for oppdraget.", m.sent[0].body)

	require.Len(t, repo.notifications, 1)
	n := repo.notifications[0]
	assert.Equal(t, "olaf", n.UserID)
	assert.Equal(t, "interest", n.Type)
	assert.Equal(t, "kari", n.FromUser)
}

func TestInterestRejectsOwnJob(t *testing.T) {
	repo := newFakeRepo()
	repo.jobs["j1"] = &Job{ID: "j1", Owner: "olaf"}
	s := NewService(repo, &fakeMessenger{})

	err := s.Interest(context.Background(), "j1", "olaf", &InterestRequest{})
	require.Error(t, err)
	assert.Empty(t, repo.upserts)
}

func TestInterestSurvivesAnnouncementFailure(t *testing.T) {
	// The application row is the durable part; a dead chat or
	// notification path must not undo it.
	repo := newFakeRepo()
	repo.jobs["j1"] = &Job{ID: "j1", Owner: "olaf"}
	m := &fakeMessenger{err: errors.New("redis down")}
	s := NewService(repo, m)

	err := s.Interest(context.Background(), "j1", "kari", &InterestRequest{Message: "Kan starte i morgen"})
	require.NoError(t, err)
	require.Len(t, repo.upserts, 1)
	assert.Equal(t, "Kan starte i morgen", repo.upserts[0].Message)
}

func TestUpdateApplicationStatusByOwner(t *testing.T) {
	repo := newFakeRepo()
	repo.jobs["j1"] = &Job{ID: "j1", Owner: "olaf"}
	s := NewService(repo, &fakeMessenger{})

	require.NoError(t, s.UpdateApplicationStatus(context.Background(), "j1", "kari", "olaf", StatusAccepted))
	require.Len(t, repo.statusCalls, 1)
	assert.Equal(t, statusCall{"j1", "kari", StatusAccepted}, repo.statusCalls[0])

	require.NoError(t, s.UpdateApplicationStatus(context.Background(), "j1", "kari", "olaf", StatusRejected))
	assert.Equal(t, StatusRejected, repo.statusCalls[1].status)
}

func TestUpdateApplicationStatusRejectsNonOwner(t *testing.T) {
	repo := newFakeRepo()
	repo.jobs["j1"] = &Job{ID: "j1", Owner: "olaf"}
	s := NewService(repo, &fakeMessenger{})

	err := s.UpdateApplicationStatus(context.Background(), "j1", "kari", "kari", StatusAccepted)
	require.ErrorIs(t, err, ErrNotOwner)
	assert.Empty(t, repo.statusCalls)
}

func TestUpdateApplicationStatusValidatesStatus(t *testing.T) {
	repo := newFakeRepo()
	repo.jobs["j1"] = &Job{ID: "j1", Owner: "olaf"}
	s := NewService(repo, &fakeMessenger{})

	err := s.UpdateApplicationStatus(context.Background(), "j1", "kari", "olaf", "maybe")
	require.Error(t, err)
	assert.Empty(t, repo.statusCalls)
}

func TestUpdateApplicationStatusUnknownJob(t *testing.T) {
	s := NewService(newFakeRepo(), &fakeMessenger{})

	err := s.UpdateApplicationStatus(context.Background(), "nope", "kari", "olaf", StatusAccepted)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMarkNotificationReadScopedToUser(t *testing.T) {
	repo := newFakeRepo()
	s := NewService(repo, &fakeMessenger{})

	require.NoError(t, s.MarkNotificationRead(context.Background(), "n1", "olaf"))
	require.Len(t, repo.readCalls, 1)
	assert.Equal(t, readCall{"n1", "olaf"}, repo.readCalls[0])
}
