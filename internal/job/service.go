package job

import (
	"context"
	"fmt"
	"log"

	"github.com/LickLitty/ungservice2025/internal/conv"
)

// Messenger is the slice of the data access port this package needs:
// posting the automatic interest announcement into the job's thread. The
// message goes through the same insert-and-publish path as any chat
// message, so open sessions see it live.
type Messenger interface {
	InsertMessage(ctx context.Context, key conv.ThreadKey, senderID, body string) (conv.Message, error)
}

// Store is what the service needs from persistence; *Repository satisfies
// it.
type Store interface {
	CreateJob(ctx context.Context, owner string, req *CreateJobRequest) (*Job, error)
	ListJobs(ctx context.Context, category, owner string) ([]Job, error)
	GetJob(ctx context.Context, id string) (*Job, error)
	UpsertApplication(ctx context.Context, jobID, applicant string, req *InterestRequest) error
	ListApplicants(ctx context.Context, jobID string) ([]Application, error)
	UpdateApplicationStatus(ctx context.Context, jobID, applicant, status string) error
	GetProfileName(ctx context.Context, id string) (string, error)
	CreateNotification(ctx context.Context, n *Notification) error
	ListNotifications(ctx context.Context, userID string) ([]Notification, error)
	MarkNotificationRead(ctx context.Context, id, userID string) error
}

type Service struct {
	repo      Store
	messenger Messenger
}

func NewService(repo Store, messenger Messenger) *Service {
	return &Service{repo: repo, messenger: messenger}
}

func (s *Service) CreateJob(ctx context.Context, owner string, req *CreateJobRequest) (*Job, error) {
	if req.Title == "" {
		return nil, fmt.Errorf("title is required")
	}
	return s.repo.CreateJob(ctx, owner, req)
}

func (s *Service) ListJobs(ctx context.Context, category, owner string) ([]Job, error) {
	return s.repo.ListJobs(ctx, category, owner)
}

func (s *Service) GetJob(ctx context.Context, id string) (*Job, error) {
	return s.repo.GetJob(ctx, id)
}

func (s *Service) ListApplicants(ctx context.Context, jobID string) ([]Application, error) {
	return s.repo.ListApplicants(ctx, jobID)
}

// Interest registers the user's interest in a job, announces it in the job
// thread and notifies the owner. The application row is the part that must
// succeed; the announcement and notification are best effort, matching how
// the marketplace treats them.
func (s *Service) Interest(ctx context.Context, jobID, applicant string, req *InterestRequest) error {
	j, err := s.repo.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if j.Owner == applicant {
		return fmt.Errorf("cannot apply to your own job")
	}

	if req.Message == "" {
		req.Message = "Viser interesse"
	}
	if err := s.repo.UpsertApplication(ctx, jobID, applicant, req); err != nil {
		return fmt.Errorf("register interest: %w", err)
	}

	name, err := s.repo.GetProfileName(ctx, applicant)
	if err != nil || name == "" {
		name = "En bruker"
	}
	announcement := fmt.Sprintf("%s viste interesse for oppdraget.", name)

	if _, err := s.messenger.InsertMessage(ctx, conv.JobThread(jobID), applicant, announcement); err != nil {
		log.Printf("job: interest announcement for %s: %v", jobID, err)
	}

	n := &Notification{
		UserID:   j.Owner,
		JobID:    jobID,
		FromUser: applicant,
		Type:     "interest",
		Message:  announcement,
	}
	if err := s.repo.CreateNotification(ctx, n); err != nil {
		log.Printf("job: notification for %s: %v", jobID, err)
	}

	return nil
}

// UpdateApplicationStatus lets the job's owner accept or reject an
// applicant. Anyone else gets ErrNotOwner, whatever the application says.
func (s *Service) UpdateApplicationStatus(ctx context.Context, jobID, applicant, actor, status string) error {
	if status != StatusAccepted && status != StatusRejected {
		return fmt.Errorf("invalid status %q", status)
	}

	j, err := s.repo.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if j.Owner != actor {
		return ErrNotOwner
	}

	return s.repo.UpdateApplicationStatus(ctx, jobID, applicant, status)
}

func (s *Service) ListNotifications(ctx context.Context, userID string) ([]Notification, error) {
	return s.repo.ListNotifications(ctx, userID)
}

func (s *Service) MarkNotificationRead(ctx context.Context, id, userID string) error {
	return s.repo.MarkNotificationRead(ctx, id, userID)
}
