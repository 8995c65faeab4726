package job

import (
	"context"
	"database/sql"
	"errors"
)

var (
	ErrNotFound = errors.New("job not found")
	// ErrNotOwner rejects applicant decisions made by anyone but the
	// job's owner.
	ErrNotOwner = errors.New("not the job owner")
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CreateJob(ctx context.Context, owner string, req *CreateJobRequest) (*Job, error) {
	j := &Job{
		Owner:       owner,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		PriceCents:  req.PriceCents,
	}
	query := `
		INSERT INTO jobs (owner, title, description, category, price_cents)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		owner, req.Title, req.Description, req.Category, req.PriceCents).
		Scan(&j.ID, &j.CreatedAt)
	if err != nil {
		return nil, err
	}
	return j, nil
}

// ListJobs filters by category and/or owner; empty strings mean no filter.
func (r *Repository) ListJobs(ctx context.Context, category, owner string) ([]Job, error) {
	query := `
		SELECT j.id, j.owner, COALESCE(p.full_name, ''), j.title,
		       COALESCE(j.description, ''), COALESCE(j.category, ''),
		       COALESCE(j.price_cents, 0), j.created_at
		FROM jobs j
		LEFT JOIN profiles p ON p.id = j.owner
		WHERE ($1 = '' OR j.category = $1)
		  AND ($2 = '' OR j.owner::text = $2)
		ORDER BY j.created_at DESC
		LIMIT 100`

	rows, err := r.db.QueryContext(ctx, query, category, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		var j Job
		if err := rows.Scan(&j.ID, &j.Owner, &j.OwnerName, &j.Title,
			&j.Description, &j.Category, &j.PriceCents, &j.CreatedAt); err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func (r *Repository) GetJob(ctx context.Context, id string) (*Job, error) {
	j := &Job{}
	query := `
		SELECT j.id, j.owner, COALESCE(p.full_name, ''), j.title,
		       COALESCE(j.description, ''), COALESCE(j.category, ''),
		       COALESCE(j.price_cents, 0), j.created_at
		FROM jobs j
		LEFT JOIN profiles p ON p.id = j.owner
		WHERE j.id = $1`

	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&j.ID, &j.Owner, &j.OwnerName, &j.Title,
			&j.Description, &j.Category, &j.PriceCents, &j.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return j, nil
}

// UpsertApplication registers interest; reapplying refreshes the message
// and price instead of failing on the (job_id, applicant) key.
func (r *Repository) UpsertApplication(ctx context.Context, jobID, applicant string, req *InterestRequest) error {
	query := `
		INSERT INTO applications (job_id, applicant, message, price_cents)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (job_id, applicant)
		DO UPDATE SET message = EXCLUDED.message, price_cents = EXCLUDED.price_cents`

	_, err := r.db.ExecContext(ctx, query, jobID, applicant, req.Message, req.PriceCents)
	return err
}

func (r *Repository) ListApplicants(ctx context.Context, jobID string) ([]Application, error) {
	query := `
		SELECT job_id, applicant, COALESCE(message, ''), COALESCE(price_cents, 0), status, created_at
		FROM applications
		WHERE job_id = $1
		ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var apps []Application
	for rows.Next() {
		var a Application
		if err := rows.Scan(&a.JobID, &a.Applicant, &a.Message, &a.PriceCents, &a.Status, &a.CreatedAt); err != nil {
			return nil, err
		}
		apps = append(apps, a)
	}
	return apps, rows.Err()
}

// UpdateApplicationStatus moves one application to accepted or rejected.
func (r *Repository) UpdateApplicationStatus(ctx context.Context, jobID, applicant, status string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE applications SET status = $3 WHERE job_id = $1 AND applicant = $2`,
		jobID, applicant, status)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) GetProfileName(ctx context.Context, id string) (string, error) {
	var name string
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(full_name, '') FROM profiles WHERE id = $1`, id).Scan(&name)
	if err != nil {
		return "", err
	}
	return name, nil
}

func (r *Repository) CreateNotification(ctx context.Context, n *Notification) error {
	query := `
		INSERT INTO notifications (user_id, job_id, from_user, type, message)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.ExecContext(ctx, query, n.UserID, n.JobID, n.FromUser, n.Type, n.Message)
	return err
}

func (r *Repository) ListNotifications(ctx context.Context, userID string) ([]Notification, error) {
	query := `
		SELECT id, user_id, COALESCE(job_id::text, ''), COALESCE(from_user::text, ''),
		       type, COALESCE(message, ''), read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT 100`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.JobID, &n.FromUser, &n.Type, &n.Message, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkNotificationRead flips read on one of the user's own notifications.
// The user_id predicate keeps users out of each other's inboxes.
func (r *Repository) MarkNotificationRead(ctx context.Context, id, userID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`,
		id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
