package job

import "time"

type Job struct {
	ID          string    `json:"id"`
	Owner       string    `json:"owner"`
	OwnerName   string    `json:"owner_name,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	PriceCents  int       `json:"price_cents,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type CreateJobRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	PriceCents  int    `json:"price_cents"`
}

// Application statuses. New rows start pending; the job owner moves them.
const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
	StatusRejected = "rejected"
)

type Application struct {
	JobID      string    `json:"job_id"`
	Applicant  string    `json:"applicant"`
	Message    string    `json:"message,omitempty"`
	PriceCents int       `json:"price_cents,omitempty"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

type InterestRequest struct {
	Message    string `json:"message"`
	PriceCents int    `json:"price_cents"`
}

type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	JobID     string    `json:"job_id,omitempty"`
	FromUser  string    `json:"from_user,omitempty"`
	Type      string    `json:"type"`
	Message   string    `json:"message,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}
