package user

import (
	"context"
	"database/sql"
	"errors"
)

var ErrNotFound = errors.New("user not found")

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CreateProfile(ctx context.Context, p *Profile) (*Profile, error) {
	query := `
		INSERT INTO profiles (email, password, full_name)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query, p.Email, p.Password, p.FullName).
		Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (*Profile, error) {
	p := &Profile{}
	query := `
		SELECT id, email, password, COALESCE(full_name, ''), COALESCE(phone, ''), COALESCE(about, ''), created_at
		FROM profiles WHERE email = $1`

	err := r.db.QueryRowContext(ctx, query, email).
		Scan(&p.ID, &p.Email, &p.Password, &p.FullName, &p.Phone, &p.About, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*Profile, error) {
	p := &Profile{}
	query := `
		SELECT id, email, password, COALESCE(full_name, ''), COALESCE(phone, ''), COALESCE(about, ''), created_at
		FROM profiles WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&p.ID, &p.Email, &p.Password, &p.FullName, &p.Phone, &p.About, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *Repository) UpdateProfile(ctx context.Context, id string, req *UpdateProfileRequest) error {
	query := `UPDATE profiles SET full_name = $2, phone = $3, about = $4 WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, req.FullName, req.Phone, req.About)
	return err
}
