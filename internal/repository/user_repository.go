package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/h7labs/imageforge/internal/models"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) FindByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	const query = `
SELECT id, external_id, COALESCE(email, ''), COALESCE(name, ''), COALESCE(picture_url, ''),
       daily_credits_remaining, daily_credits_refreshed_at, created_at, updated_at
FROM users WHERE external_id = ?`
	row := r.db.QueryRowContext(ctx, query, externalID)

	var u models.User
	var refreshedAt sql.NullTime
	if err := row.Scan(&u.ID, &u.ExternalID, &u.Email, &u.Name, &u.PictureURL,
		&u.Remaining, &refreshedAt, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	if refreshedAt.Valid {
		u.RefreshedAt = &refreshedAt.Time
	}
	return &u, nil
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	const query = `
INSERT INTO users (external_id, email, name, picture_url, daily_credits_remaining, daily_credits_refreshed_at)
VALUES (?, NULLIF(?, ''), NULLIF(?, ''), NULLIF(?, ''), ?, ?)`
	var refreshedAt any
	if user.RefreshedAt != nil {
		refreshedAt = *user.RefreshedAt
	}
	res, err := r.db.ExecContext(ctx, query, user.ExternalID, user.Email, user.Name, user.PictureURL, user.Remaining, refreshedAt)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	user.ID = id
	return user, nil
}

func (r *UserRepository) UpdateProfile(ctx context.Context, userID int64, email, name, pictureURL string) error {
	const query = `
UPDATE users SET email = NULLIF(?, ''), name = NULLIF(?, ''), picture_url = NULLIF(?, ''), updated_at = NOW()
WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, email, name, pictureURL, userID); err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}
