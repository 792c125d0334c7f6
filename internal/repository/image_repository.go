package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/h7labs/imageforge/internal/models"
	"github.com/h7labs/imageforge/internal/service"
)

type ImageRepository struct {
	db *sql.DB
}

func NewImageRepository(db *sql.DB) *ImageRepository {
	return &ImageRepository{db: db}
}

func (r *ImageRepository) ListByUser(ctx context.Context, userID int64) ([]models.Image, error) {
	const query = `
SELECT id, user_id, storage_ref, prompt, provider_tag, created_at
FROM images WHERE user_id = ? ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	defer rows.Close()

	var images []models.Image
	for rows.Next() {
		var img models.Image
		if err := rows.Scan(&img.ID, &img.UserID, &img.StorageRef, &img.Prompt, &img.ProviderTag, &img.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan image: %w", err)
		}
		images = append(images, img)
	}
	return images, rows.Err()
}

// Remove deletes one image record after checking ownership, returning the
// storage ref so the caller can drop the bytes. The select and delete run in
// one transaction so a concurrent delete of the same record loses cleanly.
func (r *ImageRepository) Remove(ctx context.Context, imageID, userID int64) (string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin delete tx: %w", err)
	}
	defer tx.Rollback()

	var ref string
	row := tx.QueryRowContext(ctx, `SELECT storage_ref FROM images WHERE id = ? AND user_id = ? FOR UPDATE`, imageID, userID)
	if err := row.Scan(&ref); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", service.ErrImageNotFound
		}
		return "", fmt.Errorf("select image for delete: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM images WHERE id = ? AND user_id = ?`, imageID, userID)
	if err != nil {
		return "", fmt.Errorf("delete image record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("delete rows affected: %w", err)
	}
	if affected == 0 {
		return "", service.ErrImageNotFound
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit delete tx: %w", err)
	}
	return ref, nil
}
