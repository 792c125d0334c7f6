package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/h7labs/imageforge/internal/models"
	"github.com/h7labs/imageforge/internal/service"
)

// LedgerRepository is the MySQL implementation of the generation ledger.
// Row locking uses SELECT ... FOR UPDATE, so two transactions for the same
// user serialize while different users proceed independently.
type LedgerRepository struct {
	db *sql.DB
}

func NewLedgerRepository(db *sql.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

func (r *LedgerRepository) Begin(ctx context.Context) (service.LedgerTx, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return &ledgerTx{tx: tx}, nil
}

type ledgerTx struct {
	tx *sql.Tx
}

func (t *ledgerTx) LockLedger(ctx context.Context, userID int64) (*models.Ledger, error) {
	const query = `
SELECT daily_credits_remaining, daily_credits_refreshed_at
FROM users WHERE id = ? FOR UPDATE`
	row := t.tx.QueryRowContext(ctx, query, userID)

	led := models.Ledger{UserID: userID}
	var refreshedAt sql.NullTime
	if err := row.Scan(&led.Remaining, &refreshedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, service.ErrUserNotFound
		}
		return nil, fmt.Errorf("lock ledger row: %w", err)
	}
	if refreshedAt.Valid {
		led.RefreshedAt = &refreshedAt.Time
	}
	return &led, nil
}

func (t *ledgerTx) ApplyRefill(ctx context.Context, userID int64, remaining int, at time.Time) error {
	const query = `
UPDATE users SET daily_credits_remaining = ?, daily_credits_refreshed_at = ?, updated_at = NOW()
WHERE id = ?`
	if _, err := t.tx.ExecContext(ctx, query, remaining, at, userID); err != nil {
		return fmt.Errorf("apply refill: %w", err)
	}
	return nil
}

func (t *ledgerTx) SetRemaining(ctx context.Context, userID int64, remaining int) error {
	const query = `UPDATE users SET daily_credits_remaining = ?, updated_at = NOW() WHERE id = ?`
	if _, err := t.tx.ExecContext(ctx, query, remaining, userID); err != nil {
		return fmt.Errorf("set remaining credits: %w", err)
	}
	return nil
}

func (t *ledgerTx) InsertImage(ctx context.Context, img *models.Image) (int64, error) {
	const query = `
INSERT INTO images (user_id, storage_ref, prompt, provider_tag, created_at)
VALUES (?, ?, ?, ?, ?)`
	res, err := t.tx.ExecContext(ctx, query, img.UserID, img.StorageRef, img.Prompt, img.ProviderTag, img.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("insert image record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

func (t *ledgerTx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (t *ledgerTx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback tx: %w", err)
	}
	return nil
}
