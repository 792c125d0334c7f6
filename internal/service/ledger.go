package service

import (
	"context"
	"errors"
	"time"

	"github.com/h7labs/imageforge/internal/models"
)

var (
	// ErrUserNotFound is returned when a ledger row does not exist for the
	// requested user.
	ErrUserNotFound = errors.New("user not found")

	// ErrImageNotFound is returned when an image does not exist or is not
	// owned by the requesting user.
	ErrImageNotFound = errors.New("image not found")
)

// LedgerStore opens serializable units of work against the credit ledger.
// The MySQL implementation lives in the repository package; tests supply an
// in-memory one.
type LedgerStore interface {
	Begin(ctx context.Context) (LedgerTx, error)
}

// LedgerTx is one open transaction holding (after LockLedger) an exclusive
// lock on a single user's ledger row. All writes become visible atomically on
// Commit; Rollback discards them. Rollback after Commit must be a no-op so
// callers can defer it unconditionally.
type LedgerTx interface {
	// LockLedger reads the user's ration state under an exclusive row lock
	// held until Commit or Rollback.
	LockLedger(ctx context.Context, userID int64) (*models.Ledger, error)

	// ApplyRefill resets the balance and stamps the refill time.
	ApplyRefill(ctx context.Context, userID int64, remaining int, at time.Time) error

	// SetRemaining writes the decremented balance.
	SetRemaining(ctx context.Context, userID int64, remaining int) error

	// InsertImage creates the generation record and returns its id.
	InsertImage(ctx context.Context, img *models.Image) (int64, error)

	Commit() error
	Rollback() error
}
