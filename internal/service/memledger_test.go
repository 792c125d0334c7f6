package service_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/h7labs/imageforge/internal/models"
	"github.com/h7labs/imageforge/internal/service"
)

// memLedger is an in-memory LedgerStore whose per-user mutex stands in for
// the database row lock: a second transaction touching the same user blocks
// in LockLedger until the first commits or rolls back.
type memLedger struct {
	mu     sync.Mutex
	locks  map[int64]*sync.Mutex
	rows   map[int64]*models.Ledger
	images []models.Image
	nextID int64

	failRefill error
	failSet    error
	failInsert error
	failCommit error
}

func newMemLedger() *memLedger {
	return &memLedger{
		locks: make(map[int64]*sync.Mutex),
		rows:  make(map[int64]*models.Ledger),
	}
}

func (m *memLedger) addUser(userID int64, remaining int, refreshedAt *time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[userID] = &models.Ledger{UserID: userID, Remaining: remaining, RefreshedAt: refreshedAt}
}

func (m *memLedger) ledger(userID int64) models.Ledger {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.rows[userID]
}

func (m *memLedger) imageCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.images)
}

func (m *memLedger) allImages() []models.Image {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Image(nil), m.images...)
}

func (m *memLedger) userLock(userID int64) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.locks[userID]; !ok {
		m.locks[userID] = &sync.Mutex{}
	}
	return m.locks[userID]
}

func (m *memLedger) Begin(context.Context) (service.LedgerTx, error) {
	return &memTx{store: m}, nil
}

type memTx struct {
	store *memLedger

	rowLock *sync.Mutex
	userID  int64
	done    bool

	refillRemaining *int
	refillAt        time.Time
	setRemaining    *int
	inserted        []models.Image
}

func (t *memTx) LockLedger(_ context.Context, userID int64) (*models.Ledger, error) {
	lock := t.store.userLock(userID)
	lock.Lock()

	t.store.mu.Lock()
	row, ok := t.store.rows[userID]
	t.store.mu.Unlock()
	if !ok {
		lock.Unlock()
		return nil, service.ErrUserNotFound
	}

	t.rowLock = lock
	t.userID = userID
	snapshot := *row
	return &snapshot, nil
}

func (t *memTx) ApplyRefill(_ context.Context, _ int64, remaining int, at time.Time) error {
	if t.store.failRefill != nil {
		return t.store.failRefill
	}
	t.refillRemaining = &remaining
	t.refillAt = at
	return nil
}

func (t *memTx) SetRemaining(_ context.Context, _ int64, remaining int) error {
	if t.store.failSet != nil {
		return t.store.failSet
	}
	t.setRemaining = &remaining
	return nil
}

func (t *memTx) InsertImage(_ context.Context, img *models.Image) (int64, error) {
	if t.store.failInsert != nil {
		return 0, t.store.failInsert
	}
	t.store.mu.Lock()
	t.store.nextID++
	id := t.store.nextID
	t.store.mu.Unlock()

	staged := *img
	staged.ID = id
	t.inserted = append(t.inserted, staged)
	return id, nil
}

func (t *memTx) Commit() error {
	if t.done {
		return errors.New("commit on finished tx")
	}
	t.done = true
	defer t.release()

	if t.store.failCommit != nil {
		return t.store.failCommit
	}

	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	row := t.store.rows[t.userID]
	if t.refillRemaining != nil {
		row.Remaining = *t.refillRemaining
		at := t.refillAt
		row.RefreshedAt = &at
	}
	if t.setRemaining != nil {
		row.Remaining = *t.setRemaining
	}
	t.store.images = append(t.store.images, t.inserted...)
	return nil
}

func (t *memTx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.release()
	return nil
}

func (t *memTx) release() {
	if t.rowLock != nil {
		t.rowLock.Unlock()
		t.rowLock = nil
	}
}
