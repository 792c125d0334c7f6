package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/h7labs/imageforge/internal/models"
	"github.com/h7labs/imageforge/internal/service"
)

type memAccounts struct {
	mu      sync.Mutex
	byExtID map[string]*models.User
	nextID  int64
}

func newMemAccounts() *memAccounts {
	return &memAccounts{byExtID: make(map[string]*models.User)}
}

func (m *memAccounts) FindByExternalID(_ context.Context, externalID string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byExtID[externalID]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, nil
}

func (m *memAccounts) Create(_ context.Context, user *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	user.ID = m.nextID
	copied := *user
	m.byExtID[user.ExternalID] = &copied
	return user, nil
}

func (m *memAccounts) UpdateProfile(_ context.Context, userID int64, email, name, pictureURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byExtID {
		if u.ID == userID {
			u.Email, u.Name, u.PictureURL = email, name, pictureURL
		}
	}
	return nil
}

func TestEnsure_FirstLoginStartsWithFullAllowance(t *testing.T) {
	accounts := newMemAccounts()
	svc := service.NewUserService(accounts, 3).WithNow(func() time.Time { return testNow })

	user, created, err := svc.Ensure(context.Background(), models.Identity{
		ExternalID: "goog-123",
		Email:      "ada@example.com",
		Name:       "Ada",
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 3, user.Remaining)
	require.NotNil(t, user.RefreshedAt)
	assert.Equal(t, testNow, *user.RefreshedAt)
	assert.NotZero(t, user.ID)
}

func TestEnsure_ExistingUserKeepsLedger(t *testing.T) {
	accounts := newMemAccounts()
	svc := service.NewUserService(accounts, 3).WithNow(func() time.Time { return testNow })

	first, created, err := svc.Ensure(context.Background(), models.Identity{ExternalID: "goog-123"})
	require.NoError(t, err)
	require.True(t, created)

	// Drain a credit behind the service's back, then ensure again.
	accounts.mu.Lock()
	accounts.byExtID["goog-123"].Remaining = 1
	accounts.mu.Unlock()

	second, created, err := svc.Ensure(context.Background(), models.Identity{ExternalID: "goog-123"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, second.Remaining)
}
