package service

import (
	"context"
	"fmt"
	"time"

	"github.com/h7labs/imageforge/internal/models"
)

// AccountStore is the user persistence the account service needs.
type AccountStore interface {
	FindByExternalID(ctx context.Context, externalID string) (*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	UpdateProfile(ctx context.Context, userID int64, email, name, pictureURL string) error
}

// UserService provisions accounts for identities verified by the OAuth
// collaborator.
type UserService struct {
	users    AccountStore
	maxDaily int
	now      func() time.Time
}

func NewUserService(users AccountStore, maxDaily int) *UserService {
	return &UserService{users: users, maxDaily: maxDaily, now: time.Now}
}

// Ensure returns the account for the identity, creating it on first login.
// New accounts start with a full allowance and the refill time stamped now.
func (s *UserService) Ensure(ctx context.Context, identity models.Identity) (*models.User, bool, error) {
	user, err := s.users.FindByExternalID(ctx, identity.ExternalID)
	if err != nil {
		return nil, false, fmt.Errorf("ensure user: %w", err)
	}
	if user != nil {
		go func() {
			_ = s.users.UpdateProfile(context.Background(), user.ID, identity.Email, identity.Name, identity.PictureURL)
		}()
		return user, false, nil
	}

	now := s.now()
	newUser := &models.User{
		ExternalID:  identity.ExternalID,
		Email:       identity.Email,
		Name:        identity.Name,
		PictureURL:  identity.PictureURL,
		Remaining:   s.maxDaily,
		RefreshedAt: &now,
	}
	created, err := s.users.Create(ctx, newUser)
	if err != nil {
		return nil, false, fmt.Errorf("create user: %w", err)
	}
	return created, true, nil
}
