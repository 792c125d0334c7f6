package models

import "time"

// User is an account provisioned through the identity collaborator. The
// credit fields form the user's ration ledger: Remaining is bounded by the
// configured daily maximum and RefreshedAt records the last refill instant.
type User struct {
	ID          int64
	ExternalID  string
	Email       string
	Name        string
	PictureURL  string
	Remaining   int
	RefreshedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Ledger is the locked snapshot of a user's ration state read inside a
// generation transaction.
type Ledger struct {
	UserID      int64
	Remaining   int
	RefreshedAt *time.Time
}

// Image is one completed generation. StorageRef points at the durably written
// bytes; the row exists iff the bytes were confirmed stored.
type Image struct {
	ID          int64
	UserID      int64
	StorageRef  string
	Prompt      string
	ProviderTag string
	CreatedAt   time.Time
}

// Identity is the verified profile handed over by the OAuth collaborator.
type Identity struct {
	ExternalID string
	Email      string
	Name       string
	PictureURL string
}
