// Package storage persists generated image bytes. A Store hands back an
// opaque public reference for each saved object; generation records point at
// that reference and must only be created once Save has returned.
package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Store is a content store for generated images.
type Store interface {
	// Save durably writes data under key and returns the public reference.
	Save(ctx context.Context, key string, data []byte, contentType string) (string, error)

	// Delete removes the object a previous Save returned ref for. Deleting
	// an already-absent object is not an error.
	Delete(ctx context.Context, ref string) error
}

// ObjectKey builds a collision-resistant filename for one generation:
// the owning user, the moment of creation, and the provider's seed (or a
// random stand-in when the provider reports none).
func ObjectKey(userID int64, now time.Time, seed, contentType string) string {
	seed = strings.TrimSpace(seed)
	if seed == "" {
		seed = uuid.NewString()
	}
	return fmt.Sprintf("generated_img_%d_%d_%s%s", userID, now.Unix(), seed, extensionFromContentType(contentType))
}

func extensionFromContentType(contentType string) string {
	switch strings.ToLower(contentType) {
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".bin"
	}
}
