package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/h7labs/imageforge/internal/models"
	"github.com/h7labs/imageforge/internal/storage"
)

// ImageLibrary is the generation-record persistence the gallery needs.
type ImageLibrary interface {
	ListByUser(ctx context.Context, userID int64) ([]models.Image, error)

	// Remove deletes the record after verifying ownership and returns its
	// storage ref. ErrImageNotFound when absent or owned by someone else.
	Remove(ctx context.Context, imageID, userID int64) (string, error)
}

// GalleryService lists and deletes a user's generated images.
type GalleryService struct {
	log    *slog.Logger
	images ImageLibrary
	store  storage.Store
}

func NewGalleryService(log *slog.Logger, images ImageLibrary, store storage.Store) *GalleryService {
	return &GalleryService{log: log, images: images, store: store}
}

func (s *GalleryService) List(ctx context.Context, userID int64) ([]models.Image, error) {
	images, err := s.images.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	return images, nil
}

// Delete removes the record first, then the bytes. A byte-store miss after
// the record is gone is logged rather than surfaced: the record never
// outlives its bytes, and an orphan file is recoverable by hand.
func (s *GalleryService) Delete(ctx context.Context, imageID, userID int64) error {
	ref, err := s.images.Remove(ctx, imageID, userID)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, ref); err != nil {
		s.log.Error("delete image bytes", "image_id", imageID, "ref", ref, "err", err)
	}
	return nil
}
