package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore writes images to a directory on disk and serves them under a
// base URL path. The directory is created lazily on first save.
type LocalStore struct {
	dir     string
	baseURL string
}

func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("image directory is required")
	}
	if baseURL == "" {
		baseURL = "/" + filepath.Base(dir)
	}
	return &LocalStore{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

// Dir returns the directory images are written to, for static file serving.
func (l *LocalStore) Dir() string {
	return l.dir
}

// BaseURL returns the URL path prefix refs are issued under.
func (l *LocalStore) BaseURL() string {
	return l.baseURL
}

func (l *LocalStore) Save(_ context.Context, key string, data []byte, _ string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("no data to save")
	}
	key = filepath.Base(key)

	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return "", fmt.Errorf("create image directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(l.dir, key), data, 0o644); err != nil {
		return "", fmt.Errorf("write image file: %w", err)
	}
	return l.baseURL + "/" + key, nil
}

func (l *LocalStore) Delete(_ context.Context, ref string) error {
	key, ok := strings.CutPrefix(ref, l.baseURL+"/")
	if !ok {
		return fmt.Errorf("ref %q is not under the configured base url", ref)
	}
	// Base names only; refs must never reach outside the image directory.
	key = filepath.Base(key)

	if err := os.Remove(filepath.Join(l.dir, key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove image file: %w", err)
	}
	return nil
}
