package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// FilesystemStore keeps attachments under a root directory, sharded by the
// first two characters of the handle to keep directories small.
type FilesystemStore struct {
	root string
}

// NewFilesystemStore ensures the root directory exists.
func NewFilesystemStore(root string) (*FilesystemStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create attachment root: %w", err)
	}
	return &FilesystemStore{root: root}, nil
}

// Save writes the blob and returns its handle.
func (s *FilesystemStore) Save(_ context.Context, content io.Reader, filename, contentType string) (string, error) {
	handle := uuid.NewString()
	dir := filepath.Join(s.root, handle[:2])
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create shard dir: %w", err)
	}

	path := filepath.Join(dir, handle)
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create attachment file: %w", err)
	}
	if _, err := io.Copy(file, content); err != nil {
		file.Close()
		os.Remove(path)
		return "", fmt.Errorf("write attachment %q (%s): %w", filename, contentType, err)
	}
	if err := file.Close(); err != nil {
		return "", err
	}
	return handle, nil
}

// Load opens the blob for a handle.
func (s *FilesystemStore) Load(_ context.Context, handle string) (io.ReadCloser, error) {
	if len(handle) < 2 {
		return nil, fmt.Errorf("malformed attachment handle %q", handle)
	}
	file, err := os.Open(filepath.Join(s.root, handle[:2], handle))
	if err != nil {
		return nil, fmt.Errorf("open attachment %s: %w", handle, err)
	}
	return file, nil
}
