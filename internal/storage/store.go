// Package storage persists attachment blobs behind opaque handles.
package storage

import (
	"context"
	"io"
)

// AttachmentStore saves and loads binary blobs. Handles are opaque to
// callers and stable for the life of the blob.
type AttachmentStore interface {
	Save(ctx context.Context, content io.Reader, filename, contentType string) (handle string, err error)
	Load(ctx context.Context, handle string) (io.ReadCloser, error)
}
