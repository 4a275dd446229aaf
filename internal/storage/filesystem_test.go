package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilesystemStoreRoundTrip(t *testing.T) {
	store, err := NewFilesystemStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	handle, err := store.Save(ctx, strings.NewReader("screenshot bytes"), "screenshot.png", "image/png")
	require.NoError(t, err)
	require.NotEmpty(t, handle)

	reader, err := store.Load(ctx, handle)
	require.NoError(t, err)
	defer reader.Close()

	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "screenshot bytes", string(data))
}

func TestFilesystemStoreUnknownHandle(t *testing.T) {
	store, err := NewFilesystemStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Load(context.Background(), "doesnotexist")
	assert.Error(t, err)

	_, err = store.Load(context.Background(), "x")
	assert.Error(t, err)
}
