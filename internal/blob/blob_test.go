package blob

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFSUploader(t *testing.T) {
	ctx := context.Background()

	t.Run("writes and returns url", func(t *testing.T) {
		root := t.TempDir()
		u := NewFSUploader(root, "http://localhost:8005/media/")

		url, err := u.Upload(ctx, "events/ev-1.jpg", []byte("jpeg-bytes"))
		require.NoError(t, err)
		require.Equal(t, "http://localhost:8005/media/events/ev-1.jpg", url)

		data, err := os.ReadFile(filepath.Join(root, "events", "ev-1.jpg"))
		require.NoError(t, err)
		require.Equal(t, []byte("jpeg-bytes"), data)
	})

	t.Run("rejects path escapes", func(t *testing.T) {
		u := NewFSUploader(t.TempDir(), "http://localhost/media")
		_, err := u.Upload(ctx, "../outside.jpg", []byte("x"))
		require.Error(t, err)
	})
}
