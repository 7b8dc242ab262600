// Package blob is the photo-upload collaborator. Event photos are uploaded
// under a key derived from the event ID before the referencing document is
// written.
package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Uploader stores a blob and returns the public URL it is served from.
type Uploader interface {
	Upload(ctx context.Context, key string, data []byte) (string, error)
}

// FSUploader writes blobs below a root directory and maps them to URLs under
// a base URL (served by the HTTP file route or a fronting web server).
type FSUploader struct {
	Root    string
	BaseURL string
}

func NewFSUploader(root, baseURL string) *FSUploader {
	return &FSUploader{Root: root, BaseURL: strings.TrimRight(baseURL, "/")}
}

func (u *FSUploader) Upload(_ context.Context, key string, data []byte) (string, error) {
	key = filepath.ToSlash(filepath.Clean(key))
	if key == "." || strings.HasPrefix(key, "..") {
		return "", fmt.Errorf("invalid blob key %q", key)
	}

	path := filepath.Join(u.Root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to prepare blob directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write blob %q: %w", key, err)
	}
	return u.BaseURL + "/" + key, nil
}
