package objectstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// Store persists rendered files and resolves public URLs. Upload failure is
// fatal to the Uploading stage, never to rendering.
type Store interface {
	Upload(ctx context.Context, localPath string) (string, error)
	PublicURL(key string) string
	// Local reports whether the backing provider is local disk; local mode
	// preserves rendered artifacts on stage failure.
	Local() bool
}

// LocalStore keeps outputs on local disk and serves them from a static
// path. The default provider; cloud stores implement the same interface.
type LocalStore struct {
	logger  zerolog.Logger
	dir     string
	baseURL string
}

// NewLocalStore creates a LocalStore rooted at dir with public URLs under
// baseURL/outputs/.
func NewLocalStore(logger zerolog.Logger, dir, baseURL string) *LocalStore {
	return &LocalStore{
		logger:  logger.With().Str("component", "objectstore").Logger(),
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Dir returns the output directory, for static file serving.
func (s *LocalStore) Dir() string { return s.dir }

// Upload moves localPath into the output directory and returns its key.
func (s *LocalStore) Upload(ctx context.Context, localPath string) (string, error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", err
	}
	key := filepath.Base(localPath)
	dest := filepath.Join(s.dir, key)

	if localPath == dest {
		return key, nil
	}
	if err := os.Rename(localPath, dest); err != nil {
		// Rename fails across filesystems; fall back to a copy.
		if err := copyFile(localPath, dest); err != nil {
			return "", fmt.Errorf("store upload failed: %w", err)
		}
		os.Remove(localPath)
	}
	s.logger.Info().Str("key", key).Msg("artifact stored")
	return key, nil
}

// PublicURL returns the static URL for a stored key.
func (s *LocalStore) PublicURL(key string) string {
	return s.baseURL + "/outputs/" + key
}

func (s *LocalStore) Local() bool { return true }

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
