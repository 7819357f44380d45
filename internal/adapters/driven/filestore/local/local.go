// Package local provides attachment reads from the local filesystem.
package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/conduitworks/parley/internal/core/domain"
	"github.com/conduitworks/parley/internal/core/ports/driven"
)

// Ensure FileStore implements the interface.
var _ driven.FileStore = (*FileStore)(nil)

// FileStore reads attachment bytes from disk. Relative storage paths
// resolve against a base directory; absolute paths are used as-is.
type FileStore struct {
	baseDir string
}

// NewFileStore creates a new local file store. If baseDir is empty,
// defaults to ~/.parley/uploads.
func NewFileStore(baseDir string) (*FileStore, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		baseDir = filepath.Join(home, ".parley", "uploads")
	}

	return &FileStore{baseDir: baseDir}, nil
}

// ReadFile returns the bytes stored at the given path.
func (s *FileStore) ReadFile(_ context.Context, path string) ([]byte, error) {
	full := path
	if !filepath.IsAbs(full) {
		full = filepath.Join(s.baseDir, path)
	}

	data, err := os.ReadFile(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file %s: %w", path, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}
