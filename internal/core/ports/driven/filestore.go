package driven

import "context"

// FileStore reads stored attachment bytes. Writing files is the upload
// transport's concern and stays outside this core.
type FileStore interface {
	// ReadFile returns the bytes stored at the given path.
	ReadFile(ctx context.Context, path string) ([]byte, error)
}
