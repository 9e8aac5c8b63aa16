package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Static errors for staging operations.
var (
	// ErrInvalidFilename is returned when a filename has no usable base name.
	ErrInvalidFilename = errors.New("storage: invalid filename")
	// ErrInvalidUploadID is returned when an upload id cannot name a directory.
	ErrInvalidUploadID = errors.New("storage: invalid upload id")
	// ErrOutsideTempDir is returned when a path is not inside the scratch directory.
	ErrOutsideTempDir = errors.New("storage: path outside temp directory")
)

// Compile-time check that LocalStorage implements Stager.
var _ Stager = (*LocalStorage)(nil)

// LocalStorage implements Stager on local disk. Each slot is
// <tempDir>/<uploadID>/<filename>, so concurrent uploads of files with the
// same name never share a path.
type LocalStorage struct {
	tempDir string
}

// NewLocalStorage creates a new LocalStorage instance.
// The tempDir parameter specifies the scratch directory.
// If tempDir is empty, a directory under os.TempDir() is used.
// The directory is created if it doesn't exist.
func NewLocalStorage(tempDir string) (*LocalStorage, error) {
	if tempDir == "" {
		tempDir = filepath.Join(os.TempDir(), "telegram_videos")
	}

	if err := os.MkdirAll(tempDir, 0750); err != nil {
		return nil, fmt.Errorf("create temp directory: %w", err)
	}

	return &LocalStorage{tempDir: tempDir}, nil
}

// TempDir returns the scratch directory path.
func (s *LocalStorage) TempDir() string {
	return s.tempDir
}

// Slot reserves <tempDir>/<uploadID>/<base(filename)>.
func (s *LocalStorage) Slot(ctx context.Context, uploadID, filename string) (string, error) {
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	name := filepath.Base(filename)
	if name == "." || name == ".." || name == string(filepath.Separator) || strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidFilename, filename)
	}
	if uploadID == "" || uploadID != filepath.Base(uploadID) || uploadID == "." || uploadID == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidUploadID, uploadID)
	}

	dir := filepath.Join(s.tempDir, uploadID)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("create slot directory: %w", err)
	}

	return filepath.Join(dir, name), nil
}

// Write streams data into path. On failure the partial file is removed.
func (s *LocalStorage) Write(ctx context.Context, path string, data io.Reader, onWrite func(int64)) (int64, error) {
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	if !s.contains(path) {
		return 0, fmt.Errorf("%w: %s", ErrOutsideTempDir, path)
	}

	f, err := os.Create(path) // #nosec G304 - path was produced by Slot
	if err != nil {
		return 0, fmt.Errorf("create staging file: %w", err)
	}

	pw := &progressWriter{w: f, onWrite: onWrite}
	n, err := io.Copy(pw, data)
	if err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return n, fmt.Errorf("write staging file: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return n, fmt.Errorf("close staging file: %w", err)
	}

	return n, nil
}

// Cleanup removes the file at path and its slot directory.
func (s *LocalStorage) Cleanup(_ context.Context, path string) error {
	if !s.contains(path) {
		return fmt.Errorf("%w: %s", ErrOutsideTempDir, path)
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove staging file %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	if filepath.Clean(dir) == filepath.Clean(s.tempDir) {
		return nil
	}
	if err := os.Remove(dir); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove slot directory %s: %w", dir, err)
	}
	return nil
}

// contains reports whether path is strictly inside the scratch directory.
func (s *LocalStorage) contains(path string) bool {
	rel, err := filepath.Rel(s.tempDir, path)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// progressWriter reports the cumulative byte count after every write.
type progressWriter struct {
	w       io.Writer
	written int64
	onWrite func(int64)
}

func (p *progressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	p.written += int64(n)
	if p.onWrite != nil && n > 0 {
		p.onWrite(p.written)
	}
	return n, err
}
