package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNewLocalStorage(t *testing.T) {
	t.Run("creates directory if not exists", func(t *testing.T) {
		tempDir := filepath.Join(os.TempDir(), "videobackup_test_"+randomSuffix())
		defer func() { _ = os.RemoveAll(tempDir) }()

		storage, err := NewLocalStorage(tempDir)
		if err != nil {
			t.Fatalf("NewLocalStorage() error = %v", err)
		}

		if storage.TempDir() != tempDir {
			t.Errorf("TempDir() = %v, want %v", storage.TempDir(), tempDir)
		}

		info, err := os.Stat(tempDir)
		if err != nil {
			t.Fatalf("directory not created: %v", err)
		}
		if !info.IsDir() {
			t.Error("expected directory, got file")
		}
	})

	t.Run("uses default directory when empty", func(t *testing.T) {
		storage, err := NewLocalStorage("")
		if err != nil {
			t.Fatalf("NewLocalStorage() error = %v", err)
		}

		expected := filepath.Join(os.TempDir(), "telegram_videos")
		if storage.TempDir() != expected {
			t.Errorf("TempDir() = %v, want %v", storage.TempDir(), expected)
		}
	})
}

func TestLocalStorage_Slot(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	t.Run("named after the filename under the upload id", func(t *testing.T) {
		path, err := storage.Slot(ctx, "up-1", "video_abc123.mp4")
		if err != nil {
			t.Fatalf("Slot() error = %v", err)
		}

		want := filepath.Join(storage.TempDir(), "up-1", "video_abc123.mp4")
		if path != want {
			t.Errorf("Slot() = %v, want %v", path, want)
		}
		if _, err := os.Stat(filepath.Dir(path)); err != nil {
			t.Errorf("slot directory not created: %v", err)
		}
	})

	t.Run("same filename in two uploads gets two paths", func(t *testing.T) {
		a, err := storage.Slot(ctx, "up-a", "clip.mp4")
		if err != nil {
			t.Fatalf("Slot() error = %v", err)
		}
		b, err := storage.Slot(ctx, "up-b", "clip.mp4")
		if err != nil {
			t.Fatalf("Slot() error = %v", err)
		}
		if a == b {
			t.Errorf("expected distinct paths, got %s twice", a)
		}
	})

	t.Run("strips directory components", func(t *testing.T) {
		path, err := storage.Slot(ctx, "up-2", "../../etc/passwd")
		if err != nil {
			t.Fatalf("Slot() error = %v", err)
		}
		if filepath.Base(path) != "passwd" || !strings.HasPrefix(path, storage.TempDir()) {
			t.Errorf("unexpected slot path %s", path)
		}
	})

	t.Run("rejects unusable names", func(t *testing.T) {
		for _, name := range []string{"", "/", ".", ".."} {
			if _, err := storage.Slot(ctx, "up-3", name); !errors.Is(err, ErrInvalidFilename) {
				t.Errorf("Slot(%q) error = %v, want ErrInvalidFilename", name, err)
			}
		}
	})

	t.Run("rejects unusable upload ids", func(t *testing.T) {
		for _, id := range []string{"", "..", "a/b"} {
			if _, err := storage.Slot(ctx, id, "clip.mp4"); !errors.Is(err, ErrInvalidUploadID) {
				t.Errorf("Slot(%q) error = %v, want ErrInvalidUploadID", id, err)
			}
		}
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := storage.Slot(ctx, "up-4", "clip.mp4")
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestLocalStorage_Write(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	t.Run("writes data and reports progress", func(t *testing.T) {
		path, err := storage.Slot(ctx, "w-1", "clip.mp4")
		if err != nil {
			t.Fatalf("Slot() error = %v", err)
		}

		var reports []int64
		data := bytes.Repeat([]byte("x"), 100*1024)
		n, err := storage.Write(ctx, path, bytes.NewReader(data), func(w int64) {
			reports = append(reports, w)
		})
		if err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if n != int64(len(data)) {
			t.Errorf("Write() = %d, want %d", n, len(data))
		}

		content, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("failed to read staged file: %v", err)
		}
		if !bytes.Equal(content, data) {
			t.Error("staged content mismatch")
		}

		if len(reports) == 0 {
			t.Fatal("expected progress reports")
		}
		for i := 1; i < len(reports); i++ {
			if reports[i] < reports[i-1] {
				t.Errorf("progress decreased: %d after %d", reports[i], reports[i-1])
			}
		}
		if reports[len(reports)-1] != int64(len(data)) {
			t.Errorf("last report = %d, want %d", reports[len(reports)-1], len(data))
		}
	})

	t.Run("removes partial file on read error", func(t *testing.T) {
		path, err := storage.Slot(ctx, "w-2", "broken.mp4")
		if err != nil {
			t.Fatalf("Slot() error = %v", err)
		}

		src := io.MultiReader(strings.NewReader("partial"), errReader{errors.New("connection reset")})
		_, err = storage.Write(ctx, path, src, nil)
		if err == nil || !strings.Contains(err.Error(), "connection reset") {
			t.Fatalf("expected read error, got %v", err)
		}
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("partial file %s still exists", path)
		}
	})

	t.Run("rejects paths outside temp dir", func(t *testing.T) {
		_, err := storage.Write(ctx, filepath.Join(os.TempDir(), "escape.mp4"), strings.NewReader("x"), nil)
		if !errors.Is(err, ErrOutsideTempDir) {
			t.Errorf("expected ErrOutsideTempDir, got %v", err)
		}
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := storage.Write(ctx, filepath.Join(storage.TempDir(), "x", "y"), strings.NewReader("x"), nil)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestLocalStorage_Cleanup(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	t.Run("removes file and slot directory", func(t *testing.T) {
		path, err := storage.Slot(ctx, "c-1", "clip.mp4")
		if err != nil {
			t.Fatalf("Slot() error = %v", err)
		}
		if _, err := storage.Write(ctx, path, strings.NewReader("data"), nil); err != nil {
			t.Fatalf("Write() error = %v", err)
		}

		if err := storage.Cleanup(ctx, path); err != nil {
			t.Fatalf("Cleanup() error = %v", err)
		}
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("file %s still exists", path)
		}
		if _, err := os.Stat(filepath.Dir(path)); !os.IsNotExist(err) {
			t.Errorf("slot directory %s still exists", filepath.Dir(path))
		}

		entries, err := os.ReadDir(storage.TempDir())
		if err != nil {
			t.Fatalf("ReadDir() error = %v", err)
		}
		if len(entries) != 0 {
			t.Errorf("temp dir not empty: %d entries", len(entries))
		}
	})

	t.Run("ignores slots that were never written", func(t *testing.T) {
		path, err := storage.Slot(ctx, "c-2", "clip.mp4")
		if err != nil {
			t.Fatalf("Slot() error = %v", err)
		}
		if err := storage.Cleanup(ctx, path); err != nil {
			t.Errorf("Cleanup() should ignore missing files, got %v", err)
		}
		if err := storage.Cleanup(ctx, path); err != nil {
			t.Errorf("second Cleanup() should be a no-op, got %v", err)
		}
	})

	t.Run("refuses paths outside temp dir", func(t *testing.T) {
		err := storage.Cleanup(ctx, "/etc/hosts")
		if !errors.Is(err, ErrOutsideTempDir) {
			t.Errorf("expected ErrOutsideTempDir, got %v", err)
		}
	})
}

type errReader struct{ err error }

func (r errReader) Read([]byte) (int, error) { return 0, r.err }

func setupTestStorage(t *testing.T) *LocalStorage {
	t.Helper()
	tempDir := filepath.Join(os.TempDir(), "videobackup_test_"+randomSuffix())
	t.Cleanup(func() { _ = os.RemoveAll(tempDir) })

	storage, err := NewLocalStorage(tempDir)
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	return storage
}

func randomSuffix() string {
	return time.Now().Format("20060102150405.000000000")
}
