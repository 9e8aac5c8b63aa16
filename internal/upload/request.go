package upload

import (
	"context"
	"io"
	"path"
	"strings"
)

// DefaultExtension is appended to generated filenames.
const DefaultExtension = ".mp4"

// Sender identifies who posted a video.
type Sender struct {
	ID        int64
	Username  string
	FirstName string
}

// DisplayName returns the username, falling back to the first name.
func (s Sender) DisplayName() string {
	if s.Username != "" {
		return s.Username
	}
	return s.FirstName
}

// Source opens the byte stream of an inbound video.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context) (io.ReadCloser, error)

// Open calls f(ctx).
func (f SourceFunc) Open(ctx context.Context) (io.ReadCloser, error) {
	return f(ctx)
}

// Request is an inbound video accepted from the chat transport.
// It is not modified once handed to the pipeline.
type Request struct {
	Sender Sender
	// ChatID and MessageID locate the video message; the status message
	// is posted as a reply to it.
	ChatID    int64
	MessageID int
	// FileName is the original name, empty when the transport has none.
	FileName string
	// FileUniqueID is the transport's stable identifier for the file.
	FileUniqueID string
	// FileSize is the announced size in bytes.
	FileSize int64
	Source   Source
}

// Filename returns the last element of the original name, or
// video_<unique id>.mp4 when there is no usable name. The same name is used
// for the staging slot, the remote path and operator notices.
func (r Request) Filename() string {
	name := path.Base(strings.ReplaceAll(r.FileName, "\\", "/"))
	switch name {
	case ".", "..", "/":
		return "video_" + r.FileUniqueID + DefaultExtension
	}
	return name
}

// SizeMB returns the announced size in megabytes.
func (r Request) SizeMB() float64 {
	return float64(r.FileSize) / (1024 * 1024)
}
