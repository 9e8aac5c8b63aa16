// Package storage manages staging slots: transient local files that hold an
// in-flight upload's bytes before they are relayed to remote storage.
package storage

import (
	"context"
	"io"
)

// Stager defines the operations the upload pipeline needs from local staging.
type Stager interface {
	// Slot reserves a staging path for filename, unique to uploadID.
	// The file itself is not created until Write.
	Slot(ctx context.Context, uploadID, filename string) (path string, err error)

	// Write streams data into the slot at path. onWrite, if not nil, is
	// called with the cumulative number of bytes written after every chunk.
	Write(ctx context.Context, path string, data io.Reader, onWrite func(written int64)) (int64, error)

	// Cleanup removes the slot's file and its reservation.
	// Removing a slot that does not exist is not an error.
	Cleanup(ctx context.Context, path string) error
}
