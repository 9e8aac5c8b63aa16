package upload

import (
	"context"
	"errors"
)

// ErrUploadNotFound is returned when an upload cannot be found by ID.
var ErrUploadNotFound = errors.New("upload not found")

// Repository defines the interface for keeping track of uploads.
type Repository interface {
	// Save stores a snapshot of the upload.
	// If the upload already exists, it is replaced.
	Save(ctx context.Context, upload *Upload) error

	// FindByID retrieves an upload by its unique identifier.
	// Returns ErrUploadNotFound if the upload does not exist.
	FindByID(ctx context.Context, id string) (*Upload, error)

	// List returns all known uploads, newest first.
	List(ctx context.Context) ([]*Upload, error)
}
