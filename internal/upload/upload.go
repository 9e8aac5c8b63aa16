// Package upload implements the pipeline that relays one chat video to
// remote storage: authorization, local staging with progress reporting,
// remote placement, cleanup and failure reporting. It includes the Upload
// aggregate with its state machine and an in-memory registry of uploads.
package upload

import (
	"errors"
	"sync"
	"time"

	"github.com/maauso/videobackup-bot/internal/upload/id"
)

// Status represents the current state of an Upload.
type Status string

const (
	// StatusReceived indicates the video event was accepted by the pipeline.
	StatusReceived Status = "RECEIVED"
	// StatusAuthorizing indicates the sender is being checked against the allow-list.
	StatusAuthorizing Status = "AUTHORIZING"
	// StatusStaging indicates the video is being streamed to local disk.
	StatusStaging Status = "STAGING"
	// StatusPlacing indicates the staged file is being uploaded to remote storage.
	StatusPlacing Status = "PLACING"
	// StatusPublished indicates the date folder is published and the link is known.
	StatusPublished Status = "PUBLISHED"
	// StatusDone indicates the staging slot was released and the requester informed.
	StatusDone Status = "DONE"
	// StatusFailed indicates the upload was aborted by an error.
	StatusFailed Status = "FAILED"
)

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

// validTransitions defines which state transitions are allowed.
var validTransitions = map[Status][]Status{
	StatusReceived:    {StatusAuthorizing, StatusFailed},
	StatusAuthorizing: {StatusStaging, StatusFailed},
	StatusStaging:     {StatusPlacing, StatusFailed},
	StatusPlacing:     {StatusPublished, StatusFailed},
	StatusPublished:   {StatusDone, StatusFailed},
	StatusDone:        {},
	StatusFailed:      {},
}

// canTransition checks if a transition from one status to another is valid.
func canTransition(from, to Status) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// Upload tracks one video's journey through the pipeline.
type Upload struct {
	mu sync.RWMutex

	// ID is the unique identifier for this upload.
	ID string
	// Status is the current state.
	Status Status
	// SenderID is the chat identity of the requester.
	SenderID int64
	// Sender is the requester's display name.
	Sender string
	// ChatID is the chat the video was posted in.
	ChatID int64
	// Filename is the resolved file name used locally and remotely.
	Filename string
	// Size is the video size in bytes as announced by the chat transport.
	Size int64
	// Progress is the staged percentage (0-100).
	Progress int
	// DateFolder is the per-day folder name (YYYY-MM-DD).
	DateFolder string
	// PublicURL is the public link of the date folder.
	PublicURL string
	// Error contains the error message if the upload failed.
	Error string
	// CreatedAt is when the upload was received.
	CreatedAt time.Time
	// UpdatedAt is when the upload was last updated.
	UpdatedAt time.Time
	// CompletedAt is when the upload reached a terminal state.
	CompletedAt time.Time
}

// New creates a new Upload in RECEIVED state from an inbound request.
func New(req Request) *Upload {
	now := time.Now()
	return &Upload{
		ID:        id.Generate(),
		Status:    StatusReceived,
		SenderID:  req.Sender.ID,
		Sender:    req.Sender.DisplayName(),
		ChatID:    req.ChatID,
		Filename:  req.Filename(),
		Size:      req.FileSize,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TransitionTo attempts to change the upload status to the specified state.
// Returns ErrInvalidTransition if the transition is not allowed.
func (u *Upload) TransitionTo(status Status) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if !canTransition(u.Status, status) {
		return ErrInvalidTransition
	}

	u.Status = status
	u.UpdatedAt = time.Now()
	if status == StatusDone || status == StatusFailed {
		u.CompletedAt = u.UpdatedAt
	}
	return nil
}

// Fail transitions the upload to FAILED with an error message.
func (u *Upload) Fail(errMsg string) error {
	u.mu.Lock()
	u.Error = errMsg
	u.mu.Unlock()
	return u.TransitionTo(StatusFailed)
}

// GetStatus returns the current status (thread-safe).
func (u *Upload) GetStatus() Status {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.Status
}

// UpdateProgress sets the staged percentage, clamped to 0-100.
// The stored value never decreases.
func (u *Upload) UpdateProgress(progress int) {
	u.mu.Lock()
	defer u.mu.Unlock()

	progress = max(0, min(progress, 100))
	if progress < u.Progress {
		return
	}
	u.Progress = progress
	u.UpdatedAt = time.Now()
}

// SetResult records where the upload was placed.
func (u *Upload) SetResult(dateFolder, publicURL string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.DateFolder = dateFolder
	u.PublicURL = publicURL
	u.UpdatedAt = time.Now()
}

// IsTerminal returns true if the upload is DONE or FAILED.
func (u *Upload) IsTerminal() bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.Status == StatusDone || u.Status == StatusFailed
}

// Clone creates a copy of the upload for safe reads.
func (u *Upload) Clone() *Upload {
	u.mu.RLock()
	defer u.mu.RUnlock()

	return &Upload{
		ID:          u.ID,
		Status:      u.Status,
		SenderID:    u.SenderID,
		Sender:      u.Sender,
		ChatID:      u.ChatID,
		Filename:    u.Filename,
		Size:        u.Size,
		Progress:    u.Progress,
		DateFolder:  u.DateFolder,
		PublicURL:   u.PublicURL,
		Error:       u.Error,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
		CompletedAt: u.CompletedAt,
	}
}
