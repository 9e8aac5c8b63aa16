// Package server provides the bot's HTTP surface: a health check and a
// read-only view of recent uploads. DTOs are kept apart from domain types.
package server

import "time"

// UploadResponse describes one upload.
type UploadResponse struct {
	// ID is the unique identifier for the upload.
	ID string `json:"id"`
	// Status is the current pipeline state.
	Status string `json:"status"`
	// SenderID is the chat identity of the requester.
	SenderID int64 `json:"sender_id"`
	// Filename is the name used locally and remotely.
	Filename string `json:"filename"`
	// Size is the announced size in bytes.
	Size int64 `json:"size"`
	// Progress is the staged percentage (0-100).
	Progress int `json:"progress"`
	// DateFolder is the remote per-day folder.
	DateFolder string `json:"date_folder,omitempty"`
	// PublicURL is the public link of the date folder.
	PublicURL string `json:"public_url,omitempty"`
	// Error contains the error message if the upload failed.
	Error string `json:"error,omitempty"`
	// CreatedAt is when the video was received.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is when the upload last changed.
	UpdatedAt time.Time `json:"updated_at"`
	// CompletedAt is set once the upload is DONE or FAILED.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// UploadListResponse is the HTTP response for listing uploads.
type UploadListResponse struct {
	Uploads []UploadResponse `json:"uploads"`
	Count   int              `json:"count"`
}

// ListUploadsQuery holds the query parameters of GET /uploads.
type ListUploadsQuery struct {
	Status string `validate:"omitempty,oneof=RECEIVED AUTHORIZING STAGING PLACING PUBLISHED DONE FAILED"`
	Limit  int    `validate:"min=0,max=1000"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
	// InFlight is the number of uploads not yet DONE or FAILED.
	InFlight int `json:"in_flight"`
}
