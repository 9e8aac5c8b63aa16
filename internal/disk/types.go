// Package disk provides an HTTP client for the Yandex Disk REST API.
// It covers the subset the bot needs: idempotent folder creation, two-step
// file upload, folder publication, public link lookup and usage statistics.
package disk

import (
	"encoding/json"
	"fmt"
)

// bytesPerGB is the base-1024 gigabyte used for usage statistics.
const bytesPerGB = 1024 * 1024 * 1024

// Stats describes disk usage in gigabytes.
type Stats struct {
	TotalGB     float64
	UsedGB      float64
	UsedPercent float64 // 0 when the provider reports zero total space
}

// FreeGB returns the remaining space in gigabytes.
func (s Stats) FreeGB() float64 {
	return s.TotalGB - s.UsedGB
}

// newStats converts raw byte counts into Stats.
func newStats(total, used int64) Stats {
	s := Stats{
		TotalGB: float64(total) / bytesPerGB,
		UsedGB:  float64(used) / bytesPerGB,
	}
	if total > 0 {
		s.UsedPercent = float64(used) / float64(total) * 100
	}
	return s
}

// codePathDoesntExist is the provider error code for a missing parent folder.
// It shares the 409 status with "already exists" and must not be absorbed.
const codePathDoesntExist = "DiskPathDoesntExistsError"

// APIError is returned for any non-success HTTP status from the provider.
// It carries the status code and the raw response body.
type APIError struct {
	StatusCode int
	Body       string
	// Code is the provider error code parsed from Body, if any.
	Code string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("disk: API error [%d]: %s", e.StatusCode, e.Body)
}

// newAPIError builds an APIError and extracts the provider error code when
// the body is a JSON error document.
func newAPIError(status int, body []byte) *APIError {
	e := &APIError{StatusCode: status, Body: string(body)}
	var doc errorResponse
	if json.Unmarshal(body, &doc) == nil {
		e.Code = doc.Error
	}
	return e
}

// errorResponse is the provider's error document.
type errorResponse struct {
	Message     string `json:"message,omitempty"`
	Description string `json:"description,omitempty"`
	Error       string `json:"error,omitempty"`
}

// link is returned by the upload-target and publish endpoints.
type link struct {
	Href      string `json:"href"`
	Method    string `json:"method,omitempty"`
	Templated bool   `json:"templated,omitempty"`
}

// resource is the subset of resource metadata the client reads.
type resource struct {
	Path      string `json:"path,omitempty"`
	Name      string `json:"name,omitempty"`
	Type      string `json:"type,omitempty"`
	PublicURL string `json:"public_url,omitempty"`
}

// diskInfo is the response of the disk root endpoint.
type diskInfo struct {
	TotalSpace int64 `json:"total_space"`
	UsedSpace  int64 `json:"used_space"`
}
