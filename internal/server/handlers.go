package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/maauso/videobackup-bot/internal/upload"
	"github.com/maauso/videobackup-bot/internal/upload/id"
)

// Handlers contains the HTTP handlers.
type Handlers struct {
	repo      upload.Repository
	validator *validator.Validate
	logger    *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(repo upload.Repository, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		repo:      repo,
		validator: validator.New(),
		logger:    logger,
	}
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	uploads, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list uploads", slog.String("error", err.Error()))
		writeError(w, http.StatusServiceUnavailable, "upload registry unavailable", "REGISTRY_UNAVAILABLE")
		return
	}

	inFlight := 0
	for _, u := range uploads {
		if !u.IsTerminal() {
			inFlight++
		}
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", InFlight: inFlight})
}

// ListUploads handles GET /uploads requests. Results are newest first and
// can be filtered with ?status= and capped with ?limit=.
func (h *Handlers) ListUploads(w http.ResponseWriter, r *http.Request) {
	query := ListUploadsQuery{Status: r.URL.Query().Get("status")}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be an integer", "VALIDATION_ERROR")
			return
		}
		query.Limit = limit
	}

	if err := h.validator.Struct(query); err != nil {
		h.logger.Warn("request validation failed", slog.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	uploads, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list uploads", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list uploads", "UPLOAD_LIST_FAILED")
		return
	}

	resp := UploadListResponse{Uploads: make([]UploadResponse, 0, len(uploads))}
	for _, u := range uploads {
		if query.Status != "" && string(u.Status) != query.Status {
			continue
		}
		if query.Limit > 0 && len(resp.Uploads) == query.Limit {
			break
		}
		resp.Uploads = append(resp.Uploads, toUploadResponse(u))
	}
	resp.Count = len(resp.Uploads)

	writeJSON(w, http.StatusOK, resp)
}

// GetUpload handles GET /uploads/{id} requests.
func (h *Handlers) GetUpload(w http.ResponseWriter, r *http.Request) {
	uploadID := r.PathValue("id")
	if !id.Valid(uploadID) {
		writeError(w, http.StatusBadRequest, "malformed upload ID", "INVALID_UPLOAD_ID")
		return
	}

	u, err := h.repo.FindByID(r.Context(), uploadID)
	if err != nil {
		if errors.Is(err, upload.ErrUploadNotFound) {
			writeError(w, http.StatusNotFound, "upload not found", "UPLOAD_NOT_FOUND")
			return
		}
		h.logger.Error("failed to get upload",
			slog.String("upload_id", uploadID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get upload", "UPLOAD_FETCH_FAILED")
		return
	}

	writeJSON(w, http.StatusOK, toUploadResponse(u))
}

func toUploadResponse(u *upload.Upload) UploadResponse {
	resp := UploadResponse{
		ID:         u.ID,
		Status:     string(u.Status),
		SenderID:   u.SenderID,
		Filename:   u.Filename,
		Size:       u.Size,
		Progress:   u.Progress,
		DateFolder: u.DateFolder,
		PublicURL:  u.PublicURL,
		Error:      u.Error,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
	if !u.CompletedAt.IsZero() {
		completed := u.CompletedAt
		resp.CompletedAt = &completed
	}
	return resp
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
