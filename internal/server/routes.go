package server

import (
	"log/slog"
	"net/http"
)

// NewRouter creates a new HTTP router with all routes configured.
func NewRouter(h *Handlers, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /uploads", h.ListUploads)
	mux.HandleFunc("GET /uploads/{id}", h.GetUpload)

	chain := ChainMiddleware(
		RecoveryMiddleware(logger),
		LoggingMiddleware(logger),
	)

	return chain(mux)
}
