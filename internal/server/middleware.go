package server

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"
)

// Error codes written by the middleware.
const (
	codePanic = "REGISTRY_HANDLER_PANIC"
)

// statusRecorder captures the status code and body size of a response.
type statusRecorder struct {
	http.ResponseWriter
	statusCode  int
	bytes       int
	wroteHeader bool
}

// WriteHeader captures the status code before writing it.
func (rw *statusRecorder) WriteHeader(code int) {
	if rw.wroteHeader {
		return
	}
	rw.statusCode = code
	rw.wroteHeader = true
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += n
	return n, err
}

func newStatusRecorder(w http.ResponseWriter) *statusRecorder {
	if rw, ok := w.(*statusRecorder); ok {
		return rw
	}
	return &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
}

// requestAttrs describes the request once the mux has matched it. The route
// pattern and the upload ID are only known after routing.
func requestAttrs(r *http.Request) []any {
	attrs := []any{
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	}
	if r.Pattern != "" {
		attrs = append(attrs, slog.String("route", r.Pattern))
	}
	if uploadID := r.PathValue("id"); uploadID != "" {
		attrs = append(attrs, slog.String("upload_id", uploadID))
	}
	return attrs
}

// LoggingMiddleware logs one line per request. Health probes log at debug
// level and server errors at warn level.
func LoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := newStatusRecorder(w)

			next.ServeHTTP(rw, r)

			level := slog.LevelInfo
			switch {
			case rw.statusCode >= http.StatusInternalServerError:
				level = slog.LevelWarn
			case r.URL.Path == "/health":
				level = slog.LevelDebug
			}

			attrs := append(requestAttrs(r),
				slog.Int("status", rw.statusCode),
				slog.Int("bytes", rw.bytes),
				slog.Duration("duration", time.Since(start)),
				slog.String("remote_addr", r.RemoteAddr),
			)
			logger.Log(r.Context(), level, "http request", attrs...)
		})
	}
}

// RecoveryMiddleware turns a handler panic into a 500 response. A response
// that has already started is left as is.
func RecoveryMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := newStatusRecorder(w)
			defer func() {
				err := recover()
				if err == nil {
					return
				}
				attrs := append(requestAttrs(r),
					slog.Any("error", err),
					slog.String("stack", string(debug.Stack())),
				)
				logger.Error("panic recovered", attrs...)
				if !rw.wroteHeader {
					writeError(rw, http.StatusInternalServerError, "upload registry handler failed", codePanic)
				}
			}()
			next.ServeHTTP(rw, r)
		})
	}
}

// ChainMiddleware applies middlewares so the first one is outermost.
func ChainMiddleware(middlewares ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}
