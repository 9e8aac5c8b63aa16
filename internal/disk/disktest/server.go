// Package disktest provides an in-memory Yandex Disk API served over
// httptest for use in tests.
package disktest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Server is a fake Yandex Disk API. Its zero state has no folders and no files.
type Server struct {
	*httptest.Server

	token string

	mu        sync.Mutex
	folders   map[string]bool
	published map[string]string
	files     map[string][]byte
	targets   map[string]string
	requests  []string

	// UploadStatus, when non-zero, is returned by the byte-upload endpoint
	// instead of storing the file.
	UploadStatus int
	// UploadBody is the response body sent with UploadStatus.
	UploadBody string
	// UploadDelay holds the byte-upload response back after the body has been
	// read, or until the client gives up.
	UploadDelay time.Duration
	// TotalSpace and UsedSpace are reported by the disk root endpoint.
	TotalSpace int64
	UsedSpace  int64
}

// NewServer starts a fake API that accepts the given OAuth token.
func NewServer(token string) *Server {
	s := &Server{
		token:     token,
		folders:   make(map[string]bool),
		published: make(map[string]string),
		files:     make(map[string][]byte),
		targets:   make(map[string]string),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/disk/{$}", s.diskInfo)
	mux.HandleFunc("PUT /v1/disk/resources", s.createFolder)
	mux.HandleFunc("GET /v1/disk/resources", s.meta)
	mux.HandleFunc("DELETE /v1/disk/resources", s.remove)
	mux.HandleFunc("GET /v1/disk/resources/upload", s.uploadTarget)
	mux.HandleFunc("PUT /v1/disk/resources/publish", s.publish)
	mux.HandleFunc("PUT /upload/{id}", s.upload)

	s.Server = httptest.NewServer(s.authorize(mux))
	return s
}

// BaseURL returns the API root to pass to disk.WithBaseURL.
func (s *Server) BaseURL() string {
	return s.URL + "/v1/disk"
}

// HasFolder reports whether the folder exists.
func (s *Server) HasFolder(p string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.folders[p]
}

// File returns the stored bytes of a file.
func (s *Server) File(p string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.files[p]
	return b, ok
}

// PublicURL returns the public link of a published folder.
func (s *Server) PublicURL(p string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.published[p]
	return u, ok
}

// AddFolder creates a folder without going through the API.
func (s *Server) AddFolder(p string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.folders[p] = true
}

// Requests returns "METHOD path" for every request received, in order.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

// Count returns how many received requests match "METHOD path".
func (s *Server) Count(request string) int {
	n := 0
	for _, r := range s.Requests() {
		if r == request {
			n++
		}
	}
	return n
}

func (s *Server) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, r.Method+" "+r.URL.Path)
		s.mu.Unlock()

		if r.Header.Get("Authorization") != "OAuth "+s.token {
			writeError(w, http.StatusUnauthorized, "UnauthorizedError")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) diskInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int64{
		"total_space": s.TotalSpace,
		"used_space":  s.UsedSpace,
	})
}

func (s *Server) createFolder(w http.ResponseWriter, r *http.Request) {
	p := r.URL.Query().Get("path")

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.folders[p] {
		writeError(w, http.StatusConflict, "DiskPathPointsToExistentDirectoryError")
		return
	}
	if parent := path.Dir(p); parent != "." && parent != "/" && !s.folders[parent] {
		writeError(w, http.StatusConflict, "DiskPathDoesntExistsError")
		return
	}
	s.folders[p] = true
	writeJSON(w, http.StatusCreated, map[string]string{"href": s.URL + "/v1/disk/resources?path=" + p})
}

func (s *Server) meta(w http.ResponseWriter, r *http.Request) {
	p := r.URL.Query().Get("path")

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.folders[p] {
		if _, ok := s.files[p]; !ok {
			writeError(w, http.StatusNotFound, "DiskNotFoundError")
			return
		}
	}

	body := map[string]string{"path": "disk:/" + p, "name": path.Base(p), "type": "dir"}
	if u, ok := s.published[p]; ok {
		body["public_url"] = u
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) remove(w http.ResponseWriter, r *http.Request) {
	p := r.URL.Query().Get("path")

	s.mu.Lock()
	defer s.mu.Unlock()

	_, isFile := s.files[p]
	if !s.folders[p] && !isFile {
		writeError(w, http.StatusNotFound, "DiskNotFoundError")
		return
	}

	prefix := p + "/"
	for f := range s.files {
		if f == p || strings.HasPrefix(f, prefix) {
			delete(s.files, f)
		}
	}
	for d := range s.folders {
		if d == p || strings.HasPrefix(d, prefix) {
			delete(s.folders, d)
			delete(s.published, d)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) uploadTarget(w http.ResponseWriter, r *http.Request) {
	p := r.URL.Query().Get("path")

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.files[p]; ok && r.URL.Query().Get("overwrite") != "true" {
		writeError(w, http.StatusConflict, "DiskResourceAlreadyExistsError")
		return
	}
	if !s.folders[path.Dir(p)] {
		writeError(w, http.StatusConflict, "DiskPathDoesntExistsError")
		return
	}

	id := strconv.Itoa(len(s.targets) + 1)
	s.targets[id] = p
	writeJSON(w, http.StatusOK, map[string]any{
		"href":      s.URL + "/upload/" + id,
		"method":    http.MethodPut,
		"templated": false,
	})
}

func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	status, body, delay := s.UploadStatus, s.UploadBody, s.UploadDelay
	p, ok := s.targets[r.PathValue("id")]
	s.mu.Unlock()

	if status != 0 {
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	s.mu.Lock()
	s.files[p] = data
	delete(s.targets, r.PathValue("id"))
	s.mu.Unlock()

	w.WriteHeader(http.StatusCreated)
}

func (s *Server) publish(w http.ResponseWriter, r *http.Request) {
	p := r.URL.Query().Get("path")

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.folders[p] {
		writeError(w, http.StatusNotFound, "DiskNotFoundError")
		return
	}
	if _, ok := s.published[p]; ok {
		writeError(w, http.StatusConflict, "DiskResourceAlreadyPublishedError")
		return
	}
	s.published[p] = fmt.Sprintf("https://yadi.sk/d/pub%d", len(s.published)+1)
	writeJSON(w, http.StatusOK, map[string]string{"href": s.URL + "/v1/disk/resources?path=" + p})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{
		"message":     code,
		"description": code,
		"error":       code,
	})
}
