// Package storetest provides an in-memory lookaside store speaking the
// same HTTP surface as the real one, for integration and e2e tests.
package storetest

import (
	"crypto/sha1"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// Server holds uploaded blobs keyed by digest.
type Server struct {
	mu       sync.Mutex
	blobs    map[string][]byte
	failWith int // when non-zero, every request answers with this status

	srv *httptest.Server
}

// New starts the fake store. Callers must Close it.
func New() *Server {
	s := &Server{blobs: make(map[string][]byte)}
	s.srv = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// URL is the base URL clients should be pointed at.
func (s *Server) URL() string {
	return s.srv.URL
}

// Close shuts the server down.
func (s *Server) Close() {
	s.srv.Close()
}

// Put seeds a blob without going through an upload.
func (s *Server) Put(digest string, content []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[digest] = content
}

// Has reports whether a blob with the digest was stored.
func (s *Server) Has(digest string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.blobs[digest]
	return ok
}

// FailWith makes every subsequent request answer with the given status,
// simulating an unreachable or broken store. Zero restores normal
// behavior.
func (s *Server) FailWith(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = status
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	fail := s.failWith
	s.mu.Unlock()
	if fail != 0 {
		w.WriteHeader(fail)
		return
	}

	switch r.Method {
	case http.MethodHead, http.MethodGet:
		s.handleBlob(w, r)
	case http.MethodPost:
		s.handleUpload(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleBlob serves HEAD/GET <base>/<prefix>/<digest>.
func (s *Server) handleBlob(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	digest := parts[len(parts)-1]

	s.mu.Lock()
	content, ok := s.blobs[digest]
	s.mu.Unlock()

	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if r.Method == http.MethodGet {
		_, _ = w.Write(content)
	}
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	claimed := r.FormValue("digest")

	f, _, err := r.FormFile("file")
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	defer func() {
		_ = f.Close()
	}()

	content, err := io.ReadAll(f)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	sum := sha1.Sum(content)
	digest := hex.EncodeToString(sum[:])
	if claimed != "" && claimed != digest {
		w.WriteHeader(http.StatusConflict)
		return
	}

	s.mu.Lock()
	s.blobs[digest] = content
	s.mu.Unlock()
	w.WriteHeader(http.StatusCreated)
}
