// Package davtest runs an in-memory Nextcloud-shaped WebDAV server for tests.
package davtest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/net/webdav"
)

// Server serves /remote.php/dav/files/<user>, /remote.php/dav/trashbin/<user>
// and /remote.php/dav/uploads/<user> for a single user, plus status.php and
// the OCS capabilities endpoint.
type Server struct {
	*httptest.Server

	User     string
	Password string

	// Files and Trash back the two collections.
	Files webdav.FileSystem
	Trash webdav.FileSystem

	// Fail, when set, is consulted before every DAV request. A non-zero
	// return is written as the response status.
	Fail func(r *http.Request) int

	// Latency delays every DAV request.
	Latency time.Duration

	files   *webdav.Handler
	trash   *webdav.Handler
	mu      sync.Mutex
	counts  map[string]int
	uploads map[string]map[string][]byte
}

// New starts a server and registers its shutdown with t.
func New(t testing.TB, user, password string) *Server {
	t.Helper()

	s := &Server{
		User:     user,
		Password: password,
		Files:    webdav.NewMemFS(),
		Trash:    webdav.NewMemFS(),
		counts:   make(map[string]int),
		uploads:  make(map[string]map[string][]byte),
	}
	s.files = &webdav.Handler{
		Prefix:     s.FilesPrefix(),
		FileSystem: s.Files,
		LockSystem: webdav.NewMemLS(),
	}
	s.trash = &webdav.Handler{
		Prefix:     "/remote.php/dav/trashbin/" + user,
		FileSystem: s.Trash,
		LockSystem: webdav.NewMemLS(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/status.php", s.serveStatus)
	mux.HandleFunc("/ocs/v1.php/cloud/capabilities", s.auth(s.serveCapabilities))
	mux.HandleFunc("/remote.php/dav/files/", s.auth(s.dav(s.files)))
	mux.HandleFunc("/remote.php/dav/trashbin/", s.auth(s.dav(s.trash)))
	mux.HandleFunc("/remote.php/dav/uploads/", s.auth(s.dav(http.HandlerFunc(s.serveUploads))))

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)

	return s
}

// FilesPrefix is the URL path of the user's files collection.
func (s *Server) FilesPrefix() string {
	return "/remote.php/dav/files/" + s.User
}

// Count returns how many DAV requests with method have been served.
func (s *Server) Count(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.counts[method]
}

// Mkdir creates name and its parents in the files collection.
func (s *Server) Mkdir(t testing.TB, name string) {
	t.Helper()

	dir := ""
	for _, part := range strings.Split(strings.Trim(name, "/"), "/") {
		dir += "/" + part
		if err := s.Files.Mkdir(context.Background(), dir, 0o755); err != nil && !os.IsExist(err) {
			t.Fatalf("davtest: mkdir %s: %v", dir, err)
		}
	}
}

// Put writes a file into the files collection.
func (s *Server) Put(t testing.TB, name string, data []byte) {
	t.Helper()

	if err := writeFile(s.Files, name, data); err != nil {
		t.Fatalf("davtest: put %s: %v", name, err)
	}
}

// PutTrash writes a file into the trash collection.
func (s *Server) PutTrash(t testing.TB, name string, data []byte) {
	t.Helper()

	if err := writeFile(s.Trash, name, data); err != nil {
		t.Fatalf("davtest: put trash %s: %v", name, err)
	}
}

// Exists reports whether name is present in the files collection.
func (s *Server) Exists(name string) bool {
	_, err := s.Files.Stat(context.Background(), name)
	return err == nil
}

// Read returns the contents of a file in the files collection.
func (s *Server) Read(t testing.TB, name string) []byte {
	t.Helper()

	f, err := s.Files.OpenFile(context.Background(), name, os.O_RDONLY, 0)
	if err != nil {
		t.Fatalf("davtest: open %s: %v", name, err)
	}
	defer f.Close()

	b, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("davtest: read %s: %v", name, err)
	}

	return b
}

func writeFile(fs webdav.FileSystem, name string, data []byte) error {
	f, err := fs.OpenFile(context.Background(), name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}

	return f.Close()
}

func (s *Server) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != s.User || pass != s.Password {
			w.Header().Set("WWW-Authenticate", `Basic realm="Nextcloud"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) dav(next http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.counts[r.Method]++
		fail := s.Fail
		s.mu.Unlock()

		if s.Latency > 0 {
			select {
			case <-time.After(s.Latency):
			case <-r.Context().Done():
				return
			}
		}

		if fail != nil {
			if code := fail(r); code != 0 {
				_, _ = io.Copy(io.Discard, r.Body)
				w.WriteHeader(code)
				return
			}
		}

		next.ServeHTTP(w, r)
	}
}

func (s *Server) serveStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"installed":      true,
		"maintenance":    false,
		"needsDbUpgrade": false,
		"version":        "29.0.8.2",
		"versionstring":  "29.0.8",
		"edition":        "",
		"productname":    "Sunet Drive",
	})
}

func (s *Server) serveCapabilities(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, `{"ocs":{"data":{"version":{"major":29,"minor":0,"micro":8,"string":"29.0.8"},`+
		`"capabilities":{"files":{"bigfilechunking":true},"core":{"pollinterval":60}}}}}`)
}

// serveUploads implements enough of Nextcloud chunking v2 for the client:
// MKCOL a session, PUT chunks into it, MOVE <session>/.file to assemble.
func (s *Server) serveUploads(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/remote.php/dav/uploads/"+s.User+"/")
	session, chunk, _ := strings.Cut(rest, "/")

	s.mu.Lock()
	defer s.mu.Unlock()

	switch r.Method {
	case "MKCOL":
		if _, ok := s.uploads[session]; ok {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		s.uploads[session] = make(map[string][]byte)
		w.WriteHeader(http.StatusCreated)

	case http.MethodPut:
		chunks, ok := s.uploads[session]
		if !ok || chunk == "" {
			w.WriteHeader(http.StatusConflict)
			return
		}
		b, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		chunks[chunk] = b
		w.WriteHeader(http.StatusCreated)

	case "MOVE":
		chunks, ok := s.uploads[session]
		if !ok || chunk != ".file" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		dest, err := url.Parse(r.Header.Get("Destination"))
		if err != nil || !strings.HasPrefix(dest.Path, s.FilesPrefix()+"/") {
			w.WriteHeader(http.StatusBadGateway)
			return
		}

		names := make([]string, 0, len(chunks))
		for name := range chunks {
			names = append(names, name)
		}
		sort.Strings(names)

		var buf bytes.Buffer
		for _, name := range names {
			buf.Write(chunks[name])
		}
		delete(s.uploads, session)

		name := path.Clean("/" + strings.TrimPrefix(dest.Path, s.FilesPrefix()))
		if err := writeFile(s.Files, name, buf.Bytes()); err != nil {
			w.WriteHeader(http.StatusConflict)
			return
		}
		w.WriteHeader(http.StatusCreated)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
