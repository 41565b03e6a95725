package command

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// mockServer is a test backend routing by the longest matching path prefix.
type mockServer struct {
	*httptest.Server
	mu       sync.Mutex
	handlers map[string]http.HandlerFunc
	requests []string
}

// newMockServer creates a new mock server.
func newMockServer(t *testing.T) *mockServer {
	t.Helper()
	m := &mockServer{handlers: make(map[string]http.HandlerFunc)}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		m.requests = append(m.requests, r.Method+" "+r.URL.Path)
		var best string
		for pattern := range m.handlers {
			if strings.HasPrefix(r.URL.Path, pattern) && len(pattern) > len(best) {
				best = pattern
			}
		}
		handler := m.handlers[best]
		m.mu.Unlock()

		if handler == nil {
			http.NotFound(w, r)
			return
		}
		handler(w, r)
	}))
	t.Cleanup(m.Close)
	return m
}

// handle registers a handler for a path prefix.
func (m *mockServer) handle(pattern string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[pattern] = handler
}

// seen reports how many requests matched "METHOD /path".
func (m *mockServer) seen(request string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.requests {
		if r == request {
			n++
		}
	}
	return n
}

// jsonResponse writes a JSON response.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// errorResponse writes an error body shaped like the backend's.
func errorResponse(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]any{
		"status":  status,
		"error":   http.StatusText(status),
		"message": message,
	})
}

const testToken = "token-for-admin"

// newBackend serves the auth endpoints for admin/secret and a product list.
func newBackend(t *testing.T) *mockServer {
	t.Helper()
	m := newMockServer(t)

	authorized := func(r *http.Request) bool {
		return r.Header.Get("Authorization") == "Bearer "+testToken
	}

	m.handle("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if body.Username != "admin" || body.Password != "secret" {
			errorResponse(w, http.StatusUnauthorized, "Invalid username or password")
			return
		}
		jsonResponse(w, http.StatusOK, map[string]any{
			"token":    testToken,
			"username": body.Username,
			"roles":    []string{"ROLE_ADMIN"},
		})
	})
	m.handle("/api/auth/validate", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(r) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	m.handle("/api/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	m.handle("/api/products", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(r) {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		jsonResponse(w, http.StatusOK, []map[string]any{
			{"id": 1, "name": "Widget", "description": "Blue", "price": 9.5, "stockQuantity": 4, "active": true},
			{"id": 2, "name": "Gadget", "price": 3, "stockQuantity": 0, "active": false},
		})
	})
	return m
}

// testEnv holds the per-test configuration file and session directory.
type testEnv struct {
	t          *testing.T
	server     *mockServer
	configFile string
	stdin      string
}

func newTestEnv(t *testing.T, server *mockServer) *testEnv {
	t.Helper()
	dir := t.TempDir()
	configFile := filepath.Join(dir, "cli.yaml")
	content := fmt.Sprintf(`server: %s
storage:
  dir: %s
shell:
  history_file: %s
auth:
  login_timeout: 2s
`, server.URL, filepath.Join(dir, "session"), filepath.Join(dir, "history"))
	if err := os.WriteFile(configFile, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return &testEnv{t: t, server: server, configFile: configFile}
}

// run executes one prodadmin invocation and returns its output.
func (e *testEnv) run(args ...string) (stdout, stderr string, err error) {
	e.t.Helper()
	var out, errOut bytes.Buffer

	app := App()
	app.Reader = strings.NewReader(e.stdin)
	app.Writer = &out
	app.ErrWriter = &errOut

	argv := append([]string{"prodadmin", "--config", e.configFile}, args...)
	err = app.Run(argv)
	return out.String(), errOut.String(), err
}

// mustRun fails the test when the invocation fails.
func (e *testEnv) mustRun(args ...string) string {
	e.t.Helper()
	stdout, stderr, err := e.run(args...)
	if err != nil {
		e.t.Fatalf("%v: error = %v\nstderr: %s", args, err, stderr)
	}
	return stdout
}
