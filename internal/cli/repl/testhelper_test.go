package repl

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/yndnr/prodadmin-go/internal/core/service"
	"github.com/yndnr/prodadmin-go/internal/storage/memory"
)

// scriptedReader replays fixed lines, then reports end of input.
type scriptedReader struct {
	mu      sync.Mutex
	lines   []string
	prompts []string
	added   []string
	closed  bool
}

func (r *scriptedReader) Prompt(prompt string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prompts = append(r.prompts, prompt)
	if len(r.lines) == 0 {
		return "", io.EOF
	}
	line := r.lines[0]
	r.lines = r.lines[1:]
	return line, nil
}

func (r *scriptedReader) AppendHistory(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.added = append(r.added, line)
}

func (r *scriptedReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// fakeAuth accepts every login and issues the configured token.
type fakeAuth struct {
	token string
}

func (f *fakeAuth) Validate(context.Context, string) (bool, error) { return true, nil }

func (f *fakeAuth) Login(_ context.Context, username, _ string) (*service.LoginResult, error) {
	return &service.LoginResult{Token: f.token, Username: username}, nil
}

func (f *fakeAuth) Logout(context.Context, string) error { return nil }

func newStore(t *testing.T, tok string, opts ...service.Option) *service.Store {
	t.Helper()
	st := memory.New()
	t.Cleanup(func() { st.Close() })

	store := service.NewStore(st, &fakeAuth{token: tok}, service.DefaultStoreConfig(), opts...)
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	return store
}

func makeJWT(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "admin",
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return tok
}

func eventually(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}
