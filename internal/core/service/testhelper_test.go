package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/yndnr/prodadmin-go/internal/core/domain"
	"github.com/yndnr/prodadmin-go/internal/storage"
	"github.com/yndnr/prodadmin-go/internal/storage/memory"
)

// fakeBackend is a scriptable AuthBackend.
type fakeBackend struct {
	mu sync.Mutex

	validateFn func(ctx context.Context, tok string) (bool, error)
	loginFn    func(ctx context.Context, username, password string) (*LoginResult, error)
	logoutFn   func(ctx context.Context, tok string) error

	validateCalls int
	loginCalls    int
	logoutTokens  []string
}

func (f *fakeBackend) Validate(ctx context.Context, tok string) (bool, error) {
	f.mu.Lock()
	f.validateCalls++
	fn := f.validateFn
	f.mu.Unlock()
	if fn == nil {
		return true, nil
	}
	return fn(ctx, tok)
}

func (f *fakeBackend) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	f.mu.Lock()
	f.loginCalls++
	fn := f.loginFn
	f.mu.Unlock()
	if fn == nil {
		return &LoginResult{Token: "token-" + username, Username: username}, nil
	}
	return fn(ctx, username, password)
}

func (f *fakeBackend) Logout(ctx context.Context, tok string) error {
	f.mu.Lock()
	f.logoutTokens = append(f.logoutTokens, tok)
	fn := f.logoutFn
	f.mu.Unlock()
	if fn == nil {
		return nil
	}
	return fn(ctx, tok)
}

func (f *fakeBackend) counts() (validate, login, logout int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.validateCalls, f.loginCalls, len(f.logoutTokens)
}

// recordingNav is a Navigator that remembers where it went and whether
// the store was loading at the time.
type recordingNav struct {
	mu      sync.Mutex
	store   *Store
	current domain.View
	visits  []domain.View
	loading []bool
}

func newRecordingNav(start domain.View) *recordingNav {
	return &recordingNav{current: start}
}

func (n *recordingNav) Current() domain.View {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

func (n *recordingNav) Navigate(_ context.Context, to domain.View) error {
	var loading bool
	if n.store != nil {
		loading = n.store.Snapshot().Loading
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	n.current = to
	n.visits = append(n.visits, to)
	n.loading = append(n.loading, loading)
	return nil
}

func (n *recordingNav) history() []domain.View {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]domain.View, len(n.visits))
	copy(out, n.visits)
	return out
}

// brokenStorage fails every call.
type brokenStorage struct {
	cleared bool
}

var errBroken = errors.New("storage unavailable")

func (b *brokenStorage) Get(context.Context, string) (string, error) { return "", errBroken }
func (b *brokenStorage) Set(context.Context, string, string) error   { return errBroken }
func (b *brokenStorage) Remove(context.Context, string) error        { return errBroken }
func (b *brokenStorage) Clear(context.Context) error {
	b.cleared = true
	return errBroken
}
func (b *brokenStorage) Close() error { return nil }

var _ storage.Storage = (*brokenStorage)(nil)

// staticTokens is a TokenSource with a fixed token.
type staticTokens string

func (s staticTokens) Token() string { return string(s) }

// makeJWT signs a token expiring at exp (no exp claim when zero).
func makeJWT(t *testing.T, subject string, exp time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{Subject: subject}
	if !exp.IsZero() {
		claims.ExpiresAt = jwt.NewNumericDate(exp)
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign JWT: %v", err)
	}
	return s
}

// changeRecorder collects store changes.
type changeRecorder struct {
	mu      sync.Mutex
	changes []domain.Change
}

func (r *changeRecorder) record(c domain.Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, c)
}

func (r *changeRecorder) causes() []domain.ChangeCause {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.ChangeCause, len(r.changes))
	for i, c := range r.changes {
		out[i] = c.Cause
	}
	return out
}

func equalCauses(a, b []domain.ChangeCause) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func memorySession(t *testing.T) *memory.Store {
	t.Helper()
	st := memory.New()
	t.Cleanup(func() { st.Close() })
	return st
}
