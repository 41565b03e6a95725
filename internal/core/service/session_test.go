package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/yndnr/prodadmin-go/internal/core/domain"
	"github.com/yndnr/prodadmin-go/internal/storage"
	"github.com/yndnr/prodadmin-go/internal/storage/memory"
)

func newTestStore(st storage.Storage, backend AuthBackend, opts ...Option) *Store {
	return NewStore(st, backend, StoreConfig{
		LoginTimeout:  time.Second,
		LogoutTimeout: time.Second,
	}, opts...)
}

func TestNewStore_InitialState(t *testing.T) {
	s := NewStore(memory.New(), &fakeBackend{}, StoreConfig{})

	snap := s.Snapshot()
	if snap.Authenticated != domain.AuthUnknown || !snap.Loading {
		t.Errorf("initial snapshot = %+v, want unknown and loading", snap)
	}
	if snap.State() != domain.StateInitializing {
		t.Errorf("State() = %s, want initializing", snap.State())
	}
	if s.cfg != DefaultStoreConfig() {
		t.Errorf("zero config should fall back to defaults, got %+v", s.cfg)
	}
}

// ============================================================================
// Init
// ============================================================================

func TestStore_Init_NoToken(t *testing.T) {
	backend := &fakeBackend{}
	s := newTestStore(memory.New(), backend)

	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	snap := s.Snapshot()
	if snap.State() != domain.StateUnauthenticated {
		t.Errorf("State() = %s, want unauthenticated", snap.State())
	}
	if validate, _, _ := backend.counts(); validate != 0 {
		t.Errorf("Validate called %d times, want 0 without a token", validate)
	}
}

func TestStore_Init_ValidToken(t *testing.T) {
	st := memory.New()
	st.Set(context.Background(), domain.TokenStorageKey, "stored-token")

	var seen string
	backend := &fakeBackend{validateFn: func(_ context.Context, tok string) (bool, error) {
		seen = tok
		return true, nil
	}}
	s := newTestStore(st, backend)

	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	if seen != "stored-token" {
		t.Errorf("validated %q, want stored-token", seen)
	}
	snap := s.Snapshot()
	if snap.State() != domain.StateAuthenticated || snap.Token != "stored-token" {
		t.Errorf("snapshot = %+v, want authenticated with stored token", snap)
	}
}

func TestStore_Init_InvalidToken(t *testing.T) {
	tests := []struct {
		name string
		fn   func(context.Context, string) (bool, error)
	}{
		{"rejected", func(context.Context, string) (bool, error) { return false, nil }},
		{"network error", func(context.Context, string) (bool, error) {
			return false, domain.ErrNetworkUnavailable
		}},
		{"server error", func(context.Context, string) (bool, error) {
			return false, domain.ErrRequestFailed.WithStatus(500)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := memory.New()
			st.Set(context.Background(), domain.TokenStorageKey, "stale")
			s := newTestStore(st, &fakeBackend{validateFn: tt.fn})

			if err := s.Init(context.Background()); err != nil {
				t.Fatalf("Init() error = %v", err)
			}

			if _, err := st.Get(context.Background(), domain.TokenStorageKey); !errors.Is(err, storage.ErrKeyNotFound) {
				t.Errorf("stored token should be removed, Get() error = %v", err)
			}
			snap := s.Snapshot()
			if snap.Authenticated != domain.AuthFalse || snap.Token != "" || snap.Loading {
				t.Errorf("snapshot = %+v, want settled unauthenticated", snap)
			}
		})
	}
}

func TestStore_Init_ExpiredJWTSkipsBackend(t *testing.T) {
	st := memory.New()
	st.Set(context.Background(), domain.TokenStorageKey, makeJWT(t, "admin", time.Now().Add(-time.Minute)))
	backend := &fakeBackend{}
	s := newTestStore(st, backend)

	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	if validate, _, _ := backend.counts(); validate != 0 {
		t.Errorf("Validate called %d times for an expired JWT", validate)
	}
	if s.Snapshot().IsAuthenticated() {
		t.Error("expired JWT must not authenticate")
	}
	if st.Len() != 0 {
		t.Error("expired JWT should be removed from storage")
	}
}

func TestStore_Init_StorageErrorFailsClosed(t *testing.T) {
	st := &brokenStorage{}
	backend := &fakeBackend{}
	s := newTestStore(st, backend)

	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	if s.Snapshot().State() != domain.StateUnauthenticated {
		t.Errorf("State() = %s, want unauthenticated", s.Snapshot().State())
	}
	if !st.cleared {
		t.Error("storage should be cleared after a read error")
	}
	if validate, _, _ := backend.counts(); validate != 0 {
		t.Error("backend should not be called after a read error")
	}
}

func TestStore_ValidateToken(t *testing.T) {
	s := newTestStore(memory.New(), &fakeBackend{validateFn: func(_ context.Context, tok string) (bool, error) {
		if tok == "boom" {
			return false, errors.New("connection reset")
		}
		return tok == "good", nil
	}})

	tests := []struct {
		tok  string
		want bool
	}{
		{"good", true},
		{"bad", false},
		{"boom", false},
		{"", false},
		{"   ", false},
	}
	for _, tt := range tests {
		if got := s.ValidateToken(context.Background(), tt.tok); got != tt.want {
			t.Errorf("ValidateToken(%q) = %v, want %v", tt.tok, got, tt.want)
		}
	}
}

// ============================================================================
// Login
// ============================================================================

func TestStore_Login_Success(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	jwtToken := makeJWT(t, "admin", exp)

	st := memory.New()
	backend := &fakeBackend{loginFn: func(_ context.Context, u, p string) (*LoginResult, error) {
		if u != "admin" || p != "secret" {
			t.Errorf("Login(%q, %q)", u, p)
		}
		return &LoginResult{Token: jwtToken, Username: u}, nil
	}}
	s := newTestStore(st, backend)
	s.Init(context.Background())

	rec := &changeRecorder{}
	s.Subscribe(rec.record)

	if err := s.Login(context.Background(), "admin", "secret"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	stored, err := st.Get(context.Background(), domain.TokenStorageKey)
	if err != nil || stored != jwtToken {
		t.Errorf("stored token = %q, %v", stored, err)
	}

	snap := s.Snapshot()
	if !snap.IsAuthenticated() || snap.Token != jwtToken || snap.Loading {
		t.Errorf("snapshot = %+v", snap)
	}
	if !snap.ExpiresAt.Equal(exp) {
		t.Errorf("ExpiresAt = %v, want %v", snap.ExpiresAt, exp)
	}
	if s.Token() != jwtToken || !s.ExpiresAt().Equal(exp) {
		t.Error("accessors disagree with snapshot")
	}

	want := []domain.ChangeCause{domain.CauseLoading, domain.CauseLoggedIn}
	if got := rec.causes(); !equalCauses(got, want) {
		t.Errorf("causes = %v, want %v", got, want)
	}
}

func TestStore_Login_Failure(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr error
	}{
		{"invalid credentials", domain.ErrInvalidCredentials.WithDetails("Invalid username or password"), domain.ErrInvalidCredentials},
		{"network", domain.ErrNetworkUnavailable, domain.ErrNetworkUnavailable},
		{"malformed", domain.ErrRequestFailed.WithDetails("malformed login response"), domain.ErrRequestFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := memory.New()
			s := newTestStore(st, &fakeBackend{loginFn: func(context.Context, string, string) (*LoginResult, error) {
				return nil, tt.err
			}})
			s.Init(context.Background())

			err := s.Login(context.Background(), "admin", "wrong")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Login() error = %v, want %v", err, tt.wantErr)
			}

			snap := s.Snapshot()
			if snap.Authenticated != domain.AuthFalse || snap.Token != "" || snap.Loading {
				t.Errorf("snapshot = %+v, want settled unauthenticated", snap)
			}
			if st.Len() != 0 {
				t.Error("no token should be persisted after a failed login")
			}
		})
	}
}

func TestStore_Login_FailureKeepsPreviousSession(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"rejected", domain.ErrInvalidCredentials},
		{"network", domain.ErrNetworkUnavailable},
		{"timeout", domain.ErrTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := memory.New()
			st.Set(context.Background(), domain.TokenStorageKey, "valid")
			s := newTestStore(st, &fakeBackend{loginFn: func(context.Context, string, string) (*LoginResult, error) {
				return nil, tt.err
			}})
			s.Init(context.Background())
			if !s.Snapshot().IsAuthenticated() {
				t.Fatal("stored token should restore the session")
			}

			if err := s.Login(context.Background(), "a", "b"); !errors.Is(err, tt.err) {
				t.Fatalf("Login() error = %v, want %v", err, tt.err)
			}

			snap := s.Snapshot()
			if !snap.IsAuthenticated() || snap.Token != "valid" || snap.Loading {
				t.Errorf("snapshot = %+v, want the previous session kept", snap)
			}
			if got, _ := st.Get(context.Background(), domain.TokenStorageKey); got != "valid" {
				t.Errorf("stored token = %q, want %q", got, "valid")
			}
		})
	}
}

func TestStore_Login_Cancelled(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	s := newTestStore(memory.New(), &fakeBackend{loginFn: func(ctx context.Context, _, _ string) (*LoginResult, error) {
		<-release
		return nil, ctx.Err()
	}})
	s.Init(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Login(ctx, "admin", "secret")
	if !errors.Is(err, domain.ErrRequestFailed) || !errors.Is(err, context.Canceled) {
		t.Fatalf("Login() error = %v, want request failed wrapping context.Canceled", err)
	}
	if domain.UserMessage(err) != "sign-in cancelled" {
		t.Errorf("UserMessage() = %q", domain.UserMessage(err))
	}
	if s.Snapshot().IsAuthenticated() {
		t.Error("cancelled login must not authenticate")
	}
}

func TestStore_Login_PersistFailure(t *testing.T) {
	s := newTestStore(&brokenStorage{}, &fakeBackend{})

	if err := s.Login(context.Background(), "admin", "secret"); !errors.Is(err, errBroken) {
		t.Fatalf("Login() error = %v, want storage error", err)
	}
	if s.Snapshot().IsAuthenticated() {
		t.Error("session must not be authenticated without a persisted token")
	}
}

func TestStore_Login_Timeout(t *testing.T) {
	release := make(chan struct{})
	st := memory.New()
	s := NewStore(st, &fakeBackend{loginFn: func(context.Context, string, string) (*LoginResult, error) {
		<-release
		return &LoginResult{Token: "late"}, nil
	}}, StoreConfig{LoginTimeout: 50 * time.Millisecond, LogoutTimeout: time.Second})
	s.Init(context.Background())

	start := time.Now()
	err := s.Login(context.Background(), "admin", "secret")
	if !errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("Login() error = %v, want timeout", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Login() took %v, timer should have won", elapsed)
	}

	close(release)
	time.Sleep(20 * time.Millisecond)

	if s.Snapshot().IsAuthenticated() || st.Len() != 0 {
		t.Error("a late response must not authenticate the session")
	}
}

func TestStore_LoadingDuringLogin(t *testing.T) {
	var s *Store
	var during bool
	s = newTestStore(memory.New(), &fakeBackend{loginFn: func(context.Context, string, string) (*LoginResult, error) {
		during = s.Snapshot().Loading
		return &LoginResult{Token: "t"}, nil
	}})
	s.Init(context.Background())

	if err := s.Login(context.Background(), "a", "b"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if !during {
		t.Error("Loading should be true while the exchange is in flight")
	}
	if s.Snapshot().Loading {
		t.Error("Loading should be false after Login returns")
	}
}

func TestStore_TransitionInProgress(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	s := newTestStore(memory.New(), &fakeBackend{loginFn: func(context.Context, string, string) (*LoginResult, error) {
		close(entered)
		<-release
		return &LoginResult{Token: "t"}, nil
	}})
	s.Init(context.Background())

	var wg sync.WaitGroup
	wg.Add(1)
	var firstErr error
	go func() {
		defer wg.Done()
		firstErr = s.Login(context.Background(), "a", "b")
	}()
	<-entered

	if err := s.Login(context.Background(), "a", "b"); !errors.Is(err, domain.ErrTransitionInProgress) {
		t.Errorf("concurrent Login() error = %v, want transition in progress", err)
	}
	if err := s.Logout(context.Background()); !errors.Is(err, domain.ErrTransitionInProgress) {
		t.Errorf("concurrent Logout() error = %v, want transition in progress", err)
	}

	close(release)
	wg.Wait()

	if firstErr != nil {
		t.Fatalf("first Login() error = %v", firstErr)
	}
	if !s.Snapshot().IsAuthenticated() {
		t.Error("first login should have completed")
	}
}

// ============================================================================
// Logout and Expire
// ============================================================================

func TestStore_Logout(t *testing.T) {
	st := memory.New()
	backend := &fakeBackend{}
	s := newTestStore(st, backend)
	s.Init(context.Background())
	s.Login(context.Background(), "admin", "secret")
	st.Set(context.Background(), "unrelated", "value")

	rec := &changeRecorder{}
	s.Subscribe(rec.record)

	if err := s.Logout(context.Background()); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	s.Wait()

	if st.Len() != 0 {
		t.Errorf("storage has %d keys, want cleared entirely", st.Len())
	}
	snap := s.Snapshot()
	if snap.Authenticated != domain.AuthFalse || snap.Token != "" {
		t.Errorf("snapshot = %+v", snap)
	}
	if len(backend.logoutTokens) != 1 || backend.logoutTokens[0] != "token-admin" {
		t.Errorf("backend logout tokens = %v", backend.logoutTokens)
	}
	want := []domain.ChangeCause{domain.CauseLoading, domain.CauseLoggedOut}
	if got := rec.causes(); !equalCauses(got, want) {
		t.Errorf("causes = %v, want %v", got, want)
	}
}

func TestStore_Logout_BackendFailureStillClears(t *testing.T) {
	st := memory.New()
	s := newTestStore(st, &fakeBackend{logoutFn: func(context.Context, string) error {
		return domain.ErrNetworkUnavailable
	}})
	s.Init(context.Background())
	s.Login(context.Background(), "admin", "secret")

	if err := s.Logout(context.Background()); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	s.Wait()

	if st.Len() != 0 || s.Snapshot().IsAuthenticated() {
		t.Error("local cleanup must not depend on the backend")
	}
}

func TestStore_Logout_DoesNotWaitForBackend(t *testing.T) {
	release := make(chan struct{})
	s := newTestStore(memory.New(), &fakeBackend{logoutFn: func(context.Context, string) error {
		<-release
		return nil
	}})
	s.Init(context.Background())
	s.Login(context.Background(), "admin", "secret")

	done := make(chan struct{})
	go func() {
		s.Logout(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Logout() blocked on the backend notification")
	}
	close(release)
	s.Wait()
}

func TestStore_Logout_WhenSignedOut(t *testing.T) {
	st := memory.New()
	st.Set(context.Background(), "leftover", "x")
	backend := &fakeBackend{}
	s := newTestStore(st, backend)
	s.Init(context.Background())

	if err := s.Logout(context.Background()); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	s.Wait()

	if st.Len() != 0 {
		t.Error("storage should still be cleared")
	}
	if _, _, logout := backend.counts(); logout != 0 {
		t.Errorf("backend notified %d times without a token", logout)
	}
}

func TestStore_Expire(t *testing.T) {
	var mu sync.Mutex
	now := time.Now()
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}

	exp := now.Add(time.Hour)
	st := memory.New()
	s := newTestStore(st, &fakeBackend{loginFn: func(context.Context, string, string) (*LoginResult, error) {
		return &LoginResult{Token: makeJWT(t, "admin", exp)}, nil
	}}, WithClock(clock))
	s.Init(context.Background())
	s.Login(context.Background(), "admin", "secret")

	rec := &changeRecorder{}
	s.Subscribe(rec.record)

	if err := s.Expire(context.Background()); err != nil {
		t.Fatalf("Expire() error = %v", err)
	}
	if !s.Snapshot().IsAuthenticated() {
		t.Fatal("Expire() before exp must not end the session")
	}
	if len(rec.causes()) != 0 {
		t.Errorf("early Expire() emitted %v", rec.causes())
	}

	mu.Lock()
	now = exp.Add(time.Second)
	mu.Unlock()

	if err := s.Expire(context.Background()); err != nil {
		t.Fatalf("Expire() error = %v", err)
	}
	if s.Snapshot().IsAuthenticated() || st.Len() != 0 {
		t.Error("Expire() after exp should end the session and clear storage")
	}
	want := []domain.ChangeCause{domain.CauseLoading, domain.CauseExpired}
	if got := rec.causes(); !equalCauses(got, want) {
		t.Errorf("causes = %v, want %v", got, want)
	}
}

func TestStore_Expire_OpaqueToken(t *testing.T) {
	s := newTestStore(memory.New(), &fakeBackend{})
	s.Init(context.Background())
	s.Login(context.Background(), "admin", "secret")

	if err := s.Expire(context.Background()); err != nil {
		t.Fatalf("Expire() error = %v", err)
	}
	if !s.Snapshot().IsAuthenticated() {
		t.Error("opaque tokens have no local expiry")
	}
}

// ============================================================================
// Notification
// ============================================================================

func TestStore_Unsubscribe(t *testing.T) {
	s := newTestStore(memory.New(), &fakeBackend{})

	rec := &changeRecorder{}
	unsubscribe := s.Subscribe(rec.record)
	s.Init(context.Background())
	unsubscribe()
	unsubscribe()
	s.Login(context.Background(), "a", "b")

	want := []domain.ChangeCause{domain.CauseLoading, domain.CauseInitialized}
	if got := rec.causes(); !equalCauses(got, want) {
		t.Errorf("causes = %v, want %v", got, want)
	}
}

func TestStore_ReentrantSubscriberKeepsOrder(t *testing.T) {
	s := newTestStore(memory.New(), &fakeBackend{})

	rec := &changeRecorder{}
	s.Subscribe(func(c domain.Change) {
		if c.Cause == domain.CauseInitialized {
			s.Redirect(func() error { return nil })
		}
	})
	s.Subscribe(rec.record)

	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	want := []domain.ChangeCause{
		domain.CauseLoading,
		domain.CauseInitialized,
		domain.CauseLoading,
		domain.CauseRedirected,
	}
	if got := rec.causes(); !equalCauses(got, want) {
		t.Errorf("causes = %v, want %v", got, want)
	}
}

func TestStore_Redirect(t *testing.T) {
	s := newTestStore(memory.New(), &fakeBackend{})
	s.Init(context.Background())

	var during bool
	wantErr := errors.New("nav failed")
	err := s.Redirect(func() error {
		during = s.Snapshot().Loading
		return wantErr
	})

	if !errors.Is(err, wantErr) {
		t.Errorf("Redirect() error = %v, want %v", err, wantErr)
	}
	if !during {
		t.Error("Loading should be true during Redirect")
	}
	if s.Snapshot().Loading {
		t.Error("Loading should be false after Redirect")
	}
}
