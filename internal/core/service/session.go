package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/yndnr/prodadmin-go/internal/core/domain"
	"github.com/yndnr/prodadmin-go/internal/storage"
	"github.com/yndnr/prodadmin-go/pkg/token"
)

// TokenSource supplies the current credential to the Gateway.
type TokenSource interface {
	// Token returns the held token, or "" when there is none.
	Token() string
}

// StoreConfig bounds the session transitions.
type StoreConfig struct {
	// LoginTimeout caps the credential exchange; the first of response
	// and timer wins.
	LoginTimeout time.Duration

	// LogoutTimeout caps the background backend logout notification.
	LogoutTimeout time.Duration
}

// DefaultStoreConfig returns the default transition bounds.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		LoginTimeout:  10 * time.Second,
		LogoutTimeout: 5 * time.Second,
	}
}

type subscription struct {
	id uint64
	fn func(domain.Change)
}

// Store owns the authentication session.
//
// It is the only writer of the session record and of the credential in
// storage. At most one transition (init, login, logout, expire) runs at a
// time; a second one fails fast with domain.ErrTransitionInProgress.
// Subscribers receive every change in order, outside the store lock, and
// may call back into the Store.
type Store struct {
	storage storage.Storage
	backend AuthBackend
	cfg     StoreConfig
	opts    options

	mu        sync.Mutex
	state     domain.Session
	busy      bool
	redirects int
	subs      []subscription
	nextSub   uint64
	pending   []domain.Change
	draining  bool

	bg sync.WaitGroup
}

var _ TokenSource = (*Store)(nil)

// NewStore creates a Store in the initializing state. Call Init to
// restore a persisted session.
func NewStore(st storage.Storage, backend AuthBackend, cfg StoreConfig, opts ...Option) *Store {
	def := DefaultStoreConfig()
	if cfg.LoginTimeout <= 0 {
		cfg.LoginTimeout = def.LoginTimeout
	}
	if cfg.LogoutTimeout <= 0 {
		cfg.LogoutTimeout = def.LogoutTimeout
	}

	return &Store{
		storage: st,
		backend: backend,
		cfg:     cfg,
		opts:    buildOptions(opts),
		state: domain.Session{
			Authenticated: domain.AuthUnknown,
			Loading:       true,
		},
	}
}

// ============================================================================
// Transitions
// ============================================================================

// Init restores the session from storage. A stored token is kept only if
// ValidateToken accepts it; otherwise it is removed. Storage read errors
// are treated like an invalid token.
func (s *Store) Init(ctx context.Context) error {
	if _, err := s.begin("init", nil); err != nil {
		return err
	}

	tok, err := s.storage.Get(ctx, domain.TokenStorageKey)
	switch {
	case errors.Is(err, storage.ErrKeyNotFound):
		tok = ""
	case err != nil:
		s.opts.logger.Warn("reading stored credential failed, starting signed out", "error", err)
		s.clearStorage(ctx)
		tok = ""
	}

	if strings.TrimSpace(tok) == "" {
		s.end(domain.CauseInitialized, signedOut)
		s.opts.transition("init", "unauthenticated")
		return nil
	}

	if !s.ValidateToken(ctx, tok) {
		if err := s.storage.Remove(ctx, domain.TokenStorageKey); err != nil {
			s.opts.logger.Warn("removing rejected credential failed", "error", err)
		}
		s.end(domain.CauseInitialized, signedOut)
		s.opts.transition("init", "unauthenticated")
		s.opts.logger.Info("stored credential rejected", "token_fp", token.Fingerprint(tok))
		return nil
	}

	s.end(domain.CauseInitialized, signedIn(tok))
	s.opts.transition("init", "authenticated")
	s.opts.logger.Debug("session restored", "token_fp", token.Fingerprint(tok))
	return nil
}

// ValidateToken reports whether tok is usable. It never fails: transport
// errors and unexpected statuses count as invalid. A JWT whose exp claim
// has passed is rejected without contacting the backend.
func (s *Store) ValidateToken(ctx context.Context, tok string) bool {
	if strings.TrimSpace(tok) == "" {
		return false
	}

	if token.Expired(tok, s.opts.now()) {
		s.opts.logger.Debug("token expired locally", "token_fp", token.Fingerprint(tok))
		return false
	}

	ok, err := s.backend.Validate(ctx, tok)
	if err != nil {
		s.opts.logger.Debug("token validation failed, treating as invalid",
			"token_fp", token.Fingerprint(tok),
			"error", err,
		)
		return false
	}
	return ok
}

// Login exchanges credentials for a token, persists it and marks the
// session authenticated. On any failure the previous session and its
// stored token are left as they were and the typed error is returned.
// A cancelled ctx yields domain.ErrRequestFailed wrapping context.Canceled.
func (s *Store) Login(ctx context.Context, username, password string) error {
	if _, err := s.begin("login", nil); err != nil {
		return err
	}

	res, err := s.exchange(ctx, username, password)
	if err == nil {
		if perr := s.storage.Set(ctx, domain.TokenStorageKey, res.Token); perr != nil {
			err = fmt.Errorf("persist token: %w", perr)
		}
	}

	if err != nil {
		s.end(domain.CauseLoginFailed, loginFailed)
		s.opts.transition("login", outcome(err))
		s.opts.logger.Info("login failed", "username", username, "error", err)
		return err
	}

	s.end(domain.CauseLoggedIn, signedIn(res.Token))
	s.opts.transition("login", "success")
	s.opts.logger.Info("login succeeded",
		"username", username,
		"token_fp", token.Fingerprint(res.Token),
	)
	return nil
}

// exchange runs the backend login bounded by the login timeout.
func (s *Store) exchange(ctx context.Context, username, password string) (*LoginResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.LoginTimeout)
	defer cancel()

	type result struct {
		res *LoginResult
		err error
	}
	ch := make(chan result, 1)
	go func() {
		res, err := s.backend.Login(ctx, username, password)
		ch <- result{res, err}
	}()

	select {
	case r := <-ch:
		return r.res, r.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, domain.ErrTimeout.
				WithDetails(fmt.Sprintf("no response within %s", s.cfg.LoginTimeout)).
				WithCause(ctx.Err())
		}
		return nil, domain.ErrRequestFailed.WithDetails("sign-in cancelled").WithCause(ctx.Err())
	}
}

// Logout ends the session. The backend is notified in the background
// when a token was held; local cleanup happens regardless of that call.
func (s *Store) Logout(ctx context.Context) error {
	if _, err := s.begin("logout", nil); err != nil {
		return err
	}

	if tok := s.Token(); tok != "" {
		s.notifyLogout(tok)
	}
	s.clearStorage(ctx)

	s.end(domain.CauseLoggedOut, signedOut)
	s.opts.transition("logout", "success")
	s.opts.logger.Info("logged out")
	return nil
}

// Expire ends the session when the held JWT has reached its exp claim.
// It does nothing when the session is not authenticated or the token is
// not yet expired.
func (s *Store) Expire(ctx context.Context) error {
	now := s.opts.now()
	started, err := s.begin("expire", func(st domain.Session) bool {
		return st.IsAuthenticated() && !st.ExpiresAt.IsZero() && !now.Before(st.ExpiresAt)
	})
	if err != nil || !started {
		return err
	}

	s.clearStorage(ctx)
	s.end(domain.CauseExpired, signedOut)
	s.opts.transition("expire", "success")
	s.opts.logger.Info("session expired")
	return nil
}

// Wait blocks until background logout notifications have finished.
func (s *Store) Wait() {
	s.bg.Wait()
}

func (s *Store) notifyLogout(tok string) {
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.LogoutTimeout)
		defer cancel()

		if err := s.backend.Logout(ctx, tok); err != nil {
			s.opts.logger.Warn("backend logout notification failed",
				"token_fp", token.Fingerprint(tok),
				"error", err,
			)
			return
		}
		s.opts.logger.Debug("backend logout acknowledged", "token_fp", token.Fingerprint(tok))
	}()
}

func (s *Store) clearStorage(ctx context.Context) {
	if err := s.storage.Clear(ctx); err != nil {
		s.opts.logger.Warn("clearing session storage failed", "error", err)
	}
}

func signedOut(st *domain.Session) {
	st.Token = ""
	st.Authenticated = domain.AuthFalse
	st.ExpiresAt = time.Time{}
}

// loginFailed keeps an established session; anything else ends signed out.
func loginFailed(st *domain.Session) {
	if !st.IsAuthenticated() {
		signedOut(st)
	}
}

func signedIn(tok string) func(*domain.Session) {
	return func(st *domain.Session) {
		st.Token = tok
		st.Authenticated = domain.AuthTrue
		st.ExpiresAt, _ = token.ExpiresAt(tok)
	}
}

// ============================================================================
// Accessors and Notification
// ============================================================================

// Snapshot returns a copy of the current session.
func (s *Store) Snapshot() domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Token returns the held token, or "".
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Token
}

// ExpiresAt returns the exp claim of the held JWT, or the zero time.
func (s *Store) ExpiresAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ExpiresAt
}

// Subscribe registers fn for every subsequent change. The returned
// function removes the subscription.
func (s *Store) Subscribe(fn func(domain.Change)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs = append(s.subs, subscription{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, sub := range s.subs {
				if sub.id == id {
					s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Redirect runs fn with the session marked as loading so observers treat
// the navigation as part of a transition.
func (s *Store) Redirect(fn func() error) error {
	s.mu.Lock()
	s.redirects++
	drain := s.enqueueLocked(domain.CauseLoading, nil)
	s.mu.Unlock()
	if drain {
		s.drain()
	}

	err := fn()

	s.mu.Lock()
	s.redirects--
	drain = s.enqueueLocked(domain.CauseRedirected, nil)
	s.mu.Unlock()
	if drain {
		s.drain()
	}
	return err
}

// begin claims the transition slot. When precondition is non-nil and
// rejects the current state, nothing happens and started is false.
func (s *Store) begin(kind string, precondition func(domain.Session) bool) (started bool, err error) {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return false, domain.ErrTransitionInProgress.WithDetails(kind + " requested while another transition is running")
	}
	if precondition != nil && !precondition(s.state) {
		s.mu.Unlock()
		return false, nil
	}
	s.busy = true
	drain := s.enqueueLocked(domain.CauseLoading, nil)
	s.mu.Unlock()

	if drain {
		s.drain()
	}
	return true, nil
}

// end releases the transition slot and applies the final state.
func (s *Store) end(cause domain.ChangeCause, apply func(*domain.Session)) {
	s.mu.Lock()
	s.busy = false
	drain := s.enqueueLocked(cause, apply)
	s.mu.Unlock()

	if drain {
		s.drain()
	}
}

// enqueueLocked mutates the state and queues the resulting change. It
// reports whether the caller must drain the queue. s.mu must be held.
func (s *Store) enqueueLocked(cause domain.ChangeCause, apply func(*domain.Session)) bool {
	if apply != nil {
		apply(&s.state)
	}
	s.state.Loading = s.busy || s.redirects > 0
	s.pending = append(s.pending, domain.Change{Cause: cause, Session: s.state})

	if s.draining {
		return false
	}
	s.draining = true
	return true
}

// drain delivers queued changes until the queue is empty. Changes queued
// by subscribers are delivered by the same loop, after the current one.
func (s *Store) drain() {
	for {
		s.mu.Lock()
		if len(s.pending) == 0 {
			s.draining = false
			s.mu.Unlock()
			return
		}
		change := s.pending[0]
		s.pending = s.pending[1:]
		subs := make([]func(domain.Change), len(s.subs))
		for i, sub := range s.subs {
			subs[i] = sub.fn
		}
		s.mu.Unlock()

		for _, fn := range subs {
			fn(change)
		}
	}
}
