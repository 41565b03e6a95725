package service

import (
	"context"
	"sync"

	"github.com/yndnr/prodadmin-go/internal/core/domain"
)

// Navigator moves the user between views.
type Navigator interface {
	Current() domain.View
	Navigate(ctx context.Context, to domain.View) error
}

// RouteGuard keeps the current view consistent with the session: signed
// out users end up on the sign-in view, signed in users never stay on it.
type RouteGuard struct {
	store *Store
	nav   Navigator
	opts  options

	mu          sync.Mutex
	unsubscribe func()
}

// NewRouteGuard creates a guard. Call Start to begin observing the store.
func NewRouteGuard(store *Store, nav Navigator, opts ...Option) *RouteGuard {
	return &RouteGuard{
		store: store,
		nav:   nav,
		opts:  buildOptions(opts),
	}
}

// Start subscribes the guard to the store. Calling Start twice is a no-op.
func (g *RouteGuard) Start() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.unsubscribe != nil {
		return
	}
	g.unsubscribe = g.store.Subscribe(g.handle)
}

// Stop unsubscribes the guard.
func (g *RouteGuard) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.unsubscribe != nil {
		g.unsubscribe()
		g.unsubscribe = nil
	}
}

// Check evaluates the current session against the current view, for use
// after the user navigates on their own.
func (g *RouteGuard) Check(ctx context.Context) error {
	return g.enforce(ctx, domain.Change{Session: g.store.Snapshot()})
}

func (g *RouteGuard) handle(c domain.Change) {
	if err := g.enforce(context.Background(), c); err != nil {
		g.opts.logger.Warn("route guard navigation failed", "cause", string(c.Cause), "error", err)
	}
}

func (g *RouteGuard) enforce(ctx context.Context, c domain.Change) error {
	current := g.nav.Current()
	target, ok := Decide(c, current)
	if !ok {
		return nil
	}

	g.opts.logger.Debug("route guard redirect",
		"cause", string(c.Cause),
		"from", string(current),
		"to", string(target),
	)
	return g.store.Redirect(func() error {
		return g.nav.Navigate(ctx, target)
	})
}

// Decide returns the view the guard should move to for a change observed
// while on current. ok is false when no navigation is needed.
func Decide(c domain.Change, current domain.View) (target domain.View, ok bool) {
	s := c.Session
	if s.Loading || s.Authenticated == domain.AuthUnknown {
		return "", false
	}

	switch c.Cause {
	case domain.CauseLoggedIn:
		target = domain.LandingView
	case domain.CauseLoggedOut, domain.CauseExpired:
		target = domain.ViewSignIn
	default:
		switch {
		case !s.IsAuthenticated() && current != domain.ViewSignIn:
			target = domain.ViewSignIn
		case s.IsAuthenticated() && current == domain.ViewSignIn:
			target = domain.LandingView
		default:
			return "", false
		}
	}

	if target == current {
		return "", false
	}
	return target, true
}
