package domain

import "time"

// TokenStorageKey is the session-scoped storage key holding the credential.
const TokenStorageKey = "token"

// AuthState is the tri-state authentication flag.
// The zero value is AuthUnknown: nothing has been determined yet.
type AuthState int

const (
	AuthUnknown AuthState = iota
	AuthFalse
	AuthTrue
)

// String implements fmt.Stringer.
func (a AuthState) String() string {
	switch a {
	case AuthTrue:
		return "true"
	case AuthFalse:
		return "false"
	default:
		return "unknown"
	}
}

// State is the derived lifecycle state of a session.
type State string

const (
	StateInitializing    State = "initializing"
	StateUnauthenticated State = "unauthenticated"
	StateAuthenticated   State = "authenticated"
	StateTransitioning   State = "transitioning"
)

// Session is the client-side authentication record.
//
// Token is non-empty if and only if Authenticated is AuthTrue, except
// transiently while a login or logout is in flight.
type Session struct {
	Token         string
	Authenticated AuthState
	Loading       bool

	// ExpiresAt is the exp claim of the token when it is a JWT, zero otherwise.
	ExpiresAt time.Time
}

// State derives the lifecycle state from the flags.
// Transitioning overlays whichever state the session started from.
func (s Session) State() State {
	switch {
	case s.Authenticated == AuthUnknown:
		return StateInitializing
	case s.Loading:
		return StateTransitioning
	case s.Authenticated == AuthTrue:
		return StateAuthenticated
	default:
		return StateUnauthenticated
	}
}

// IsAuthenticated reports whether the session holds an accepted credential.
func (s Session) IsAuthenticated() bool {
	return s.Authenticated == AuthTrue && s.Token != ""
}

// ChangeCause names the transition that produced a state change.
type ChangeCause string

const (
	CauseInitialized ChangeCause = "initialized"
	CauseLoggedIn    ChangeCause = "logged_in"
	CauseLoginFailed ChangeCause = "login_failed"
	CauseLoggedOut   ChangeCause = "logged_out"
	CauseExpired     ChangeCause = "expired"
	CauseLoading     ChangeCause = "loading"
	CauseRedirected  ChangeCause = "redirected"
)

// Change is delivered to store subscribers after every state mutation.
type Change struct {
	Cause   ChangeCause
	Session Session
}

// View identifies a screen of the admin client.
type View string

const (
	ViewSignIn    View = "/signin"
	ViewDashboard View = "/"
	ViewProducts  View = "/products"
)

// LandingView is where a freshly authenticated user is sent.
const LandingView = ViewDashboard

// Title returns a short display name for the view.
func (v View) Title() string {
	switch v {
	case ViewSignIn:
		return "signin"
	case ViewDashboard:
		return "dashboard"
	case ViewProducts:
		return "products"
	default:
		return string(v)
	}
}
