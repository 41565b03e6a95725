package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/yndnr/prodadmin-go/internal/cli/connection"
	"github.com/yndnr/prodadmin-go/internal/core/domain"
	"github.com/yndnr/prodadmin-go/pkg/token"
)

// Backend authentication endpoints.
const (
	PathLogin    = "/api/auth/login"
	PathLogout   = "/api/auth/logout"
	PathValidate = "/api/auth/validate"
)

// DefaultInvalidCredentialsMessage is shown when a rejected login carries
// no server message.
const DefaultInvalidCredentialsMessage = "Invalid username or password"

// LoginResult is the backend's answer to a successful credential exchange.
type LoginResult struct {
	Token    string   `json:"token"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}

// AuthBackend is the authentication surface the Store depends on.
type AuthBackend interface {
	// Validate reports whether the backend still accepts tok.
	Validate(ctx context.Context, tok string) (bool, error)

	// Login exchanges credentials for a token.
	Login(ctx context.Context, username, password string) (*LoginResult, error)

	// Logout tells the backend the token is no longer in use.
	Logout(ctx context.Context, tok string) error
}

// AuthAPI implements AuthBackend over HTTP.
type AuthAPI struct {
	transport Transport
	opts      options
}

var _ AuthBackend = (*AuthAPI)(nil)

// NewAuthAPI creates an AuthAPI.
func NewAuthAPI(transport Transport, opts ...Option) *AuthAPI {
	return &AuthAPI{
		transport: transport,
		opts:      buildOptions(opts),
	}
}

// Validate calls GET /api/auth/validate. A 2xx status means valid, 401 and
// 403 mean invalid; any other status is reported as RequestFailed.
func (a *AuthAPI) Validate(ctx context.Context, tok string) (valid bool, err error) {
	start := time.Now()
	defer func() { a.opts.observe("auth.validate", err, time.Since(start)) }()

	resp, err := a.transport.Do(ctx, connection.Request{
		Method: http.MethodGet,
		Path:   PathValidate,
		Header: bearer(tok),
	})
	if err != nil {
		return false, classifyTransportError(err)
	}

	a.opts.logger.Debug("token validation answered",
		"status", resp.StatusCode,
		"token_fp", token.Fingerprint(tok),
	)

	switch {
	case resp.OK():
		return true, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return false, nil
	default:
		return false, domain.ErrRequestFailed.WithStatus(resp.StatusCode).
			WithDetails(failureMessage(resp, "token validation"))
	}
}

// Login calls POST /api/auth/login.
func (a *AuthAPI) Login(ctx context.Context, username, password string) (res *LoginResult, err error) {
	start := time.Now()
	defer func() { a.opts.observe("auth.login", err, time.Since(start)) }()

	resp, err := a.transport.Do(ctx, connection.Request{
		Method: http.MethodPost,
		Path:   PathLogin,
		Body: map[string]string{
			"username": username,
			"password": password,
		},
	})
	if err != nil {
		return nil, classifyTransportError(err)
	}

	if !resp.OK() {
		msg := connection.ErrorMessage(resp.Body)
		if msg == "" {
			msg = DefaultInvalidCredentialsMessage
		}
		return nil, domain.ErrInvalidCredentials.WithStatus(resp.StatusCode).WithDetails(msg)
	}

	var out LoginResult
	if err := resp.Decode(&out); err != nil {
		return nil, domain.ErrRequestFailed.WithStatus(resp.StatusCode).
			WithDetails("malformed login response").WithCause(err)
	}
	out.Token = strings.TrimSpace(out.Token)
	if out.Token == "" {
		return nil, domain.ErrRequestFailed.WithStatus(resp.StatusCode).
			WithDetails("malformed login response: no token")
	}

	a.opts.logger.Debug("login accepted",
		"username", out.Username,
		"token_fp", token.Fingerprint(out.Token),
	)
	return &out, nil
}

// Logout calls POST /api/auth/logout.
func (a *AuthAPI) Logout(ctx context.Context, tok string) (err error) {
	start := time.Now()
	defer func() { a.opts.observe("auth.logout", err, time.Since(start)) }()

	resp, err := a.transport.Do(ctx, connection.Request{
		Method: http.MethodPost,
		Path:   PathLogout,
		Header: bearer(tok),
	})
	if err != nil {
		return classifyTransportError(err)
	}
	if !resp.OK() {
		return domain.ErrRequestFailed.WithStatus(resp.StatusCode).
			WithDetails(failureMessage(resp, "logout"))
	}
	return nil
}

func bearer(tok string) http.Header {
	h := make(http.Header)
	h.Set("Authorization", "Bearer "+tok)
	return h
}

// failureMessage prefers the server's message over a generic one.
func failureMessage(resp *connection.Response, operation string) string {
	if msg := connection.ErrorMessage(resp.Body); msg != "" {
		return msg
	}
	return fmt.Sprintf("%s failed (status %d)", operation, resp.StatusCode)
}
