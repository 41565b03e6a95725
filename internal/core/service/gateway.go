package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/time/rate"

	"github.com/yndnr/prodadmin-go/internal/cli/connection"
	"github.com/yndnr/prodadmin-go/internal/core/domain"
	"github.com/yndnr/prodadmin-go/internal/telemetry/logger"
	"github.com/yndnr/prodadmin-go/pkg/token"
)

// RequestIDHeader carries the per-request correlation ID.
const RequestIDHeader = "X-Request-ID"

// GatewayConfig controls authorized requests.
type GatewayConfig struct {
	// RequestTimeout bounds each request; 0 leaves only the caller's deadline.
	RequestTimeout time.Duration

	// RateLimit paces requests per second; 0 disables pacing.
	RateLimit float64
	RateBurst int
}

// Request describes an authorized backend call.
type Request struct {
	// Operation names the call in errors, logs and metrics.
	Operation string
	Method    string
	Path      string
	Query     url.Values
	Body      any

	// FailureMessage builds the error text for a non-2xx status when the
	// server sends no message. Defaults to "<operation> failed (status N)".
	FailureMessage func(status int) string
}

// Executor performs authorized requests. *Gateway satisfies it.
type Executor interface {
	Execute(ctx context.Context, req Request, out any) error
}

// Gateway issues authorized requests and classifies their outcome.
// It reads the credential from a TokenSource and never changes the session.
type Gateway struct {
	transport Transport
	tokens    TokenSource
	cfg       GatewayConfig
	limiter   *rate.Limiter
	opts      options
}

var _ Executor = (*Gateway)(nil)

// NewGateway creates a Gateway.
func NewGateway(transport Transport, tokens TokenSource, cfg GatewayConfig, opts ...Option) *Gateway {
	g := &Gateway{
		transport: transport,
		tokens:    tokens,
		cfg:       cfg,
		opts:      buildOptions(opts),
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return g
}

// BuildAuthHeaders returns the headers of an authorized request, or
// domain.ErrMissingCredential when no token is held.
func (g *Gateway) BuildAuthHeaders() (http.Header, error) {
	tok := g.tokens.Token()
	if tok == "" {
		return nil, domain.ErrMissingCredential
	}

	h := make(http.Header)
	h.Set("Authorization", "Bearer "+tok)
	h.Set("Content-Type", "application/json")
	return h, nil
}

// Execute performs req and decodes a 2xx body into out (nil to discard).
//
// Outcomes: 403 is domain.ErrForbidden; other non-2xx statuses are
// domain.ErrRequestFailed carrying the server message or a generic one;
// transport failures are domain.ErrNetworkUnavailable or domain.ErrTimeout.
// Nothing is sent when the auth headers cannot be built.
func (g *Gateway) Execute(ctx context.Context, req Request, out any) (err error) {
	start := time.Now()
	defer func() { g.opts.observe(req.Operation, err, time.Since(start)) }()

	headers, err := g.BuildAuthHeaders()
	if err != nil {
		return err
	}

	requestID := ulid.Make().String()
	headers.Set(RequestIDHeader, requestID)
	ctx = logger.WithRequestID(ctx, requestID)
	log := g.opts.logger.WithContext(ctx).With(
		"operation", req.Operation,
		"token_fp", token.Fingerprint(g.tokens.Token()),
	)

	if g.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.RequestTimeout)
		defer cancel()
	}

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return classifyTransportError(fmt.Errorf("rate limit wait: %w", waitError(ctx, err)))
		}
	}

	resp, err := g.transport.Do(ctx, connection.Request{
		Method: req.Method,
		Path:   req.Path,
		Query:  req.Query,
		Header: headers,
		Body:   req.Body,
	})
	if err != nil {
		err = classifyTransportError(err)
		log.Debug("request failed", "error", err, "elapsed", time.Since(start))
		return err
	}

	log.Debug("request completed", "status", resp.StatusCode, "elapsed", time.Since(start))

	switch {
	case resp.StatusCode == http.StatusForbidden:
		return domain.ErrForbidden.WithStatus(resp.StatusCode)
	case !resp.OK():
		msg := connection.ErrorMessage(resp.Body)
		if msg == "" {
			if req.FailureMessage != nil {
				msg = req.FailureMessage(resp.StatusCode)
			} else {
				msg = fmt.Sprintf("%s failed (status %d)", req.Operation, resp.StatusCode)
			}
		}
		return domain.ErrRequestFailed.WithStatus(resp.StatusCode).WithDetails(msg)
	}

	if err := resp.Decode(out); err != nil {
		return domain.ErrRequestFailed.WithStatus(resp.StatusCode).
			WithDetails(fmt.Sprintf("%s returned a malformed response", req.Operation)).
			WithCause(err)
	}
	return nil
}

// waitError turns the limiter's "would exceed context deadline" error
// into context.DeadlineExceeded so it classifies as a timeout.
func waitError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if _, ok := ctx.Deadline(); ok {
		return fmt.Errorf("%v: %w", err, context.DeadlineExceeded)
	}
	return err
}
