package service

import (
	"context"
	"errors"
	"net"

	"github.com/yndnr/prodadmin-go/internal/cli/connection"
	"github.com/yndnr/prodadmin-go/internal/core/domain"
)

// Transport performs a backend HTTP exchange.
// *connection.HTTPClient satisfies it.
type Transport interface {
	Do(ctx context.Context, req connection.Request) (*connection.Response, error)
}

// classifyTransportError maps a failed exchange to Timeout or
// NetworkUnavailable. Cancellation by the caller is passed through.
func classifyTransportError(err error) error {
	if err == nil {
		return nil
	}

	var de *domain.DomainError
	if errors.As(err, &de) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return domain.ErrTimeout.WithCause(err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return domain.ErrTimeout.WithCause(err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, connection.ErrResponseTooLarge) {
		return domain.ErrRequestFailed.WithDetails("The server response was too large.").WithCause(err)
	}
	return domain.ErrNetworkUnavailable.WithCause(err)
}

// outcome names the result of a call for metrics.
func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrMissingCredential):
		return "missing_credential"
	case errors.Is(err, domain.ErrForbidden):
		return "forbidden"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, domain.ErrTimeout):
		return "timeout"
	case errors.Is(err, domain.ErrNetworkUnavailable):
		return "network"
	case errors.Is(err, domain.ErrTransitionInProgress):
		return "busy"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return "failed"
	}
}
