package payments

import (
	"context"
	"errors"
)

var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrUnauthenticated      = errors.New("authentication required")
	ErrProjectNotFound      = errors.New("project not found")
	ErrSessionNotFound      = errors.New("checkout session not found")
	ErrPaymentIncomplete    = errors.New("payment not completed")
	ErrWebhookSecretMissing = errors.New("webhook secret not configured")
	ErrInvalidSignature     = errors.New("invalid webhook signature")
)

// UpstreamError is a failed payment provider call. Its message is the
// provider's own message so it can be shown to the caller.
type UpstreamError struct {
	Err error
}

func (e *UpstreamError) Error() string {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return "payment provider timed out"
	}
	return e.Err.Error()
}

func (e *UpstreamError) Unwrap() error { return e.Err }
