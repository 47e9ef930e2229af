package handlers

import (
	"errors"

	"github.com/Simon-Ruto/Together-Crowdfunding/internal/modules/payments"
	"github.com/Simon-Ruto/Together-Crowdfunding/internal/modules/projects"
	"github.com/Simon-Ruto/Together-Crowdfunding/internal/modules/users"
	"github.com/Simon-Ruto/Together-Crowdfunding/internal/shared/apperr"
)

// toAppErr maps domain errors onto the public error kinds.
func toAppErr(err error) error {
	if err == nil {
		return nil
	}
	if ae, ok := apperr.As(err); ok {
		return ae
	}

	var uve *users.ValidationError
	if errors.As(err, &uve) {
		return &apperr.AppError{Kind: apperr.Invalid, PublicMsg: "Validation failed", Fields: uve.Fields, Err: err}
	}
	var pve *projects.ValidationError
	if errors.As(err, &pve) {
		return &apperr.AppError{Kind: apperr.Invalid, PublicMsg: "Validation failed", Fields: pve.Fields, Err: err}
	}
	var up *payments.UpstreamError
	if errors.As(err, &up) {
		return apperr.UpstreamErr(up)
	}

	switch {
	case errors.Is(err, users.ErrUserExists):
		return apperr.ConflictErr("User already exists")
	case errors.Is(err, users.ErrInvalidCredentials):
		return apperr.UnauthorizedErr("Invalid credentials")
	case errors.Is(err, users.ErrInvalidToken), errors.Is(err, payments.ErrUnauthenticated):
		return apperr.UnauthorizedErr("Authentication required")
	case errors.Is(err, users.ErrNotFound):
		return apperr.NotFoundErr("User not found")

	case errors.Is(err, projects.ErrNotFound), errors.Is(err, payments.ErrProjectNotFound):
		return apperr.NotFoundErr("Project not found")
	case errors.Is(err, projects.ErrForbidden):
		return apperr.ForbiddenErr("Only the project owner can do this")
	case errors.Is(err, projects.ErrTooManyFiles):
		return apperr.InvalidErr("Too many files", map[string]string{"media": "At most 6 files per request"})
	case errors.Is(err, projects.ErrInvalidInput):
		return apperr.InvalidErr("Invalid project input", nil)

	case errors.Is(err, payments.ErrInvalidAmount):
		return apperr.InvalidErr("Invalid amount", map[string]string{"amount": "Amount must be a positive number"})
	case errors.Is(err, payments.ErrInvalidInput):
		return apperr.InvalidErr("Invalid payment request", nil)
	case errors.Is(err, payments.ErrSessionNotFound):
		return apperr.NotFoundErr("Checkout session not found")
	case errors.Is(err, payments.ErrPaymentIncomplete):
		return apperr.PaymentIncompleteErr("Payment not completed")
	case errors.Is(err, payments.ErrWebhookSecretMissing):
		return apperr.ConfigErr("Webhook secret is not configured", err)
	case errors.Is(err, payments.ErrInvalidSignature):
		return apperr.SignatureErr(err)
	}
	return apperr.Wrap(err)
}
