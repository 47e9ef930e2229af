package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	Invalid           Kind = "invalid"
	NotFound          Kind = "not_found"
	Unauthorized      Kind = "unauthorized"
	Forbidden         Kind = "forbidden"
	Conflict          Kind = "conflict"
	Signature         Kind = "signature"
	Config            Kind = "config"
	PaymentIncomplete Kind = "payment_incomplete"
	Upstream          Kind = "upstream"
	RateLimited       Kind = "rate_limited"
	Internal          Kind = "internal"
)

const defaultPublicMsg = "Internal server error"

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	if e.PublicMsg != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.PublicMsg)
	}
	return string(e.Kind)
}

func (e *AppError) Unwrap() error { return e.Err }

// Constructors. PublicMsg must be short and safe to return to clients.
func InvalidErr(publicMsg string, fields map[string]string) *AppError {
	return &AppError{Kind: Invalid, PublicMsg: publicMsg, Fields: fields}
}
func NotFoundErr(publicMsg string) *AppError {
	return &AppError{Kind: NotFound, PublicMsg: publicMsg}
}
func UnauthorizedErr(publicMsg string) *AppError {
	return &AppError{Kind: Unauthorized, PublicMsg: publicMsg}
}
func ForbiddenErr(publicMsg string) *AppError {
	return &AppError{Kind: Forbidden, PublicMsg: publicMsg}
}
func ConflictErr(publicMsg string) *AppError {
	return &AppError{Kind: Conflict, PublicMsg: publicMsg}
}
func SignatureErr(err error) *AppError {
	return &AppError{Kind: Signature, PublicMsg: "Webhook signature verification failed", Err: err}
}
func ConfigErr(publicMsg string, err error) *AppError {
	return &AppError{Kind: Config, PublicMsg: publicMsg, Err: err}
}
func PaymentIncompleteErr(publicMsg string) *AppError {
	return &AppError{Kind: PaymentIncomplete, PublicMsg: publicMsg}
}

// UpstreamErr surfaces the provider's message to the caller.
func UpstreamErr(err error) *AppError {
	msg := "Payment provider error"
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}
	return &AppError{Kind: Upstream, PublicMsg: msg, Err: err}
}
func RateLimitedErr(publicMsg string) *AppError {
	return &AppError{Kind: RateLimited, PublicMsg: publicMsg}
}

// Wrap hides an internal error behind the generic public message (500).
func Wrap(err error) *AppError {
	if err == nil {
		return nil
	}
	if ae, ok := As(err); ok {
		return ae
	}
	return &AppError{Kind: Internal, PublicMsg: defaultPublicMsg, Err: err}
}

func As(err error) (*AppError, bool) {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

func HTTPStatus(err error) int {
	if ae, ok := As(err); ok {
		switch ae.Kind {
		case Invalid, Signature, Config:
			return http.StatusBadRequest
		case Unauthorized:
			return http.StatusUnauthorized
		case PaymentIncomplete:
			return http.StatusPaymentRequired
		case Forbidden:
			return http.StatusForbidden
		case NotFound:
			return http.StatusNotFound
		case Conflict:
			return http.StatusConflict
		case RateLimited:
			return http.StatusTooManyRequests
		case Upstream:
			return http.StatusBadGateway
		default:
			return http.StatusInternalServerError
		}
	}
	return http.StatusInternalServerError
}

// Code is the machine-readable error code of the public error body.
func Code(err error) string {
	ae, ok := As(err)
	if !ok {
		return "INTERNAL_ERROR"
	}
	switch ae.Kind {
	case Invalid:
		return "INVALID_INPUT"
	case Unauthorized:
		return "AUTH_ERROR"
	case Forbidden:
		return "FORBIDDEN"
	case NotFound:
		return "NOT_FOUND"
	case Conflict:
		return "DUPLICATE_ERROR"
	case Signature:
		return "SIGNATURE_ERROR"
	case Config:
		return "CONFIG_ERROR"
	case PaymentIncomplete:
		return "PAYMENT_INCOMPLETE"
	case Upstream:
		return "UPSTREAM_ERROR"
	case RateLimited:
		return "RATE_LIMITED"
	default:
		return "INTERNAL_ERROR"
	}
}

func PublicMessage(err error) string {
	if ae, ok := As(err); ok && ae.PublicMsg != "" {
		return ae.PublicMsg
	}
	return defaultPublicMsg
}
