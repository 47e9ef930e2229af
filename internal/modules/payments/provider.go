package payments

import (
	"context"
	"net/http"
)

// Normalized webhook event types.
const (
	EventCheckoutCompleted = "checkout.completed"
	EventCheckoutFailed    = "checkout.failed"
	EventCheckoutPending   = "checkout.pending"
)

const (
	PaymentStatusPaid              = "paid"
	PaymentStatusNoPaymentRequired = "no_payment_required"
)

// settledStatus reports whether a session payment status means the funds are final.
func settledStatus(status string) bool {
	return status == PaymentStatusPaid || status == PaymentStatusNoPaymentRequired
}

// Correlation metadata keys attached to every checkout session.
const (
	MetaProjectID = "projectId"
	MetaUserID    = "userId"
)

type CheckoutRequest struct {
	ProjectID     string
	ProjectTitle  string
	ContributorID string
	AmountCents   int64
	Currency      string
	SuccessURL    string
	CancelURL     string
}

// CheckoutSession is the provider's view of a session. AmountTotal is in minor units.
type CheckoutSession struct {
	ID            string
	URL           string
	PaymentStatus string
	AmountTotal   int64
	Currency      string
	Metadata      map[string]string
}

func (s CheckoutSession) ProjectID() string     { return s.Metadata[MetaProjectID] }
func (s CheckoutSession) ContributorID() string { return s.Metadata[MetaUserID] }
func (s CheckoutSession) Paid() bool            { return settledStatus(s.PaymentStatus) }

type WebhookEvent struct {
	EventID string
	Type    string // normalized, see Event* constants
	RawType string
	Session CheckoutSession
}

type Provider interface {
	Name() string
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, sessionID string) (CheckoutSession, error)

	// VerifyAndParseWebhook checks the signature over the exact raw body.
	VerifyAndParseWebhook(header http.Header, body []byte) (WebhookEvent, error)
}

// normalizeEventType maps Stripe-style checkout event names onto the
// workflow's event types. Unrelated types are returned unchanged.
func normalizeEventType(raw, paymentStatus string) string {
	switch raw {
	case "checkout.session.completed":
		if settledStatus(paymentStatus) {
			return EventCheckoutCompleted
		}
		return EventCheckoutPending
	case "checkout.session.async_payment_succeeded":
		return EventCheckoutCompleted
	case "checkout.session.async_payment_failed":
		return EventCheckoutFailed
	default:
		return raw
	}
}
