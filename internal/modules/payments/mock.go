package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	MockSignatureHeader    = "X-Mock-Signature"
	mockSignatureTolerance = 5 * time.Minute
)

// MockProvider keeps checkout sessions in memory and signs webhooks with
// HMAC-SHA256 over "<unix ts>.<body>". It is meant for local development and tests.
type MockProvider struct {
	secret string

	mu       sync.Mutex
	sessions map[string]CheckoutSession
	now      func() time.Time
}

func NewMockProvider(webhookSecret string) *MockProvider {
	return &MockProvider{secret: webhookSecret, sessions: map[string]CheckoutSession{}, now: time.Now}
}

func (p *MockProvider) Name() string { return "mock" }

func (p *MockProvider) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (CheckoutSession, error) {
	if err := ctx.Err(); err != nil {
		return CheckoutSession{}, err
	}
	id := "cs_mock_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	s := CheckoutSession{
		ID:            id,
		URL:           strings.ReplaceAll(req.SuccessURL, "{CHECKOUT_SESSION_ID}", id),
		PaymentStatus: "unpaid",
		AmountTotal:   req.AmountCents,
		Currency:      req.Currency,
		Metadata: map[string]string{
			MetaProjectID: req.ProjectID,
			MetaUserID:    req.ContributorID,
		},
	}

	p.mu.Lock()
	p.sessions[id] = s
	p.mu.Unlock()
	return s, nil
}

func (p *MockProvider) GetCheckoutSession(ctx context.Context, sessionID string) (CheckoutSession, error) {
	if err := ctx.Err(); err != nil {
		return CheckoutSession{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.sessions[sessionID]
	if !ok {
		return CheckoutSession{}, ErrSessionNotFound
	}
	return s, nil
}

// Put stores or replaces a session.
func (p *MockProvider) Put(s CheckoutSession) {
	p.mu.Lock()
	p.sessions[s.ID] = s
	p.mu.Unlock()
}

// MarkPaid flips a session to paid, as the hosted checkout would.
func (p *MockProvider) MarkPaid(sessionID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	s.PaymentStatus = PaymentStatusPaid
	p.sessions[sessionID] = s
	return nil
}

// MockEvent is the wire shape of a mock webhook, modeled on Stripe's event envelope.
type MockEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object MockSessionObject `json:"object"`
	} `json:"data"`
}

type MockSessionObject struct {
	ID            string            `json:"id"`
	Object        string            `json:"object"`
	PaymentStatus string            `json:"payment_status"`
	AmountTotal   int64             `json:"amount_total"`
	Currency      string            `json:"currency"`
	Metadata      map[string]string `json:"metadata"`
}

func (p *MockProvider) VerifyAndParseWebhook(header http.Header, body []byte) (WebhookEvent, error) {
	if p.secret == "" {
		return WebhookEvent{}, ErrWebhookSecretMissing
	}
	if err := verifyMockSignature(p.secret, header.Get(MockSignatureHeader), body, p.now()); err != nil {
		return WebhookEvent{}, err
	}

	var ev MockEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return WebhookEvent{}, fmt.Errorf("%w: decode: %v", ErrInvalidSignature, err)
	}
	obj := ev.Data.Object
	s := CheckoutSession{
		ID:            obj.ID,
		PaymentStatus: obj.PaymentStatus,
		AmountTotal:   obj.AmountTotal,
		Currency:      obj.Currency,
		Metadata:      obj.Metadata,
	}
	return WebhookEvent{
		EventID: ev.ID,
		Type:    normalizeEventType(ev.Type, s.PaymentStatus),
		RawType: ev.Type,
		Session: s,
	}, nil
}

// MockSignature builds the X-Mock-Signature header value for body at ts.
func MockSignature(secret string, ts time.Time, body []byte) string {
	t := ts.Unix()
	return fmt.Sprintf("t=%d,v1=%s", t, computeMockSig([]byte(secret), t, body))
}

func verifyMockSignature(secret, header string, body []byte, now time.Time) error {
	if header == "" {
		return fmt.Errorf("%w: missing %s header", ErrInvalidSignature, MockSignatureHeader)
	}

	var ts int64
	var sigs []string
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return fmt.Errorf("%w: bad timestamp", ErrInvalidSignature)
			}
			ts = n
		case "v1":
			sigs = append(sigs, v)
		}
	}
	if ts == 0 || len(sigs) == 0 {
		return fmt.Errorf("%w: malformed header", ErrInvalidSignature)
	}
	if d := now.Sub(time.Unix(ts, 0)); d > mockSignatureTolerance || d < -mockSignatureTolerance {
		return fmt.Errorf("%w: timestamp outside tolerance", ErrInvalidSignature)
	}

	want := computeMockSig([]byte(secret), ts, body)
	for _, s := range sigs {
		if hmac.Equal([]byte(s), []byte(want)) {
			return nil
		}
	}
	return fmt.Errorf("%w: no matching signature", ErrInvalidSignature)
}

func computeMockSig(secret []byte, t int64, body []byte) string {
	m := hmac.New(sha256.New, secret)
	m.Write([]byte(strconv.FormatInt(t, 10)))
	m.Write([]byte("."))
	m.Write(body)
	return hex.EncodeToString(m.Sum(nil))
}
