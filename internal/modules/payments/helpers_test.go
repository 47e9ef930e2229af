package payments

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Simon-Ruto/Together-Crowdfunding/internal/modules/projects"
	"github.com/Simon-Ruto/Together-Crowdfunding/internal/shared/dbtest"
)

const testWebhookSecret = "whsec_test"

type fixture struct {
	db       *gorm.DB
	provider *MockProvider
	settler  *Settler
	webhooks *WebhookService
	confirm  *ConfirmService
	checkout *CheckoutService
}

var fixtureModels = []any{
	&projects.Owner{}, &projects.Project{}, &projects.Media{}, &projects.Update{},
	&Payment{}, &ProviderEvent{},
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureOn(dbtest.Open(t, fixtureModels...))
}

// newPooledFixture runs on a multi-connection database so settlements from
// different goroutines hold overlapping transactions.
func newPooledFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureOn(dbtest.OpenPool(t, 8, fixtureModels...))
}

func newFixtureOn(db *gorm.DB) *fixture {
	mp := NewMockProvider(testWebhookSecret)
	settler := NewSettler(db)
	return &fixture{
		db:       db,
		provider: mp,
		settler:  settler,
		webhooks: NewWebhookService(db, mp, settler),
		confirm:  NewConfirmService(db, mp, settler, time.Second),
		checkout: NewCheckoutService(db, mp, CheckoutConfig{Currency: "usd", ClientURL: "http://client.test", Timeout: time.Second}),
	}
}

func (f *fixture) seedProject(t *testing.T, goalCents, collectedCents int64) string {
	t.Helper()
	now := time.Now()
	p := projects.Project{
		ID:             uuid.NewString(),
		OwnerID:        uuid.NewString(),
		Title:          "Clean water",
		Description:    "A borehole for the village school.",
		GoalCents:      goalCents,
		CollectedCents: collectedCents,
		Currency:       "usd",
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := f.db.Omit("Owner", "Media").Create(&p).Error; err != nil {
		t.Fatalf("seed project: %v", err)
	}
	return p.ID
}

func (f *fixture) project(t *testing.T, id string) projects.Project {
	t.Helper()
	var p projects.Project
	if err := f.db.First(&p, "id = ?", id).Error; err != nil {
		t.Fatalf("load project: %v", err)
	}
	return p
}

func (f *fixture) paymentCount(t *testing.T, sessionID string) int64 {
	t.Helper()
	var n int64
	if err := f.db.Model(&Payment{}).Where("session_id = ?", sessionID).Count(&n).Error; err != nil {
		t.Fatalf("count payments: %v", err)
	}
	return n
}

// paidSession registers a paid session with the mock provider.
func (f *fixture) paidSession(projectID string, amountCents int64) CheckoutSession {
	s := CheckoutSession{
		ID:            "cs_test_" + uuid.NewString()[:8],
		PaymentStatus: PaymentStatusPaid,
		AmountTotal:   amountCents,
		Currency:      "usd",
		Metadata:      map[string]string{MetaProjectID: projectID, MetaUserID: uuid.NewString()},
	}
	f.provider.Put(s)
	return s
}

func eventBody(t *testing.T, eventID, eventType string, s CheckoutSession) []byte {
	t.Helper()
	var ev MockEvent
	ev.ID = eventID
	ev.Type = eventType
	ev.Data.Object = MockSessionObject{
		ID:            s.ID,
		Object:        "checkout.session",
		PaymentStatus: s.PaymentStatus,
		AmountTotal:   s.AmountTotal,
		Currency:      s.Currency,
		Metadata:      s.Metadata,
	}
	b, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return b
}

func signed(body []byte) http.Header {
	h := http.Header{}
	h.Set(MockSignatureHeader, MockSignature(testWebhookSecret, time.Now(), body))
	return h
}

func (f *fixture) deliver(t *testing.T, body []byte) Ack {
	t.Helper()
	ack, err := f.webhooks.Handle(context.Background(), signed(body), body)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	return ack
}
