package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/Simon-Ruto/Together-Crowdfunding/internal/modules/payments"
)

type options struct {
	URL           string
	Provider      string
	Secret        string
	EventID       string
	Type          string
	SessionID     string
	ProjectID     string
	UserID        string
	AmountCents   int64
	Currency      string
	PaymentStatus string
	DryRun        bool
}

func defaultOptions() *options {
	return &options{
		Provider:      "mock",
		EventID:       "evt_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16],
		Type:          "checkout.session.completed",
		SessionID:     "cs_mock_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		AmountCents:   5000,
		Currency:      "usd",
		PaymentStatus: payments.PaymentStatusPaid,
	}
}

// event mirrors the provider's envelope closely enough for both adapters.
type event struct {
	ID         string `json:"id"`
	Object     string `json:"object"`
	Type       string `json:"type"`
	APIVersion string `json:"api_version,omitempty"`
	Created    int64  `json:"created"`
	Data       struct {
		Object payments.MockSessionObject `json:"object"`
	} `json:"data"`
}

type signedRequest struct {
	URL    string
	Header string
	Value  string
	Body   []byte
}

func buildRequest(o *options, now time.Time) (signedRequest, error) {
	provider := strings.ToLower(o.Provider)
	secret := o.Secret
	switch provider {
	case "mock":
		if secret == "" {
			secret = os.Getenv("MOCK_WEBHOOK_SECRET")
		}
	case "stripe":
		if secret == "" {
			secret = os.Getenv("STRIPE_WEBHOOK_SECRET")
		}
	default:
		return signedRequest{}, fmt.Errorf("unknown provider %q (want mock or stripe)", o.Provider)
	}
	if secret == "" {
		return signedRequest{}, errors.New("no secret: pass --secret or set the provider's webhook secret env var")
	}

	meta := map[string]string{}
	if o.ProjectID != "" {
		meta[payments.MetaProjectID] = o.ProjectID
	}
	if o.UserID != "" {
		meta[payments.MetaUserID] = o.UserID
	}

	ev := event{ID: o.EventID, Object: "event", Type: o.Type, Created: now.Unix()}
	ev.Data.Object = payments.MockSessionObject{
		ID:            o.SessionID,
		Object:        "checkout.session",
		PaymentStatus: o.PaymentStatus,
		AmountTotal:   o.AmountCents,
		Currency:      o.Currency,
		Metadata:      meta,
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return signedRequest{}, err
	}

	url := o.URL
	if url == "" {
		url = "http://localhost:8080/webhooks/" + provider
	}

	if provider == "stripe" {
		sp := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
			Payload:   body,
			Secret:    secret,
			Timestamp: now,
		})
		return signedRequest{URL: url, Header: "Stripe-Signature", Value: sp.Header, Body: body}, nil
	}
	return signedRequest{
		URL:    url,
		Header: payments.MockSignatureHeader,
		Value:  payments.MockSignature(secret, now, body),
		Body:   body,
	}, nil
}

func run(ctx context.Context, out io.Writer, o *options) error {
	if ctx == nil {
		ctx = context.Background()
	}
	req, err := buildRequest(o, time.Now())
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s: %s\n", req.Header, req.Value)
	fmt.Fprintf(out, "Body: %s\n", req.Body)

	if o.DryRun {
		fmt.Fprintln(out, "\n[DRY RUN] Not sending request")
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	fmt.Fprintf(out, "\nSending to %s...\n", req.URL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.URL, bytes.NewReader(req.Body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(req.Header, req.Value)

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	fmt.Fprintf(out, "Status: %d\n", resp.StatusCode)
	fmt.Fprintf(out, "Response: %s\n", respBody)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("webhook rejected with status %d", resp.StatusCode)
	}
	return nil
}
