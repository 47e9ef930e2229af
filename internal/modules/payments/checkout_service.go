package payments

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/Simon-Ruto/Together-Crowdfunding/internal/metrics"
	"github.com/Simon-Ruto/Together-Crowdfunding/internal/modules/projects"
	"github.com/Simon-Ruto/Together-Crowdfunding/internal/shared/money"
)

type CheckoutConfig struct {
	Currency  string
	ClientURL string
	Timeout   time.Duration
}

// CheckoutService opens provider-hosted checkout sessions. It writes no local
// state: the amount is only a request until the provider reports it paid.
type CheckoutService struct {
	projects *projects.Repo
	provider Provider
	cfg      CheckoutConfig
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func NewCheckoutService(db *gorm.DB, provider Provider, cfg CheckoutConfig) *CheckoutService {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &CheckoutService{projects: projects.NewRepo(db), provider: provider, cfg: cfg, logger: slog.Default()}
}

func (s *CheckoutService) SetLogger(logger *slog.Logger) {
	s.logger = logger
}

func (s *CheckoutService) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

type CheckoutInput struct {
	ProjectID  string
	Amount     string // major units, e.g. "25.50"
	CallerID   string
	SuccessURL string
	CancelURL  string
}

type CheckoutResult struct {
	SessionID string
	URL       string
}

func (s *CheckoutService) CreateCheckout(ctx context.Context, in CheckoutInput) (CheckoutResult, error) {
	if in.CallerID == "" {
		return CheckoutResult{}, ErrUnauthenticated
	}
	cents, err := money.ParseCents(in.Amount)
	if err != nil {
		return CheckoutResult{}, ErrInvalidAmount
	}

	p, err := s.projects.Get(ctx, in.ProjectID)
	if err != nil {
		if errors.Is(err, projects.ErrNotFound) {
			return CheckoutResult{}, ErrProjectNotFound
		}
		return CheckoutResult{}, err
	}

	currency := p.Currency
	if currency == "" {
		currency = s.cfg.Currency
	}

	req := CheckoutRequest{
		ProjectID:     p.ID,
		ProjectTitle:  p.Title,
		ContributorID: in.CallerID,
		AmountCents:   cents,
		Currency:      currency,
		SuccessURL:    strings.TrimSpace(in.SuccessURL),
		CancelURL:     strings.TrimSpace(in.CancelURL),
	}
	if req.SuccessURL == "" {
		req.SuccessURL = s.cfg.ClientURL + "/payment-success?session_id={CHECKOUT_SESSION_ID}&project=" + url.QueryEscape(p.ID)
	}
	if req.CancelURL == "" {
		req.CancelURL = s.cfg.ClientURL
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	sess, err := s.provider.CreateCheckoutSession(callCtx, req)
	if err != nil {
		s.metrics.CheckoutSession("error")
		s.logger.ErrorContext(ctx, "checkout session failed", "provider", s.provider.Name(), "project_id", p.ID, "err", err)
		return CheckoutResult{}, &UpstreamError{Err: err}
	}

	s.metrics.CheckoutSession("created")
	s.logger.InfoContext(ctx, "checkout session created", "provider", s.provider.Name(), "project_id", p.ID, "session_id", sess.ID, "amount_cents", cents)
	return CheckoutResult{SessionID: sess.ID, URL: sess.URL}, nil
}
