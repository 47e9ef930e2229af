package payments

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Simon-Ruto/Together-Crowdfunding/internal/metrics"
)

// Ack is what the provider gets back once a delivery is verified.
type Ack struct {
	EventID   string
	Type      string
	Duplicate bool
	Ignored   bool
	Outcome   string
}

type WebhookService struct {
	db       *gorm.DB
	provider Provider
	settler  *Settler
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func NewWebhookService(db *gorm.DB, provider Provider, settler *Settler) *WebhookService {
	return &WebhookService{db: db, provider: provider, settler: settler, logger: slog.Default()}
}

func (s *WebhookService) SetLogger(logger *slog.Logger) {
	s.logger = logger
}

func (s *WebhookService) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

func (s *WebhookService) ProviderName() string { return s.provider.Name() }

// Handle verifies a delivery and settles it. Only verification failures are
// returned as errors; once the signature checks out every outcome is
// acknowledged and processing errors are logged and kept on the event row,
// so the provider does not retry on our account.
func (s *WebhookService) Handle(ctx context.Context, header http.Header, rawBody []byte) (Ack, error) {
	providerName := s.provider.Name()

	ev, err := s.provider.VerifyAndParseWebhook(header, rawBody)
	if err != nil {
		s.metrics.WebhookEvent("unverified", "rejected")
		if errors.Is(err, ErrWebhookSecretMissing) {
			s.logger.ErrorContext(ctx, "webhook secret not configured", "provider", providerName)
		} else {
			s.logger.ErrorContext(ctx, "webhook signature verification failed", "provider", providerName, "err", err)
		}
		return Ack{}, err
	}
	if ev.EventID == "" {
		sum := sha256.Sum256(rawBody)
		ev.EventID = "body_" + hex.EncodeToString(sum[:16])
	}

	ack := Ack{EventID: ev.EventID, Type: ev.Type}
	var settled *settledEvent
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()

		pe := ProviderEvent{
			ID:          uuid.NewString(),
			Provider:    providerName,
			EventID:     ev.EventID,
			EventType:   truncate(ev.RawType, 64),
			SessionID:   ev.Session.ID,
			PayloadJSON: datatypes.JSON(rawBody),
			ReceivedAt:  now,
		}

		// dedupe: unique(provider,event_id)
		if err := tx.WithContext(ctx).Create(&pe).Error; err != nil {
			if isDup(err) {
				s.logger.InfoContext(ctx, "webhook event deduplicated", "provider", providerName, "event_id", ev.EventID, "type", ev.RawType)
				ack.Duplicate = true
				return nil
			}
			return err
		}

		var applyErr error
		// savepoint: a failed apply must not take the event row with it
		_ = tx.Transaction(func(inner *gorm.DB) error {
			settled, applyErr = s.apply(ctx, inner, providerName, ev, &ack)
			return applyErr
		})

		if applyErr != nil {
			msg := truncate(applyErr.Error(), 250)
			s.logger.ErrorContext(ctx, "webhook event apply failed", "provider", providerName, "event_id", ev.EventID, "type", ev.RawType, "error", msg)
			return tx.WithContext(ctx).Model(&ProviderEvent{}).
				Where("id = ?", pe.ID).
				Updates(map[string]any{"process_error": msg}).Error
		}

		processed := now
		return tx.WithContext(ctx).Model(&ProviderEvent{}).
			Where("id = ?", pe.ID).
			Updates(map[string]any{"processed_at": &processed}).Error
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "webhook event not persisted", "provider", providerName, "event_id", ev.EventID, "err", err)
		s.metrics.WebhookEvent(ev.Type, "error")
		return ack, nil
	}

	// reported only once the ledger row is committed
	if settled != nil {
		s.settler.report(ctx, settled.in, settled.res)
	}

	switch {
	case ack.Duplicate:
		s.metrics.WebhookEvent(ev.Type, "duplicate")
	case ack.Ignored:
		s.metrics.WebhookEvent(ev.Type, "ignored")
	default:
		s.metrics.WebhookEvent(ev.Type, "processed")
	}
	return ack, nil
}

type settledEvent struct {
	in  Settlement
	res SettleResult
}

func (s *WebhookService) apply(ctx context.Context, tx *gorm.DB, providerName string, ev WebhookEvent, ack *Ack) (*settledEvent, error) {
	var status string
	switch ev.Type {
	case EventCheckoutCompleted:
		status = StatusCompleted
	case EventCheckoutFailed:
		status = StatusFailed
	default:
		s.logger.InfoContext(ctx, "webhook event ignored", "provider", providerName, "event_id", ev.EventID, "type", ev.RawType)
		ack.Ignored = true
		return nil, nil
	}

	sess := ev.Session
	projectID := sess.ProjectID()
	if projectID == "" || sess.ID == "" {
		s.logger.WarnContext(ctx, "webhook session without project metadata", "provider", providerName, "event_id", ev.EventID, "session_id", sess.ID)
		ack.Ignored = true
		return nil, nil
	}

	in := Settlement{
		SessionID:     sess.ID,
		ProjectID:     projectID,
		ContributorID: sess.ContributorID(),
		Provider:      providerName,
		AmountCents:   sess.AmountTotal,
		Currency:      sess.Currency,
		Status:        status,
		Source:        SourceWebhook,
	}
	res, err := s.settler.settleTx(ctx, tx, in)
	if err != nil {
		return nil, err
	}
	ack.Outcome = res.outcome()
	return &settledEvent{in: in, res: res}, nil
}
