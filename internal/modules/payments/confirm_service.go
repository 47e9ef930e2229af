package payments

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/Simon-Ruto/Together-Crowdfunding/internal/modules/projects"
)

// ConfirmService is the browser-driven confirmation path. It is a UX shortcut
// racing the webhook; both settle through the same Settler so a session is
// credited once whichever arrives first.
type ConfirmService struct {
	projects *projects.Repo
	provider Provider
	settler  *Settler
	timeout  time.Duration
	logger   *slog.Logger
}

func NewConfirmService(db *gorm.DB, provider Provider, settler *Settler, timeout time.Duration) *ConfirmService {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ConfirmService{projects: projects.NewRepo(db), provider: provider, settler: settler, timeout: timeout, logger: slog.Default()}
}

func (s *ConfirmService) SetLogger(logger *slog.Logger) {
	s.logger = logger
}

func (s *ConfirmService) Confirm(ctx context.Context, sessionID, projectID string) (projects.Project, error) {
	sessionID = strings.TrimSpace(sessionID)
	projectID = strings.TrimSpace(projectID)
	if sessionID == "" || projectID == "" {
		return projects.Project{}, ErrInvalidInput
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	sess, err := s.provider.GetCheckoutSession(callCtx, sessionID)
	cancel()
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return projects.Project{}, ErrSessionNotFound
		}
		return projects.Project{}, &UpstreamError{Err: err}
	}

	if !sess.Paid() {
		return projects.Project{}, ErrPaymentIncomplete
	}
	if meta := sess.ProjectID(); meta != "" && meta != projectID {
		s.logger.WarnContext(ctx, "confirm project does not match session", "session_id", sessionID, "project_id", projectID, "session_project_id", meta)
		return projects.Project{}, ErrInvalidInput
	}

	if _, err := s.projects.Get(ctx, projectID); err != nil {
		if errors.Is(err, projects.ErrNotFound) {
			return projects.Project{}, ErrProjectNotFound
		}
		return projects.Project{}, err
	}

	res, err := s.settler.Settle(ctx, Settlement{
		SessionID:     sessionID,
		ProjectID:     projectID,
		ContributorID: sess.ContributorID(),
		Provider:      s.provider.Name(),
		AmountCents:   sess.AmountTotal,
		Currency:      sess.Currency,
		Status:        StatusCompleted,
		Source:        SourceConfirm,
	})
	if err != nil {
		return projects.Project{}, err
	}
	if res.Duplicate {
		s.logger.InfoContext(ctx, "session already settled", "session_id", sessionID, "source", res.Payment.Source)
	}

	return s.projects.Get(ctx, projectID)
}
