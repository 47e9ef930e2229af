package payments

import (
	"context"
	"errors"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Simon-Ruto/Together-Crowdfunding/internal/metrics"
	"github.com/Simon-Ruto/Together-Crowdfunding/internal/modules/projects"
)

// Settlement is one terminal outcome observed for a checkout session.
type Settlement struct {
	SessionID     string
	ProjectID     string
	ContributorID string
	Provider      string
	AmountCents   int64
	Currency      string
	Status        string // completed|failed
	Source        string // webhook|confirm
}

type SettleResult struct {
	Payment      Payment
	Credited     bool
	Duplicate    bool
	ProjectFound bool
}

func (r SettleResult) outcome() string {
	switch {
	case r.Duplicate:
		return metrics.OutcomeDuplicate
	case r.Credited:
		return metrics.OutcomeCredited
	case r.Payment.Status == StatusCompleted && !r.ProjectFound:
		return metrics.OutcomeProjectMissing
	default:
		return metrics.OutcomeRecorded
	}
}

// Settler is the only writer of projects.collected_cents. The ledger insert
// keyed by session id decides which writer credits; the credit itself is an
// atomic increment so contributions from different sessions never clobber.
type Settler struct {
	db      *gorm.DB
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewSettler(db *gorm.DB) *Settler {
	return &Settler{db: db, logger: slog.Default()}
}

func (s *Settler) SetLogger(logger *slog.Logger) { s.logger = logger }
func (s *Settler) SetMetrics(m *metrics.Metrics) { s.metrics = m }

func (s *Settler) Settle(ctx context.Context, in Settlement) (SettleResult, error) {
	var res SettleResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		res, err = s.settleTx(ctx, tx, in)
		return err
	})
	if err != nil {
		return SettleResult{}, err
	}
	s.report(ctx, in, res)
	return res, nil
}

func (s *Settler) settleTx(ctx context.Context, tx *gorm.DB, in Settlement) (SettleResult, error) {
	// ids come from session metadata and are untrusted; a project id that is
	// not ours is still recorded, it just never credits anything
	if in.SessionID == "" || in.ProjectID == "" || len(in.ProjectID) > 36 {
		return SettleResult{}, ErrInvalidInput
	}
	if in.Status != StatusCompleted && in.Status != StatusFailed {
		return SettleResult{}, ErrInvalidInput
	}
	if in.AmountCents < 0 {
		return SettleResult{}, ErrInvalidAmount
	}

	p := Payment{
		ID:          uuid.NewString(),
		ProjectID:   in.ProjectID,
		Provider:    in.Provider,
		SessionID:   in.SessionID,
		AmountCents: in.AmountCents,
		Currency:    in.Currency,
		Status:      in.Status,
		Source:      in.Source,
		CreatedAt:   time.Now(),
	}
	if uuid.Validate(in.ContributorID) == nil {
		c := in.ContributorID
		p.ContributorID = &c
	}

	// insert-if-absent on the session id
	ins := tx.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "session_id"}}, DoNothing: true}).
		Create(&p)
	if ins.Error != nil && !isDup(ins.Error) {
		return SettleResult{}, ins.Error
	}
	if ins.Error != nil || ins.RowsAffected == 0 {
		var existing Payment
		if err := tx.WithContext(ctx).First(&existing, "session_id = ?", in.SessionID).Error; err != nil {
			return SettleResult{}, err
		}
		return SettleResult{Payment: existing, Duplicate: true}, nil
	}

	res := SettleResult{Payment: p}
	if p.Status != StatusCompleted {
		return res, nil
	}

	if uuid.Validate(p.ProjectID) != nil {
		return res, nil
	}
	found, err := projects.Credit(ctx, tx, p.ProjectID, p.AmountCents)
	if err != nil {
		return SettleResult{}, err
	}
	res.ProjectFound = found
	res.Credited = found
	return res, nil
}

func (s *Settler) report(ctx context.Context, in Settlement, res SettleResult) {
	outcome := res.outcome()
	s.metrics.Settlement(in.Source, outcome)

	attrs := []any{
		"session_id", in.SessionID,
		"project_id", in.ProjectID,
		"source", in.Source,
		"status", in.Status,
		"amount_cents", in.AmountCents,
		"outcome", outcome,
	}
	if outcome == metrics.OutcomeProjectMissing {
		s.logger.WarnContext(ctx, "payment recorded for unknown project", attrs...)
		return
	}
	s.logger.InfoContext(ctx, "settlement applied", attrs...)
}

func isDup(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
