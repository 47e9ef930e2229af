package payments

import (
	"time"

	"gorm.io/datatypes"
)

const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

const (
	SourceWebhook = "webhook"
	SourceConfirm = "confirm"
)

// Payment is the immutable ledger row for one checkout session outcome.
// session_id is unique: at most one terminal record exists per session.
type Payment struct {
	ID            string    `gorm:"type:char(36);primaryKey"`
	ProjectID     string    `gorm:"type:char(36);not null;index:ix_payments_project_id"`
	ContributorID *string   `gorm:"type:char(36)"`
	Provider      string    `gorm:"type:varchar(64);not null"`
	SessionID     string    `gorm:"type:varchar(255);not null;uniqueIndex:ux_payments_session_id"`
	AmountCents   int64     `gorm:"not null"`
	Currency      string    `gorm:"type:char(3);not null"`
	Status        string    `gorm:"type:varchar(16);not null"`
	Source        string    `gorm:"type:varchar(16);not null"`
	CreatedAt     time.Time `gorm:"precision:3;not null"`
}

func (Payment) TableName() string { return "payments" }

// ProviderEvent is the webhook delivery log, unique per (provider, event_id).
type ProviderEvent struct {
	ID          string         `gorm:"type:char(36);primaryKey"`
	Provider    string         `gorm:"type:varchar(64);not null;uniqueIndex:ux_provider_events_provider_event,priority:1"`
	EventID     string         `gorm:"type:varchar(128);not null;uniqueIndex:ux_provider_events_provider_event,priority:2"`
	EventType   string         `gorm:"type:varchar(64);not null"`
	SessionID   string         `gorm:"type:varchar(255);not null;default:''"`
	PayloadJSON datatypes.JSON `gorm:"type:json;not null"`

	ReceivedAt   time.Time  `gorm:"precision:3;not null"`
	ProcessedAt  *time.Time `gorm:"precision:3"`
	ProcessError *string    `gorm:"type:varchar(255)"`
}

func (ProviderEvent) TableName() string { return "provider_events" }
