package projects

import "time"

const (
	MediaImage = "image"
	MediaVideo = "video"
)

type Project struct {
	ID             string    `gorm:"type:char(36);primaryKey"`
	OwnerID        string    `gorm:"type:char(36);not null;index:ix_projects_owner_id"`
	Title          string    `gorm:"type:varchar(200);not null"`
	Description    string    `gorm:"type:text;not null"`
	GoalCents      int64     `gorm:"not null"`
	CollectedCents int64     `gorm:"not null;default:0"`
	Currency       string    `gorm:"type:char(3);not null"`
	IsFunded       bool      `gorm:"not null;default:false"`
	Region         string    `gorm:"type:varchar(100);not null;default:''"`
	CallToAction   string    `gorm:"type:varchar(255);not null;default:''"`
	CreatedAt      time.Time `gorm:"precision:3;not null"`
	UpdatedAt      time.Time `gorm:"precision:3;not null"`

	Owner *Owner  `gorm:"foreignKey:OwnerID"`
	Media []Media `gorm:"foreignKey:ProjectID"`
}

func (Project) TableName() string { return "projects" }

func (p Project) Images() []string { return mediaURLs(p.Media, MediaImage) }
func (p Project) Videos() []string { return mediaURLs(p.Media, MediaVideo) }

// Owner is the public slice of a user row shown next to projects and updates.
type Owner struct {
	ID        string `gorm:"type:char(36);primaryKey"`
	Username  string
	AvatarURL string
	Region    string
}

func (Owner) TableName() string { return "users" }

// Media belongs to a project; UpdateID is set for media attached to a progress update.
type Media struct {
	ID         string    `gorm:"type:char(36);primaryKey"`
	ProjectID  string    `gorm:"type:char(36);not null;index:ix_project_media_project_id"`
	UpdateID   *string   `gorm:"type:char(36);index:ix_project_media_update_id"`
	Kind       string    `gorm:"type:varchar(16);not null"`
	URL        string    `gorm:"type:varchar(512);not null"`
	StorageKey string    `gorm:"type:varchar(255);not null"`
	Position   int       `gorm:"not null;default:0"`
	CreatedAt  time.Time `gorm:"precision:3;not null"`
}

func (Media) TableName() string { return "project_media" }

type Update struct {
	ID        string    `gorm:"type:char(36);primaryKey"`
	ProjectID string    `gorm:"type:char(36);not null;index:ix_project_updates_project_id"`
	AuthorID  string    `gorm:"type:char(36);not null"`
	Title     string    `gorm:"type:varchar(200);not null;default:''"`
	Message   string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"precision:3;not null"`

	Author *Owner  `gorm:"foreignKey:AuthorID"`
	Media  []Media `gorm:"foreignKey:UpdateID"`
}

func (Update) TableName() string { return "project_updates" }

func (u Update) Images() []string { return mediaURLs(u.Media, MediaImage) }
func (u Update) Videos() []string { return mediaURLs(u.Media, MediaVideo) }

func mediaURLs(media []Media, kind string) []string {
	out := []string{}
	for _, m := range media {
		if m.Kind == kind {
			out = append(out, m.URL)
		}
	}
	return out
}
