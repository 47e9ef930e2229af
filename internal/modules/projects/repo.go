package projects

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repo struct{ db *gorm.DB }

func NewRepo(db *gorm.DB) *Repo { return &Repo{db: db} }

func withOwner(db *gorm.DB) *gorm.DB {
	return db.Select("id", "username", "avatar_url", "region")
}

func projectMedia(db *gorm.DB) *gorm.DB {
	return db.Where("update_id IS NULL").Order("position ASC, created_at ASC")
}

func (r *Repo) List(ctx context.Context) ([]Project, error) {
	var items []Project
	err := r.db.WithContext(ctx).
		Preload("Owner", withOwner).
		Preload("Media", projectMedia).
		Order("created_at DESC").
		Find(&items).Error
	return items, err
}

func (r *Repo) Get(ctx context.Context, id string) (Project, error) {
	return getProject(ctx, r.db, id)
}

func getProject(ctx context.Context, db *gorm.DB, id string) (Project, error) {
	var p Project
	err := db.WithContext(ctx).
		Preload("Owner", withOwner).
		Preload("Media", projectMedia).
		First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Project{}, ErrNotFound
	}
	return p, err
}

func (r *Repo) ListUpdates(ctx context.Context, projectID string) ([]Update, error) {
	var items []Update
	err := r.db.WithContext(ctx).
		Preload("Author", withOwner).
		Preload("Media", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Find(&items).Error
	return items, err
}

// insertProject writes the project row and its media rows. Associations are
// omitted so the owner row is never upserted.
func insertProject(ctx context.Context, tx *gorm.DB, p *Project) error {
	if err := tx.WithContext(ctx).Omit(clause.Associations).Create(p).Error; err != nil {
		return err
	}
	if len(p.Media) == 0 {
		return nil
	}
	return tx.WithContext(ctx).Create(&p.Media).Error
}

func insertUpdate(ctx context.Context, tx *gorm.DB, u *Update) error {
	if err := tx.WithContext(ctx).Omit(clause.Associations).Create(u).Error; err != nil {
		return err
	}
	if len(u.Media) == 0 {
		return nil
	}
	return tx.WithContext(ctx).Create(&u.Media).Error
}

// Credit adds cents to the project's collected amount with a single atomic
// UPDATE and raises the funded flag once the goal is reached. It reports
// whether the project exists. Callers run it inside the settlement transaction.
func Credit(ctx context.Context, tx *gorm.DB, projectID string, cents int64) (bool, error) {
	res := tx.WithContext(ctx).Model(&Project{}).
		Where("id = ?", projectID).
		Updates(map[string]any{
			"collected_cents": gorm.Expr("collected_cents + ?", cents),
			"updated_at":      time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	err := tx.WithContext(ctx).Model(&Project{}).
		Where("id = ? AND is_funded = ? AND collected_cents >= goal_cents", projectID, false).
		Update("is_funded", true).Error
	return true, err
}
