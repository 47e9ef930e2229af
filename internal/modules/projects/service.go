package projects

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Simon-Ruto/Together-Crowdfunding/internal/shared/money"
	"github.com/Simon-Ruto/Together-Crowdfunding/internal/storage"
)

// MaxUploads is the number of media files accepted per request.
const MaxUploads = 6

// Upload is one file of a multipart request. Open is called once.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

type Service struct {
	db       *gorm.DB
	repo     *Repo
	store    storage.Storage
	currency string
	logger   *slog.Logger
}

func NewService(db *gorm.DB, store storage.Storage, currency string) *Service {
	return &Service{db: db, repo: NewRepo(db), store: store, currency: currency, logger: slog.Default()}
}

func (s *Service) SetLogger(logger *slog.Logger) {
	s.logger = logger
}

func (s *Service) List(ctx context.Context) ([]Project, error) {
	return s.repo.List(ctx)
}

type Detail struct {
	Project Project
	Updates []Update
}

func (s *Service) Get(ctx context.Context, id string) (Detail, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	ups, err := s.repo.ListUpdates(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	return Detail{Project: p, Updates: ups}, nil
}

type CreateInput struct {
	OwnerID      string
	Title        string
	Description  string
	Goal         string
	Region       string
	CallToAction string
	Uploads      []Upload
}

func (s *Service) Create(ctx context.Context, in CreateInput) (Project, error) {
	title := strings.TrimSpace(in.Title)
	desc := strings.TrimSpace(in.Description)

	fields := map[string]string{}
	checkTitle(fields, title)
	checkDescription(fields, desc)
	goal, err := money.ParseCents(in.Goal)
	if err != nil {
		fields["goal"] = "Goal must be a positive amount"
	}
	if len(fields) > 0 {
		return Project{}, &ValidationError{Fields: fields}
	}
	if len(in.Uploads) > MaxUploads {
		return Project{}, ErrTooManyFiles
	}

	now := time.Now()
	p := Project{
		ID:           uuid.NewString(),
		OwnerID:      in.OwnerID,
		Title:        title,
		Description:  desc,
		GoalCents:    goal,
		Currency:     s.currency,
		Region:       strings.TrimSpace(in.Region),
		CallToAction: strings.TrimSpace(in.CallToAction),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	media, err := s.storeUploads(ctx, p.ID, nil, in.Uploads)
	if err != nil {
		return Project{}, err
	}
	p.Media = media

	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return insertProject(ctx, tx, &p)
	}); err != nil {
		s.discard(ctx, media)
		return Project{}, err
	}

	s.logger.InfoContext(ctx, "project created", "project_id", p.ID, "owner_id", p.OwnerID, "media", len(media))
	return s.repo.Get(ctx, p.ID)
}

// ImportSample creates a starter project for local development.
func (s *Service) ImportSample(ctx context.Context, ownerID string) (Project, error) {
	return s.Create(ctx, CreateInput{
		OwnerID:      ownerID,
		Title:        "Sample Project (Imported)",
		Description:  "This project was imported from the sample set for local testing.",
		Goal:         "1000",
		Region:       "Local",
		CallToAction: "Support our sample project",
	})
}

// UpdateInput changes an existing project. Nil scalar fields are left alone.
// ImageOrder, when non-nil, is the desired order of the existing images; images
// missing from it are removed. New image uploads are appended after the
// ordered images, or placed first when no order is given.
type UpdateInput struct {
	ID           string
	CallerID     string
	Title        *string
	Description  *string
	Goal         *string
	Region       *string
	CallToAction *string
	RemoveImages []string
	ImageOrder   []string
	Uploads      []Upload
}

func (s *Service) Update(ctx context.Context, in UpdateInput) (Project, error) {
	p, err := s.repo.Get(ctx, in.ID)
	if err != nil {
		return Project{}, err
	}
	if p.OwnerID != in.CallerID {
		return Project{}, ErrForbidden
	}

	updates := map[string]any{}
	fields := map[string]string{}
	if in.Title != nil {
		v := strings.TrimSpace(*in.Title)
		checkTitle(fields, v)
		updates["title"] = v
	}
	if in.Description != nil {
		v := strings.TrimSpace(*in.Description)
		checkDescription(fields, v)
		updates["description"] = v
	}
	if in.Goal != nil {
		goal, err := money.ParseCents(*in.Goal)
		if err != nil {
			fields["goal"] = "Goal must be a positive amount"
		}
		updates["goal_cents"] = goal
		updates["is_funded"] = gorm.Expr("collected_cents >= ?", goal)
	}
	if in.Region != nil {
		updates["region"] = strings.TrimSpace(*in.Region)
	}
	if in.CallToAction != nil {
		updates["call_to_action"] = strings.TrimSpace(*in.CallToAction)
	}
	if len(fields) > 0 {
		return Project{}, &ValidationError{Fields: fields}
	}
	if len(in.Uploads) > MaxUploads {
		return Project{}, ErrTooManyFiles
	}

	keep, removed := planImages(p.Media, in.ImageOrder, in.RemoveImages)

	added, err := s.storeUploads(ctx, p.ID, nil, in.Uploads)
	if err != nil {
		return Project{}, err
	}

	var newImages, newVideos []Media
	for _, m := range added {
		if m.Kind == MediaImage {
			newImages = append(newImages, m)
		} else {
			newVideos = append(newVideos, m)
		}
	}
	var images []Media
	if in.ImageOrder != nil {
		images = append(keep, newImages...)
	} else {
		images = append(newImages, keep...)
	}
	videos := append(newVideos, mediaOfKind(p.Media, MediaVideo)...)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			updates["updated_at"] = time.Now()
			if err := tx.WithContext(ctx).Model(&Project{}).Where("id = ?", p.ID).Updates(updates).Error; err != nil {
				return err
			}
		}
		if len(removed) > 0 {
			ids := make([]string, 0, len(removed))
			for _, m := range removed {
				ids = append(ids, m.ID)
			}
			if err := tx.WithContext(ctx).Where("id IN ?", ids).Delete(&Media{}).Error; err != nil {
				return err
			}
		}
		if len(added) > 0 {
			if err := tx.WithContext(ctx).Create(&added).Error; err != nil {
				return err
			}
		}
		return reposition(ctx, tx, images, videos)
	})
	if err != nil {
		s.discard(ctx, added)
		return Project{}, err
	}

	s.discard(ctx, removed)
	s.logger.InfoContext(ctx, "project updated", "project_id", p.ID, "added_media", len(added), "removed_media", len(removed))
	return s.repo.Get(ctx, p.ID)
}

// Delete removes the project with its updates and media. Payment records are kept.
func (s *Service) Delete(ctx context.Context, id, callerID string) error {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if p.OwnerID != callerID {
		return ErrForbidden
	}

	var media []Media
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.WithContext(ctx).Where("project_id = ?", id).Find(&media).Error; err != nil {
			return err
		}
		if err := tx.WithContext(ctx).Where("project_id = ?", id).Delete(&Media{}).Error; err != nil {
			return err
		}
		if err := tx.WithContext(ctx).Where("project_id = ?", id).Delete(&Update{}).Error; err != nil {
			return err
		}
		return tx.WithContext(ctx).Delete(&Project{}, "id = ?", id).Error
	})
	if err != nil {
		return err
	}

	s.discard(ctx, media)
	s.logger.InfoContext(ctx, "project deleted", "project_id", id, "media", len(media))
	return nil
}

type AddUpdateInput struct {
	ProjectID string
	CallerID  string
	Title     string
	Message   string
	Uploads   []Upload
}

func (s *Service) AddUpdate(ctx context.Context, in AddUpdateInput) (Update, error) {
	p, err := s.repo.Get(ctx, in.ProjectID)
	if err != nil {
		return Update{}, err
	}
	if p.OwnerID != in.CallerID {
		return Update{}, ErrForbidden
	}

	msg := strings.TrimSpace(in.Message)
	if msg == "" {
		return Update{}, &ValidationError{Fields: map[string]string{"message": "Message is required"}}
	}
	if len(in.Uploads) > MaxUploads {
		return Update{}, ErrTooManyFiles
	}

	u := Update{
		ID:        uuid.NewString(),
		ProjectID: p.ID,
		AuthorID:  in.CallerID,
		Title:     strings.TrimSpace(in.Title),
		Message:   msg,
		CreatedAt: time.Now(),
	}
	media, err := s.storeUploads(ctx, p.ID, &u.ID, in.Uploads)
	if err != nil {
		return Update{}, err
	}
	u.Media = media

	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return insertUpdate(ctx, tx, &u)
	}); err != nil {
		s.discard(ctx, media)
		return Update{}, err
	}

	s.logger.InfoContext(ctx, "project update posted", "project_id", p.ID, "update_id", u.ID)
	return u, nil
}

// storeUploads writes every upload to the media store and returns unsaved
// media rows. On failure the files already written are removed again.
func (s *Service) storeUploads(ctx context.Context, projectID string, updateID *string, uploads []Upload) ([]Media, error) {
	out := make([]Media, 0, len(uploads))
	var imagePos, videoPos int
	for _, up := range uploads {
		kind, err := storage.KindOf(up.Filename, up.ContentType)
		if err != nil {
			s.discard(ctx, out)
			return nil, &ValidationError{Fields: map[string]string{"media": fmt.Sprintf("%s: only images and videos are accepted", up.Filename)}}
		}

		res, err := s.put(ctx, up)
		if err != nil {
			s.discard(ctx, out)
			return nil, err
		}

		pos := imagePos
		if kind == MediaVideo {
			pos = videoPos
			videoPos++
		} else {
			imagePos++
		}
		out = append(out, Media{
			ID:         uuid.NewString(),
			ProjectID:  projectID,
			UpdateID:   updateID,
			Kind:       kind,
			URL:        res.URL,
			StorageKey: res.Key,
			Position:   pos,
			CreatedAt:  time.Now(),
		})
	}
	return out, nil
}

func (s *Service) put(ctx context.Context, up Upload) (storage.PutResult, error) {
	if up.Open == nil {
		return storage.PutResult{}, errors.New("upload has no content")
	}
	rc, err := up.Open()
	if err != nil {
		return storage.PutResult{}, err
	}
	defer rc.Close()

	return s.store.Put(ctx, rc, storage.PutInput{
		Filename:    up.Filename,
		ContentType: up.ContentType,
		Size:        up.Size,
	})
}

// discard removes stored files best effort; a leftover file is only logged.
func (s *Service) discard(ctx context.Context, media []Media) {
	for _, m := range media {
		if m.StorageKey == "" {
			continue
		}
		if err := s.store.Delete(ctx, m.StorageKey); err != nil {
			s.logger.WarnContext(ctx, "media delete failed", "key", m.StorageKey, "err", err)
		}
	}
}

// planImages applies the requested order and removals to the project's images.
// Unknown URLs in the order are ignored.
func planImages(media []Media, order, remove []string) (keep, removed []Media) {
	drop := make(map[string]bool, len(remove))
	for _, u := range remove {
		drop[u] = true
	}

	images := mediaOfKind(media, MediaImage)
	if order != nil {
		rank := make(map[string]int, len(order))
		for _, u := range order {
			if _, ok := rank[u]; !ok {
				rank[u] = len(rank)
			}
		}
		for _, m := range images {
			if _, ok := rank[m.URL]; !ok {
				drop[m.URL] = true
			}
		}
		sort.SliceStable(images, func(i, j int) bool { return rank[images[i].URL] < rank[images[j].URL] })
	}

	for _, m := range images {
		if drop[m.URL] {
			removed = append(removed, m)
		} else {
			keep = append(keep, m)
		}
	}
	return keep, removed
}

func mediaOfKind(media []Media, kind string) []Media {
	var out []Media
	for _, m := range media {
		if m.Kind == kind {
			out = append(out, m)
		}
	}
	return out
}

func reposition(ctx context.Context, tx *gorm.DB, groups ...[]Media) error {
	for _, group := range groups {
		for i, m := range group {
			if m.Position == i {
				continue
			}
			if err := tx.WithContext(ctx).Model(&Media{}).Where("id = ?", m.ID).Update("position", i).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

func checkTitle(fields map[string]string, title string) {
	if len([]rune(title)) < 3 {
		fields["title"] = "Title must be at least 3 characters"
	}
}

func checkDescription(fields map[string]string, desc string) {
	if len([]rune(desc)) < 10 {
		fields["description"] = "Description must be at least 10 characters"
	}
}
