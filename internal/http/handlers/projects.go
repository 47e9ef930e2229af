package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Simon-Ruto/Together-Crowdfunding/internal/http/middleware"
	"github.com/Simon-Ruto/Together-Crowdfunding/internal/modules/projects"
	"github.com/Simon-Ruto/Together-Crowdfunding/internal/shared/apperr"
	"github.com/Simon-Ruto/Together-Crowdfunding/pkg/view"
)

const mediaField = "media"

type ProjectHandlers struct {
	projects *projects.Service
}

func NewProjectHandlers(svc *projects.Service) *ProjectHandlers {
	return &ProjectHandlers{projects: svc}
}

// GET /api/projects
func (h *ProjectHandlers) List(c *gin.Context) {
	list, err := h.projects.List(c.Request.Context())
	if err != nil {
		middleware.Fail(c, toAppErr(err))
		return
	}
	c.JSON(http.StatusOK, view.ProjectsFrom(list))
}

// GET /api/projects/:id
func (h *ProjectHandlers) Show(c *gin.Context) {
	d, err := h.projects.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.Fail(c, toAppErr(err))
		return
	}
	c.JSON(http.StatusOK, view.DetailFrom(d))
}

// POST /api/projects (multipart, files under "media")
func (h *ProjectHandlers) Create(c *gin.Context) {
	uploads, err := uploadsFrom(c)
	if err != nil {
		middleware.Fail(c, toAppErr(err))
		return
	}
	uid, _ := middleware.CurrentUserID(c)

	p, err := h.projects.Create(c.Request.Context(), projects.CreateInput{
		OwnerID:      uid,
		Title:        c.PostForm("title"),
		Description:  c.PostForm("description"),
		Goal:         c.PostForm("goal"),
		Region:       c.PostForm("region"),
		CallToAction: c.PostForm("callToAction"),
		Uploads:      uploads,
	})
	if err != nil {
		middleware.Fail(c, toAppErr(err))
		return
	}
	c.JSON(http.StatusCreated, view.ProjectFrom(p))
}

// POST /api/projects/import-sample
func (h *ProjectHandlers) ImportSample(c *gin.Context) {
	uid, _ := middleware.CurrentUserID(c)
	p, err := h.projects.ImportSample(c.Request.Context(), uid)
	if err != nil {
		middleware.Fail(c, toAppErr(err))
		return
	}
	c.JSON(http.StatusCreated, view.ProjectFrom(p))
}

// PUT /api/projects/:id
// Absent fields are left unchanged. removeImages and images (the new image
// order) accept a JSON array or repeated form values.
func (h *ProjectHandlers) Update(c *gin.Context) {
	uploads, err := uploadsFrom(c)
	if err != nil {
		middleware.Fail(c, toAppErr(err))
		return
	}
	order, err := listField(c, "images")
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	remove, err := listField(c, "removeImages")
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	uid, _ := middleware.CurrentUserID(c)

	p, err := h.projects.Update(c.Request.Context(), projects.UpdateInput{
		ID:           c.Param("id"),
		CallerID:     uid,
		Title:        optionalField(c, "title"),
		Description:  optionalField(c, "description"),
		Goal:         optionalField(c, "goal"),
		Region:       optionalField(c, "region"),
		CallToAction: optionalField(c, "callToAction"),
		RemoveImages: remove,
		ImageOrder:   order,
		Uploads:      uploads,
	})
	if err != nil {
		middleware.Fail(c, toAppErr(err))
		return
	}
	c.JSON(http.StatusOK, view.ProjectFrom(p))
}

// DELETE /api/projects/:id
func (h *ProjectHandlers) Delete(c *gin.Context) {
	uid, _ := middleware.CurrentUserID(c)
	if err := h.projects.Delete(c.Request.Context(), c.Param("id"), uid); err != nil {
		middleware.Fail(c, toAppErr(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "message": "Project deleted"})
}

// POST /api/projects/:id/updates
func (h *ProjectHandlers) AddUpdate(c *gin.Context) {
	uploads, err := uploadsFrom(c)
	if err != nil {
		middleware.Fail(c, toAppErr(err))
		return
	}
	uid, _ := middleware.CurrentUserID(c)

	u, err := h.projects.AddUpdate(c.Request.Context(), projects.AddUpdateInput{
		ProjectID: c.Param("id"),
		CallerID:  uid,
		Title:     c.PostForm("title"),
		Message:   c.PostForm("message"),
		Uploads:   uploads,
	})
	if err != nil {
		middleware.Fail(c, toAppErr(err))
		return
	}
	c.JSON(http.StatusCreated, view.UpdateFrom(u))
}

// uploadsFrom collects the "media" files of a multipart request.
// Other content types carry no files.
func uploadsFrom(c *gin.Context) ([]projects.Upload, error) {
	form, err := c.MultipartForm()
	if err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, apperr.InvalidErr("Invalid multipart body", nil)
	}

	files := form.File[mediaField]
	if len(files) > projects.MaxUploads {
		return nil, projects.ErrTooManyFiles
	}

	out := make([]projects.Upload, 0, len(files))
	for _, fh := range files {
		out = append(out, projects.Upload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Open: func() (io.ReadCloser, error) {
				return fh.Open()
			},
		})
	}
	return out, nil
}

func optionalField(c *gin.Context, key string) *string {
	v, ok := c.GetPostForm(key)
	if !ok {
		return nil
	}
	return &v
}

// listField returns nil when the key is absent.
func listField(c *gin.Context, key string) ([]string, error) {
	vals, ok := c.GetPostFormArray(key)
	if !ok {
		return nil, nil
	}
	if len(vals) == 1 && strings.HasPrefix(strings.TrimSpace(vals[0]), "[") {
		var out []string
		if err := json.Unmarshal([]byte(vals[0]), &out); err != nil {
			return nil, apperr.InvalidErr("Validation failed", map[string]string{key: "Must be a JSON array of URLs"})
		}
		if out == nil {
			out = []string{}
		}
		return out, nil
	}
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out, nil
}
