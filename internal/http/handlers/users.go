package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Simon-Ruto/Together-Crowdfunding/internal/http/middleware"
	"github.com/Simon-Ruto/Together-Crowdfunding/internal/modules/users"
	"github.com/Simon-Ruto/Together-Crowdfunding/pkg/view"
)

type UserHandlers struct {
	users *users.Service
}

func NewUserHandlers(svc *users.Service) *UserHandlers {
	return &UserHandlers{users: svc}
}

// GET /api/users/me
func (h *UserHandlers) Me(c *gin.Context) {
	uid, _ := middleware.CurrentUserID(c)
	u, err := h.users.Get(c.Request.Context(), uid)
	if err != nil {
		middleware.Fail(c, toAppErr(err))
		return
	}
	c.JSON(http.StatusOK, view.UserFrom(u, true))
}

// GET /api/users/:id
func (h *UserHandlers) Show(c *gin.Context) {
	id := c.Param("id")
	u, err := h.users.Get(c.Request.Context(), id)
	if err != nil {
		middleware.Fail(c, toAppErr(err))
		return
	}
	uid, _ := middleware.CurrentUserID(c)
	c.JSON(http.StatusOK, view.UserFrom(u, uid == u.ID))
}
