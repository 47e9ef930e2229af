package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Simon-Ruto/Together-Crowdfunding/internal/http/middleware"
	"github.com/Simon-Ruto/Together-Crowdfunding/internal/http/validation"
	"github.com/Simon-Ruto/Together-Crowdfunding/internal/modules/users"
	"github.com/Simon-Ruto/Together-Crowdfunding/internal/shared/apperr"
	"github.com/Simon-Ruto/Together-Crowdfunding/pkg/view"
)

type AuthHandlers struct {
	users  *users.Service
	tokens *users.TokenIssuer
}

func NewAuthHandlers(svc *users.Service, tokens *users.TokenIssuer) *AuthHandlers {
	return &AuthHandlers{users: svc, tokens: tokens}
}

type registerInput struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Region   string `json:"region"`
	Bio      string `json:"bio"`
}

// POST /api/auth/register
func (h *AuthHandlers) Register(c *gin.Context) {
	var in registerInput
	if err := c.ShouldBindJSON(&in); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Validation failed", validation.FromBindError(err, &in)))
		return
	}

	u, err := h.users.Register(c.Request.Context(), users.RegisterInput{
		Username: in.Username,
		Email:    in.Email,
		Password: in.Password,
		Region:   in.Region,
		Bio:      in.Bio,
	})
	if err != nil {
		middleware.Fail(c, toAppErr(err))
		return
	}

	h.respondWithToken(c, http.StatusCreated, u, "User registered successfully")
}

type loginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// POST /api/auth/login
func (h *AuthHandlers) Login(c *gin.Context) {
	var in loginInput
	if err := c.ShouldBindJSON(&in); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Validation failed", validation.FromBindError(err, &in)))
		return
	}

	u, err := h.users.Login(c.Request.Context(), in.Email, in.Password)
	if err != nil {
		middleware.Fail(c, toAppErr(err))
		return
	}

	h.respondWithToken(c, http.StatusOK, u, "Login successful")
}

func (h *AuthHandlers) respondWithToken(c *gin.Context, status int, u users.User, msg string) {
	token, err := h.tokens.Issue(u.ID)
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	c.JSON(status, gin.H{
		"token":   token,
		"message": msg,
		"user":    view.UserFrom(u, true),
	})
}
