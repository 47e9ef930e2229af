package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Simon-Ruto/Together-Crowdfunding/internal/http/handlers"
	"github.com/Simon-Ruto/Together-Crowdfunding/internal/http/middleware"
	"github.com/Simon-Ruto/Together-Crowdfunding/internal/http/ratelimit"
	"github.com/Simon-Ruto/Together-Crowdfunding/internal/metrics"
	"github.com/Simon-Ruto/Together-Crowdfunding/internal/modules/payments"
	"github.com/Simon-Ruto/Together-Crowdfunding/internal/modules/projects"
	"github.com/Simon-Ruto/Together-Crowdfunding/internal/modules/users"
	"github.com/Simon-Ruto/Together-Crowdfunding/internal/shared/apperr"
)

// Deps is everything the router wires into handlers.
type Deps struct {
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Limiter ratelimit.Limiter // nil disables rate limiting

	Users    *users.Service
	Tokens   *users.TokenIssuer
	Projects *projects.Service
	Checkout *payments.CheckoutService
	Confirm  *payments.ConfirmService
	Webhooks *payments.WebhookService

	ClientURL string
	// UploadDir is served under UploadURLPrefix when media is stored locally.
	UploadDir       string
	UploadURLPrefix string
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logger(d.Logger),
		middleware.Metrics(d.Metrics),
		middleware.ErrorHandler(d.Logger),
		middleware.Recovery(d.Logger),
		middleware.SecurityHeaders(),
		middleware.CORS(d.ClientURL),
		middleware.Auth(d.Tokens),
	)

	r.GET("/", func(c *gin.Context) {
		if d.ClientURL != "" {
			c.Redirect(http.StatusFound, d.ClientURL)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Together API"})
	})
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}
	if d.UploadDir != "" && d.UploadURLPrefix != "" {
		r.Group(d.UploadURLPrefix, middleware.CrossOriginResources()).Static("/", d.UploadDir)
	}

	// Webhooks carry their own authentication and are not rate limited.
	wh := handlers.NewWebhookHandler(d.Logger, d.Webhooks)
	r.POST("/webhooks/:provider", wh.Handle)

	api := r.Group("/api")
	if d.Limiter != nil {
		api.Use(middleware.RateLimit(d.Limiter, d.Logger))
	}
	auth := middleware.RequireAuth()

	ah := handlers.NewAuthHandlers(d.Users, d.Tokens)
	api.POST("/auth/register", ah.Register)
	api.POST("/auth/login", ah.Login)

	uh := handlers.NewUserHandlers(d.Users)
	api.GET("/users/me", auth, uh.Me)
	api.GET("/users/:id", uh.Show)

	ph := handlers.NewProjectHandlers(d.Projects)
	api.GET("/projects", ph.List)
	api.POST("/projects", auth, ph.Create)
	api.POST("/projects/import-sample", auth, ph.ImportSample)
	api.GET("/projects/:id", ph.Show)
	api.PUT("/projects/:id", auth, ph.Update)
	api.DELETE("/projects/:id", auth, ph.Delete)
	api.POST("/projects/:id/updates", auth, ph.AddUpdate)

	payh := handlers.NewPaymentHandlers(d.Checkout, d.Confirm)
	api.POST("/payments/checkout/:projectId", auth, payh.Checkout)
	api.POST("/payments/confirm", payh.Confirm)

	r.NoRoute(func(c *gin.Context) {
		middleware.Fail(c, apperr.NotFoundErr("Route not found"))
	})

	return r
}
