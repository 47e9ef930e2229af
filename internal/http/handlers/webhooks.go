package handlers

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Simon-Ruto/Together-Crowdfunding/internal/http/middleware"
	"github.com/Simon-Ruto/Together-Crowdfunding/internal/modules/payments"
	"github.com/Simon-Ruto/Together-Crowdfunding/internal/shared/apperr"
)

// Provider payloads stay well below this.
const maxWebhookBody = 1 << 20

type WebhookHandler struct {
	logger *slog.Logger
	svc    *payments.WebhookService
}

func NewWebhookHandler(logger *slog.Logger, svc *payments.WebhookService) *WebhookHandler {
	return &WebhookHandler{logger: logger, svc: svc}
}

// POST /webhooks/:provider
// The raw body is handed to the provider untouched; the signature covers those bytes.
func (h *WebhookHandler) Handle(c *gin.Context) {
	if c.Param("provider") != h.svc.ProviderName() {
		middleware.Fail(c, apperr.NotFoundErr("Unknown webhook provider"))
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		h.logger.WarnContext(c.Request.Context(), "webhook body unreadable", "provider", h.svc.ProviderName(), "err", err)
		middleware.Fail(c, apperr.InvalidErr("Invalid webhook body", nil))
		return
	}

	// verification failures are already logged by the service
	ack, err := h.svc.Handle(c.Request.Context(), c.Request.Header, body)
	if err != nil {
		middleware.Fail(c, toAppErr(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"received":  true,
		"duplicate": ack.Duplicate,
	})
}
