package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Simon-Ruto/Together-Crowdfunding/internal/http/middleware"
	"github.com/Simon-Ruto/Together-Crowdfunding/internal/http/validation"
	"github.com/Simon-Ruto/Together-Crowdfunding/internal/modules/payments"
	"github.com/Simon-Ruto/Together-Crowdfunding/internal/shared/apperr"
	"github.com/Simon-Ruto/Together-Crowdfunding/pkg/view"
)

type PaymentHandlers struct {
	checkout *payments.CheckoutService
	confirm  *payments.ConfirmService
}

func NewPaymentHandlers(checkout *payments.CheckoutService, confirm *payments.ConfirmService) *PaymentHandlers {
	return &PaymentHandlers{checkout: checkout, confirm: confirm}
}

type checkoutInput struct {
	// Major units. A JSON number or string is accepted.
	Amount     amountValue `json:"amount" binding:"required"`
	SuccessURL string      `json:"successUrl"`
	CancelURL  string      `json:"cancelUrl"`
}

// POST /api/payments/checkout/:projectId
func (h *PaymentHandlers) Checkout(c *gin.Context) {
	var in checkoutInput
	if err := c.ShouldBindJSON(&in); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Validation failed", validation.FromBindError(err, &in)))
		return
	}
	uid, _ := middleware.CurrentUserID(c)

	res, err := h.checkout.CreateCheckout(c.Request.Context(), payments.CheckoutInput{
		ProjectID:  c.Param("projectId"),
		Amount:     string(in.Amount),
		CallerID:   uid,
		SuccessURL: in.SuccessURL,
		CancelURL:  in.CancelURL,
	})
	if err != nil {
		middleware.Fail(c, toAppErr(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": res.URL, "sessionId": res.SessionID})
}

type confirmInput struct {
	SessionID string `json:"session_id" binding:"required"`
	Project   string `json:"project" binding:"required"`
}

// POST /api/payments/confirm
// Fallback for a missed webhook: the client reports the session it returned from.
func (h *PaymentHandlers) Confirm(c *gin.Context) {
	var in confirmInput
	if err := c.ShouldBindJSON(&in); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Validation failed", validation.FromBindError(err, &in)))
		return
	}

	p, err := h.confirm.Confirm(c.Request.Context(), in.SessionID, in.Project)
	if err != nil {
		middleware.Fail(c, toAppErr(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "project": view.ProjectFrom(p)})
}
