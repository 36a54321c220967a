package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kairocrm/ingest/internal/billing"
	"github.com/kairocrm/ingest/internal/service"
)

// BillingWebhookHandler receives billing-processor events
type BillingWebhookHandler struct {
	billingService *service.BillingService
	signingSecret  string
}

func NewBillingWebhookHandler(billingService *service.BillingService, signingSecret string) *BillingWebhookHandler {
	return &BillingWebhookHandler{
		billingService: billingService,
		signingSecret:  signingSecret,
	}
}

// Handle verifies the event signature before any parsing, then hands the
// envelope to the subscription lifecycle.
func (h *BillingWebhookHandler) Handle(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
		return
	}

	event, err := billing.ConstructEvent(payload, c.GetHeader("Stripe-Signature"), h.signingSecret)
	if err != nil {
		log.Printf("Rejected billing webhook: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event"})
		return
	}

	if err := h.billingService.HandleEvent(c.Request.Context(), event); err != nil {
		if errors.Is(err, billing.ErrInvalidPayload) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event payload"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
