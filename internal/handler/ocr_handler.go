package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kairocrm/ingest/internal/repository"
	"github.com/kairocrm/ingest/internal/service"
	"github.com/kairocrm/ingest/internal/webhook"
)

// OCRWebhookHandler receives the OCR VPS completion callback
type OCRWebhookHandler struct {
	enricher *service.Enricher
	secret   string
}

func NewOCRWebhookHandler(enricher *service.Enricher, secret string) *OCRWebhookHandler {
	return &OCRWebhookHandler{
		enricher: enricher,
		secret:   secret,
	}
}

// Handle accepts an OCR result. Acceptance is reported as soon as the OCR
// transition lands; the AI stage runs detached afterwards.
func (h *OCRWebhookHandler) Handle(c *gin.Context) {
	var payload webhook.OCRResultPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	if !webhook.Verify(payload.Secret, h.secret) {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "invalid secret"})
		return
	}

	if err := h.enricher.HandleOCRResult(c.Request.Context(), payload); err != nil {
		switch {
		case errors.Is(err, repository.ErrDocumentNotFound):
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "document not found"})
		case errors.Is(err, service.ErrInvalidStatus):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "internal error"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "accepted"})
}
