package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kairocrm/ingest/internal/service"
	"github.com/kairocrm/ingest/internal/webhook"
)

// SyncHandler exposes the cron-facing batch trigger and queue introspection
type SyncHandler struct {
	scheduler        *service.Scheduler
	cronSecret       string
	defaultBatchSize int
}

func NewSyncHandler(scheduler *service.Scheduler, cronSecret string, defaultBatchSize int) *SyncHandler {
	return &SyncHandler{
		scheduler:        scheduler,
		cronSecret:       cronSecret,
		defaultBatchSize: defaultBatchSize,
	}
}

// Run triggers one scheduler batch
func (h *SyncHandler) Run(c *gin.Context) {
	if !h.authorized(c) {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "unauthorized"})
		return
	}

	batchSize := h.defaultBatchSize
	if raw := c.Query("batchSize"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid batchSize"})
			return
		}
		batchSize = parsed
	}

	result, err := h.scheduler.ProcessBatch(c.Request.Context(), batchSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "sync batch failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"attempted": result.Attempted,
		"succeeded": result.Succeeded,
		"failed":    result.Failed,
	})
}

// Stats reports queue introspection for external monitoring
func (h *SyncHandler) Stats(c *gin.Context) {
	if !h.authorized(c) {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "unauthorized"})
		return
	}

	stats, err := h.scheduler.QueueStats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "stats query failed"})
		return
	}

	response := gin.H{
		"success":   true,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"counts":    stats.Counts,
	}
	if stats.OldestAccountID != "" {
		response["oldest_account_id"] = stats.OldestAccountID
		response["oldest_age_seconds"] = stats.OldestAgeSeconds
	}

	c.JSON(http.StatusOK, response)
}

// authorized checks the bearer token against the configured cron secret
func (h *SyncHandler) authorized(c *gin.Context) bool {
	token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	return webhook.Verify(token, h.cronSecret)
}
