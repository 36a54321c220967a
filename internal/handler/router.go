package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kairocrm/ingest/internal/service"
)

// NewRouter wires all HTTP routes
func NewRouter(ocr *OCRWebhookHandler, billing *BillingWebhookHandler, sync *SyncHandler, scheduler *service.Scheduler) *gin.Engine {
	router := gin.Default()

	router.GET("/health", func(c *gin.Context) {
		stats, err := scheduler.QueueStats(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "queue": stats.Counts})
	})

	api := router.Group("/api")
	{
		api.POST("/webhooks/ocr", ocr.Handle)
		api.POST("/webhooks/billing", billing.Handle)
		api.POST("/sync/run", sync.Run)
		api.GET("/sync/stats", sync.Stats)
	}

	return router
}
