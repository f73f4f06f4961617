package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/whomimohshukla/freelancehub/internal/models"
	"github.com/whomimohshukla/freelancehub/internal/services"
	"github.com/whomimohshukla/freelancehub/internal/services/chat"
	"gorm.io/gorm"
)

// HealthHandler provides enhanced health check endpoints.
type HealthHandler struct {
	db  *gorm.DB
	hub *chat.Hub
}

func NewHealthHandler(db *gorm.DB, hub *chat.Hub) *HealthHandler {
	return &HealthHandler{db: db, hub: hub}
}

// CheckHealth returns the health status of all subsystems.
func (h *HealthHandler) CheckHealth(c *gin.Context) {
	overall := "healthy"
	status := http.StatusOK

	// Database check
	dbStatus := "ok"
	sqlDB, err := h.db.DB()
	if err != nil {
		dbStatus = "error: " + err.Error()
	} else if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		dbStatus = "error: " + err.Error()
	}
	if dbStatus != "ok" {
		overall = "unhealthy"
		status = http.StatusServiceUnavailable
	}

	// Queue mode
	taskQueue := services.GetTaskQueue()
	queueMode := "sync"
	if taskQueue != nil && taskQueue.IsAsync() {
		queueMode = "async (Redis)"
	}

	// Payments waiting for the sweep
	var pendingReleases int64
	if dbStatus == "ok" {
		h.db.Model(&models.Payment{}).
			Where("status IN ?", []string{models.PaymentStatusReleaseScheduled, models.PaymentStatusReleaseFailed}).
			Count(&pendingReleases)
	}

	c.JSON(status, gin.H{
		"status":  overall,
		"service": "freelancehub",
		"components": gin.H{
			"database":         dbStatus,
			"queue_mode":       queueMode,
			"sse_clients":      services.GetSSEHub().ClientCount(),
			"ws_clients":       h.hub.ClientCount(),
			"pending_releases": pendingReleases,
		},
	})
}
