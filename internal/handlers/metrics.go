package handlers

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/whomimohshukla/freelancehub/internal/metrics"
	"github.com/whomimohshukla/freelancehub/internal/models"
	"github.com/whomimohshukla/freelancehub/internal/services"
	"gorm.io/gorm"
)

var (
	startTime    = time.Now()
	registerOnce sync.Once
)

// RegisterGauges exposes values sampled at scrape time next to the collectors in internal/metrics
func RegisterGauges(db *gorm.DB) {
	registerOnce.Do(func() {
		metrics.RegisterGaugeFunc("uptime_seconds", "Time since server start in seconds", func() float64 {
			return time.Since(startTime).Seconds()
		})
		metrics.RegisterGaugeFunc("sse_active_clients", "Number of active SSE connections", func() float64 {
			return float64(services.GetSSEHub().ClientCount())
		})
		metrics.RegisterGaugeFunc("queue_async_enabled", "Whether async queue (Redis) is enabled (1=yes, 0=no)", func() float64 {
			if q := services.GetTaskQueue(); q != nil && q.IsAsync() {
				return 1
			}
			return 0
		})
		metrics.RegisterGaugeFunc("escrow_held_payments", "Payments currently held in escrow", func() float64 {
			var n int64
			db.Model(&models.Payment{}).
				Where("status IN ?", []string{models.PaymentStatusHeld, models.PaymentStatusReleaseScheduled, models.PaymentStatusReleaseFailed}).
				Count(&n)
			return float64(n)
		})
		metrics.RegisterGaugeFunc("users_active", "Number of active users", func() float64 {
			var n int64
			db.Model(&models.User{}).Where("is_active = ?", true).Count(&n)
			return float64(n)
		})
	})
}

// Metrics serves the Prometheus exposition format
func Metrics() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
