package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/whomimohshukla/freelancehub/internal/services"
	"github.com/whomimohshukla/freelancehub/pkg/response"
)

// AIUsageHandler provides endpoints for AI usage statistics.
type AIUsageHandler struct {
	usageService *services.AIUsageService
}

func NewAIUsageHandler(usageService *services.AIUsageService) *AIUsageHandler {
	return &AIUsageHandler{usageService: usageService}
}

// GetStats returns aggregated AI usage statistics.
func (h *AIUsageHandler) GetStats(c *gin.Context) {
	var f services.UsageFilter
	if !bindQuery(c, &f) {
		return
	}

	stats, err := h.usageService.GetStats(&f)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, stats)
}

// GetDailyTrend returns daily AI usage data for charting.
func (h *AIUsageHandler) GetDailyTrend(c *gin.Context) {
	var f services.UsageFilter
	if !bindQuery(c, &f) {
		return
	}

	trend, err := h.usageService.GetDailyTrend(&f)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, trend)
}

// GetBreakdown returns AI usage grouped by feature.
func (h *AIUsageHandler) GetBreakdown(c *gin.Context) {
	var f services.UsageFilter
	if !bindQuery(c, &f) {
		return
	}

	features, err := h.usageService.GetBreakdown(&f)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, features)
}
