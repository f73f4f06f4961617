package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/whomimohshukla/freelancehub/internal/services"
	"github.com/whomimohshukla/freelancehub/pkg/response"
)

type SystemConfigHandler struct {
	configService  *services.SystemConfigService
	paymentService *services.PaymentService
	dailyReport    *services.DailyReportService
}

func NewSystemConfigHandler(configService *services.SystemConfigService, paymentService *services.PaymentService, dailyReport *services.DailyReportService) *SystemConfigHandler {
	return &SystemConfigHandler{
		configService:  configService,
		paymentService: paymentService,
		dailyReport:    dailyReport,
	}
}

// GET /api/v1/admin/system-config
func (h *SystemConfigHandler) List(c *gin.Context) {
	configs, err := h.configService.ListAll()
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, configs)
}

// Update writes raw key/value pairs
// PUT /api/v1/admin/system-config
func (h *SystemConfigHandler) Update(c *gin.Context) {
	var values map[string]string
	if !bindJSON(c, &values) {
		return
	}
	if len(values) == 0 {
		response.BadRequest(c, "no settings given")
		return
	}

	if err := h.configService.UpdateMany(values); err != nil {
		response.Error(c, err)
		return
	}
	if _, ok := values["daily_report_time"]; ok {
		h.dailyReport.Reschedule()
	}

	h.List(c)
}

// GET /api/v1/admin/system-config/escrow
func (h *SystemConfigHandler) GetEscrowSettings(c *gin.Context) {
	response.Success(c, h.paymentService.EscrowSettings())
}

// PUT /api/v1/admin/system-config/escrow
func (h *SystemConfigHandler) UpdateEscrowSettings(c *gin.Context) {
	var req services.UpdateEscrowSettingsRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.configService.UpdateEscrowSettings(&req); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, h.paymentService.EscrowSettings())
}

func (h *SystemConfigHandler) GetLDAPConfig(c *gin.Context) {
	response.Success(c, h.configService.GetLDAPConfig())
}

func (h *SystemConfigHandler) UpdateLDAPConfig(c *gin.Context) {
	var req services.UpdateLDAPConfigRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.configService.UpdateLDAPConfig(&req); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, h.configService.GetLDAPConfig())
}

type dailyReportConfig struct {
	Enabled *bool   `json:"enabled"`
	Time    *string `json:"time" binding:"omitempty,datetime=15:04"`
}

func (h *SystemConfigHandler) currentDailyReportConfig() gin.H {
	return gin.H{
		"enabled": h.configService.GetBool("daily_report_enabled", false),
		"time":    h.configService.GetWithDefault("daily_report_time", "08:00"),
	}
}

func (h *SystemConfigHandler) GetDailyReportConfig(c *gin.Context) {
	response.Success(c, h.currentDailyReportConfig())
}

func (h *SystemConfigHandler) UpdateDailyReportConfig(c *gin.Context) {
	var req dailyReportConfig
	if !bindJSON(c, &req) {
		return
	}

	values := map[string]string{}
	if req.Enabled != nil {
		values["daily_report_enabled"] = "false"
		if *req.Enabled {
			values["daily_report_enabled"] = "true"
		}
	}
	if req.Time != nil {
		values["daily_report_time"] = *req.Time
	}
	if err := h.configService.UpdateMany(values); err != nil {
		response.Error(c, err)
		return
	}
	if req.Time != nil {
		h.dailyReport.Reschedule()
	}

	response.Success(c, h.currentDailyReportConfig())
}
