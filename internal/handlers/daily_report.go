package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/whomimohshukla/freelancehub/internal/services"
	"github.com/whomimohshukla/freelancehub/pkg/response"
)

type DailyReportHandler struct {
	service *services.DailyReportService
}

func NewDailyReportHandler(service *services.DailyReportService) *DailyReportHandler {
	return &DailyReportHandler{service: service}
}

func (h *DailyReportHandler) List(c *gin.Context) {
	var req services.PageRequest
	if !bindQuery(c, &req) {
		return
	}

	resp, err := h.service.List(&req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, resp)
}

func (h *DailyReportHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id", "report")
	if !ok {
		return
	}

	report, err := h.service.GetByID(id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, report)
}

// Generate builds the digest for ?date=YYYY-MM-DD, yesterday by default, without sending it
func (h *DailyReportHandler) Generate(c *gin.Context) {
	day := time.Now().UTC().AddDate(0, 0, -1)
	if d := c.Query("date"); d != "" {
		parsed, err := time.Parse("2006-01-02", d)
		if err != nil {
			response.BadRequest(c, "date must be YYYY-MM-DD")
			return
		}
		day = parsed
	}

	report, err := h.service.Generate(c.Request.Context(), day)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, report)
}

func (h *DailyReportHandler) Resend(c *gin.Context) {
	id, ok := paramID(c, "id", "report")
	if !ok {
		return
	}

	report, err := h.service.Resend(id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessMessage(c, "notification resent", report)
}
