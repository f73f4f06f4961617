package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/whomimohshukla/freelancehub/internal/services"
	"github.com/whomimohshukla/freelancehub/pkg/response"
)

// IMBotHandler manages the chat webhooks that receive ops alerts and the daily digest
type IMBotHandler struct {
	imBotService *services.IMBotService
	alertService *services.AlertService
}

func NewIMBotHandler(imBotService *services.IMBotService, alertService *services.AlertService) *IMBotHandler {
	return &IMBotHandler{imBotService: imBotService, alertService: alertService}
}

func (h *IMBotHandler) List(c *gin.Context) {
	var req services.IMBotListRequest
	if !bindQuery(c, &req) {
		return
	}

	resp, err := h.imBotService.List(&req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, resp)
}

func (h *IMBotHandler) GetByID(c *gin.Context) {
	id, ok := paramID(c, "id", "bot")
	if !ok {
		return
	}

	bot, err := h.imBotService.GetByID(id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, bot)
}

func (h *IMBotHandler) Create(c *gin.Context) {
	var req services.CreateIMBotRequest
	if !bindJSON(c, &req) {
		return
	}

	bot, err := h.imBotService.Create(&req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, bot)
}

func (h *IMBotHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id", "bot")
	if !ok {
		return
	}

	var req services.UpdateIMBotRequest
	if !bindJSON(c, &req) {
		return
	}

	bot, err := h.imBotService.Update(id, &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, bot)
}

func (h *IMBotHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id", "bot")
	if !ok {
		return
	}

	if err := h.imBotService.Delete(id); err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessMessage(c, "bot deleted successfully", nil)
}

func (h *IMBotHandler) GetAllActive(c *gin.Context) {
	bots, err := h.imBotService.GetAllActive()
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, bots)
}

// Test sends a sample alert through one bot
func (h *IMBotHandler) Test(c *gin.Context) {
	id, ok := paramID(c, "id", "bot")
	if !ok {
		return
	}

	if err := h.alertService.SendTest(id); err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessMessage(c, "test message sent", nil)
}
