package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/whomimohshukla/freelancehub/internal/services"
	"github.com/whomimohshukla/freelancehub/pkg/response"
)

type LLMConfigHandler struct {
	llmConfigService *services.LLMConfigService
}

func NewLLMConfigHandler(llmConfigService *services.LLMConfigService) *LLMConfigHandler {
	return &LLMConfigHandler{llmConfigService: llmConfigService}
}

// List returns paginated LLM configs
// GET /api/v1/admin/llm-configs
func (h *LLMConfigHandler) List(c *gin.Context) {
	var req services.LLMConfigListRequest
	if !bindQuery(c, &req) {
		return
	}

	resp, err := h.llmConfigService.List(&req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, resp)
}

// GET /api/v1/admin/llm-configs/:id
func (h *LLMConfigHandler) GetByID(c *gin.Context) {
	id, ok := paramID(c, "id", "config")
	if !ok {
		return
	}

	config, err := h.llmConfigService.GetByID(id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, config)
}

// POST /api/v1/admin/llm-configs
func (h *LLMConfigHandler) Create(c *gin.Context) {
	var req services.CreateLLMConfigRequest
	if !bindJSON(c, &req) {
		return
	}

	config, err := h.llmConfigService.Create(&req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, config)
}

// PUT /api/v1/admin/llm-configs/:id
func (h *LLMConfigHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id", "config")
	if !ok {
		return
	}

	var req services.UpdateLLMConfigRequest
	if !bindJSON(c, &req) {
		return
	}

	config, err := h.llmConfigService.Update(id, &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, config)
}

// DELETE /api/v1/admin/llm-configs/:id
func (h *LLMConfigHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id", "config")
	if !ok {
		return
	}

	if err := h.llmConfigService.Delete(id); err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessMessage(c, "config deleted successfully", nil)
}

// GetActive returns active configs
// GET /api/v1/admin/llm-configs/active
func (h *LLMConfigHandler) GetActive(c *gin.Context) {
	configs, err := h.llmConfigService.GetActive()
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, configs)
}
