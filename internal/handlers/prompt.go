package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/whomimohshukla/freelancehub/internal/services"
	"github.com/whomimohshukla/freelancehub/pkg/response"
)

type PromptHandler struct {
	service *services.PromptService
}

func NewPromptHandler(service *services.PromptService) *PromptHandler {
	return &PromptHandler{service: service}
}

func (h *PromptHandler) List(c *gin.Context) {
	var req services.PromptListRequest
	if !bindQuery(c, &req) {
		return
	}

	result, err := h.service.List(&req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

func (h *PromptHandler) GetByID(c *gin.Context) {
	id, ok := paramID(c, "id", "prompt")
	if !ok {
		return
	}

	prompt, err := h.service.GetByID(id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, prompt)
}

// GetDefault returns the template used for ?purpose=
func (h *PromptHandler) GetDefault(c *gin.Context) {
	purpose := c.Query("purpose")
	if purpose == "" {
		response.BadRequest(c, "purpose is required")
		return
	}

	response.Success(c, gin.H{"purpose": purpose, "content": h.service.ForPurpose(purpose)})
}

func (h *PromptHandler) Create(c *gin.Context) {
	var req services.PromptRequest
	if !bindJSON(c, &req) {
		return
	}

	prompt, err := h.service.Create(actorFrom(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, prompt)
}

func (h *PromptHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id", "prompt")
	if !ok {
		return
	}

	var req services.PromptRequest
	if !bindJSON(c, &req) {
		return
	}

	prompt, err := h.service.Update(id, &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, prompt)
}

func (h *PromptHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id", "prompt")
	if !ok {
		return
	}

	if err := h.service.Delete(id); err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessMessage(c, "prompt deleted", nil)
}

func (h *PromptHandler) SetDefault(c *gin.Context) {
	id, ok := paramID(c, "id", "prompt")
	if !ok {
		return
	}

	if err := h.service.SetDefault(id); err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessMessage(c, "default prompt updated", nil)
}
