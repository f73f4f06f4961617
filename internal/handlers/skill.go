package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/whomimohshukla/freelancehub/internal/services"
	"github.com/whomimohshukla/freelancehub/pkg/response"
)

type SkillHandler struct {
	skillService *services.SkillService
}

func NewSkillHandler(skillService *services.SkillService) *SkillHandler {
	return &SkillHandler{skillService: skillService}
}

// GET /api/v1/skills
func (h *SkillHandler) List(c *gin.Context) {
	var req services.SkillListRequest
	if !bindQuery(c, &req) {
		return
	}

	skills, err := h.skillService.List(&req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, skills)
}

// GET /api/v1/skills/categories
func (h *SkillHandler) Categories(c *gin.Context) {
	categories, err := h.skillService.Categories()
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, categories)
}

// POST /api/v1/admin/skills
func (h *SkillHandler) Create(c *gin.Context) {
	var req services.SkillRequest
	if !bindJSON(c, &req) {
		return
	}

	skill, err := h.skillService.Create(&req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, skill)
}

// PUT /api/v1/admin/skills/:id
func (h *SkillHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id", "skill")
	if !ok {
		return
	}

	var req services.SkillRequest
	if !bindJSON(c, &req) {
		return
	}

	skill, err := h.skillService.Update(id, &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, skill)
}

// DELETE /api/v1/admin/skills/:id
func (h *SkillHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id", "skill")
	if !ok {
		return
	}

	if err := h.skillService.Delete(id); err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessMessage(c, "skill deleted", nil)
}
