package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/whomimohshukla/freelancehub/internal/services"
	"github.com/whomimohshukla/freelancehub/pkg/response"
)

type TeamHandler struct {
	teamService *services.TeamService
}

func NewTeamHandler(teamService *services.TeamService) *TeamHandler {
	return &TeamHandler{teamService: teamService}
}

// GET /api/v1/teams
func (h *TeamHandler) List(c *gin.Context) {
	var req services.TeamListRequest
	if !bindQuery(c, &req) {
		return
	}

	resp, err := h.teamService.List(actorFrom(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, resp)
}

// GET /api/v1/teams/:id
func (h *TeamHandler) GetByID(c *gin.Context) {
	id, ok := paramID(c, "id", "team")
	if !ok {
		return
	}

	team, err := h.teamService.Get(id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, team)
}

// POST /api/v1/teams
func (h *TeamHandler) Create(c *gin.Context) {
	var req services.TeamRequest
	if !bindJSON(c, &req) {
		return
	}

	team, err := h.teamService.Create(actorFrom(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, team)
}

// PUT /api/v1/teams/:id
func (h *TeamHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id", "team")
	if !ok {
		return
	}

	var req services.UpdateTeamRequest
	if !bindJSON(c, &req) {
		return
	}

	team, err := h.teamService.Update(actorFrom(c), id, &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, team)
}

// DELETE /api/v1/teams/:id
func (h *TeamHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id", "team")
	if !ok {
		return
	}

	if err := h.teamService.Delete(actorFrom(c), id); err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessMessage(c, "team deleted", nil)
}

// POST /api/v1/teams/:id/members
func (h *TeamHandler) AddMember(c *gin.Context) {
	id, ok := paramID(c, "id", "team")
	if !ok {
		return
	}

	var req services.AddMemberRequest
	if !bindJSON(c, &req) {
		return
	}

	team, err := h.teamService.AddMember(actorFrom(c), id, &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, team)
}

// PUT /api/v1/teams/:id/members/:user_id
func (h *TeamHandler) ChangeRole(c *gin.Context) {
	id, ok := paramID(c, "id", "team")
	if !ok {
		return
	}
	userID, ok := paramID(c, "user_id", "user")
	if !ok {
		return
	}

	var req services.ChangeRoleRequest
	if !bindJSON(c, &req) {
		return
	}

	team, err := h.teamService.ChangeRole(actorFrom(c), id, userID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, team)
}

// DELETE /api/v1/teams/:id/members/:user_id
func (h *TeamHandler) RemoveMember(c *gin.Context) {
	id, ok := paramID(c, "id", "team")
	if !ok {
		return
	}
	userID, ok := paramID(c, "user_id", "user")
	if !ok {
		return
	}

	team, err := h.teamService.RemoveMember(actorFrom(c), id, userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, team)
}

// POST /api/v1/teams/:id/leave
func (h *TeamHandler) Leave(c *gin.Context) {
	id, ok := paramID(c, "id", "team")
	if !ok {
		return
	}

	if err := h.teamService.Leave(actorFrom(c), id); err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessMessage(c, "left team", nil)
}
