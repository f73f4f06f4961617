package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/whomimohshukla/freelancehub/internal/models"
	"github.com/whomimohshukla/freelancehub/internal/services"
	"github.com/whomimohshukla/freelancehub/pkg/response"
)

type MilestoneHandler struct {
	milestoneService *services.MilestoneService
}

func NewMilestoneHandler(milestoneService *services.MilestoneService) *MilestoneHandler {
	return &MilestoneHandler{milestoneService: milestoneService}
}

// POST /api/v1/projects/:id/milestones
func (h *MilestoneHandler) Create(c *gin.Context) {
	projectID, ok := paramID(c, "id", "project")
	if !ok {
		return
	}

	var req services.CreateMilestoneRequest
	if !bindJSON(c, &req) {
		return
	}

	milestone, err := h.milestoneService.Create(actorFrom(c), projectID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, milestone)
}

// GET /api/v1/projects/:id/milestones
func (h *MilestoneHandler) List(c *gin.Context) {
	projectID, ok := paramID(c, "id", "project")
	if !ok {
		return
	}

	milestones, err := h.milestoneService.List(actorFrom(c), projectID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, milestones)
}

// GET /api/v1/milestones/:id
func (h *MilestoneHandler) GetByID(c *gin.Context) {
	id, ok := paramID(c, "id", "milestone")
	if !ok {
		return
	}

	milestone, err := h.milestoneService.Get(actorFrom(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, milestone)
}

// PUT /api/v1/milestones/:id
func (h *MilestoneHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id", "milestone")
	if !ok {
		return
	}

	var req services.UpdateMilestoneRequest
	if !bindJSON(c, &req) {
		return
	}

	milestone, err := h.milestoneService.Update(actorFrom(c), id, &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, milestone)
}

// DELETE /api/v1/milestones/:id
func (h *MilestoneHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id", "milestone")
	if !ok {
		return
	}

	if err := h.milestoneService.Delete(actorFrom(c), id); err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessMessage(c, "milestone deleted", nil)
}

// Start moves a funded milestone into progress
// POST /api/v1/milestones/:id/start
func (h *MilestoneHandler) Start(c *gin.Context) {
	id, ok := paramID(c, "id", "milestone")
	if !ok {
		return
	}

	milestone, err := h.milestoneService.Start(actorFrom(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, milestone)
}

// POST /api/v1/milestones/:id/submit
func (h *MilestoneHandler) Submit(c *gin.Context) {
	h.withNote(c, h.milestoneService.Submit)
}

// POST /api/v1/milestones/:id/request-revision
func (h *MilestoneHandler) RequestRevision(c *gin.Context) {
	h.withNote(c, h.milestoneService.RequestRevision)
}

func (h *MilestoneHandler) withNote(c *gin.Context, fn func(services.Actor, uint, *services.MilestoneNoteRequest) (*models.Milestone, error)) {
	id, ok := paramID(c, "id", "milestone")
	if !ok {
		return
	}

	var req services.MilestoneNoteRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}

	milestone, err := fn(actorFrom(c), id, &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, milestone)
}

// Approve accepts the delivery and schedules the escrow release
// POST /api/v1/milestones/:id/approve
func (h *MilestoneHandler) Approve(c *gin.Context) {
	id, ok := paramID(c, "id", "milestone")
	if !ok {
		return
	}

	milestone, err := h.milestoneService.Approve(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, milestone)
}

type reasonRequest struct {
	Reason string `json:"reason" binding:"max=1000"`
}

// POST /api/v1/milestones/:id/cancel
func (h *MilestoneHandler) Cancel(c *gin.Context) {
	id, ok := paramID(c, "id", "milestone")
	if !ok {
		return
	}

	var req reasonRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}

	milestone, err := h.milestoneService.Cancel(c.Request.Context(), actorFrom(c), id, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, milestone)
}
