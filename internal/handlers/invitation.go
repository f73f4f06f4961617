package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/whomimohshukla/freelancehub/internal/services"
	"github.com/whomimohshukla/freelancehub/pkg/response"
)

type InvitationHandler struct {
	hiringService *services.HiringService
}

func NewInvitationHandler(hiringService *services.HiringService) *InvitationHandler {
	return &InvitationHandler{hiringService: hiringService}
}

// Invite asks a freelancer to propose on an owned open project
// POST /api/v1/projects/:id/invitations
func (h *InvitationHandler) Invite(c *gin.Context) {
	projectID, ok := paramID(c, "id", "project")
	if !ok {
		return
	}

	var req services.InviteRequest
	if !bindJSON(c, &req) {
		return
	}

	inv, err := h.hiringService.Invite(actorFrom(c), projectID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, inv)
}

// GET /api/v1/invitations/sent
func (h *InvitationHandler) ListSent(c *gin.Context) {
	var req services.InvitationListRequest
	if !bindQuery(c, &req) {
		return
	}

	resp, err := h.hiringService.ListSent(actorFrom(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, resp)
}

// GET /api/v1/invitations/received
func (h *InvitationHandler) ListReceived(c *gin.Context) {
	var req services.InvitationListRequest
	if !bindQuery(c, &req) {
		return
	}

	resp, err := h.hiringService.ListReceived(actorFrom(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, resp)
}

// POST /api/v1/invitations/:id/accept
func (h *InvitationHandler) Accept(c *gin.Context) {
	h.respond(c, true)
}

// POST /api/v1/invitations/:id/decline
func (h *InvitationHandler) Decline(c *gin.Context) {
	h.respond(c, false)
}

func (h *InvitationHandler) respond(c *gin.Context, accept bool) {
	id, ok := paramID(c, "id", "invitation")
	if !ok {
		return
	}

	inv, err := h.hiringService.Respond(actorFrom(c), id, accept)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, inv)
}

// POST /api/v1/invitations/:id/cancel
func (h *InvitationHandler) Cancel(c *gin.Context) {
	id, ok := paramID(c, "id", "invitation")
	if !ok {
		return
	}

	inv, err := h.hiringService.CancelInvitation(actorFrom(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, inv)
}
