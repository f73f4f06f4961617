package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/whomimohshukla/freelancehub/internal/models"
	"github.com/whomimohshukla/freelancehub/internal/services"
	"github.com/whomimohshukla/freelancehub/pkg/response"
)

type ProposalHandler struct {
	proposalService *services.ProposalService
	hiringService   *services.HiringService
}

func NewProposalHandler(proposalService *services.ProposalService, hiringService *services.HiringService) *ProposalHandler {
	return &ProposalHandler{proposalService: proposalService, hiringService: hiringService}
}

// Submit bids on an open project
// POST /api/v1/projects/:id/proposals
func (h *ProposalHandler) Submit(c *gin.Context) {
	projectID, ok := paramID(c, "id", "project")
	if !ok {
		return
	}

	var req services.SubmitProposalRequest
	if !bindJSON(c, &req) {
		return
	}

	proposal, err := h.proposalService.Submit(c.Request.Context(), actorFrom(c), projectID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, proposal)
}

// ListForProject is visible to the project owner only
// GET /api/v1/projects/:id/proposals
func (h *ProposalHandler) ListForProject(c *gin.Context) {
	projectID, ok := paramID(c, "id", "project")
	if !ok {
		return
	}

	var req services.ProposalListRequest
	if !bindQuery(c, &req) {
		return
	}

	resp, err := h.proposalService.ListForProject(actorFrom(c), projectID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, resp)
}

// GET /api/v1/proposals/mine
func (h *ProposalHandler) ListMine(c *gin.Context) {
	var req services.ProposalListRequest
	if !bindQuery(c, &req) {
		return
	}

	resp, err := h.proposalService.ListMine(actorFrom(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, resp)
}

// GET /api/v1/proposals/:id
func (h *ProposalHandler) GetByID(c *gin.Context) {
	id, ok := paramID(c, "id", "proposal")
	if !ok {
		return
	}

	proposal, err := h.proposalService.Get(actorFrom(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, proposal)
}

// PUT /api/v1/proposals/:id
func (h *ProposalHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id", "proposal")
	if !ok {
		return
	}

	var req services.UpdateProposalRequest
	if !bindJSON(c, &req) {
		return
	}

	proposal, err := h.proposalService.Update(actorFrom(c), id, &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, proposal)
}

// POST /api/v1/proposals/:id/withdraw
func (h *ProposalHandler) Withdraw(c *gin.Context) {
	h.move(c, h.proposalService.Withdraw)
}

// POST /api/v1/proposals/:id/shortlist
func (h *ProposalHandler) Shortlist(c *gin.Context) {
	h.move(c, h.proposalService.Shortlist)
}

// POST /api/v1/proposals/:id/reject
func (h *ProposalHandler) Reject(c *gin.Context) {
	h.move(c, h.proposalService.Reject)
}

func (h *ProposalHandler) move(c *gin.Context, fn func(services.Actor, uint) (*models.Proposal, error)) {
	id, ok := paramID(c, "id", "proposal")
	if !ok {
		return
	}

	proposal, err := fn(actorFrom(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, proposal)
}

// Accept hires the proposal's freelancer
// POST /api/v1/proposals/:id/accept
func (h *ProposalHandler) Accept(c *gin.Context) {
	id, ok := paramID(c, "id", "proposal")
	if !ok {
		return
	}

	result, err := h.hiringService.AcceptProposal(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}
