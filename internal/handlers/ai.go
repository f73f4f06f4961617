package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/whomimohshukla/freelancehub/internal/services"
	"github.com/whomimohshukla/freelancehub/pkg/response"
)

// AIHandler serves matching, pricing and the LLM writing assistant
type AIHandler struct {
	matchingService  *services.MatchingService
	assistantService *services.AssistantService
}

func NewAIHandler(matchingService *services.MatchingService, assistantService *services.AssistantService) *AIHandler {
	return &AIHandler{matchingService: matchingService, assistantService: assistantService}
}

// Matches ranks freelancers for an owned project
// GET /api/v1/ai/projects/:id/matches
func (h *AIHandler) Matches(c *gin.Context) {
	id, ok := paramID(c, "id", "project")
	if !ok {
		return
	}

	matches, err := h.matchingService.Matches(actorFrom(c), id, queryLimit(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, matches)
}

// Recommendations ranks open projects for the calling freelancer
// GET /api/v1/ai/recommendations
func (h *AIHandler) Recommendations(c *gin.Context) {
	projects, err := h.matchingService.Recommendations(actorFrom(c), queryLimit(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, projects)
}

// POST /api/v1/ai/pricing
func (h *AIHandler) Pricing(c *gin.Context) {
	var req services.PricingRequest
	if !bindJSON(c, &req) {
		return
	}

	estimate, err := h.matchingService.Pricing(&req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, estimate)
}

// GET /api/v1/ai/profile-analysis
func (h *AIHandler) ProfileAnalysis(c *gin.Context) {
	analysis, err := h.matchingService.ProfileAnalysis(actorFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, analysis)
}

// POST /api/v1/ai/proposals/draft
func (h *AIHandler) DraftProposal(c *gin.Context) {
	var req services.ProposalDraftRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.assistantService.DraftProposal(c.Request.Context(), actorFrom(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// POST /api/v1/ai/projects/description
func (h *AIHandler) DescribeProject(c *gin.Context) {
	var req services.DescriptionRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.assistantService.DescribeProject(c.Request.Context(), actorFrom(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}
