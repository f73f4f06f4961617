package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/whomimohshukla/freelancehub/internal/services"
	"github.com/whomimohshukla/freelancehub/pkg/response"
)

type ReviewHandler struct {
	reviewService *services.ReviewService
}

func NewReviewHandler(reviewService *services.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviewService: reviewService}
}

// Create rates the other party of a completed project
// POST /api/v1/projects/:id/reviews
func (h *ReviewHandler) Create(c *gin.Context) {
	projectID, ok := paramID(c, "id", "project")
	if !ok {
		return
	}

	var req services.ReviewRequest
	if !bindJSON(c, &req) {
		return
	}

	review, err := h.reviewService.Create(c.Request.Context(), actorFrom(c), projectID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, review)
}

// GET /api/v1/projects/:id/reviews
func (h *ReviewHandler) ListForProject(c *gin.Context) {
	projectID, ok := paramID(c, "id", "project")
	if !ok {
		return
	}

	reviews, err := h.reviewService.ListForProject(projectID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, reviews)
}

// ListForUser returns reviews received by a user
// GET /api/v1/users/:id/reviews
func (h *ReviewHandler) ListForUser(c *gin.Context) {
	userID, ok := paramID(c, "id", "user")
	if !ok {
		return
	}

	var req services.ReviewListRequest
	if !bindQuery(c, &req) {
		return
	}

	resp, err := h.reviewService.ListForUser(userID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, resp)
}

// PUT /api/v1/reviews/:id
func (h *ReviewHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id", "review")
	if !ok {
		return
	}

	var req services.ReviewRequest
	if !bindJSON(c, &req) {
		return
	}

	review, err := h.reviewService.Update(actorFrom(c), id, &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, review)
}

// DELETE /api/v1/admin/reviews/:id
func (h *ReviewHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id", "review")
	if !ok {
		return
	}

	if err := h.reviewService.Delete(actorFrom(c), id); err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessMessage(c, "review deleted", nil)
}
