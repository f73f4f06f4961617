package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/whomimohshukla/freelancehub/internal/middleware"
	"github.com/whomimohshukla/freelancehub/internal/models"
	"github.com/whomimohshukla/freelancehub/internal/services"
	"github.com/whomimohshukla/freelancehub/pkg/response"
)

type UserHandler struct {
	userService *services.UserService
	authService *services.AuthService
}

func NewUserHandler(userService *services.UserService, authService *services.AuthService) *UserHandler {
	return &UserHandler{userService: userService, authService: authService}
}

// GetProfile returns the public profile of a user
// GET /api/v1/users/:id
func (h *UserHandler) GetProfile(c *gin.Context) {
	id, ok := paramID(c, "id", "user")
	if !ok {
		return
	}

	profile, err := h.userService.GetPublicProfile(id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, profile)
}

// UpdateMe updates the caller's account fields
// PUT /api/v1/users/me
func (h *UserHandler) UpdateMe(c *gin.Context) {
	var req services.UpdateMeRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.userService.UpdateMe(middleware.GetUserID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, user)
}

// GET /api/v1/users/me/freelancer-profile
func (h *UserHandler) GetFreelancerProfile(c *gin.Context) {
	profile, err := h.userService.GetFreelancerProfile(middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, profile)
}

// PUT /api/v1/users/me/freelancer-profile
func (h *UserHandler) UpdateFreelancerProfile(c *gin.Context) {
	var req services.UpdateFreelancerProfileRequest
	if !bindJSON(c, &req) {
		return
	}

	profile, err := h.userService.UpdateFreelancerProfile(middleware.GetUserID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, profile)
}

type setSkillsRequest struct {
	SkillIDs []uint `json:"skill_ids"`
}

// SetSkills replaces the caller's skill set
// PUT /api/v1/users/me/skills
func (h *UserHandler) SetSkills(c *gin.Context) {
	var req setSkillsRequest
	if !bindJSON(c, &req) {
		return
	}

	profile, err := h.userService.SetSkills(middleware.GetUserID(c), req.SkillIDs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, profile)
}

// GET /api/v1/users/me/client-profile
func (h *UserHandler) GetClientProfile(c *gin.Context) {
	profile, err := h.userService.GetClientProfile(middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, profile)
}

// PUT /api/v1/users/me/client-profile
func (h *UserHandler) UpdateClientProfile(c *gin.Context) {
	var req services.UpdateClientProfileRequest
	if !bindJSON(c, &req) {
		return
	}

	profile, err := h.userService.UpdateClientProfile(middleware.GetUserID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, profile)
}

// ListFreelancers is the public freelancer directory
// GET /api/v1/users/freelancers
func (h *UserHandler) ListFreelancers(c *gin.Context) {
	var req services.FreelancerSearchRequest
	if !bindQuery(c, &req) {
		return
	}

	resp, err := h.userService.ListFreelancers(&req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, resp)
}

// List returns all accounts for administrators
// GET /api/v1/admin/users
func (h *UserHandler) List(c *gin.Context) {
	var req services.UserListRequest
	if !bindQuery(c, &req) {
		return
	}

	resp, err := h.userService.List(&req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, resp)
}

// Update changes role or active flag
// PUT /api/v1/admin/users/:id
func (h *UserHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id", "user")
	if !ok {
		return
	}

	var req services.AdminUpdateUserRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.userService.AdminUpdate(middleware.GetUserID(c), id, &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	if !user.IsActive {
		if err := h.authService.RevokeAllForUser(user.ID, models.RevokeReasonDeactivated); err != nil {
			response.Error(c, err)
			return
		}
	}

	response.Success(c, user)
}

// DELETE /api/v1/admin/users/:id
func (h *UserHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id", "user")
	if !ok {
		return
	}

	if err := h.userService.Delete(middleware.GetUserID(c), id); err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessMessage(c, "user deleted", nil)
}
