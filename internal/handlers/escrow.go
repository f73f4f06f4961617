package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/whomimohshukla/freelancehub/internal/middleware"
	"github.com/whomimohshukla/freelancehub/internal/services"
	"github.com/whomimohshukla/freelancehub/pkg/response"
)

type EscrowHandler struct {
	escrowService *services.EscrowService
}

func NewEscrowHandler(escrowService *services.EscrowService) *EscrowHandler {
	return &EscrowHandler{escrowService: escrowService}
}

// Sweep releases every due payment now
// POST /api/v1/admin/escrow/sweep
func (h *EscrowHandler) Sweep(c *gin.Context) {
	result, err := h.escrowService.Sweep(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	if result.Locked {
		response.Conflict(c, "another sweep is running")
		return
	}

	userID := middleware.GetUserID(c)
	services.LogInfo("Escrow", "Sweep", "manual escrow sweep", &userID, c.ClientIP(), c.Request.UserAgent(), result)
	response.Success(c, result)
}
