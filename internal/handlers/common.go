package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/whomimohshukla/freelancehub/internal/middleware"
	"github.com/whomimohshukla/freelancehub/internal/services"
	"github.com/whomimohshukla/freelancehub/pkg/response"
)

// actorFrom builds the service-layer caller from the auth middleware context
func actorFrom(c *gin.Context) services.Actor {
	return services.Actor{
		UserID: middleware.GetUserID(c),
		Role:   middleware.GetRole(c),
	}
}

// paramID parses a uint path parameter, writing a 400 when it is malformed
func paramID(c *gin.Context, name, label string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		response.BadRequest(c, "invalid "+label+" id")
		return 0, false
	}
	return uint(id), true
}

func bindJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		response.BadRequest(c, bindErrorMessage(err))
		return false
	}
	return true
}

func bindQuery(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		response.BadRequest(c, bindErrorMessage(err))
		return false
	}
	return true
}

// queryLimit reads ?limit= and leaves range checks to the service
func queryLimit(c *gin.Context) int {
	limit, _ := strconv.Atoi(c.Query("limit"))
	return limit
}
