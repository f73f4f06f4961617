package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/whomimohshukla/freelancehub/internal/utils"
	"github.com/whomimohshukla/freelancehub/pkg/response"
)

const (
	ContextUserID = "user_id"
	ContextEmail  = "email"
	ContextRole   = "role"
)

const (
	RoleClient     = "client"
	RoleFreelancer = "freelancer"
	RoleAdmin      = "admin"
)

// AuthRequired is a middleware that checks for a valid JWT token
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.AbortUnauthorized(c, "authorization header required")
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			response.AbortUnauthorized(c, "invalid authorization header format")
			return
		}

		if !setClaims(c, parts[1]) {
			response.AbortUnauthorized(c, "invalid or expired token")
			return
		}
		c.Next()
	}
}

// QueryTokenAuth accepts the token as a ?token= query parameter and falls back
// to the Authorization header. Browsers cannot set headers on websocket and
// EventSource requests.
func QueryTokenAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			token = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		}
		if token == "" || !setClaims(c, token) {
			response.AbortUnauthorized(c, "invalid or expired token")
			return
		}
		c.Next()
	}
}

func setClaims(c *gin.Context, token string) bool {
	claims, err := utils.ParseToken(token)
	if err != nil {
		return false
	}
	c.Set(ContextUserID, claims.UserID)
	c.Set(ContextEmail, claims.Email)
	c.Set(ContextRole, claims.Role)
	return true
}

// AdminRequired is a middleware that checks for admin role
func AdminRequired() gin.HandlerFunc {
	return RoleRequired(RoleAdmin)
}

// RoleRequired allows the request only when the caller holds one of roles.
func RoleRequired(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get(ContextRole)
		if exists {
			for _, r := range roles {
				if role == r {
					c.Next()
					return
				}
			}
		}
		if len(roles) == 1 {
			response.AbortForbidden(c, roles[0]+" access required")
		} else {
			response.AbortForbidden(c, "insufficient role")
		}
	}
}

// GetUserID gets the current user ID from context
func GetUserID(c *gin.Context) uint {
	if id, exists := c.Get(ContextUserID); exists {
		return id.(uint)
	}
	return 0
}

// GetEmail gets the current user email from context
func GetEmail(c *gin.Context) string {
	if email, exists := c.Get(ContextEmail); exists {
		return email.(string)
	}
	return ""
}

// GetRole gets the current user role from context
func GetRole(c *gin.Context) string {
	if role, exists := c.Get(ContextRole); exists {
		return role.(string)
	}
	return ""
}

func IsAdmin(c *gin.Context) bool {
	return GetRole(c) == RoleAdmin
}
