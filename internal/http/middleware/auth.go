// README: Firebase ID-token auth middleware and capability checks.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"petcare/internal/access"
	"petcare/internal/infra"
	"petcare/internal/types"
)

const (
	ctxUID  = "caller_uid"
	ctxRole = "caller_role"
)

// Auth verifies the bearer token and stores the caller uid and role claim.
func Auth(verifier infra.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		token, err := verifier.VerifyIDToken(c.Request.Context(), strings.TrimSpace(raw))
		if err != nil || token == nil || token.UID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		role, _ := token.Claims["role"].(string)
		c.Set(ctxUID, token.UID)
		c.Set(ctxRole, role)
		c.Next()
	}
}

// CallerUID returns the verified uid, or "" outside Auth.
func CallerUID(c *gin.Context) string {
	return c.GetString(ctxUID)
}

// CallerRole returns the raw role claim.
func CallerRole(c *gin.Context) string {
	return c.GetString(ctxRole)
}

func CallerID(c *gin.Context) types.ID {
	return types.ID(CallerUID(c))
}

func CallerAccessRole(c *gin.Context) access.Role {
	return access.ParseRole(CallerRole(c))
}

// Can reports whether the caller holds the capability.
func Can(c *gin.Context, resource access.Resource, action access.Action) bool {
	return access.Allowed(CallerAccessRole(c), resource, action)
}

// RequireCapability aborts with 403 unless the caller's role grants the capability.
func RequireCapability(resource access.Resource, action access.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !Can(c, resource, action) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}
