package middleware

import (
	"net/http"
	"strings"

	"conference_registration/internal/model"
	"conference_registration/internal/utils"

	"github.com/gin-gonic/gin"
)

// AuthPrincipalKey holds the model.Principal of an authenticated request.
const AuthPrincipalKey = "authPrincipal"

// JWTAuthMiddleware creates a middleware for JWT authentication
func JWTAuthMiddleware(jwtUtil *utils.JWTUtil) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			return
		}

		claims, err := jwtUtil.ValidateToken(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}
		roles, err := model.ParseRoleSet(claims.Roles)
		if err != nil || len(roles) == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid roles in token"})
			return
		}

		c.Set(AuthPrincipalKey, model.Principal{UserID: claims.UserID, Roles: roles})
		c.Next()
	}
}

// GetPrincipal returns the caller set by JWTAuthMiddleware.
func GetPrincipal(c *gin.Context) (model.Principal, bool) {
	val, exists := c.Get(AuthPrincipalKey)
	if !exists {
		return model.Principal{}, false
	}
	p, ok := val.(model.Principal)
	return p, ok
}
