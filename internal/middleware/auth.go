package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	OwnerKey = "owner_id"
	AdminKey = "is_admin"
)

// GetOwner returns the authenticated owner id, or "" before Auth ran.
func GetOwner(c *gin.Context) string {
	return c.GetString(OwnerKey)
}

// IsAdmin reports whether the authenticated owner is an admin.
func IsAdmin(c *gin.Context) bool {
	return c.GetBool(AdminKey)
}

// Auth resolves "Authorization: Bearer <token>" to an owner id through
// tokens and stores it on the context.
func Auth(tokens map[string]string, isAdmin func(ownerID string) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		owner, ok := tokens[token]
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(OwnerKey, owner)
		c.Set(AdminKey, isAdmin(owner))
		c.Next()
	}
}

// AdminOnly rejects non-admin owners. It must run after Auth.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsAdmin(c) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin only"})
			return
		}
		c.Next()
	}
}
