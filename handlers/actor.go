package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/veridoc/veridoc/internal/document"
)

// actorFrom derives the acting principal from the verified claims the auth
// middleware stored on the context. A token without a subject or tenant is
// rejected: every engine operation is tenant-scoped.
func actorFrom(c *gin.Context) (document.Actor, bool) {
	v, ok := c.Get("claims")
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authentication"})
		return document.Actor{}, false
	}
	claims, ok := v.(map[string]interface{})
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "malformed claims"})
		return document.Actor{}, false
	}
	actor := document.Actor{
		UserID:   claimString(claims, "sub"),
		Email:    claimString(claims, "email"),
		TenantID: claimString(claims, "tenant"),
	}
	if admin, ok := claims["admin"].(bool); ok {
		actor.Admin = admin
	}
	if actor.UserID == "" || actor.TenantID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token missing sub or tenant claim"})
		return document.Actor{}, false
	}
	return actor, true
}

func claimString(claims map[string]interface{}, key string) string {
	if s, ok := claims[key].(string); ok {
		return s
	}
	return ""
}
