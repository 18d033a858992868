package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/accessdesk/access-api/internal/middleware"
	"github.com/accessdesk/access-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// requesterEID resolves the acting employee id from the token claims.
func requesterEID(c *gin.Context) string {
	claims := claimsFromContext(c)
	if claims == nil {
		return ""
	}
	return claims.EID
}
