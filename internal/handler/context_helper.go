package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/edulearn-api/internal/middleware"
	"github.com/noah-isme/edulearn-api/internal/models"
)

func accountFromContext(c *gin.Context) *models.User {
	user, ok := middleware.CurrentAccount(c)
	if !ok {
		return nil
	}
	return user
}

func tokenFromContext(c *gin.Context) string {
	value, exists := c.Get(middleware.ContextTokenKey)
	if !exists {
		return ""
	}
	token, _ := value.(string)
	return token
}
