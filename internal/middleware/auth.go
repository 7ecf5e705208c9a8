package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/confhub/confhub/internal/models"
	"github.com/confhub/confhub/internal/utils"
)

const (
	ContextUserID   = "user_id"
	ContextUsername = "username"
	ContextRole     = "role"
)

// AuthRequired authenticates the request. Interactive sessions present a
// JWT; technical users present a stored access token id, which is looked up
// and checked for expiry.
func AuthRequired(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization header required"})
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			c.Abort()
			return
		}

		credential := parts[1]
		if claims, err := utils.ParseToken(credential); err == nil {
			c.Set(ContextUserID, claims.UserID)
			c.Set(ContextUsername, claims.Username)
			c.Set(ContextRole, claims.Role)
			c.Next()
			return
		}

		if !authenticateAccessToken(c, db, credential) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			c.Abort()
			return
		}
		c.Next()
	}
}

func authenticateAccessToken(c *gin.Context, db *gorm.DB, id string) bool {
	var token models.AccessToken
	if err := db.Where("id = ?", id).First(&token).Error; err != nil {
		return false
	}
	if token.Expired(time.Now()) {
		db.Delete(&token)
		return false
	}

	var member models.Member
	if err := db.First(&member, token.UserID).Error; err != nil {
		return false
	}

	role := "member"
	if member.Username == models.AdminUsername {
		role = models.RoleAdmin
	}
	c.Set(ContextUserID, member.ID)
	c.Set(ContextUsername, member.Username)
	c.Set(ContextRole, role)
	return true
}

// AdminRequired rejects requests whose session does not carry the admin role.
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get(ContextRole)
		if !exists || role != models.RoleAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetUserID gets the current user ID from context
func GetUserID(c *gin.Context) uint {
	if id, exists := c.Get(ContextUserID); exists {
		return id.(uint)
	}
	return 0
}

// GetUsername gets the current username from context
func GetUsername(c *gin.Context) string {
	if username, exists := c.Get(ContextUsername); exists {
		return username.(string)
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
