package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/confhub/confhub/internal/feed"
	"github.com/confhub/confhub/internal/models"
	"github.com/confhub/confhub/internal/secret"
)

// HealthHandler reports the status of the server's subsystems.
type HealthHandler struct {
	feedMode string
	secrets  *secret.Manager
}

func NewHealthHandler(f feed.Feed, secrets *secret.Manager) *HealthHandler {
	mode := "memory"
	if _, ok := f.(*feed.RedisFeed); ok {
		mode = "redis"
	}
	return &HealthHandler{feedMode: mode, secrets: secrets}
}

func (h *HealthHandler) CheckHealth(c *gin.Context) {
	overall := "healthy"

	dbStatus := "ok"
	sqlDB, err := models.GetDB().DB()
	if err != nil {
		dbStatus = "error: " + err.Error()
		overall = "unhealthy"
	} else if err := sqlDB.Ping(); err != nil {
		dbStatus = "error: " + err.Error()
		overall = "unhealthy"
	}

	c.JSON(200, gin.H{
		"status":  overall,
		"service": "confhub",
		"components": gin.H{
			"database":           dbStatus,
			"feed":               h.feedMode,
			"secret_initialized": h.secrets.Initialized(),
		},
	})
}
