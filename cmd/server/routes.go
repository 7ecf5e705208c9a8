package main

import (
	"github.com/gin-gonic/gin"

	"github.com/confhub/confhub/internal/handlers"
	"github.com/confhub/confhub/internal/middleware"
	"github.com/confhub/confhub/internal/models"
	"github.com/confhub/confhub/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, svc *appServices) {
	// Middleware
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS())

	db := models.GetDB()

	// Rate limiter for login routes
	loginLimiter := middleware.NewRateLimiter(10, 20)

	healthHandler := handlers.NewHealthHandler(svc.feed, svc.secrets)
	r.GET("/health", healthHandler.CheckHealth)

	authHandler := handlers.NewAuthHandler(svc.members)
	secretHandler := handlers.NewSecretHandler(svc.secrets)

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth", loginLimiter.Middleware())
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/basic-login", authHandler.BasicLogin)
		}

		// Encryption key initialization (public, verified against the
		// persisted check value)
		api.POST("/secret/initialize", secretHandler.Initialize)
		api.GET("/secret/status", secretHandler.Status)

		// Protected routes
		protected := api.Group("")
		protected.Use(middleware.AuthRequired(db), middleware.AuditLog())
		{
			// Auth
			protected.GET("/auth/me", authHandler.Me)
			protected.POST("/auth/change-password", authHandler.ChangePassword)

			// Base levels
			baseLevelHandler := handlers.NewBaseLevelHandler(svc.levels)
			protected.GET("/base-levels", baseLevelHandler.List)

			// Configuration models
			modelHandler := handlers.NewConfigurationModelHandler(svc.registry, svc.perms, svc.gate)
			protected.GET("/configuration-models", modelHandler.List)
			protected.POST("/configuration-models", modelHandler.Create)
			protected.PUT("/configuration-models/:id", modelHandler.Update)
			protected.DELETE("/configuration-models/:id", modelHandler.Delete)
			protected.POST("/configuration-models/:id/rules", modelHandler.AddRule)
			protected.DELETE("/configuration-models/:id/rules/:ruleId", modelHandler.RemoveRule)
			protected.PUT("/configuration-models/:id/rules/:ruleId", modelHandler.ModifyRule)
			protected.PUT("/configuration-models/:id/options", modelHandler.ModifyOptions)
			protected.POST("/configuration-models/:id/restrictions", modelHandler.AddRestriction)
			protected.DELETE("/configuration-models/:id/restrictions", modelHandler.RemoveRestriction)

			// Configurations
			configurationHandler := handlers.NewConfigurationHandler(svc.configurations, svc.perms, svc.gate)
			protected.GET("/configurations", configurationHandler.List)
			protected.POST("/configurations", configurationHandler.Create)
			protected.POST("/configurations/:id/promote", configurationHandler.Promote)
			protected.POST("/configurations/promotion-candidates", configurationHandler.PromotionCandidates)

			// Constant variables
			constantHandler := handlers.NewConstantVariableHandler(svc.constants, svc.perms, svc.gate)
			protected.GET("/constant-variables", constantHandler.List)
			protected.POST("/constant-variables", constantHandler.Create)
			protected.GET("/constant-variables/resolve", constantHandler.Resolve)

			// Admin routes
			admin := protected.Group("")
			admin.Use(middleware.AdminRequired())
			{
				// Base levels
				admin.POST("/base-levels", baseLevelHandler.Create)
				admin.PUT("/base-levels/:id/sequence", baseLevelHandler.Reorder)
				admin.DELETE("/base-levels/:id", baseLevelHandler.Delete)

				// Promotions
				promotionHandler := handlers.NewPromotionHandler(svc.promotions)
				admin.GET("/promotions", promotionHandler.List)
				admin.POST("/promotions", promotionHandler.Save)
				admin.DELETE("/promotions/:id", promotionHandler.Delete)

				// Members
				memberHandler := handlers.NewMemberHandler(svc.members)
				admin.GET("/members", memberHandler.List)
				admin.POST("/members", memberHandler.Create)
				admin.POST("/members/:id/groups", memberHandler.AddGroup)
				admin.DELETE("/members/:id/groups", memberHandler.RemoveGroup)
				admin.PUT("/members/:id/technical", memberHandler.SetTechnical)
				admin.GET("/members/:id/technical-token", memberHandler.TechnicalToken)

				// Groups and roles
				groupHandler := handlers.NewGroupHandler(svc.groups)
				admin.GET("/groups", groupHandler.List)
				admin.POST("/groups", groupHandler.Create)
				admin.DELETE("/groups/:id", groupHandler.Delete)
				admin.POST("/groups/:id/roles", groupHandler.AddRole)
				admin.DELETE("/groups/:id/roles", groupHandler.RemoveRole)
				admin.GET("/roles", groupHandler.ListRoles)
				admin.POST("/roles", groupHandler.CreateRole)
				admin.DELETE("/roles/:id", groupHandler.DeleteRole)

				// Connections
				connectionHandler := handlers.NewConnectionHandler(svc.connections)
				admin.GET("/connections/:system", connectionHandler.Get)
				admin.PUT("/connections/:system", connectionHandler.Save)
				admin.POST("/connections/:system/test", connectionHandler.Test)

				// System Logs
				systemLogHandler := handlers.NewSystemLogHandler(db)
				admin.GET("/system-logs", systemLogHandler.List)
				admin.GET("/system-logs/modules", systemLogHandler.GetModules)
			}
		}
	}
}
