package main

import (
	"context"

	"github.com/confhub/confhub/internal/config"
	"github.com/confhub/confhub/internal/feed"
	"github.com/confhub/confhub/internal/models"
	"github.com/confhub/confhub/internal/secret"
	"github.com/confhub/confhub/internal/services"
	"github.com/confhub/confhub/internal/utils"
	"github.com/confhub/confhub/pkg/logger"
)

// appServices holds all initialized services needed by the application.
type appServices struct {
	feed           feed.Feed
	secrets        *secret.Manager
	perms          *services.PermissionService
	gate           *services.AccessGate
	registry       *services.ModelRegistryService
	levels         *services.BaseLevelService
	configurations *services.ConfigurationService
	constants      *services.ConstantVariableService
	promotions     *services.PromotionService
	connections    *services.ConnectionService
	members        *services.MemberService
	groups         *services.GroupService
	maintenance    *services.MaintenanceService
	cancel         context.CancelFunc
}

// bootstrap initializes all application dependencies: database, feed,
// services, schedulers.
func bootstrap(cfg *config.Config) *appServices {
	utils.SetJWTSecret(cfg.JWT.Secret)

	// Initialize database
	if err := models.InitDB(&cfg.Database); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Auto migrate database
	if err := models.AutoMigrate(); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}

	// Seed default data
	if err := models.SeedDefaultData(); err != nil {
		logger.Warn().Err(err).Msg("Failed to seed default data")
	}

	db := models.GetDB()

	// Initialize audit logger
	services.InitSystemLogger(db)

	ctx, cancel := context.WithCancel(context.Background())

	// Change-notification feed (uses Redis if enabled, otherwise in-process)
	var f feed.Feed
	if cfg.Redis.Enabled {
		rf, err := feed.NewRedisFeed(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Warn().Err(err).Msg("Redis feed unavailable, using in-process feed")
			f = feed.NewMemoryFeed()
		} else {
			f = rf
		}
	} else {
		f = feed.NewMemoryFeed()
	}
	if err := feed.RegisterPublisher(db, f); err != nil {
		logger.Warn().Err(err).Msg("Failed to register feed publisher")
	}

	secrets := secret.NewManager(db, cfg.Secret.MismatchDelay)

	// Permission and model caches follow the feed while it is healthy and
	// fall back to direct store reads when it is not.
	perms := services.NewPermissionService(db, f)
	if err := perms.Start(ctx); err != nil {
		logger.Warn().Err(err).Msg("Permission cache running degraded")
	}
	registry := services.NewModelRegistryService(db, f, perms)
	if err := registry.Start(ctx); err != nil {
		logger.Warn().Err(err).Msg("Model cache running degraded")
	}
	gate := services.NewAccessGate(perms)

	levels := services.NewBaseLevelService(db)
	configurations := services.NewConfigurationService(db, levels, registry, secrets)
	constants := services.NewConstantVariableService(db, levels, registry)
	promotions := services.NewPromotionService(db)

	ldap := services.NewLDAPService(cfg.Upstream.LDAPTimeout)
	vault := services.NewVaultService(cfg.Upstream.VaultTimeout)
	connections := services.NewConnectionService(db, secrets, ldap, vault)
	members := services.NewMemberService(db, perms, ldap, connections, cfg)
	groups := services.NewGroupService(db)

	// Create default admin user
	if err := members.SeedAdmin("admin"); err != nil {
		logger.Warn().Err(err).Msg("Failed to create admin user")
	}

	// Token and audit log cleanup schedulers
	maintenance := services.NewMaintenanceService(db)
	if err := maintenance.Start(); err != nil {
		logger.Warn().Err(err).Msg("Failed to start maintenance schedulers")
	}

	return &appServices{
		feed:           f,
		secrets:        secrets,
		perms:          perms,
		gate:           gate,
		registry:       registry,
		levels:         levels,
		configurations: configurations,
		constants:      constants,
		promotions:     promotions,
		connections:    connections,
		members:        members,
		groups:         groups,
		maintenance:    maintenance,
		cancel:         cancel,
	}
}

// shutdown gracefully stops all services.
func (s *appServices) shutdown() {
	s.maintenance.Stop()
	s.cancel()
	if err := s.feed.Close(); err != nil {
		logger.Warn().Err(err).Msg("Failed to close feed")
	}
	logger.Info().Msg("All services stopped")
}
