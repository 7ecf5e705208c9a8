package services

import (
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/confhub/confhub/internal/models"
	"github.com/confhub/confhub/pkg/logger"
)

// logRetentionDays is how long audit log rows are kept.
const logRetentionDays = 30

// MaintenanceService runs the periodic housekeeping jobs: pruning expired
// access tokens and aging out old audit log rows.
type MaintenanceService struct {
	db   *gorm.DB
	cron *cron.Cron
	logs *SystemLogService
}

func NewMaintenanceService(db *gorm.DB) *MaintenanceService {
	return &MaintenanceService{
		db:   db,
		cron: cron.New(),
		logs: NewSystemLogService(db),
	}
}

// Start runs both jobs immediately and then hourly/daily on the scheduler.
func (s *MaintenanceService) Start() error {
	s.cleanupTokens()
	s.cleanupLogs()

	if _, err := s.cron.AddFunc("@hourly", s.cleanupTokens); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("@daily", s.cleanupLogs); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

func (s *MaintenanceService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// cleanupTokens removes expired access tokens. Technical tokens carry
// TTL -1 and are never touched.
func (s *MaintenanceService) cleanupTokens() {
	var tokens []models.AccessToken
	if err := s.db.Where("ttl <> ?", models.TechnicalTokenTTL).Find(&tokens).Error; err != nil {
		logger.Error().Err(err).Msg("Token cleanup query failed")
		return
	}

	now := time.Now()
	removed := 0
	for i := range tokens {
		if tokens[i].Expired(now) {
			if err := s.db.Delete(&tokens[i]).Error; err == nil {
				removed++
			}
		}
	}
	if removed > 0 {
		logger.Info().Int("removed", removed).Msg("Expired access tokens cleaned up")
	}
}

func (s *MaintenanceService) cleanupLogs() {
	deleted, err := s.logs.CleanupOldLogs(logRetentionDays)
	if err != nil {
		logger.Error().Err(err).Msg("Audit log cleanup failed")
		return
	}
	if deleted > 0 {
		logger.Info().Int64("removed", deleted).Msg("Old audit logs cleaned up")
	}
}
