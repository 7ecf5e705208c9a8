package services

import (
	"testing"
	"time"

	"github.com/confhub/confhub/internal/models"
)

func TestCleanupTokens(t *testing.T) {
	db := setupTestDB(t)
	svc := NewMaintenanceService(db)

	now := time.Now()
	tokens := []models.AccessToken{
		{ID: "expired", UserID: 1, TTL: 60, Created: now.Add(-time.Hour)},
		{ID: "valid", UserID: 1, TTL: 3600, Created: now},
		{ID: "technical", UserID: 2, TTL: models.TechnicalTokenTTL, Created: now.Add(-24 * 365 * time.Hour)},
	}
	for i := range tokens {
		if err := db.Create(&tokens[i]).Error; err != nil {
			t.Fatalf("failed to create token: %v", err)
		}
	}

	svc.cleanupTokens()

	var remaining []models.AccessToken
	if err := db.Find(&remaining).Error; err != nil {
		t.Fatalf("failed to list tokens: %v", err)
	}
	byID := make(map[string]bool)
	for _, tok := range remaining {
		byID[tok.ID] = true
	}
	if byID["expired"] {
		t.Error("expired token survived cleanup")
	}
	if !byID["valid"] {
		t.Error("valid token was removed")
	}
	if !byID["technical"] {
		t.Error("technical token was removed")
	}
}

func TestCleanupLogs(t *testing.T) {
	db := setupTestDB(t)
	svc := NewMaintenanceService(db)

	old := models.SystemLog{Level: "info", Module: "auth", Message: "old", CreatedAt: time.Now().Add(-40 * 24 * time.Hour)}
	recent := models.SystemLog{Level: "info", Module: "auth", Message: "recent", CreatedAt: time.Now()}
	for _, entry := range []*models.SystemLog{&old, &recent} {
		if err := db.Create(entry).Error; err != nil {
			t.Fatalf("failed to create log entry: %v", err)
		}
	}

	svc.cleanupLogs()

	var remaining []models.SystemLog
	if err := db.Find(&remaining).Error; err != nil {
		t.Fatalf("failed to list logs: %v", err)
	}
	if len(remaining) != 1 || remaining[0].Message != "recent" {
		t.Errorf("unexpected surviving logs: %+v", remaining)
	}
}
