package services

import (
	"errors"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/confhub/confhub/internal/feed"
	"github.com/confhub/confhub/internal/models"
	"github.com/confhub/confhub/internal/secret"
	"github.com/confhub/confhub/pkg/response"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := models.AutoMigrateOn(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	if err := models.SeedDefaultDataOn(db); err != nil {
		t.Fatalf("failed to seed test database: %v", err)
	}
	return db
}

// testEnv wires the permission stack directly against the database. Start is
// never called, so both caches stay in their initial direct-read mode and
// never lag behind writes made mid-test.
type testEnv struct {
	db       *gorm.DB
	perms    *PermissionService
	registry *ModelRegistryService
	levels   *BaseLevelService
	gate     *AccessGate
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := setupTestDB(t)
	perms := NewPermissionService(db, feed.NewMemoryFeed())
	registry := NewModelRegistryService(db, feed.NewMemoryFeed(), perms)
	return &testEnv{
		db:       db,
		perms:    perms,
		registry: registry,
		levels:   NewBaseLevelService(db),
		gate:     NewAccessGate(perms),
	}
}

func (e *testEnv) addLevel(t *testing.T, name string) *models.BaseLevel {
	t.Helper()
	level, err := e.levels.Create(name, "")
	if err != nil {
		t.Fatalf("failed to create level %s: %v", name, err)
	}
	return level
}

func (e *testEnv) addRole(t *testing.T, name string) {
	t.Helper()
	if err := e.db.Create(&models.Role{Name: name}).Error; err != nil {
		t.Fatalf("failed to create role %s: %v", name, err)
	}
}

func (e *testEnv) addModel(t *testing.T, base, name string) *models.ConfigurationModel {
	t.Helper()
	created, err := e.registry.Create(&models.ConfigurationModel{Base: base, Name: name}, roleSet(models.RoleAdmin))
	if err != nil {
		t.Fatalf("failed to create model %s/%s: %v", base, name, err)
	}
	return created
}

func roleSet(names ...string) RoleSet {
	set := make(RoleSet, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

const testEncryptionKey = "0123456789abcdef0123456789abcdef"

func testSecrets(t *testing.T, db *gorm.DB) *secret.Manager {
	t.Helper()
	m := secret.NewManager(db, 0)
	if err := m.Initialize(testEncryptionKey); err != nil {
		t.Fatalf("failed to initialize secret manager: %v", err)
	}
	return m
}

func wantStatus(t *testing.T, err error, status int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with status %d, got nil", status)
	}
	var appErr *response.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected AppError, got %T: %v", err, err)
	}
	if appErr.HTTPStatus != status {
		t.Errorf("expected status %d, got %d (%s)", status, appErr.HTTPStatus, appErr.Message)
	}
}
