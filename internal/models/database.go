package models

import (
	"fmt"

	"github.com/confhub/confhub/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func InitDB(cfg *config.DatabaseConfig) error {
	var dialector gorm.Dialector

	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return fmt.Errorf("failed to connect database: %w", err)
	}

	DB = db
	return nil
}

func AutoMigrate() error {
	return AutoMigrateOn(DB)
}

// AutoMigrateOn migrates every collection on the given handle. Tests use it
// against per-test in-memory databases.
func AutoMigrateOn(db *gorm.DB) error {
	return db.AutoMigrate(
		&BaseLevel{},
		&ConfigurationModel{},
		&ConfigurationInstance{},
		&ConstantVariableSet{},
		&Promotion{},
		&Connection{},
		&Member{},
		&Group{},
		&Role{},
		&AccessToken{},
		&SystemState{},
		&SystemLog{},
	)
}

func GetDB() *gorm.DB {
	return DB
}

// SeedDefaultData creates the bootstrap rows if they do not exist: the base
// role set, one connection row per external system and the system state row.
// The admin member is seeded by the member service (it needs the password
// hasher).
func SeedDefaultData() error {
	return SeedDefaultDataOn(DB)
}

func SeedDefaultDataOn(db *gorm.DB) error {
	baseRoles := []string{
		RoleAdmin,
		RoleName{Resource: ResourceConfiguration, Action: ActionView}.String(),
		RoleName{Resource: ResourceConfiguration, Action: ActionModify}.String(),
		RoleName{Resource: ResourceConfigurationModel, Action: ActionView}.String(),
		RoleName{Resource: ResourceConfigurationModel, Action: ActionModify}.String(),
	}
	for _, name := range baseRoles {
		var count int64
		db.Model(&Role{}).Where("name = ?", name).Count(&count)
		if count == 0 {
			if err := db.Create(&Role{Name: name}).Error; err != nil {
				return err
			}
		}
	}

	for _, system := range []string{SystemLDAP, SystemVault} {
		var count int64
		db.Model(&Connection{}).Where("system = ?", system).Count(&count)
		if count == 0 {
			if err := db.Create(&Connection{System: system}).Error; err != nil {
				return err
			}
		}
	}

	var stateCount int64
	db.Model(&SystemState{}).Count(&stateCount)
	if stateCount == 0 {
		if err := db.Create(&SystemState{Booted: true}).Error; err != nil {
			return err
		}
	}

	return nil
}
