package database

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func Connect(cfg *config.Config) error {
	var err error
	DB, err = gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetMaxIdleConns(25)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	slog.Info("database connected")
	return nil
}

// Models lists every table the service owns, in dependency order.
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Household{},
		&models.HouseholdMember{},
		&models.Invitation{},
		&models.Child{},
		&models.Toy{},
		&models.Rotation{},
		&models.Feedback{},
		&models.AIUsage{},
		&models.SubscriptionEvent{},
		&models.RemoteConfig{},
		&models.SystemLog{},
	}
}

// Migrate runs AutoMigrate for all models on db.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

func Ping() error {
	if DB == nil {
		return errors.New("database not connected")
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
