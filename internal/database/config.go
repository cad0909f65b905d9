package database

import (
	"fmt"
	"log/slog"
	"time"

	"returnremind/internal/models"
	"returnremind/internal/utils"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

const (
	maxRetries = 5
	retryDelay = 5 * time.Second
)

// GormConfig returns the gorm settings shared by the server and the tests
func GormConfig(logger *slog.Logger) *gorm.Config {
	return &gorm.Config{
		Logger: utils.NewGormLogger(logger, time.Second, utils.SweepQueryPatterns...),
		NamingStrategy: schema.NamingStrategy{
			SingularTable: true,
		},
		PrepareStmt: true,
	}
}

// Open connects to Postgres with retries, configures the pool and migrates the schema
func Open(dsn string, logger *slog.Logger) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)
	for i := 0; i < maxRetries; i++ {
		db, err = gorm.Open(postgres.Open(dsn), GormConfig(logger))
		if err == nil {
			break
		}
		logger.Warn("database connection attempt failed", "attempt", i+1, "error", err)
		if i < maxRetries-1 {
			logger.Info("retrying database connection", "delay", retryDelay)
			time.Sleep(retryDelay)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxRetries, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := Migrate(db); err != nil {
		return nil, err
	}

	logger.Info("database connection established and migrations completed")
	return db, nil
}

// Migrate creates or updates the user, purchase and reminder tables
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Purchase{},
		&models.Reminder{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
