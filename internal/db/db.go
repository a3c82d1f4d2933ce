package db

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"recycle-fleet-backend/config"
	"recycle-fleet-backend/internal/logs"
	"recycle-fleet-backend/internal/model"
)

// Init initializes the database connection and runs migrations.
// TranslateError is on so uniqueness violations surface as
// gorm.ErrDuplicatedKey, which the ticket numbering retry and the
// sync idempotency path depend on.
func Init(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)

	logs.Logger.Info("running database migrations")
	if err := db.AutoMigrate(
		&model.Unit{},
		&model.MachineAssignment{},
		&model.SyncRecord{},
		&model.MaintenanceTicket{},
		&model.PushSubscription{},
	); err != nil {
		return nil, fmt.Errorf("automigrate failed: %w", err)
	}

	logs.Logger.Info("database initialization complete")
	return db, nil
}
