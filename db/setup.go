package db

import (
	"fmt"

	"github.com/slotwise/slotwise/config"
	"github.com/slotwise/slotwise/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/dbresolver"
)

// Setup opens the primary connection, registers read replicas when
// configured, applies pool limits, and brings the schema up to date.
func Setup(cfg *config.Config) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	}

	database, err := gorm.Open(postgres.Open(cfg.GetDatabaseURL()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if len(cfg.Database.ReplicaDSNs) > 0 {
		replicas := make([]gorm.Dialector, 0, len(cfg.Database.ReplicaDSNs))
		for _, dsn := range cfg.Database.ReplicaDSNs {
			replicas = append(replicas, postgres.Open(dsn))
		}
		err = database.Use(dbresolver.Register(dbresolver.Config{
			Replicas: replicas,
			Policy:   dbresolver.RandomPolicy{},
		}))
		if err != nil {
			return nil, fmt.Errorf("failed to register read replicas: %w", err)
		}
	}

	sqlDB, err := database.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.Database.MaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.Database.MaxIdleTime)

	if err := migrate(database); err != nil {
		return nil, err
	}

	return database, nil
}

func migrate(database *gorm.DB) error {
	err := database.AutoMigrate(
		&models.Appointment{},
		&models.Payment{},
		&models.NotificationJob{},
		&models.ProcessedExternalEvent{},
	)
	if err != nil {
		return fmt.Errorf("auto-migration failed: %w", err)
	}

	migrator := CreateMigrator(database)
	RegisterCoreMigrations(migrator)
	if err := migrator.Up(); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}
