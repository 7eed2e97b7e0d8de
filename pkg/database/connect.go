package database

import (
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/Ramsey-B/juniper/config"
)

// Connect opens the postgres pool, retrying while the database comes up, and
// applies the pool limits from config.
func Connect(cfg *config.Config, logger ectologger.Logger) (DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s search_path=%s",
		cfg.DatabaseHost,
		cfg.DatabasePort,
		cfg.DatabaseUserName,
		cfg.DatabasePassword,
		cfg.DatabaseName,
		cfg.DatabaseSSLMode,
		cfg.DatabaseDefaultSchema,
	)

	var db *sqlx.DB
	var err error
	for attempt := 1; attempt <= cfg.DatabaseReconnectRetryCount; attempt++ {
		db, err = sqlx.Connect(cfg.DatabaseDriver, dsn)
		if err == nil {
			break
		}
		logger.WithError(err).Warnf("Failed to connect to database (attempt %d/%d)", attempt, cfg.DatabaseReconnectRetryCount)
		time.Sleep(time.Duration(attempt) * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(cfg.DatabaseMaxOpenConns)
	db.SetMaxIdleConns(cfg.DatabaseMaxIdleConns)
	db.SetConnMaxLifetime(cfg.DatabaseConnMaxLifetime)

	logger.Infof("Connected to database %s at %s:%s", cfg.DatabaseName, cfg.DatabaseHost, cfg.DatabasePort)

	return NewDatabaseInstance(db, logger), nil
}

// Migrate applies the SQL migrations from the configured folder against the
// open connection.
func Migrate(cfg *config.Config, logger ectologger.Logger, db DB) error {
	instance, ok := db.(*DatabaseInstance)
	if !ok {
		return fmt.Errorf("migrations require a database instance")
	}

	driver, err := postgres.WithInstance(instance.DB.DB, &postgres.Config{
		DatabaseName: cfg.DatabaseName,
		SchemaName:   cfg.DatabaseDefaultSchema,
	})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	ms := NewMigrationService(logger, &MigrationConfig{
		MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
		Version:             uint(cfg.DatabaseMigrationVersion),
		Force:               cfg.DatabaseMigrationForce,
		AutoRollback:        cfg.DatabaseMigrationAutoRollback,
	})

	return ms.Migrate(cfg.DatabaseName, driver)
}
