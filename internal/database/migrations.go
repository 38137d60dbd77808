package database

import (
	"database/sql"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

func prepare(migrations fs.FS) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return nil
}

// RunMigrations applies every pending migration found in dir of migrations.
// A nil migrations reads dir from the working directory.
func RunMigrations(db *sql.DB, migrations fs.FS, dir string, logger *zap.Logger) error {
	if err := prepare(migrations); err != nil {
		return err
	}

	logger.Info("Checking for pending migrations...", zap.String("dir", dir))

	if err := goose.Up(db, dir); err != nil {
		logger.Error("Failed to run migrations", zap.Error(err))
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	version, err := goose.GetDBVersion(db)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	logger.Info("Migrations completed successfully", zap.Int64("version", version))
	return nil
}

// GetMigrationStatus prints the applied and pending migrations.
func GetMigrationStatus(db *sql.DB, migrations fs.FS, dir string) error {
	if err := prepare(migrations); err != nil {
		return err
	}
	return goose.Status(db, dir)
}

// RollbackMigration reverts the most recent migration.
func RollbackMigration(db *sql.DB, migrations fs.FS, dir string) error {
	if err := prepare(migrations); err != nil {
		return err
	}
	if err := goose.Down(db, dir); err != nil {
		return fmt.Errorf("failed to roll back migration: %w", err)
	}
	return nil
}
