package db

import (
	"fmt"

	"github.com/zulandar/memeyard/internal/config"
	"github.com/zulandar/memeyard/internal/models"
	"gorm.io/gorm"
)

// AllModels returns every GORM model for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Submission{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}

// Open connects to the configured database and migrates it. For MySQL the
// database itself is created first when missing.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	if cfg.Driver == "mysql" {
		admin, err := ConnectAdmin(cfg)
		if err != nil {
			return nil, err
		}
		err = CreateDatabase(admin, cfg.Name)
		Close(admin)
		if err != nil {
			return nil, err
		}
	}

	db, err := Connect(cfg)
	if err != nil {
		return nil, err
	}
	if err := AutoMigrate(db); err != nil {
		Close(db)
		return nil, err
	}
	return db, nil
}
