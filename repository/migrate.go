package repository

import (
	"fmt"

	"github.com/amirphl/docflow/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Models lists every table owned by the engine, parents before children
func Models() []any {
	return []any{
		&models.Client{},
		&models.Document{},
		&models.DocumentLine{},
		&models.SequenceCounter{},
		&models.DocumentTracking{},
		&models.DocumentView{},
		&models.SignatureRequest{},
		&models.Task{},
		&models.Lead{},
		&models.AuditLog{},
	}
}

// Migrate creates or updates the schema of every engine table
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// GormConfig returns the settings every engine connection opens with. Driver errors
// are translated so unique violations surface as gorm.ErrDuplicatedKey.
func GormConfig(l logger.Interface) *gorm.Config {
	return &gorm.Config{
		Logger:         l,
		TranslateError: true,
	}
}
