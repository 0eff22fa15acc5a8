package db

import (
	"fmt"

	"github.com/zulandar/chatsync/internal/models"
	"gorm.io/gorm"
)

// AllModels returns the GORM models stored in the journal database.
func AllModels() []interface{} {
	return []interface{}{
		&models.DeliveryRecord{},
		&models.NotificationRecord{},
	}
}

// AutoMigrate creates or updates all journal tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}
