package models

import "time"

// NotificationRecord is a window notification queued on the persisted
// channel used by mobile consoles. Consumers mark rows delivered.
type NotificationRecord struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	Title       string `gorm:"size:256;not null"`
	Body        string `gorm:"type:text"`
	Image       string `gorm:"type:text"`
	Delivered   bool   `gorm:"default:false;index"`
	CreatedAt   time.Time
	DeliveredAt *time.Time
}
