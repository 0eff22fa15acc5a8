package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/zulandar/chatsync/internal/models"
	"gorm.io/gorm"
)

// Persisted is the mobile notification channel: notifications are queued
// as NotificationRecord rows until a consumer marks them delivered.
type Persisted struct {
	db *gorm.DB
}

// NewPersisted creates a Persisted channel backed by db.
func NewPersisted(db *gorm.DB) (*Persisted, error) {
	if db == nil {
		return nil, fmt.Errorf("notify: db is required")
	}
	return &Persisted{db: db}, nil
}

// Deliver implements Channel.
func (p *Persisted) Deliver(ctx context.Context, n Notification) error {
	rec := models.NotificationRecord{
		Title: n.Title,
		Body:  n.Body,
		Image: n.Image,
	}
	if err := p.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("notify: queue notification: %w", err)
	}
	return nil
}

// Pending returns undelivered notifications, oldest first.
func (p *Persisted) Pending(ctx context.Context, limit int) ([]models.NotificationRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var recs []models.NotificationRecord
	if err := p.db.WithContext(ctx).Where("delivered = ?", false).
		Order("id ASC").Limit(limit).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("notify: pending notifications: %w", err)
	}
	return recs, nil
}

// MarkDelivered flags the notification with the given id as delivered.
func (p *Persisted) MarkDelivered(ctx context.Context, id uint) error {
	now := time.Now()
	result := p.db.WithContext(ctx).Model(&models.NotificationRecord{}).
		Where("id = ? AND delivered = ?", id, false).
		Updates(map[string]interface{}{"delivered": true, "delivered_at": now})
	if result.Error != nil {
		return fmt.Errorf("notify: mark delivered %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("notify: notification %d not found or already delivered", id)
	}
	return nil
}
