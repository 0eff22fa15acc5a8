package models

import "time"

// DeliveryRecord journals one transmit attempt of an outbound message or
// media item. The journal is diagnostic only; it is never replayed into
// the message store.
type DeliveryRecord struct {
	ID            uint   `gorm:"primaryKey;autoIncrement"`
	MessageUUID   string `gorm:"size:64;not null;index"`
	ContainerKind string `gorm:"size:16;not null;index:idx_delivery_container"`
	ContainerUUID string `gorm:"size:64;not null;index:idx_delivery_container"`
	Operation     string `gorm:"size:16;not null"`       // send, send_media, resend, resend_media
	Outcome       string `gorm:"size:16;not null;index"` // sent, failed
	Error         string `gorm:"type:text"`
	Attempt       int    `gorm:"default:1"`
	CreatedAt     time.Time
}

// Delivery outcomes.
const (
	OutcomeSent   = "sent"
	OutcomeFailed = "failed"
)
