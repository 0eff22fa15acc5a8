// Package journal records every transmit attempt of outbound messages so
// operators can inspect delivery history. It is diagnostic only.
package journal

import (
	"fmt"
	"log"
	"time"

	"github.com/zulandar/chatsync/internal/models"
	"gorm.io/gorm"
)

// Operations recorded in the journal.
const (
	OpSend        = "send"
	OpSendMedia   = "send_media"
	OpResend      = "resend"
	OpResendMedia = "resend_media"
)

// Journal writes DeliveryRecords through GORM.
type Journal struct {
	db  *gorm.DB
	now func() time.Time
}

// New creates a Journal backed by db.
func New(db *gorm.DB) (*Journal, error) {
	if db == nil {
		return nil, fmt.Errorf("journal: db is required")
	}
	return &Journal{db: db, now: time.Now}, nil
}

// Record stores the outcome of one transmit attempt. A nil sendErr means
// the message was sent. Read and write failures are logged, not returned,
// and a failed attempt count skips the write.
func (j *Journal) Record(msg *models.Message, op string, sendErr error) {
	if j == nil || msg == nil {
		return
	}
	rec := models.DeliveryRecord{
		MessageUUID:   msg.UUID,
		ContainerKind: string(msg.Container.Kind),
		ContainerUUID: msg.Container.UUID,
		Operation:     op,
		Outcome:       models.OutcomeSent,
		Attempt:       1,
		CreatedAt:     j.now(),
	}
	if sendErr != nil {
		rec.Outcome = models.OutcomeFailed
		rec.Error = sendErr.Error()
	}

	var prior int64
	err := j.db.Model(&models.DeliveryRecord{}).Where("message_uuid = ?", msg.UUID).Count(&prior).Error
	if err != nil {
		log.Printf("journal: count attempts %s: %v", msg.UUID, err)
		return
	}
	rec.Attempt = int(prior) + 1

	if err := j.db.Create(&rec).Error; err != nil {
		log.Printf("journal: record %s %s: %v", op, msg.UUID, err)
	}
}

// Rename moves the records of a temporary uuid to the server-issued uuid
// after reconciliation.
func (j *Journal) Rename(oldUUID, newUUID string) error {
	if j == nil || oldUUID == newUUID {
		return nil
	}
	err := j.db.Model(&models.DeliveryRecord{}).
		Where("message_uuid = ?", oldUUID).
		Update("message_uuid", newUUID).Error
	if err != nil {
		return fmt.Errorf("journal: rename %s: %w", oldUUID, err)
	}
	return nil
}

// History returns the records of one message, oldest first.
func (j *Journal) History(messageUUID string) ([]models.DeliveryRecord, error) {
	if messageUUID == "" {
		return nil, fmt.Errorf("journal: message uuid is required")
	}
	var recs []models.DeliveryRecord
	if err := j.db.Where("message_uuid = ?", messageUUID).
		Order("id ASC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("journal: history %s: %w", messageUUID, err)
	}
	return recs, nil
}

// Failures returns failed attempts recorded at or after since, newest first.
func (j *Journal) Failures(since time.Time, limit int) ([]models.DeliveryRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var recs []models.DeliveryRecord
	if err := j.db.Where("outcome = ? AND created_at >= ?", models.OutcomeFailed, since).
		Order("id DESC").Limit(limit).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("journal: failures: %w", err)
	}
	return recs, nil
}

// Container returns the latest records for one container, newest first.
func (j *Journal) Container(c models.Container, limit int) ([]models.DeliveryRecord, error) {
	if c.UUID == "" {
		return nil, fmt.Errorf("journal: container uuid is required")
	}
	if limit <= 0 {
		limit = 50
	}
	var recs []models.DeliveryRecord
	if err := j.db.Where("container_kind = ? AND container_uuid = ?", string(c.Kind), c.UUID).
		Order("id DESC").Limit(limit).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("journal: container %s: %w", c, err)
	}
	return recs, nil
}
