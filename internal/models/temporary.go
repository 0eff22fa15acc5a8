package models

import (
	"time"

	"github.com/google/uuid"
)

// NewTemporaryMessage builds a locally-authored message before the backend
// confirms it. The message gets a fresh uuid, the current time and the
// pending status. It has no side effects.
func NewTemporaryMessage(kind ContainerKind, containerUUID string, author *UserRef, text string, media []MediaAttachment) *Message {
	if media == nil {
		media = []MediaAttachment{}
	}
	var user *UserRef
	if author != nil {
		u := *author
		user = &u
	}
	return &Message{
		UUID:      uuid.NewString(),
		Text:      text,
		Media:     media,
		CreatedOn: time.Now().UTC().Format(time.RFC3339Nano),
		User:      user,
		Status:    StatusPending,
		Container: Container{Kind: kind, UUID: containerUUID},
	}
}
