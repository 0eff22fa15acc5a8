// Package models defines the chat records shared by the synchronization
// engine: messages, media, containers and the journal tables.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ContainerKind names the two kinds of message timeline.
type ContainerKind string

const (
	KindRoom       ContainerKind = "room"
	KindDiscussion ContainerKind = "discussion"
)

// Valid reports whether k is a known container kind.
func (k ContainerKind) Valid() bool {
	return k == KindRoom || k == KindDiscussion
}

// Container identifies the room or discussion a message belongs to.
type Container struct {
	Kind ContainerKind `json:"kind"`
	UUID string        `json:"uuid"`
}

// IsZero reports whether the container carries no uuid.
func (c Container) IsZero() bool {
	return c.UUID == ""
}

func (c Container) String() string {
	return string(c.Kind) + ":" + c.UUID
}

// Status is the delivery state of a message.
type Status string

const (
	StatusPending Status = "pending" // created locally, not yet confirmed
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed" // eligible for resend
)

// UserRef is an agent reference as sent by the backend.
type UserRef struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	PhotoURL  string `json:"photo_url,omitempty"`
}

// ContactRef is an end-customer reference.
type ContactRef struct {
	UUID  string `json:"uuid"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// Sender is the merged view of a message author.
type Sender struct {
	Email     string
	Name      string
	IsContact bool
}

// NoteRef points at the internal note a chat message wraps.
type NoteRef struct {
	UUID string `json:"uuid"`
	Text string `json:"text,omitempty"`
}

// MediaAttachment is a file attached to a message. Before upload only
// Preview and File are set; a confirmed upload carries URL and ContentType.
type MediaAttachment struct {
	Preview     string `json:"preview,omitempty"`
	File        []byte `json:"-"`
	FileName    string `json:"file_name,omitempty"`
	URL         string `json:"url,omitempty"`
	ContentType string `json:"content_type,omitempty"`
}

// Uploaded reports whether the attachment has a server-confirmed URL.
func (m MediaAttachment) Uploaded() bool {
	return m.URL != ""
}

// Message is a single chat message in a room or discussion.
type Message struct {
	UUID           string            `json:"uuid"`
	Text           string            `json:"text"`
	Media          []MediaAttachment `json:"media"`
	CreatedOn      string            `json:"created_on"`
	User           *UserRef          `json:"user,omitempty"`
	Contact        *ContactRef       `json:"contact,omitempty"`
	Status         Status            `json:"status,omitempty"`
	Container      Container         `json:"-"`
	RepliedMessage *Message          `json:"replied_message,omitempty"`
	InternalNote   *NoteRef          `json:"internal_note,omitempty"`

	// Sending marks a resend in flight that the author started themselves.
	Sending bool `json:"-"`
}

// Sender merges the user and contact references into one shape.
func (m *Message) Sender() Sender {
	switch {
	case m.User != nil:
		name := strings.TrimSpace(m.User.FirstName + " " + m.User.LastName)
		if name == "" {
			name = m.User.Email
		}
		return Sender{Email: m.User.Email, Name: name}
	case m.Contact != nil:
		name := m.Contact.Name
		if name == "" {
			name = m.Contact.UUID
		}
		return Sender{Email: m.Contact.Email, Name: name, IsContact: true}
	}
	return Sender{}
}

// Clone returns a copy of m that shares no slices with the original.
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	c := *m
	if m.Media != nil {
		c.Media = make([]MediaAttachment, len(m.Media))
		copy(c.Media, m.Media)
	}
	if m.User != nil {
		u := *m.User
		c.User = &u
	}
	if m.Contact != nil {
		ct := *m.Contact
		c.Contact = &ct
	}
	if m.InternalNote != nil {
		n := *m.InternalNote
		c.InternalNote = &n
	}
	c.RepliedMessage = m.RepliedMessage.Clone()
	return &c
}

// wireMessage is the backend encoding of Message: the container is carried
// as a "room" or "discussion" key, either a bare uuid or an object.
type wireMessage struct {
	msgAlias
	Room       json.RawMessage `json:"room,omitempty"`
	Discussion json.RawMessage `json:"discussion,omitempty"`
}

type msgAlias Message

// MarshalJSON encodes the container under its kind key.
func (m Message) MarshalJSON() ([]byte, error) {
	w := wireMessage{msgAlias: msgAlias(m)}
	if w.Media == nil {
		w.Media = []MediaAttachment{}
	}
	if m.Container.UUID != "" {
		raw, err := json.Marshal(m.Container.UUID)
		if err != nil {
			return nil, err
		}
		switch m.Container.Kind {
		case KindRoom:
			w.Room = raw
		case KindDiscussion:
			w.Discussion = raw
		}
	}
	return json.Marshal(w)
}

// UnmarshalJSON accepts "room"/"discussion" as a uuid string or an object
// with a uuid field.
func (m *Message) UnmarshalJSON(data []byte) error {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*m = Message(w.msgAlias)
	if uuid, err := containerUUID(w.Room); err != nil {
		return fmt.Errorf("models: room: %w", err)
	} else if uuid != "" {
		m.Container = Container{Kind: KindRoom, UUID: uuid}
	}
	if uuid, err := containerUUID(w.Discussion); err != nil {
		return fmt.Errorf("models: discussion: %w", err)
	} else if uuid != "" {
		m.Container = Container{Kind: KindDiscussion, UUID: uuid}
	}
	return nil
}

func containerUUID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var obj struct {
		UUID string `json:"uuid"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", err
	}
	return obj.UUID, nil
}

// IsJSONObject reports whether text is a well-formed JSON object. Such
// texts are structured payloads, not human-readable messages.
func IsJSONObject(text string) bool {
	t := strings.TrimSpace(text)
	if !strings.HasPrefix(t, "{") {
		return false
	}
	var v map[string]any
	return json.Unmarshal([]byte(t), &v) == nil
}

// Preview is the lightweight record kept for unread messages in a
// container that is not open.
type Preview struct {
	UUID      string `json:"uuid"`
	Text      string `json:"text"`
	CreatedOn string `json:"created_on"`
}

// InternalNote is an agent-only note attached to a room.
type InternalNote struct {
	UUID      string   `json:"uuid"`
	Text      string   `json:"text"`
	CreatedOn string   `json:"created_on"`
	User      *UserRef `json:"user,omitempty"`
	Room      string   `json:"room,omitempty"`
}
