// Package events routes inbound real-time socket events into the chat
// store and the notification dispatcher.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/zulandar/chatsync/internal/grouping"
	"github.com/zulandar/chatsync/internal/models"
	"github.com/zulandar/chatsync/internal/notify"
	"github.com/zulandar/chatsync/internal/store"
)

// Event names handled by the Router. The backend uses plural domains; the
// singular forms are accepted as aliases.
const (
	EventRoomMessage     = "rooms.message.create"
	EventDiscussionMsg   = "discussions.message.create"
	EventNoteCreate      = "rooms.internal_note.create"
	EventNoteDelete      = "rooms.internal_note.delete"
	EventAgentDisconnect = "custom_status.agent.disconnect"
)

const defaultMediaPlaceholder = "Sent a media file"

var aliases = map[string]string{
	"room.message.create":       EventRoomMessage,
	"discussion.message.create": EventDiscussionMsg,
	"room.internal_note.create": EventNoteCreate,
	"room.internal_note.delete": EventNoteDelete,
}

// Envelope is the socket frame: {"event": "<domain>.<entity>.<action>", "content": {...}}.
type Envelope struct {
	Event   string          `json:"event"`
	Content json.RawMessage `json:"content"`
}

// Notifier raises sound and window cues. *notify.Dispatcher satisfies it.
type Notifier interface {
	Notify(ctx context.Context, sound, window bool, n notify.Notification)
}

// StatusSink records agent status transitions. *store.Store satisfies it.
type StatusSink interface {
	SetAgentStatus(email, status string)
}

// Opts configures a Router.
type Opts struct {
	Store      *store.Store
	Notifier   Notifier // optional
	Identity   *models.UserRef
	Visibility notify.Visibility // nil means hidden
	Statuses   StatusSink        // defaults to Store
	// MediaPlaceholder is the notification body for media-only messages.
	MediaPlaceholder string
	Out              io.Writer // defaults to os.Stdout
}

type handlerFunc func(ctx context.Context, content json.RawMessage) error

// Router dispatches envelopes to per-event handlers.
type Router struct {
	store            *store.Store
	notifier         Notifier
	identity         models.UserRef
	visibility       notify.Visibility
	statuses         StatusSink
	mediaPlaceholder string
	out              io.Writer
	handlers         map[string]handlerFunc
}

// NewRouter creates a Router.
func NewRouter(opts Opts) (*Router, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("events: store is required")
	}
	if opts.Identity == nil || opts.Identity.Email == "" {
		return nil, fmt.Errorf("events: identity is required")
	}
	r := &Router{
		store:            opts.Store,
		notifier:         opts.Notifier,
		identity:         *opts.Identity,
		visibility:       opts.Visibility,
		statuses:         opts.Statuses,
		mediaPlaceholder: opts.MediaPlaceholder,
		out:              opts.Out,
	}
	if r.statuses == nil {
		r.statuses = opts.Store
	}
	if r.mediaPlaceholder == "" {
		r.mediaPlaceholder = defaultMediaPlaceholder
	}
	if r.out == nil {
		r.out = os.Stdout
	}
	r.handlers = map[string]handlerFunc{
		EventRoomMessage:     r.handleMessage(models.KindRoom),
		EventDiscussionMsg:   r.handleMessage(models.KindDiscussion),
		EventNoteCreate:      r.handleNoteCreate,
		EventNoteDelete:      r.handleNoteDelete,
		EventAgentDisconnect: r.handleDisconnect,
	}
	return r, nil
}

// Dispatch routes one envelope. Unknown events are ignored; malformed
// payloads are logged and dropped.
func (r *Router) Dispatch(ctx context.Context, env Envelope) {
	name := strings.TrimSpace(env.Event)
	if canonical, ok := aliases[name]; ok {
		name = canonical
	}
	h, ok := r.handlers[name]
	if !ok {
		fmt.Fprintf(r.out, "events: ignore %q\n", env.Event)
		return
	}
	if err := h(ctx, env.Content); err != nil {
		log.Printf("events: %s: %v", name, err)
	}
}

// Run dispatches envelopes from in until it is closed or ctx is done.
func (r *Router) Run(ctx context.Context, in <-chan Envelope) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case env, ok := <-in:
			if !ok {
				return nil
			}
			r.Dispatch(ctx, env)
		}
	}
}

func (r *Router) isSelf(email string) bool {
	return email != "" && strings.EqualFold(email, r.identity.Email)
}

func (r *Router) hidden() bool {
	return r.visibility == nil || r.visibility.Hidden()
}

// handleMessage handles message creation in rooms or discussions:
//  1. Own echo → ignore
//  2. Open container → insert into the timeline
//  3. Loaded but closed container → unread preview; rooms move to the top
//  4. Unknown container → ignore
func (r *Router) handleMessage(kind models.ContainerKind) handlerFunc {
	return func(ctx context.Context, content json.RawMessage) error {
		var msg models.Message
		if err := json.Unmarshal(content, &msg); err != nil {
			return fmt.Errorf("decode message: %w", err)
		}
		if msg.Container.IsZero() {
			return fmt.Errorf("message %s has no %s", msg.UUID, kind)
		}
		sender := msg.Sender()
		if !sender.IsContact && r.isSelf(sender.Email) {
			return nil
		}

		c := msg.Container
		switch {
		case r.store.IsActive(c):
			if msg.Status == "" {
				msg.Status = models.StatusSent
			}
			r.store.AddMessage(&msg, grouping.Options{})
		case r.store.Known(c):
			if !models.IsJSONObject(msg.Text) {
				r.store.AddPreview(c, models.Preview{
					UUID:      msg.UUID,
					Text:      msg.Text,
					CreatedOn: msg.CreatedOn,
				})
			}
			if c.Kind == models.KindRoom {
				r.store.MoveRoomToFront(c.UUID)
			}
		default:
			fmt.Fprintf(r.out, "events: ignore message %s for unknown %s\n", msg.UUID, c)
			return nil
		}

		r.notifyMessage(ctx, &msg, sender)
		return nil
	}
}

func (r *Router) notifyMessage(ctx context.Context, msg *models.Message, sender models.Sender) {
	if r.notifier == nil {
		return
	}
	n := notify.Notification{Title: sender.Name, Body: msg.Text}
	if models.IsJSONObject(n.Body) {
		n.Body = ""
	}
	if n.Body == "" && len(msg.Media) > 0 {
		n.Body = r.mediaPlaceholder
	}
	if len(msg.Media) > 0 {
		n.Image = msg.Media[0].URL
	}
	r.notifier.Notify(ctx, true, r.hidden(), n)
}

func (r *Router) handleNoteCreate(ctx context.Context, content json.RawMessage) error {
	var note models.InternalNote
	if err := json.Unmarshal(content, &note); err != nil {
		return fmt.Errorf("decode internal note: %w", err)
	}
	if note.UUID == "" {
		return fmt.Errorf("internal note has no uuid")
	}
	if note.User != nil && r.isSelf(note.User.Email) {
		return nil
	}
	active := r.store.Active()
	if active.Kind != models.KindRoom || active.UUID != note.Room {
		return nil
	}
	r.store.AddNote(&note)
	return nil
}

// handleNoteDelete removes the note and the chat message wrapping it.
func (r *Router) handleNoteDelete(ctx context.Context, content json.RawMessage) error {
	var ref struct {
		UUID string `json:"uuid"`
	}
	if err := json.Unmarshal(content, &ref); err != nil {
		return fmt.Errorf("decode internal note: %w", err)
	}
	if ref.UUID == "" {
		return fmt.Errorf("internal note has no uuid")
	}
	r.store.RemoveNote(ref.UUID)
	if _, ok := r.store.MessageWrappingNote(ref.UUID); ok {
		r.store.RemoveMessage(&models.Message{InternalNote: &models.NoteRef{UUID: ref.UUID}})
	}
	return nil
}

// handleDisconnect moves the named agent to OFFLINE. Only a non-empty
// string identifies an agent; null, false, 0 and "" are treated as absent.
func (r *Router) handleDisconnect(ctx context.Context, content json.RawMessage) error {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(content, &payload); err != nil {
		return fmt.Errorf("decode disconnect: %w", err)
	}
	raw, ok := payload["user_disconnected_agent"]
	if !ok {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("decode user_disconnected_agent: %w", err)
	}
	email, ok := v.(string)
	if !ok || email == "" {
		return nil
	}
	r.statuses.SetAgentStatus(email, models.AgentStatusOffline)
	fmt.Fprintf(r.out, "events: agent %s is %s\n", email, models.AgentStatusOffline)
	return nil
}
