// Package store holds the mutable chat state of the console: the open
// container's flat message list and grouped tree, failed and in-flight
// bookkeeping, internal notes, the loaded container lists and unread
// previews. Observers subscribe to change notifications.
package store

import (
	"sync"

	"github.com/zulandar/chatsync/internal/grouping"
	"github.com/zulandar/chatsync/internal/models"
)

// ChangeKind identifies what a Change describes.
type ChangeKind string

const (
	ChangeActive          ChangeKind = "active"
	ChangeMessageAdded    ChangeKind = "message_added"
	ChangeMessageUpdated  ChangeKind = "message_updated"
	ChangeMessageRemoved  ChangeKind = "message_removed"
	ChangeMessageFailed   ChangeKind = "message_failed"
	ChangeNoteAdded       ChangeKind = "note_added"
	ChangeNoteRemoved     ChangeKind = "note_removed"
	ChangePreviewAdded    ChangeKind = "preview_added"
	ChangeContainersMoved ChangeKind = "containers_moved"
	ChangeAgentStatus     ChangeKind = "agent_status"
)

// Change is delivered to subscribers after a mutation completes.
type Change struct {
	Kind      ChangeKind       `json:"kind"`
	Container models.Container `json:"container"`
	UUID      string           `json:"uuid,omitempty"`
}

// Store is the single owner of chat state. All methods are safe for
// concurrent use; subscribers are called outside the lock, in mutation
// order per goroutine.
type Store struct {
	engine *grouping.Engine

	mu       sync.Mutex
	active   models.Container
	messages []*models.Message
	tree     grouping.Tree
	failed   []*models.Message
	inFlight map[string]struct{}
	notes    []*models.InternalNote

	rooms       []string
	discussions []string
	previews    map[models.Container][]models.Preview
	statuses    map[string]string

	subMu   sync.Mutex
	subs    map[int]func(Change)
	nextSub int
}

// New creates an empty Store grouping messages with engine (nil means a
// local-time engine).
func New(engine *grouping.Engine) *Store {
	if engine == nil {
		engine = grouping.New(nil)
	}
	return &Store{
		engine:   engine,
		inFlight: make(map[string]struct{}),
		previews: make(map[models.Container][]models.Preview),
		statuses: make(map[string]string),
		subs:     make(map[int]func(Change)),
	}
}

// Subscribe registers fn for change notifications and returns a function
// that removes it.
func (s *Store) Subscribe(fn func(Change)) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()
	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) emit(changes ...Change) {
	if len(changes) == 0 {
		return
	}
	s.subMu.Lock()
	fns := make([]func(Change), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, c := range changes {
		for _, fn := range fns {
			fn(c)
		}
	}
}

// SetActive opens container c. The grouped tree, flat list, failed list
// and notes of the previous container are discarded, as are c's unread
// previews.
func (s *Store) SetActive(c models.Container) {
	s.mu.Lock()
	s.active = c
	s.messages = nil
	s.tree.Clear()
	s.failed = nil
	s.notes = nil
	delete(s.previews, c)
	s.mu.Unlock()
	s.emit(Change{Kind: ChangeActive, Container: c})
}

// Active returns the open container (zero if none).
func (s *Store) Active() models.Container {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// IsActive reports whether c is the open container.
func (s *Store) IsActive(c models.Container) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !c.IsZero() && s.active == c
}

// AddMessage inserts msg into the flat list and the grouped tree of the
// open container. Messages for another container are ignored and false is
// returned. The store takes ownership of msg.
func (s *Store) AddMessage(msg *models.Message, opts grouping.Options) bool {
	s.mu.Lock()
	if s.active.IsZero() || msg.Container != s.active {
		s.mu.Unlock()
		return false
	}
	s.insertFlat(msg, opts.AddBefore)
	s.engine.Insert(&s.tree, msg, opts)
	c := s.active
	s.mu.Unlock()
	s.emit(Change{Kind: ChangeMessageAdded, Container: c, UUID: msg.UUID})
	return true
}

func (s *Store) insertFlat(msg *models.Message, before bool) {
	for i, m := range s.messages {
		if m.UUID == msg.UUID {
			s.messages[i] = msg
			return
		}
	}
	if before {
		s.messages = append([]*models.Message{msg}, s.messages...)
	} else {
		s.messages = append(s.messages, msg)
	}
}

// UpdateMessage applies fn in place to the message with the given uuid.
// The flat list and the tree share the record, so the slot is kept. If fn
// changes the uuid, other copies carrying the new uuid are dropped. It
// reports false when the uuid is not in the open container.
func (s *Store) UpdateMessage(uuid string, fn func(*models.Message)) bool {
	s.mu.Lock()
	m := s.find(uuid)
	if m == nil {
		s.mu.Unlock()
		return false
	}
	fn(m)
	if m.UUID != uuid {
		s.dedupFlat(m)
		s.engine.Dedup(&s.tree, m)
	}
	c := s.active
	newUUID := m.UUID
	s.mu.Unlock()
	s.emit(Change{Kind: ChangeMessageUpdated, Container: c, UUID: newUUID})
	return true
}

func (s *Store) find(uuid string) *models.Message {
	for _, m := range s.messages {
		if m.UUID == uuid {
			return m
		}
	}
	return nil
}

func (s *Store) dedupFlat(keep *models.Message) {
	out := s.messages[:0]
	for _, m := range s.messages {
		if m != keep && m.UUID == keep.UUID {
			continue
		}
		out = append(out, m)
	}
	s.messages = out
}

// RemoveMessage removes msg (matched by uuid, or by wrapped internal note)
// from both the flat list and the tree.
func (s *Store) RemoveMessage(msg *models.Message) bool {
	s.mu.Lock()
	removedUUID := ""
	out := s.messages[:0]
	for _, m := range s.messages {
		if matches(m, msg) {
			removedUUID = m.UUID
			continue
		}
		out = append(out, m)
	}
	s.messages = out
	treeRemoved := s.engine.Remove(&s.tree, msg)
	c := s.active
	s.mu.Unlock()

	if removedUUID == "" && !treeRemoved {
		return false
	}
	s.emit(Change{Kind: ChangeMessageRemoved, Container: c, UUID: removedUUID})
	return true
}

func matches(m, target *models.Message) bool {
	if target.UUID != "" && m.UUID == target.UUID {
		return true
	}
	return target.InternalNote != nil && m.InternalNote != nil &&
		m.InternalNote.UUID == target.InternalNote.UUID
}

// Message returns a copy of the message with the given uuid.
func (s *Store) Message(uuid string) (*models.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.find(uuid)
	if m == nil {
		return nil, false
	}
	return m.Clone(), true
}

// Messages returns copies of the flat message list.
func (s *Store) Messages() []*models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Message, len(s.messages))
	for i, m := range s.messages {
		out[i] = m.Clone()
	}
	return out
}

// Tree returns a deep copy of the grouped tree.
func (s *Store) Tree() grouping.Tree {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out grouping.Tree
	for _, dg := range s.tree.Dates {
		ndg := &grouping.DateGroup{Date: dg.Date}
		for _, mg := range dg.Minutes {
			nmg := &grouping.MinuteGroup{Minute: mg.Minute}
			for _, m := range mg.Messages {
				nmg.Messages = append(nmg.Messages, m.Clone())
			}
			ndg.Minutes = append(ndg.Minutes, nmg)
		}
		out.Dates = append(out.Dates, ndg)
	}
	return out
}

// MarkFailed sets the message status to failed and records it in the
// failed list. The message stays in the tree.
func (s *Store) MarkFailed(uuid string) bool {
	s.mu.Lock()
	m := s.find(uuid)
	if m == nil {
		s.mu.Unlock()
		return false
	}
	m.Status = models.StatusFailed
	m.Sending = false
	if !containsPtr(s.failed, m) {
		s.failed = append(s.failed, m)
	}
	c := s.active
	s.mu.Unlock()
	s.emit(Change{Kind: ChangeMessageFailed, Container: c, UUID: uuid})
	return true
}

func containsPtr(list []*models.Message, m *models.Message) bool {
	for _, x := range list {
		if x == m {
			return true
		}
	}
	return false
}

// ClearFailed drops the message from the failed list.
func (s *Store) ClearFailed(uuid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.failed[:0]
	for _, m := range s.failed {
		if m.UUID == uuid {
			continue
		}
		out = append(out, m)
	}
	s.failed = out
}

// Failed returns copies of the failed messages.
func (s *Store) Failed() []*models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Message, len(s.failed))
	for i, m := range s.failed {
		out[i] = m.Clone()
	}
	return out
}

// BeginSend adds uuid to the in-flight set. It returns false if a send
// for uuid is already in flight.
func (s *Store) BeginSend(uuid string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[uuid]; busy {
		return false
	}
	s.inFlight[uuid] = struct{}{}
	return true
}

// EndSend removes uuid from the in-flight set.
func (s *Store) EndSend(uuid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, uuid)
}

// InFlight reports whether a send for uuid is in progress.
func (s *Store) InFlight(uuid string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.inFlight[uuid]
	return ok
}
