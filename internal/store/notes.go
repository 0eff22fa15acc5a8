package store

import (
	"github.com/zulandar/chatsync/internal/models"
)

// SetNotes replaces the internal notes of the open room.
func (s *Store) SetNotes(notes []*models.InternalNote) {
	s.mu.Lock()
	s.notes = append([]*models.InternalNote(nil), notes...)
	s.mu.Unlock()
}

// AddNote appends an internal note unless one with the same uuid exists.
func (s *Store) AddNote(n *models.InternalNote) bool {
	s.mu.Lock()
	for _, x := range s.notes {
		if x.UUID == n.UUID {
			s.mu.Unlock()
			return false
		}
	}
	s.notes = append(s.notes, n)
	c := s.active
	s.mu.Unlock()
	s.emit(Change{Kind: ChangeNoteAdded, Container: c, UUID: n.UUID})
	return true
}

// RemoveNote drops the note with the given uuid from the notes list.
func (s *Store) RemoveNote(uuid string) bool {
	s.mu.Lock()
	found := false
	out := s.notes[:0]
	for _, n := range s.notes {
		if n.UUID == uuid {
			found = true
			continue
		}
		out = append(out, n)
	}
	s.notes = out
	c := s.active
	s.mu.Unlock()
	if found {
		s.emit(Change{Kind: ChangeNoteRemoved, Container: c, UUID: uuid})
	}
	return found
}

// Notes returns copies of the open room's internal notes.
func (s *Store) Notes() []models.InternalNote {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.InternalNote, len(s.notes))
	for i, n := range s.notes {
		out[i] = *n
	}
	return out
}

// MessageWrappingNote returns a copy of the open-chat message that wraps
// the given internal note.
func (s *Store) MessageWrappingNote(noteUUID string) (*models.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.messages {
		if m.InternalNote != nil && m.InternalNote.UUID == noteUUID {
			return m.Clone(), true
		}
	}
	return nil, false
}
