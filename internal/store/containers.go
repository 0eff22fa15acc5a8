package store

import (
	"github.com/zulandar/chatsync/internal/models"
)

// SetRooms replaces the loaded list of active rooms, in display order.
func (s *Store) SetRooms(uuids []string) {
	s.mu.Lock()
	s.rooms = append([]string(nil), uuids...)
	s.mu.Unlock()
}

// SetDiscussions replaces the loaded list of discussions.
func (s *Store) SetDiscussions(uuids []string) {
	s.mu.Lock()
	s.discussions = append([]string(nil), uuids...)
	s.mu.Unlock()
}

// Rooms returns the loaded rooms in display order.
func (s *Store) Rooms() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.rooms...)
}

// Discussions returns the loaded discussions.
func (s *Store) Discussions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.discussions...)
}

// Known reports whether c is in the loaded container lists.
func (s *Store) Known(c models.Container) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch c.Kind {
	case models.KindRoom:
		return indexOf(s.rooms, c.UUID) >= 0
	case models.KindDiscussion:
		return indexOf(s.discussions, c.UUID) >= 0
	}
	return false
}

// MoveRoomToFront reorders the active room list so uuid comes first.
// Unknown rooms are left alone.
func (s *Store) MoveRoomToFront(uuid string) bool {
	s.mu.Lock()
	i := indexOf(s.rooms, uuid)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	if i > 0 {
		copy(s.rooms[1:i+1], s.rooms[:i])
		s.rooms[0] = uuid
	}
	s.mu.Unlock()
	s.emit(Change{Kind: ChangeContainersMoved, Container: models.Container{Kind: models.KindRoom, UUID: uuid}})
	return true
}

func indexOf(list []string, v string) int {
	for i, x := range list {
		if x == v {
			return i
		}
	}
	return -1
}

// AddPreview appends an unread preview for a container that is not open.
func (s *Store) AddPreview(c models.Container, p models.Preview) {
	s.mu.Lock()
	s.previews[c] = append(s.previews[c], p)
	s.mu.Unlock()
	s.emit(Change{Kind: ChangePreviewAdded, Container: c, UUID: p.UUID})
}

// Previews returns the unread previews of c.
func (s *Store) Previews(c models.Container) []models.Preview {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Preview(nil), s.previews[c]...)
}

// AllPreviews returns a copy of every container's unread previews.
func (s *Store) AllPreviews() map[models.Container][]models.Preview {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[models.Container][]models.Preview, len(s.previews))
	for c, ps := range s.previews {
		out[c] = append([]models.Preview(nil), ps...)
	}
	return out
}

// ClearPreviews drops the unread previews of c.
func (s *Store) ClearPreviews(c models.Container) {
	s.mu.Lock()
	delete(s.previews, c)
	s.mu.Unlock()
}
