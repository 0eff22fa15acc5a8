package store

import (
	"sync"
	"testing"
	"time"

	"github.com/zulandar/chatsync/internal/grouping"
	"github.com/zulandar/chatsync/internal/models"
)

var room1 = models.Container{Kind: models.KindRoom, UUID: "room-1"}

func newTestStore() *Store {
	return New(grouping.New(time.UTC))
}

func roomMsg(uuid string) *models.Message {
	return &models.Message{UUID: uuid, CreatedOn: "2024-01-01T10:30:00Z", Container: room1}
}

// changeRecorder collects changes delivered to a subscriber.
type changeRecorder struct {
	mu      sync.Mutex
	changes []Change
}

func (r *changeRecorder) record(c Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, c)
}

func (r *changeRecorder) kinds() []ChangeKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ChangeKind, len(r.changes))
	for i, c := range r.changes {
		out[i] = c.Kind
	}
	return out
}

func TestAddMessage_RequiresActiveContainer(t *testing.T) {
	s := newTestStore()
	if s.AddMessage(roomMsg("m1"), grouping.Options{}) {
		t.Fatal("AddMessage with no active container = true, want false")
	}

	s.SetActive(models.Container{Kind: models.KindRoom, UUID: "other"})
	if s.AddMessage(roomMsg("m1"), grouping.Options{}) {
		t.Fatal("AddMessage for inactive container = true, want false")
	}

	s.SetActive(room1)
	if !s.AddMessage(roomMsg("m1"), grouping.Options{}) {
		t.Fatal("AddMessage for active container = false, want true")
	}
	if len(s.Messages()) != 1 || s.Tree().Len() != 1 {
		t.Errorf("messages=%d tree=%d, want 1/1", len(s.Messages()), s.Tree().Len())
	}
}

func TestAddMessage_DedupsFlatList(t *testing.T) {
	s := newTestStore()
	s.SetActive(room1)
	s.AddMessage(roomMsg("m1"), grouping.Options{})
	s.AddMessage(roomMsg("m1"), grouping.Options{})

	if got := len(s.Messages()); got != 1 {
		t.Errorf("len(Messages) = %d, want 1", got)
	}
	if got := s.Tree().Len(); got != 1 {
		t.Errorf("Tree().Len() = %d, want 1", got)
	}
}

func TestSetActive_ClearsState(t *testing.T) {
	s := newTestStore()
	s.SetActive(room1)
	s.AddMessage(roomMsg("m1"), grouping.Options{})
	s.MarkFailed("m1")
	s.AddNote(&models.InternalNote{UUID: "n1"})

	s.SetActive(models.Container{Kind: models.KindDiscussion, UUID: "d-1"})
	if len(s.Messages()) != 0 || s.Tree().Len() != 0 || len(s.Failed()) != 0 || len(s.Notes()) != 0 {
		t.Error("state of previous container not cleared")
	}
}

func TestUpdateMessage_KeepsSlotAndSharesRecord(t *testing.T) {
	s := newTestStore()
	s.SetActive(room1)
	s.AddMessage(roomMsg("tmp"), grouping.Options{})
	s.AddMessage(roomMsg("after"), grouping.Options{})

	ok := s.UpdateMessage("tmp", func(m *models.Message) {
		m.UUID = "server-1"
		m.Status = models.StatusSent
	})
	if !ok {
		t.Fatal("UpdateMessage returned false")
	}

	msgs := s.Messages()
	if msgs[0].UUID != "server-1" || msgs[0].Status != models.StatusSent {
		t.Errorf("flat[0] = %+v, want reconciled", msgs[0])
	}
	tree := s.Tree().Messages()
	if tree[0].UUID != "server-1" {
		t.Errorf("tree[0] = %q, want server-1", tree[0].UUID)
	}
	if _, ok := s.Message("tmp"); ok {
		t.Error("old uuid still resolvable")
	}
}

func TestUpdateMessage_DropsDuplicateOfNewUUID(t *testing.T) {
	s := newTestStore()
	s.SetActive(room1)
	s.AddMessage(roomMsg("tmp"), grouping.Options{})
	s.AddMessage(roomMsg("server-1"), grouping.Options{})

	s.UpdateMessage("tmp", func(m *models.Message) { m.UUID = "server-1" })

	if got := len(s.Messages()); got != 1 {
		t.Errorf("len(Messages) = %d, want 1", got)
	}
	if got := s.Tree().Len(); got != 1 {
		t.Errorf("Tree().Len() = %d, want 1", got)
	}
}

func TestUpdateMessage_Missing(t *testing.T) {
	s := newTestStore()
	s.SetActive(room1)
	if s.UpdateMessage("nope", func(*models.Message) {}) {
		t.Error("UpdateMessage(nope) = true, want false")
	}
}

func TestMarkFailed(t *testing.T) {
	s := newTestStore()
	s.SetActive(room1)
	s.AddMessage(roomMsg("m1"), grouping.Options{})

	if !s.MarkFailed("m1") {
		t.Fatal("MarkFailed returned false")
	}
	s.MarkFailed("m1")

	failed := s.Failed()
	if len(failed) != 1 || failed[0].Status != models.StatusFailed {
		t.Fatalf("Failed() = %+v, want one failed message", failed)
	}
	if s.Tree().Len() != 1 {
		t.Error("failed message must stay in the tree")
	}

	s.ClearFailed("m1")
	if len(s.Failed()) != 0 {
		t.Error("ClearFailed did not remove the message")
	}
}

func TestInFlightSet(t *testing.T) {
	s := newTestStore()
	if !s.BeginSend("m1") {
		t.Fatal("first BeginSend = false")
	}
	if s.BeginSend("m1") {
		t.Fatal("second BeginSend = true, want false while in flight")
	}
	if !s.InFlight("m1") {
		t.Error("InFlight = false, want true")
	}
	s.EndSend("m1")
	if !s.BeginSend("m1") {
		t.Error("BeginSend after EndSend = false")
	}
}

func TestRemoveMessage_ByNote(t *testing.T) {
	s := newTestStore()
	s.SetActive(room1)
	wrapper := roomMsg("w1")
	wrapper.InternalNote = &models.NoteRef{UUID: "n1"}
	s.AddMessage(wrapper, grouping.Options{})
	s.AddMessage(roomMsg("keep"), grouping.Options{})

	if !s.RemoveMessage(&models.Message{InternalNote: &models.NoteRef{UUID: "n1"}}) {
		t.Fatal("RemoveMessage returned false")
	}
	msgs := s.Messages()
	if len(msgs) != 1 || msgs[0].UUID != "keep" {
		t.Errorf("Messages() = %v, want [keep]", msgs)
	}
	if s.Tree().Find("w1") != nil {
		t.Error("wrapper still in tree")
	}
}

func TestMoveRoomToFront(t *testing.T) {
	s := newTestStore()
	s.SetRooms([]string{"a", "b", "c"})

	if !s.MoveRoomToFront("c") {
		t.Fatal("MoveRoomToFront(c) = false")
	}
	got := s.Rooms()
	want := []string{"c", "a", "b"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Rooms() = %v, want %v", got, want)
		}
	}
	if s.MoveRoomToFront("zzz") {
		t.Error("MoveRoomToFront(unknown) = true")
	}
}

func TestKnown(t *testing.T) {
	s := newTestStore()
	s.SetRooms([]string{"r1"})
	s.SetDiscussions([]string{"d1"})

	tests := []struct {
		c    models.Container
		want bool
	}{
		{models.Container{Kind: models.KindRoom, UUID: "r1"}, true},
		{models.Container{Kind: models.KindDiscussion, UUID: "d1"}, true},
		{models.Container{Kind: models.KindRoom, UUID: "d1"}, false},
		{models.Container{Kind: "other", UUID: "r1"}, false},
	}
	for _, tt := range tests {
		if got := s.Known(tt.c); got != tt.want {
			t.Errorf("Known(%v) = %v, want %v", tt.c, got, tt.want)
		}
	}
}

func TestPreviews(t *testing.T) {
	s := newTestStore()
	c := models.Container{Kind: models.KindRoom, UUID: "r2"}
	s.AddPreview(c, models.Preview{UUID: "p1", Text: "hi"})
	s.AddPreview(c, models.Preview{UUID: "p2", Text: "there"})

	if got := len(s.Previews(c)); got != 2 {
		t.Fatalf("len(Previews) = %d, want 2", got)
	}
	s.SetActive(c)
	if got := len(s.Previews(c)); got != 0 {
		t.Errorf("opening the container should clear previews, got %d", got)
	}
}

func TestNotes(t *testing.T) {
	s := newTestStore()
	s.SetActive(room1)
	if !s.AddNote(&models.InternalNote{UUID: "n1", Text: "vip"}) {
		t.Fatal("AddNote = false")
	}
	if s.AddNote(&models.InternalNote{UUID: "n1"}) {
		t.Error("duplicate AddNote = true")
	}
	if !s.RemoveNote("n1") {
		t.Error("RemoveNote(n1) = false")
	}
	if s.RemoveNote("n1") {
		t.Error("second RemoveNote(n1) = true")
	}
}

func TestSubscribe(t *testing.T) {
	s := newTestStore()
	rec := &changeRecorder{}
	unsubscribe := s.Subscribe(rec.record)

	s.SetActive(room1)
	s.AddMessage(roomMsg("m1"), grouping.Options{})
	s.UpdateMessage("m1", func(m *models.Message) { m.Text = "edited" })
	s.MarkFailed("m1")

	want := []ChangeKind{ChangeActive, ChangeMessageAdded, ChangeMessageUpdated, ChangeMessageFailed}
	got := rec.kinds()
	if len(got) != len(want) {
		t.Fatalf("changes = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("changes[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	unsubscribe()
	s.RemoveMessage(&models.Message{UUID: "m1"})
	if len(rec.kinds()) != len(want) {
		t.Error("received change after unsubscribe")
	}
}

func TestSnapshotsAreCopies(t *testing.T) {
	s := newTestStore()
	s.SetActive(room1)
	s.AddMessage(roomMsg("m1"), grouping.Options{})

	snap := s.Messages()
	snap[0].Text = "mutated"
	tree := s.Tree()
	tree.Dates[0].Minutes[0].Messages[0].Text = "mutated too"

	m, _ := s.Message("m1")
	if m.Text != "" {
		t.Errorf("store message mutated through snapshot: %q", m.Text)
	}
}

func TestAgentStatus(t *testing.T) {
	s := newTestStore()
	var rec changeRecorder
	s.Subscribe(rec.record)

	if _, ok := s.AgentStatus("a@x.com"); ok {
		t.Fatal("unexpected status before any update")
	}
	s.SetAgentStatus("a@x.com", models.AgentStatusOffline)
	st, ok := s.AgentStatus("a@x.com")
	if !ok || st != "OFFLINE" {
		t.Errorf("AgentStatus = %q, %v; want OFFLINE, true", st, ok)
	}
	if got := s.AgentStatuses(); len(got) != 1 {
		t.Errorf("AgentStatuses = %v", got)
	}
	kinds := rec.kinds()
	if len(kinds) != 1 || kinds[0] != ChangeAgentStatus {
		t.Errorf("changes = %v", kinds)
	}
}
