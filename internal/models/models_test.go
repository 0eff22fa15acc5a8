package models

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
	"time"
)

// gormTag extracts the gorm tag from a struct field.
func gormTag(t *testing.T, typ reflect.Type, fieldName string) string {
	t.Helper()
	f, ok := typ.FieldByName(fieldName)
	if !ok {
		t.Fatalf("%s.%s: field not found", typ.Name(), fieldName)
	}
	return f.Tag.Get("gorm")
}

// assertGormTag checks that a struct field's gorm tag contains the expected value.
func assertGormTag(t *testing.T, typ reflect.Type, fieldName, expected string) {
	t.Helper()
	tag := gormTag(t, typ, fieldName)
	if !strings.Contains(tag, expected) {
		t.Errorf("%s.%s gorm tag = %q, want to contain %q", typ.Name(), fieldName, tag, expected)
	}
}

func TestDeliveryRecord_Fields(t *testing.T) {
	typ := reflect.TypeOf(DeliveryRecord{})

	assertGormTag(t, typ, "ID", "primaryKey")
	assertGormTag(t, typ, "ID", "autoIncrement")
	assertGormTag(t, typ, "MessageUUID", "index")
	assertGormTag(t, typ, "ContainerKind", "index:idx_delivery_container")
	assertGormTag(t, typ, "ContainerUUID", "index:idx_delivery_container")
	assertGormTag(t, typ, "Outcome", "index")
	assertGormTag(t, typ, "Error", "type:text")
}

func TestNotificationRecord_Fields(t *testing.T) {
	typ := reflect.TypeOf(NotificationRecord{})

	assertGormTag(t, typ, "ID", "primaryKey")
	assertGormTag(t, typ, "Title", "not null")
	assertGormTag(t, typ, "Delivered", "default:false")
	assertGormTag(t, typ, "Delivered", "index")
}

func TestNewTemporaryMessage(t *testing.T) {
	author := &UserRef{Email: "agent@x.com", FirstName: "Ana"}
	before := time.Now().Add(-time.Second)
	msg := NewTemporaryMessage(KindRoom, "room-1", author, "hello", nil)

	if msg.UUID == "" {
		t.Fatal("expected a generated uuid")
	}
	if msg.Status != StatusPending {
		t.Errorf("Status = %q, want %q", msg.Status, StatusPending)
	}
	if msg.Container != (Container{Kind: KindRoom, UUID: "room-1"}) {
		t.Errorf("Container = %+v", msg.Container)
	}
	if msg.Media == nil || len(msg.Media) != 0 {
		t.Errorf("Media = %v, want empty non-nil slice", msg.Media)
	}
	created, err := time.Parse(time.RFC3339Nano, msg.CreatedOn)
	if err != nil {
		t.Fatalf("CreatedOn %q not RFC3339: %v", msg.CreatedOn, err)
	}
	if created.Before(before) {
		t.Errorf("CreatedOn = %v, want >= %v", created, before)
	}
	if msg.User == author {
		t.Error("author reference should be copied, not shared")
	}

	other := NewTemporaryMessage(KindRoom, "room-1", author, "hello", nil)
	if other.UUID == msg.UUID {
		t.Error("two temporary messages share a uuid")
	}
}

func TestMessage_Sender(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want Sender
	}{
		{
			name: "user with full name",
			msg:  Message{User: &UserRef{Email: "a@x.com", FirstName: "Ana", LastName: "Lima"}},
			want: Sender{Email: "a@x.com", Name: "Ana Lima"},
		},
		{
			name: "user without name falls back to email",
			msg:  Message{User: &UserRef{Email: "a@x.com"}},
			want: Sender{Email: "a@x.com", Name: "a@x.com"},
		},
		{
			name: "contact",
			msg:  Message{Contact: &ContactRef{UUID: "c-1", Name: "Bob"}},
			want: Sender{Name: "Bob", IsContact: true},
		},
		{
			name: "contact without name",
			msg:  Message{Contact: &ContactRef{UUID: "c-1"}},
			want: Sender{Name: "c-1", IsContact: true},
		},
		{
			name: "no sender",
			msg:  Message{},
			want: Sender{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.msg.Sender(); got != tt.want {
				t.Errorf("Sender() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestIsJSONObject(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{`{"type":"button","payload":1}`, true},
		{`  {} `, true},
		{`[1,2]`, false},
		{`"quoted"`, false},
		{`{broken`, false},
		{`hello {world}`, false},
		{``, false},
	}
	for _, tt := range tests {
		if got := IsJSONObject(tt.text); got != tt.want {
			t.Errorf("IsJSONObject(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestMessage_UnmarshalContainer(t *testing.T) {
	var byString Message
	if err := json.Unmarshal([]byte(`{"uuid":"m1","text":"hi","room":"r-1"}`), &byString); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if byString.Container != (Container{Kind: KindRoom, UUID: "r-1"}) {
		t.Errorf("Container = %+v, want room r-1", byString.Container)
	}

	var byObject Message
	if err := json.Unmarshal([]byte(`{"uuid":"m2","discussion":{"uuid":"d-9","subject":"x"}}`), &byObject); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if byObject.Container != (Container{Kind: KindDiscussion, UUID: "d-9"}) {
		t.Errorf("Container = %+v, want discussion d-9", byObject.Container)
	}
}

func TestMessage_MarshalContainer(t *testing.T) {
	msg := Message{UUID: "m1", Container: Container{Kind: KindDiscussion, UUID: "d-1"}}
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(data)
	if !strings.Contains(s, `"discussion":"d-1"`) {
		t.Errorf("encoded = %s, want discussion key", s)
	}
	if strings.Contains(s, `"room"`) {
		t.Errorf("encoded = %s, should not carry room key", s)
	}
	if !strings.Contains(s, `"media":[]`) {
		t.Errorf("encoded = %s, want empty media array", s)
	}
}

func TestMessage_CloneIsIndependent(t *testing.T) {
	orig := &Message{
		UUID:  "m1",
		Media: []MediaAttachment{{Preview: "blob:1"}},
		User:  &UserRef{Email: "a@x.com"},
	}
	c := orig.Clone()
	c.Media[0].URL = "https://cdn/x.png"
	c.User.Email = "b@x.com"

	if orig.Media[0].URL != "" {
		t.Error("clone shares media slice with original")
	}
	if orig.User.Email != "a@x.com" {
		t.Error("clone shares user with original")
	}
}
