// Package grouping maintains the Date→Minute→Message tree used to render a
// container timeline in chronological buckets and to deduplicate messages
// that arrive through both the optimistic path and the socket echo.
package grouping

import (
	"log"
	"time"

	"github.com/zulandar/chatsync/internal/models"
)

const (
	// DateLayout is the bucket key for a calendar day.
	DateLayout = "01/02/2006"
	// MinuteLayout is the bucket key for a minute within a day.
	MinuteLayout = "03:04 PM"
)

// inputLayouts are the created_on encodings accepted from the backend, in
// the order they are tried. Layouts without a zone use Engine.Location.
var inputLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// MinuteGroup holds the messages created within one minute, in insertion order.
type MinuteGroup struct {
	Minute   string            `json:"minute"`
	Messages []*models.Message `json:"messages"`
}

// DateGroup holds the minute buckets of one day, in insertion order.
type DateGroup struct {
	Date    string         `json:"date"`
	Minutes []*MinuteGroup `json:"minutes"`
}

// Tree is a container's grouped timeline. Groups are never re-sorted:
// new buckets go to the tail for live messages and to the head for
// backward pagination.
type Tree struct {
	Dates []*DateGroup `json:"dates"`
}

// Options controls a single insert.
type Options struct {
	// AddBefore prepends instead of appending; used for older pages.
	AddBefore bool
}

// Engine computes bucket keys and mutates trees. The zero value groups in
// the local time zone.
type Engine struct {
	Location *time.Location
	Now      func() time.Time
}

// New returns an Engine grouping in loc (nil means time.Local).
func New(loc *time.Location) *Engine {
	return &Engine{Location: loc}
}

func (e *Engine) loc() *time.Location {
	if e == nil || e.Location == nil {
		return time.Local
	}
	return e.Location
}

func (e *Engine) now() time.Time {
	if e != nil && e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// Keys returns the date and minute bucket keys for msg. A missing or
// unparseable created_on falls back to the current time.
func (e *Engine) Keys(msg *models.Message) (date, minute string) {
	ts, ok := parseCreatedOn(msg.CreatedOn, e.loc())
	if !ok {
		log.Printf("grouping: message %s has invalid created_on %q, using now", msg.UUID, msg.CreatedOn)
		ts = e.now()
	}
	ts = ts.In(e.loc())
	return ts.Format(DateLayout), ts.Format(MinuteLayout)
}

func parseCreatedOn(s string, loc *time.Location) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range inputLayouts {
		if ts, err := time.ParseInLocation(layout, s, loc); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// Insert places msg into its date/minute bucket, creating buckets as
// needed, then drops any other entry in that bucket with the same uuid.
func (e *Engine) Insert(tree *Tree, msg *models.Message, opts Options) {
	if tree == nil || msg == nil {
		return
	}
	date, minute := e.Keys(msg)

	dg := tree.date(date)
	if dg == nil {
		dg = &DateGroup{Date: date}
		if opts.AddBefore {
			tree.Dates = append([]*DateGroup{dg}, tree.Dates...)
		} else {
			tree.Dates = append(tree.Dates, dg)
		}
	}

	mg := dg.minute(minute)
	if mg == nil {
		mg = &MinuteGroup{Minute: minute}
		if opts.AddBefore {
			dg.Minutes = append([]*MinuteGroup{mg}, dg.Minutes...)
		} else {
			dg.Minutes = append(dg.Minutes, mg)
		}
	}

	if opts.AddBefore {
		mg.Messages = append([]*models.Message{msg}, mg.Messages...)
	} else {
		mg.Messages = append(mg.Messages, msg)
	}
	mg.dedup(msg)
}

// dedup keeps keep and removes every other entry sharing its uuid.
func (mg *MinuteGroup) dedup(keep *models.Message) {
	out := mg.Messages[:0]
	for _, m := range mg.Messages {
		if m != keep && m.UUID == keep.UUID {
			continue
		}
		out = append(out, m)
	}
	for i := len(out); i < len(mg.Messages); i++ {
		mg.Messages[i] = nil
	}
	mg.Messages = out
}

// Remove deletes the message whose uuid matches msg, or, when msg wraps an
// internal note, the message wrapping the same note. Empty buckets are
// pruned. It reports whether anything was removed.
func (e *Engine) Remove(tree *Tree, msg *models.Message) bool {
	if tree == nil || msg == nil {
		return false
	}
	noteUUID := ""
	if msg.InternalNote != nil {
		noteUUID = msg.InternalNote.UUID
	}
	return tree.removeWhere(func(m *models.Message) bool {
		if msg.UUID != "" && m.UUID == msg.UUID {
			return true
		}
		return noteUUID != "" && m.InternalNote != nil && m.InternalNote.UUID == noteUUID
	})
}

// Replace applies fn to the message with the given uuid in place, keeping
// its slot. It reports whether the uuid was found.
func (e *Engine) Replace(tree *Tree, uuid string, fn func(*models.Message)) bool {
	if tree == nil {
		return false
	}
	m := tree.Find(uuid)
	if m == nil {
		return false
	}
	fn(m)
	return true
}

// Find returns the message with the given uuid, or nil.
func (t Tree) Find(uuid string) *models.Message {
	for _, dg := range t.Dates {
		for _, mg := range dg.Minutes {
			for _, m := range mg.Messages {
				if m.UUID == uuid {
					return m
				}
			}
		}
	}
	return nil
}

// Messages flattens the tree in display order.
func (t Tree) Messages() []*models.Message {
	var out []*models.Message
	for _, dg := range t.Dates {
		for _, mg := range dg.Minutes {
			out = append(out, mg.Messages...)
		}
	}
	return out
}

// Len returns the number of messages in the tree.
func (t Tree) Len() int {
	n := 0
	for _, dg := range t.Dates {
		for _, mg := range dg.Minutes {
			n += len(mg.Messages)
		}
	}
	return n
}

// Clear empties the tree.
func (t *Tree) Clear() {
	t.Dates = nil
}

func (t *Tree) date(key string) *DateGroup {
	for _, dg := range t.Dates {
		if dg.Date == key {
			return dg
		}
	}
	return nil
}

func (dg *DateGroup) minute(key string) *MinuteGroup {
	for _, mg := range dg.Minutes {
		if mg.Minute == key {
			return mg
		}
	}
	return nil
}

func (t *Tree) removeWhere(match func(*models.Message) bool) bool {
	removed := false
	dates := t.Dates[:0]
	for _, dg := range t.Dates {
		minutes := dg.Minutes[:0]
		for _, mg := range dg.Minutes {
			msgs := mg.Messages[:0]
			for _, m := range mg.Messages {
				if match(m) {
					removed = true
					continue
				}
				msgs = append(msgs, m)
			}
			mg.Messages = msgs
			if len(mg.Messages) > 0 {
				minutes = append(minutes, mg)
			}
		}
		dg.Minutes = minutes
		if len(dg.Minutes) > 0 {
			dates = append(dates, dg)
		}
	}
	t.Dates = dates
	return removed
}

// Dedup removes every message other than keep that shares keep's uuid,
// anywhere in the tree. Used after a reconciliation changes a uuid.
func (e *Engine) Dedup(tree *Tree, keep *models.Message) {
	if tree == nil || keep == nil {
		return
	}
	tree.removeWhere(func(m *models.Message) bool {
		return m != keep && m.UUID == keep.UUID
	})
}
