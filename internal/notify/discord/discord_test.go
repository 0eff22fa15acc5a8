package discord

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/zulandar/chatsync/internal/notify"
)

// mockSession records sends and returns queued errors.
type mockSession struct {
	mu   sync.Mutex
	sent []*discordgo.MessageSend
	errs []error
}

func (m *mockSession) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, data)
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		return nil, err
	}
	return &discordgo.Message{ID: "1", ChannelID: channelID}, nil
}

func rateLimited() error {
	return &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusTooManyRequests}}
}

func newTestRelay(sess *mockSession) *Relay {
	r, _ := New(RelayOpts{ChannelID: "chan-1", Session: sess})
	r.baseBackoff = time.Millisecond
	return r
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(RelayOpts{ChannelID: "c"}); err == nil {
		t.Error("expected error without bot token")
	}
	if _, err := New(RelayOpts{Session: &mockSession{}}); err == nil {
		t.Error("expected error without channel")
	}
}

func TestSend_BuildsEmbed(t *testing.T) {
	sess := &mockSession{}
	r := newTestRelay(sess)

	err := r.Send(context.Background(), notify.Notification{Title: "Ana", Body: "hi", Image: "https://x/a.png"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(sess.sent) != 1 {
		t.Fatalf("sent = %d, want 1", len(sess.sent))
	}
	embed := sess.sent[0].Embeds[0]
	if embed.Title != "Ana" || embed.Description != "hi" {
		t.Errorf("embed = %q/%q", embed.Title, embed.Description)
	}
	if embed.Image == nil || embed.Image.URL != "https://x/a.png" {
		t.Errorf("embed image = %+v", embed.Image)
	}
}

func TestSend_NoImage(t *testing.T) {
	data := buildMessageSend(notify.Notification{Title: "t"})
	if data.Embeds[0].Image != nil {
		t.Error("image should be nil when notification has none")
	}
}

func TestSend_RetriesRateLimit(t *testing.T) {
	sess := &mockSession{errs: []error{rateLimited(), rateLimited()}}
	r := newTestRelay(sess)

	if err := r.Send(context.Background(), notify.Notification{Title: "t"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(sess.sent) != 3 {
		t.Errorf("attempts = %d, want 3", len(sess.sent))
	}
}

func TestSend_GivesUpAfterMaxRetries(t *testing.T) {
	sess := &mockSession{errs: []error{rateLimited(), rateLimited(), rateLimited(), rateLimited()}}
	r := newTestRelay(sess)

	if err := r.Send(context.Background(), notify.Notification{Title: "t"}); err == nil {
		t.Fatal("expected error")
	}
	if len(sess.sent) != maxRetries+1 {
		t.Errorf("attempts = %d, want %d", len(sess.sent), maxRetries+1)
	}
}

func TestSend_NonRateLimitError(t *testing.T) {
	boom := errors.New("missing access")
	sess := &mockSession{errs: []error{boom}}
	r := newTestRelay(sess)

	if err := r.Send(context.Background(), notify.Notification{Title: "t"}); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want missing access", err)
	}
	if len(sess.sent) != 1 {
		t.Errorf("attempts = %d, want 1", len(sess.sent))
	}
}
