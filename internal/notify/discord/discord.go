// Package discord relays desktop notifications to a Discord channel.
package discord

import (
	"context"
	"fmt"
	"log"
	"math"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/zulandar/chatsync/internal/notify"
)

const (
	// maxRetries is the max number of retries for rate-limited API calls.
	maxRetries = 3
	// baseBackoff is the initial backoff for rate-limited calls.
	baseBackoff = time.Second
	// maxBackoff caps the rate-limit backoff.
	maxBackoff = 30 * time.Second
	// embedColor is the sidebar color of notification embeds.
	embedColor = 0x36a64f
)

// session abstracts the discordgo.Session methods we use, enabling test mocks.
type session interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Relay posts notifications as Discord embeds. Only the REST API is used,
// so no gateway connection is opened.
type Relay struct {
	sess        session
	channelID   string
	baseBackoff time.Duration
	maxBackoff  time.Duration
}

// RelayOpts holds parameters for creating a Discord Relay.
type RelayOpts struct {
	BotToken  string // Discord bot token
	ChannelID string
	// For testing: inject a mock session instead of the real Discord API.
	Session session
}

// New creates a Discord Relay.
func New(opts RelayOpts) (*Relay, error) {
	if opts.Session == nil && opts.BotToken == "" {
		return nil, fmt.Errorf("discord: bot token is required")
	}
	if opts.ChannelID == "" {
		return nil, fmt.Errorf("discord: channel is required")
	}
	sess := opts.Session
	if sess == nil {
		dg, err := discordgo.New("Bot " + opts.BotToken)
		if err != nil {
			return nil, fmt.Errorf("discord: create session: %w", err)
		}
		sess = dg
	}
	return &Relay{
		sess:        sess,
		channelID:   opts.ChannelID,
		baseBackoff: baseBackoff,
		maxBackoff:  maxBackoff,
	}, nil
}

// Name implements notify.Sink.
func (r *Relay) Name() string { return "discord" }

// Send implements notify.Sink.
func (r *Relay) Send(ctx context.Context, n notify.Notification) error {
	data := buildMessageSend(n)
	err := r.retryOnRateLimit(ctx, func() error {
		_, sendErr := r.sess.ChannelMessageSendComplex(r.channelID, data)
		return sendErr
	})
	if err != nil {
		return fmt.Errorf("discord: send message: %w", err)
	}
	return nil
}

// buildMessageSend renders a notification as a single embed.
func buildMessageSend(n notify.Notification) *discordgo.MessageSend {
	embed := &discordgo.MessageEmbed{
		Title:       n.Title,
		Description: n.Body,
		Color:       embedColor,
	}
	if n.Image != "" {
		embed.Image = &discordgo.MessageEmbedImage{URL: n.Image}
	}
	return &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{embed}}
}

// retryOnRateLimit calls fn and retries with exponential backoff on Discord
// rate limit errors. It respects context cancellation.
func (r *Relay) retryOnRateLimit(ctx context.Context, fn func() error) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		restErr, ok := err.(*discordgo.RESTError)
		if !ok || restErr.Response == nil || restErr.Response.StatusCode != http.StatusTooManyRequests {
			return err
		}
		if attempt == maxRetries {
			return err
		}

		wait := time.Duration(math.Pow(2, float64(attempt))) * r.baseBackoff
		if wait > r.maxBackoff {
			wait = r.maxBackoff
		}
		log.Printf("discord: rate limited (attempt %d/%d), retrying in %v", attempt+1, maxRetries, wait)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil
}
