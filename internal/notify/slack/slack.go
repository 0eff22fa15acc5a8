// Package slack relays desktop notifications to a Slack channel.
package slack

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	slackapi "github.com/slack-go/slack"
	"github.com/zulandar/chatsync/internal/notify"
)

// maxRetries is the max number of retries for rate-limited API calls.
const maxRetries = 3

// slackClient abstracts the Slack API methods we use, enabling test mocks.
type slackClient interface {
	PostMessage(channelID string, options ...slackapi.MsgOption) (string, string, error)
}

// Relay posts notifications as Slack attachments.
type Relay struct {
	client    slackClient
	channelID string
}

// RelayOpts holds parameters for creating a Slack Relay.
type RelayOpts struct {
	BotToken  string // xoxb-... Slack bot token
	ChannelID string
	// For testing: inject a mock client instead of the real Slack API.
	Client slackClient
}

// New creates a Slack Relay.
func New(opts RelayOpts) (*Relay, error) {
	if opts.Client == nil && opts.BotToken == "" {
		return nil, fmt.Errorf("slack: bot token is required")
	}
	if opts.ChannelID == "" {
		return nil, fmt.Errorf("slack: channel is required")
	}
	client := opts.Client
	if client == nil {
		client = slackapi.New(opts.BotToken)
	}
	return &Relay{client: client, channelID: opts.ChannelID}, nil
}

// Name implements notify.Sink.
func (r *Relay) Name() string { return "slack" }

// Send implements notify.Sink.
func (r *Relay) Send(ctx context.Context, n notify.Notification) error {
	options := buildMessageOptions(n)
	err := retryOnRateLimit(ctx, func() error {
		_, _, postErr := r.client.PostMessage(r.channelID, options...)
		return postErr
	})
	if err != nil {
		return fmt.Errorf("slack: post message: %w", err)
	}
	return nil
}

// buildMessageOptions renders a notification as a fallback text plus one
// attachment carrying the body and image.
func buildMessageOptions(n notify.Notification) []slackapi.MsgOption {
	att := slackapi.Attachment{
		Title:    n.Title,
		Text:     n.Body,
		ImageURL: n.Image,
		Fallback: n.Title,
	}
	return []slackapi.MsgOption{
		slackapi.MsgOptionText(n.Title, false),
		slackapi.MsgOptionAttachments(att),
	}
}

// retryOnRateLimit calls fn and retries on Slack rate limit errors,
// waiting for the advertised Retry-After or an exponential backoff.
func retryOnRateLimit(ctx context.Context, fn func() error) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		var rle *slackapi.RateLimitedError
		if !errors.As(err, &rle) {
			return err
		}
		if attempt == maxRetries {
			return err
		}

		wait := rle.RetryAfter
		if wait <= 0 {
			wait = time.Duration(math.Pow(2, float64(attempt))) * time.Second
		}
		log.Printf("slack: rate limited (attempt %d/%d), retrying in %v", attempt+1, maxRetries, wait)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil
}
