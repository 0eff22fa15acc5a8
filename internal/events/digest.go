package events

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/robfig/cron/v3"
	"github.com/zulandar/chatsync/internal/models"
	"github.com/zulandar/chatsync/internal/notify"
	"github.com/zulandar/chatsync/internal/store"
)

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// FailureSource lists failed delivery attempts. *journal.Journal satisfies it.
type FailureSource interface {
	Failures(since time.Time, limit int) ([]models.DeliveryRecord, error)
}

// DigestOpts configures a Digest.
type DigestOpts struct {
	Store    *store.Store
	Notifier Notifier
	Failures FailureSource // optional
	Schedule string        // 5-field cron expression
	Out      io.Writer     // defaults to os.Stdout
	Now      func() time.Time
}

// Digest periodically summarizes unread previews and failed deliveries
// into a single window notification.
type Digest struct {
	store    *store.Store
	notifier Notifier
	failures FailureSource
	schedule cron.Schedule
	out      io.Writer
	now      func() time.Time
	since    time.Time
}

// NewDigest creates a Digest.
func NewDigest(opts DigestOpts) (*Digest, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("events: digest: store is required")
	}
	if opts.Notifier == nil {
		return nil, fmt.Errorf("events: digest: notifier is required")
	}
	sched, err := cronParser.Parse(opts.Schedule)
	if err != nil {
		return nil, fmt.Errorf("events: digest: schedule %q: %w", opts.Schedule, err)
	}
	d := &Digest{
		store:    opts.Store,
		notifier: opts.Notifier,
		failures: opts.Failures,
		schedule: sched,
		out:      opts.Out,
		now:      opts.Now,
	}
	if d.out == nil {
		d.out = os.Stdout
	}
	if d.now == nil {
		d.now = time.Now
	}
	d.since = d.now().Add(-24 * time.Hour)
	return d, nil
}

// Next returns the next fire time after from.
func (d *Digest) Next(from time.Time) time.Time {
	return d.schedule.Next(from)
}

// Build returns the digest notification, or nil when there is nothing
// unread and no failed delivery since the previous digest.
func (d *Digest) Build() (*notify.Notification, error) {
	previews := d.store.AllPreviews()
	containers := make([]models.Container, 0, len(previews))
	unread := 0
	for c, ps := range previews {
		if len(ps) == 0 {
			continue
		}
		containers = append(containers, c)
		unread += len(ps)
	}
	sort.Slice(containers, func(i, j int) bool {
		return containers[i].String() < containers[j].String()
	})

	var failed []models.DeliveryRecord
	if d.failures != nil {
		var err error
		failed, err = d.failures.Failures(d.since, 100)
		if err != nil {
			return nil, fmt.Errorf("events: digest: %w", err)
		}
	}

	if unread == 0 && len(failed) == 0 {
		return nil, nil
	}

	var b strings.Builder
	for _, c := range containers {
		ps := previews[c]
		last := ps[len(ps)-1].Text
		fmt.Fprintf(&b, "%s: %d unread, last %q\n", c, len(ps), truncate(last, 60))
	}
	if len(failed) > 0 {
		fmt.Fprintf(&b, "%d failed deliveries awaiting resend\n", len(failed))
	}

	return &notify.Notification{
		Title: fmt.Sprintf("%d unread messages in %d conversations", unread, len(containers)),
		Body:  strings.TrimRight(b.String(), "\n"),
	}, nil
}

// Send builds the digest and delivers it as a window notification.
func (d *Digest) Send(ctx context.Context) error {
	n, err := d.Build()
	if err != nil {
		return err
	}
	d.since = d.now()
	if n == nil {
		fmt.Fprintf(d.out, "events: digest: nothing to report\n")
		return nil
	}
	d.notifier.Notify(ctx, false, true, *n)
	fmt.Fprintf(d.out, "events: digest: %s\n", n.Title)
	return nil
}

// Run sends a digest at every scheduled time until ctx is done.
func (d *Digest) Run(ctx context.Context) error {
	for {
		wait := time.Until(d.Next(time.Now()))
		if wait < 0 {
			wait = 0
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		if err := d.Send(ctx); err != nil {
			fmt.Fprintf(d.out, "events: digest: %v\n", err)
		}
	}
}

// truncate returns s cut to maxLen runes with "..." appended if needed.
func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen]) + "..."
}
