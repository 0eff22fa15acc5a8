// Package notify delivers sound cues and window notifications for inbound
// chat activity. Delivery failures never reach the caller: they are logged
// and dropped.
package notify

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
)

// Notification is the payload of a window notification.
type Notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Image string `json:"image,omitempty"`
}

// Context selects the window notification route.
type Context string

const (
	// ContextDesktop publishes on the in-process message bus.
	ContextDesktop Context = "desktop"
	// ContextMobile queues rows on the persisted notification channel.
	ContextMobile Context = "mobile"
)

// Visibility reports whether the console is out of view.
type Visibility interface {
	Hidden() bool
}

// VisibilityState is a Visibility toggled by the embedding process.
type VisibilityState struct {
	hidden atomic.Bool
}

// NewVisibility returns a VisibilityState starting as hidden or visible.
func NewVisibility(hidden bool) *VisibilityState {
	v := &VisibilityState{}
	v.hidden.Store(hidden)
	return v
}

// Hidden implements Visibility.
func (v *VisibilityState) Hidden() bool { return v.hidden.Load() }

// SetHidden records a visibility change.
func (v *VisibilityState) SetHidden(hidden bool) { v.hidden.Store(hidden) }

// SoundPlayer plays the short audio cue for new activity.
type SoundPlayer interface {
	Play(ctx context.Context) error
}

// Channel carries window notifications to the console.
type Channel interface {
	Deliver(ctx context.Context, n Notification) error
}

// Opts configures a Dispatcher.
type Opts struct {
	Context    Context    // defaults to ContextDesktop
	Visibility Visibility // nil means always hidden
	Sound      SoundPlayer
	Desktop    Channel // required for ContextDesktop
	Mobile     Channel // required for ContextMobile
}

// Dispatcher decides which cues to raise for an event.
type Dispatcher struct {
	sound      SoundPlayer
	visibility Visibility
	channel    Channel
	context    Context
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(opts Opts) (*Dispatcher, error) {
	if opts.Context == "" {
		opts.Context = ContextDesktop
	}
	d := &Dispatcher{
		sound:      opts.Sound,
		visibility: opts.Visibility,
		context:    opts.Context,
	}
	switch opts.Context {
	case ContextDesktop:
		if opts.Desktop == nil {
			return nil, fmt.Errorf("notify: desktop channel is required")
		}
		d.channel = opts.Desktop
	case ContextMobile:
		if opts.Mobile == nil {
			return nil, fmt.Errorf("notify: mobile channel is required")
		}
		d.channel = opts.Mobile
	default:
		return nil, fmt.Errorf("notify: unknown context %q", opts.Context)
	}
	return d, nil
}

// Notify plays the sound cue when sound is set and raises a window
// notification when window is set and the console is hidden.
func (d *Dispatcher) Notify(ctx context.Context, sound, window bool, n Notification) {
	if sound && d.sound != nil {
		if err := d.sound.Play(ctx); err != nil {
			log.Printf("notify: play sound: %v", err)
		}
	}
	if !window || !d.Hidden() {
		return
	}
	if err := d.channel.Deliver(ctx, n); err != nil {
		log.Printf("notify: deliver %s notification %q: %v", d.context, n.Title, err)
	}
}

// Hidden reports whether window notifications would currently be raised.
func (d *Dispatcher) Hidden() bool {
	return d.visibility == nil || d.visibility.Hidden()
}
