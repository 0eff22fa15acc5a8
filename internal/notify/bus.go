package notify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
)

// Sink is an external destination for desktop notifications.
type Sink interface {
	Name() string
	Send(ctx context.Context, n Notification) error
}

// Bus is the desktop message bus. Each notification is fanned out to
// every subscriber and relayed to every sink. A subscriber that is not
// keeping up misses notifications rather than blocking delivery.
type Bus struct {
	mu      sync.Mutex
	subs    map[int]chan Notification
	nextSub int
	sinks   []Sink
}

// NewBus creates a Bus relaying to sinks.
func NewBus(sinks ...Sink) *Bus {
	return &Bus{
		subs:  make(map[int]chan Notification),
		sinks: sinks,
	}
}

// AddSink registers another relay.
func (b *Bus) AddSink(s Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sinks = append(b.sinks, s)
}

// Subscribe returns a channel of notifications with the given buffer and
// a function that unsubscribes and closes it.
func (b *Bus) Subscribe(buffer int) (<-chan Notification, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Notification, buffer)
	b.mu.Lock()
	id := b.nextSub
	b.nextSub++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Deliver implements Channel. Sink failures are joined into the returned
// error after every sink has been tried.
func (b *Bus) Deliver(ctx context.Context, n Notification) error {
	b.mu.Lock()
	for _, ch := range b.subs {
		select {
		case ch <- n:
		default:
			log.Printf("notify: bus: subscriber full, dropping %q", n.Title)
		}
	}
	sinks := append([]Sink(nil), b.sinks...)
	b.mu.Unlock()

	var errs []error
	for _, s := range sinks {
		if err := s.Send(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}
