// Package events fans engine notifications out to subscribers and keeps a recent-event log.
package events

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"crowdgov/internal/domain"
	"crowdgov/pkg/logger"
)

// Publisher accepts engine events. Implementations must not block the caller for long
// and must not fail: sinks run after the operation has already taken effect.
type Publisher interface {
	Publish(ev domain.Event)
}

// Handler consumes one event on a subscriber goroutine
type Handler func(ctx context.Context, ev domain.Event) error

const defaultBuffer = 256

type subscriber struct {
	name    string
	ch      chan domain.Event
	handler Handler
}

// Bus delivers every published event to each subscriber in publish order.
// Each subscriber has its own goroutine and buffer; a full buffer drops the event.
type Bus struct {
	log *logger.Logger

	mu     sync.RWMutex
	subs   []*subscriber
	closed bool

	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	dropped atomic.Uint64
}

var _ Publisher = (*Bus)(nil)

func NewBus(log *logger.Logger) *Bus {
	if log == nil {
		log = logger.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Bus{log: log.Named("events"), ctx: ctx, cancel: cancel}
}

// Subscribe registers handler under name. buffer <= 0 selects the default size.
func (b *Bus) Subscribe(name string, buffer int, handler Handler) {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	s := &subscriber{name: name, ch: make(chan domain.Event, buffer), handler: handler}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.subs = append(b.subs, s)
	b.wg.Add(1)
	go b.run(s)
}

func (b *Bus) run(s *subscriber) {
	defer b.wg.Done()
	for ev := range s.ch {
		if err := s.handler(b.ctx, ev); err != nil {
			b.log.Warn("event handler failed",
				zap.String("subscriber", s.name),
				zap.String("event_type", string(ev.Type)),
				zap.Uint64("seq", ev.Seq),
				zap.Error(err))
		}
	}
}

// Publish enqueues ev for every subscriber. It never blocks.
func (b *Bus) Publish(ev domain.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, s := range b.subs {
		select {
		case s.ch <- ev:
		default:
			b.dropped.Add(1)
			b.log.Warn("event dropped, subscriber buffer full",
				zap.String("subscriber", s.name),
				zap.String("event_type", string(ev.Type)),
				zap.Uint64("seq", ev.Seq))
		}
	}
}

// Dropped is the number of deliveries lost to full buffers
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

// Close stops accepting events, drains every subscriber and waits for them.
// ctx bounds the wait: on expiry in-flight handlers see a cancelled context and
// Close returns without waiting for them to finish.
func (b *Bus) Close(ctx context.Context) error {
	b.mu.Lock()
	if !b.closed {
		b.closed = true
		for _, s := range b.subs {
			close(s.ch)
		}
	}
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.cancel()
		return nil
	case <-ctx.Done():
		b.cancel()
		return ctx.Err()
	}
}

// Tee publishes to each publisher in order
type Tee []Publisher

func (t Tee) Publish(ev domain.Event) {
	for _, p := range t {
		p.Publish(ev)
	}
}
