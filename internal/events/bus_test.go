package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"crowdgov/internal/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *recorder) handle(_ context.Context, ev domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) seqs() []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]uint64, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Seq)
	}
	return out
}

func TestBus_DeliversInOrderToEverySubscriber(t *testing.T) {
	bus := NewBus(nil)
	a, b := &recorder{}, &recorder{}
	bus.Subscribe("a", 0, a.handle)
	bus.Subscribe("b", 0, b.handle)

	for seq := uint64(1); seq <= 50; seq++ {
		bus.Publish(domain.Event{Seq: seq, Type: domain.EventPledged})
	}
	require.NoError(t, bus.Close(context.Background()))

	want := make([]uint64, 0, 50)
	for seq := uint64(1); seq <= 50; seq++ {
		want = append(want, seq)
	}
	assert.Equal(t, want, a.seqs())
	assert.Equal(t, want, b.seqs())
	assert.Zero(t, bus.Dropped())
}

func TestBus_HandlerErrorDoesNotStopDelivery(t *testing.T) {
	bus := NewBus(nil)
	rec := &recorder{}
	bus.Subscribe("flaky", 0, func(ctx context.Context, ev domain.Event) error {
		_ = rec.handle(ctx, ev)
		if ev.Seq == 1 {
			return errors.New("boom")
		}
		return nil
	})

	bus.Publish(domain.Event{Seq: 1})
	bus.Publish(domain.Event{Seq: 2})
	require.NoError(t, bus.Close(context.Background()))

	assert.Equal(t, []uint64{1, 2}, rec.seqs())
}

func TestBus_FullBufferDrops(t *testing.T) {
	bus := NewBus(nil)
	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once
	bus.Subscribe("slow", 1, func(ctx context.Context, ev domain.Event) error {
		once.Do(func() { close(started) })
		<-release
		return nil
	})

	bus.Publish(domain.Event{Seq: 1})
	<-started
	bus.Publish(domain.Event{Seq: 2}) // buffered
	bus.Publish(domain.Event{Seq: 3}) // dropped

	assert.Equal(t, uint64(1), bus.Dropped())
	close(release)
	require.NoError(t, bus.Close(context.Background()))
}

func TestBus_PublishAfterCloseIsNoop(t *testing.T) {
	bus := NewBus(nil)
	rec := &recorder{}
	bus.Subscribe("rec", 0, rec.handle)
	require.NoError(t, bus.Close(context.Background()))

	bus.Publish(domain.Event{Seq: 1})
	bus.Subscribe("late", 0, rec.handle)
	assert.Empty(t, rec.seqs())

	// Closing twice is safe
	require.NoError(t, bus.Close(context.Background()))
}

func TestBus_CloseHonoursContext(t *testing.T) {
	bus := NewBus(nil)
	bus.Subscribe("ctx-aware", 0, func(ctx context.Context, ev domain.Event) error {
		<-ctx.Done()
		return ctx.Err()
	})
	bus.Publish(domain.Event{Seq: 1})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, bus.Close(ctx), context.DeadlineExceeded)
}

func TestBus_CloseDoesNotWaitForStuckHandler(t *testing.T) {
	bus := NewBus(nil)
	release := make(chan struct{})
	exited := make(chan struct{})
	bus.Subscribe("stuck", 0, func(context.Context, domain.Event) error {
		<-release
		return nil
	})
	bus.Publish(domain.Event{Seq: 1})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	go func() {
		assert.ErrorIs(t, bus.Close(ctx), context.DeadlineExceeded)
		close(exited)
	}()

	select {
	case <-exited:
	case <-time.After(2 * time.Second):
		t.Fatal("Close blocked on a handler that ignores its context")
	}

	close(release)
	require.NoError(t, bus.Close(context.Background()))
}

func TestTee(t *testing.T) {
	l1, l2 := NewLog(4), NewLog(4)
	Tee{l1, l2}.Publish(domain.Event{Seq: 7})
	assert.Equal(t, 1, l1.Len())
	assert.Equal(t, 1, l2.Len())
}
