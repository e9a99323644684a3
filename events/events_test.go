package events

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBus_Emit(t *testing.T) {
	bus := NewBus()

	received := make(chan Event, 1)
	bus.Subscribe(EventTypeRunLocked, func(ctx context.Context, e Event) {
		received <- e
	})

	var other atomic.Int32
	bus.Subscribe(EventTypeRunDrawn, func(ctx context.Context, e Event) {
		other.Add(1)
	})

	bus.Emit(context.Background(), RunLockedEvent{RunID: 11, TicketsLocked: 3})

	select {
	case e := <-received:
		locked := e.(RunLockedEvent)
		assert.Equal(t, int64(11), locked.RunID)
		assert.Equal(t, int64(3), locked.TicketsLocked)
	case <-time.After(time.Second):
		t.Fatal("handler never received the event")
	}
	assert.Equal(t, int32(0), other.Load())
}

func TestBus_EmitRecoversPanickingHandler(t *testing.T) {
	bus := NewBus()

	bus.Subscribe(EventTypeRunLocked, func(ctx context.Context, e Event) {
		panic("boom")
	})
	done := make(chan struct{})
	bus.Subscribe(EventTypeRunLocked, func(ctx context.Context, e Event) {
		close(done)
	})

	bus.Emit(context.Background(), RunLockedEvent{RunID: 11})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("second handler never ran")
	}
}

func TestTransactionalBus(t *testing.T) {
	t.Run("events stay pending until flush", func(t *testing.T) {
		real := NewBus()
		received := make(chan Event, 2)
		real.Subscribe(EventTypeWinnerPaid, func(ctx context.Context, e Event) {
			received <- e
		})

		txBus := NewTransactionalBus(real)
		txBus.Publish(WinnerPaidEvent{TicketID: 901})
		txBus.Publish(WinnerPaidEvent{TicketID: 902})

		select {
		case <-received:
			t.Fatal("event escaped before flush")
		case <-time.After(50 * time.Millisecond):
		}

		txBus.Flush(context.Background())
		for i := 0; i < 2; i++ {
			select {
			case <-received:
			case <-time.After(time.Second):
				t.Fatal("flushed event never arrived")
			}
		}
	})

	t.Run("discard drops pending events", func(t *testing.T) {
		real := NewBus()
		received := make(chan Event, 1)
		real.Subscribe(EventTypeWinnerPaid, func(ctx context.Context, e Event) {
			received <- e
		})

		txBus := NewTransactionalBus(real)
		txBus.Publish(WinnerPaidEvent{TicketID: 901})
		txBus.Discard()
		txBus.Flush(context.Background())

		select {
		case <-received:
			t.Fatal("discarded event was delivered")
		case <-time.After(50 * time.Millisecond):
		}
	})
}
