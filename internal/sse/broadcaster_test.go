package sse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"event-in/internal/notify"
)

func TestBroadcastToAllClients(t *testing.T) {
	b := NewBroadcaster()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first := b.Subscribe(ctx)
	second := b.Subscribe(ctx)
	assert.Equal(t, 2, b.ClientCount())

	change := notify.NewChange(notify.EventCreated, 1, nil)
	require.NoError(t, b.Notify(ctx, change))

	assert.Equal(t, change.ID, (<-first).ID)
	assert.Equal(t, change.ID, (<-second).ID)
}

func TestUnsubscribeOnCancel(t *testing.T) {
	b := NewBroadcaster()
	ctx, cancel := context.WithCancel(context.Background())

	ch := b.Subscribe(ctx)
	cancel()

	require.Eventually(t, func() bool { return b.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
	_, open := <-ch
	assert.False(t, open)

	// Notifying with nobody listening is fine.
	assert.NoError(t, b.Notify(context.Background(), notify.NewChange(notify.EventDeleted, 1, nil)))
}

func TestSlowClientDoesNotBlock(t *testing.T) {
	b := NewBroadcaster()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := b.Subscribe(ctx)

	done := make(chan struct{})
	go func() {
		for i := 0; i < b.buffer+5; i++ {
			_ = b.Notify(ctx, notify.NewChange(notify.EventUpdated, int64(i), nil))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked on a full client")
	}
	assert.Len(t, ch, b.buffer)
}

func TestClose(t *testing.T) {
	b := NewBroadcaster()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := b.Subscribe(ctx)
	b.Close()

	_, open := <-ch
	assert.False(t, open)
	assert.Zero(t, b.ClientCount())

	late := b.Subscribe(ctx)
	_, open = <-late
	assert.False(t, open, "subscribing after Close yields a closed channel")

	// The cancel goroutine must not double close.
	cancel()
	time.Sleep(10 * time.Millisecond)
}
