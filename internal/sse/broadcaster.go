package sse

import (
	"context"
	"sync"

	"event-in/internal/notify"
)

// Broadcaster fans changes out to the connected stream clients.
type Broadcaster struct {
	clients     map[chan notify.Change]struct{}
	clientMutex sync.RWMutex
	buffer      int
	closed      bool
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		clients: make(map[chan notify.Change]struct{}),
		buffer:  10,
	}
}

// Subscribe registers a client until ctx is done; the channel is closed then.
func (b *Broadcaster) Subscribe(ctx context.Context) <-chan notify.Change {
	clientChan := make(chan notify.Change, b.buffer)

	b.clientMutex.Lock()
	if b.closed {
		b.clientMutex.Unlock()
		close(clientChan)
		return clientChan
	}
	b.clients[clientChan] = struct{}{}
	b.clientMutex.Unlock()

	go func() {
		<-ctx.Done()
		b.remove(clientChan)
	}()

	return clientChan
}

// Notify never blocks: a client whose buffer is full misses the change.
func (b *Broadcaster) Notify(_ context.Context, change notify.Change) error {
	b.clientMutex.RLock()
	defer b.clientMutex.RUnlock()

	for clientChan := range b.clients {
		select {
		case clientChan <- change:
		default:
		}
	}
	return nil
}

func (b *Broadcaster) remove(clientChan chan notify.Change) {
	b.clientMutex.Lock()
	defer b.clientMutex.Unlock()

	if _, ok := b.clients[clientChan]; ok {
		delete(b.clients, clientChan)
		close(clientChan)
	}
}

// Close disconnects every client and refuses new ones. Used on shutdown so
// open streams do not hold the server.
func (b *Broadcaster) Close() {
	b.clientMutex.Lock()
	defer b.clientMutex.Unlock()

	b.closed = true
	for clientChan := range b.clients {
		delete(b.clients, clientChan)
		close(clientChan)
	}
}

// ClientCount returns the number of connected clients.
func (b *Broadcaster) ClientCount() int {
	b.clientMutex.RLock()
	defer b.clientMutex.RUnlock()
	return len(b.clients)
}
