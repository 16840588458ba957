package websocket

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerDeliversToRegisteredClient(t *testing.T) {
	m := NewManager()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)

	client := &Client{UserID: "user-1", Send: make(chan []byte, 1)}
	m.Register <- client

	require.Eventually(t, func() bool {
		m.SendToUser("user-1", []byte("hello"))
		select {
		case msg := <-client.Send:
			return string(msg) == "hello"
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
}

func TestManagerDropUnregistersClient(t *testing.T) {
	m := NewManager()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)

	client := &Client{UserID: "user-1", Send: make(chan []byte, 1)}
	m.Register <- client
	m.Drop(client)

	require.Eventually(t, func() bool {
		m.mutex.RLock()
		defer m.mutex.RUnlock()
		_, ok := m.clients["user-1"]
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestManagerDropAfterShutdown(t *testing.T) {
	m := NewManager()
	ctx, cancel := context.WithCancel(context.Background())
	m.Start(ctx)

	client := &Client{UserID: "user-1", Send: make(chan []byte, 1)}
	m.Register <- client

	cancel()
	<-m.done

	// A read pump finishing during shutdown must not block on the
	// manager loop that already exited.
	released := make(chan struct{})
	go func() {
		m.Drop(client)
		close(released)
	}()

	select {
	case <-released:
	case <-time.After(time.Second):
		t.Fatal("Drop blocked after manager shutdown")
	}

	// Shutdown closed the send channel so the write pump exits too.
	_, open := <-client.Send
	assert.False(t, open)
}
