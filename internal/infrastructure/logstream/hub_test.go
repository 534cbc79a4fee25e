package logstream

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_BroadcastsToAllSubscribers(t *testing.T) {
	hub := NewHub(4)

	a, cancelA := hub.Subscribe()
	defer cancelA()
	b, cancelB := hub.Subscribe()
	defer cancelB()

	n, err := hub.Write([]byte("hello\n"))
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	for _, ch := range []<-chan []byte{a, b} {
		select {
		case line := <-ch:
			assert.Equal(t, "hello\n", string(line))
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive line")
		}
	}
}

func TestHub_WriteCopiesBuffer(t *testing.T) {
	hub := NewHub(1)
	ch, cancel := hub.Subscribe()
	defer cancel()

	buf := []byte("first")
	_, _ = hub.Write(buf)
	copy(buf, "XXXXX")

	assert.Equal(t, "first", string(<-ch))
}

func TestHub_SlowSubscriberDropsLines(t *testing.T) {
	hub := NewHub(1)
	ch, cancel := hub.Subscribe()
	defer cancel()

	_, _ = hub.Write([]byte("one"))
	_, _ = hub.Write([]byte("two")) // buffer full, dropped

	assert.Equal(t, "one", string(<-ch))
	select {
	case line := <-ch:
		t.Fatalf("unexpected line %q", line)
	default:
	}
}

func TestHub_CancelUnsubscribes(t *testing.T) {
	hub := NewHub(0)
	ch, cancel := hub.Subscribe()
	assert.Equal(t, 1, hub.Subscribers())

	cancel()
	cancel() // idempotent

	assert.Equal(t, 0, hub.Subscribers())
	_, open := <-ch
	assert.False(t, open)

	_, err := hub.Write([]byte("after cancel"))
	assert.NoError(t, err)
}
