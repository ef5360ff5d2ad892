package queue

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type event struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

func TestInMemory_PublishConsume(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewInMemory(4)
	msg, err := NewMessage(TypeNotification, event{ID: "n1", Text: "Registered"})
	require.NoError(t, err)
	require.NoError(t, q.Publish(ctx, msg))

	ch, err := q.Consume(ctx)
	require.NoError(t, err)

	select {
	case got := <-ch:
		assert.Equal(t, TypeNotification, got.Type)
		var e event
		require.NoError(t, got.Decode(&e))
		assert.Equal(t, event{ID: "n1", Text: "Registered"}, e)
	case <-time.After(time.Second):
		t.Fatal("no message")
	}

	cancel()
	for range ch {
	}
}

func TestInMemory_PublishHonorsContext(t *testing.T) {
	q := NewInMemory(1)
	require.NoError(t, q.Publish(context.Background(), Message{Type: "x"}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Publish(ctx, Message{Type: "x"}), context.DeadlineExceeded)
}

func TestRedisQueue(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	key := "contesthub:test:" + t.Name()
	defer client.Del(context.Background(), key)

	q := NewRedisQueue(client, key)
	q.wait = 100 * time.Millisecond
	msg, err := NewMessage(TypeNotification, event{ID: "n2"})
	require.NoError(t, err)
	require.NoError(t, q.Publish(ctx, msg))

	ch, err := q.Consume(ctx)
	require.NoError(t, err)
	got := <-ch
	var e event
	require.NoError(t, got.Decode(&e))
	assert.Equal(t, "n2", e.ID)

	cancel()
	for range ch {
	}
}
