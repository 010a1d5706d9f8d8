package events

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobscout/jobscout/internal/pipeline"
)

func TestNilClientIsNoop(t *testing.T) {
	ctx := context.Background()

	var pub *Publisher
	pub.RunFinished(ctx, &pipeline.RunReport{User: "tester"})
	NewPublisher(nil, zerolog.Nop()).RunFinished(ctx, &pipeline.RunReport{})

	lock := NewRunLock(nil, "tester", 0)
	require.NoError(t, lock.Acquire(ctx))
	require.NoError(t, lock.Release(ctx))

	var nilLock *RunLock
	require.NoError(t, nilLock.Acquire(ctx))
	require.NoError(t, nilLock.Release(ctx))
}

func TestConnectRejectsBadURL(t *testing.T) {
	_, err := Connect(context.Background(), "not-a-url")
	require.Error(t, err)
}

// Integration coverage needs a reachable Redis; set REDIS_URL to enable.
func TestRedisIntegration(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set, skipping Redis integration test")
	}
	ctx := context.Background()

	client, err := Connect(ctx, url)
	require.NoError(t, err)
	defer client.Close()

	t.Run("run lock excludes a second holder", func(t *testing.T) {
		first := NewRunLock(client, "integration-tester", time.Minute)
		second := NewRunLock(client, "integration-tester", time.Minute)

		require.NoError(t, first.Acquire(ctx))
		err := second.Acquire(ctx)
		require.ErrorIs(t, err, ErrLockHeld)

		// Releasing someone else's lock is a no-op.
		require.NoError(t, second.Release(ctx))
		err = second.Acquire(ctx)
		require.ErrorIs(t, err, ErrLockHeld)

		require.NoError(t, first.Release(ctx))
		require.NoError(t, second.Acquire(ctx))
		require.NoError(t, second.Release(ctx))
	})

	t.Run("run report reaches subscribers", func(t *testing.T) {
		pubsub := client.Subscribe(ctx, RunsChannel)
		defer pubsub.Close()
		_, err := pubsub.Receive(ctx)
		require.NoError(t, err)

		report := &pipeline.RunReport{User: "integration-tester", Committed: 3}
		NewPublisher(client, zerolog.Nop()).RunFinished(ctx, report)

		select {
		case msg := <-pubsub.Channel():
			var got pipeline.RunReport
			require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
			assert.Equal(t, "integration-tester", got.User)
			assert.Equal(t, 3, got.Committed)
		case <-time.After(5 * time.Second):
			t.Fatal("no run report received")
		}
	})
}
