// Package events is the optional Redis side of jobscout: run reports
// published for anything that wants to watch (dashboards, notifiers), and
// a cross-process advisory lock so two daemons pointed at the same user
// cannot run the pipeline concurrently. Everything degrades to a no-op
// without a client, so deployments without Redis lose the extras and
// nothing else.
package events

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Connect parses a redis:// URL, connects and verifies the connection.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}
