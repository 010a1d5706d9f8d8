package events

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/jobscout/jobscout/internal/pipeline"
)

// RunsChannel carries one JSON run report per finished pipeline run.
const RunsChannel = "jobscout.runs"

// Publisher pushes run reports to Redis. It satisfies pipeline.Notifier.
type Publisher struct {
	client *redis.Client
	logger zerolog.Logger
}

// NewPublisher wraps client; nil is allowed and silences the publisher.
func NewPublisher(client *redis.Client, logger zerolog.Logger) *Publisher {
	return &Publisher{client: client, logger: logger}
}

// RunFinished publishes the report. Failures are logged and swallowed: a
// run that committed must not look failed because a notification did not
// go out.
func (p *Publisher) RunFinished(ctx context.Context, report *pipeline.RunReport) {
	if p == nil || p.client == nil {
		return
	}
	payload, err := json.Marshal(report)
	if err != nil {
		p.logger.Warn().Err(err).Msg("encode run report")
		return
	}
	if err := p.client.Publish(ctx, RunsChannel, payload).Err(); err != nil {
		p.logger.Warn().Err(err).Str("channel", RunsChannel).Msg("publish run report failed")
	}
}
