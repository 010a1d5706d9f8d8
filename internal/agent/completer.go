package agent

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/jobscout/jobscout/internal/llm"
	"github.com/jobscout/jobscout/internal/tools"
)

// Completer answers provider-neutral completion requests. Requests that
// permit web search run through the tool-calling agent loop when a search
// tool is registered; everything else goes straight to the chat API.
type Completer struct {
	client        *llm.Client
	registry      *tools.Registry
	maxIterations int
	logger        zerolog.Logger
}

// NewCompleter creates a completer backed by the given client and tool
// registry. The registry may be empty, in which case every request is
// answered without tools.
func NewCompleter(client *llm.Client, registry *tools.Registry, logger zerolog.Logger) *Completer {
	if registry == nil {
		registry = tools.NewRegistry()
	}
	return &Completer{
		client:        client,
		registry:      registry,
		maxIterations: 10,
		logger:        logger,
	}
}

// SetMaxIterations caps the tool-calling loop. Values below one are ignored.
func (c *Completer) SetMaxIterations(n int) {
	if n > 0 {
		c.maxIterations = n
	}
}

// Complete runs one completion and returns the model's final text answer.
func (c *Completer) Complete(ctx context.Context, req llm.Request) (string, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	if req.WebSearch && c.registry.Count() > 0 {
		a := NewLLMAgent(c.client, c.registry, c.maxIterations, c.logger)
		result, err := a.Execute(ctx, AgentRequest{
			SystemPrompt: req.System,
			UserMessage:  req.Prompt,
		})
		if err != nil {
			return "", err
		}
		c.logger.Debug().
			Int("iterations", result.Iterations).
			Int("tool_calls", len(result.ToolCalls)).
			Msg("agent completion finished")
		return result.Content, nil
	}

	return c.client.SimpleChat(ctx, req.Prompt, req.System)
}
