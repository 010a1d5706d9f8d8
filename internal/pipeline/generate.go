package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/jobscout/jobscout/internal/llm"
)

// GenerateQueries asks the model for up to count fresh search queries
// based on the profile background. Nothing is persisted; the caller
// decides what to keep.
func (p *Pipeline) GenerateQueries(ctx context.Context, count int) ([]string, error) {
	if count <= 0 {
		count = 5
	}
	if strings.TrimSpace(p.background) == "" {
		return nil, fmt.Errorf("profile background is empty")
	}
	text, err := p.completer.Complete(ctx, llm.Request{
		System: generateSystem,
		Prompt: generatePrompt(p.background, count),
	})
	if err != nil {
		return nil, fmt.Errorf("generate queries: %w", err)
	}
	raw, err := llm.DecodeJSONArray[string](text)
	if err != nil {
		return nil, fmt.Errorf("parse generated queries: %w", err)
	}
	queries := make([]string, 0, len(raw))
	for _, q := range raw {
		q = strings.TrimSpace(q)
		if q != "" {
			queries = append(queries, q)
		}
	}
	if len(queries) > count {
		queries = queries[:count]
	}
	return queries, nil
}
