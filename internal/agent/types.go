package agent

// AgentRequest describes one task for the agent
type AgentRequest struct {
	// SystemPrompt sets the behavioral context for the run
	SystemPrompt string

	// UserMessage is the task to carry out
	UserMessage string

	// MaxIterations caps the number of tool-calling rounds.
	// Zero uses the agent default.
	MaxIterations int
}

// AgentResult is the outcome of one agent run
type AgentResult struct {
	// Content is the final text answer
	Content string

	// ToolCalls records every tool invocation made along the way
	ToolCalls []ToolCallRecord

	// Iterations is the number of LLM calls made
	Iterations int
}

// ToolCallRecord records a single tool call and its result
type ToolCallRecord struct {
	// ToolName is the tool that was invoked
	ToolName string

	// Arguments is the raw JSON passed to the tool
	Arguments string

	// Result is the tool output handed back to the model
	Result string

	// IsError indicates the tool reported a failure
	IsError bool
}
