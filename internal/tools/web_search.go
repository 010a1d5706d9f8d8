package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// WebSearchTool implements web search using Tavily API
type WebSearchTool struct {
	apiKey     string
	apiURL     string
	httpClient *http.Client
}

// WebSearchArgs represents the arguments for web search
type WebSearchArgs struct {
	Query      string   `json:"query"`
	Location   string   `json:"location,omitempty"`
	Sites      []string `json:"sites,omitempty"`
	MaxAgeDays int      `json:"max_age_days,omitempty"`
}

// TavilyRequest represents a request to Tavily API
type TavilyRequest struct {
	APIKey            string   `json:"api_key"`
	Query             string   `json:"query"`
	SearchDepth       string   `json:"search_depth,omitempty"`
	IncludeAnswer     bool     `json:"include_answer,omitempty"`
	IncludeRawContent bool     `json:"include_raw_content,omitempty"`
	MaxResults        int      `json:"max_results,omitempty"`
	IncludeDomains    []string `json:"include_domains,omitempty"`
	Days              int      `json:"days,omitempty"`
}

// TavilyResponse represents a response from Tavily API
type TavilyResponse struct {
	Query   string         `json:"query"`
	Answer  string         `json:"answer,omitempty"`
	Results []TavilyResult `json:"results"`
}

// TavilyResult represents a single search result
type TavilyResult struct {
	Title         string  `json:"title"`
	URL           string  `json:"url"`
	Content       string  `json:"content"`
	Score         float64 `json:"score"`
	PublishedDate string  `json:"published_date,omitempty"`
}

// NewWebSearchTool creates a new web search tool
func NewWebSearchTool(apiKey, apiURL string) *WebSearchTool {
	if apiURL == "" {
		apiURL = "https://api.tavily.com/search"
	}
	return &WebSearchTool{
		apiKey: apiKey,
		apiURL: apiURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (t *WebSearchTool) Name() string {
	return "web_search"
}

func (t *WebSearchTool) Description() string {
	return `Search the web for recently published job postings.
Use this tool to find:
- Open positions matching a role, stack, or seniority query
- Postings on specific job boards or company career pages
- Results published within the last day or week

Each result includes the posting title, its URL, a content snippet, and the
publication date when the source exposes one. Prefer narrow queries with a
role, a location, and a freshness limit over broad ones.`
}

func (t *WebSearchTool) Parameters() json.RawMessage {
	schema := `{
		"type": "object",
		"properties": {
			"query": {
				"type": "string",
				"description": "The search query for job postings. Include the role, key technologies, and seniority, e.g. 'senior golang backend engineer'."
			},
			"location": {
				"type": "string",
				"description": "City, country, or 'remote' to narrow results geographically (optional)"
			},
			"sites": {
				"type": "array",
				"items": {"type": "string"},
				"description": "Restrict results to these domains, e.g. job boards like 'linkedin.com' or 'weworkremotely.com' (optional)"
			},
			"max_age_days": {
				"type": "integer",
				"description": "Only return results published within this many days (optional, default unrestricted)"
			}
		},
		"required": ["query"]
	}`
	return json.RawMessage(schema)
}

func (t *WebSearchTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	var searchArgs WebSearchArgs
	if err := json.Unmarshal(args, &searchArgs); err != nil {
		return ToolResult{
			Content: fmt.Sprintf("Failed to parse search arguments: %v", err),
			IsError: true,
		}, nil
	}

	// Make the API request
	results, err := t.search(ctx, searchArgs)
	if err != nil {
		return ToolResult{
			Content: fmt.Sprintf("Search failed: %v", err),
			IsError: true,
		}, nil
	}

	// Format results
	content := t.formatResults(results)
	return ToolResult{
		Content: content,
		IsError: false,
	}, nil
}

func (t *WebSearchTool) buildQuery(args WebSearchArgs) string {
	query := args.Query
	if args.Location != "" {
		query = fmt.Sprintf("%s %s", query, args.Location)
	}
	return query
}

func (t *WebSearchTool) search(ctx context.Context, args WebSearchArgs) (*TavilyResponse, error) {
	request := TavilyRequest{
		APIKey:         t.apiKey,
		Query:          t.buildQuery(args),
		SearchDepth:    "basic",
		IncludeAnswer:  true,
		MaxResults:     5,
		IncludeDomains: args.Sites,
		Days:           args.MaxAgeDays,
	}

	jsonData, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", t.apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	var tavilyResp TavilyResponse
	if err := json.Unmarshal(body, &tavilyResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &tavilyResp, nil
}

func (t *WebSearchTool) formatResults(resp *TavilyResponse) string {
	var result bytes.Buffer

	result.WriteString(fmt.Sprintf("Search Query: %s\n\n", resp.Query))

	if resp.Answer != "" {
		result.WriteString(fmt.Sprintf("Summary: %s\n\n", resp.Answer))
	}

	if len(resp.Results) == 0 {
		result.WriteString("No results found.\n")
		return result.String()
	}

	result.WriteString("Search Results:\n")
	for i, r := range resp.Results {
		result.WriteString(fmt.Sprintf("\n%d. %s\n", i+1, r.Title))
		result.WriteString(fmt.Sprintf("   URL: %s\n", r.URL))
		if r.PublishedDate != "" {
			result.WriteString(fmt.Sprintf("   Published: %s\n", r.PublishedDate))
		}
		// Truncate content if too long
		content := r.Content
		if len(content) > 500 {
			content = content[:500] + "..."
		}
		result.WriteString(fmt.Sprintf("   Content: %s\n", content))
	}

	return result.String()
}
