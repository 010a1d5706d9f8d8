package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONArray(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "bare array",
			input: `[{"company": "Acme"}]`,
			want:  `[{"company": "Acme"}]`,
		},
		{
			name:  "prose around array",
			input: "Here are the results I found:\n```json\n[1, 2, 3]\n```\nLet me know if you need more.",
			want:  "[1, 2, 3]",
		},
		{
			name:  "nested arrays keep outermost brackets",
			input: `The data: [["a"], ["b"]] as requested`,
			want:  `[["a"], ["b"]]`,
		},
		{
			name:    "no array",
			input:   "I could not find any results.",
			wantErr: true,
		},
		{
			name:    "only opening bracket",
			input:   "Partial output: [1, 2",
			wantErr: true,
		},
		{
			name:    "empty input",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSONArray(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "bare object",
			input: `{"relevant": true}`,
			want:  `{"relevant": true}`,
		},
		{
			name:  "markdown fenced object",
			input: "Sure! Here is my assessment:\n```json\n{\"relevant\": false, \"reason\": \"stale posting\"}\n```",
			want:  `{"relevant": false, "reason": "stale posting"}`,
		},
		{
			name:    "no object",
			input:   "yes",
			wantErr: true,
		},
		{
			name:    "closing brace before opening",
			input:   "} oops {",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSONObject(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeJSONArray(t *testing.T) {
	type lead struct {
		Company string `json:"company"`
		Title   string `json:"title"`
	}

	reply := "Found two openings:\n" +
		`[{"company": "Acme", "title": "Go Developer"}, {"company": "Initech", "title": "Backend Engineer"}]` +
		"\nBoth look recent."

	leads, err := DecodeJSONArray[lead](reply)
	require.NoError(t, err)
	require.Len(t, leads, 2)
	assert.Equal(t, "Acme", leads[0].Company)
	assert.Equal(t, "Backend Engineer", leads[1].Title)

	// Malformed JSON inside the brackets surfaces a decode error
	_, err = DecodeJSONArray[lead](`[{"company": }]`)
	assert.Error(t, err)

	// No brackets at all surfaces an extraction error
	_, err = DecodeJSONArray[lead]("no jobs found")
	assert.Error(t, err)
}
