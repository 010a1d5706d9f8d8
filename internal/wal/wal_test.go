package wal

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobscout/jobscout/internal/model"
)

func tempLog(t *testing.T) *Log {
	return New(filepath.Join(t.TempDir(), "recovery.jsonl"))
}

func TestAppendReadRoundTrip(t *testing.T) {
	l := tempLog(t)

	leads := []model.Lead{
		{Company: "Acme", Title: "Engineer", Link: "https://acme.example/jobs/1"},
		{Company: "Initech", Title: "SRE", Link: "https://initech.example/jobs/2", Location: "Remote"},
	}
	require.NoError(t, l.Append("golang berlin", leads, nil))
	require.NoError(t, l.Append("sre remote", nil, errors.New("search backend down")))

	entries, err := l.ReadAll()
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "golang berlin", entries[0].Query)
	assert.Equal(t, leads, entries[0].Jobs)
	assert.Empty(t, entries[0].Err)
	assert.WithinDuration(t, time.Now(), entries[0].At, 5*time.Second)

	assert.Equal(t, "sre remote", entries[1].Query)
	assert.Empty(t, entries[1].Jobs)
	assert.Equal(t, "search backend down", entries[1].Err)
}

func TestReadAllMissingFile(t *testing.T) {
	l := tempLog(t)

	entries, err := l.ReadAll()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestReadAllSkipsMalformedLines(t *testing.T) {
	l := tempLog(t)

	require.NoError(t, l.Append("first", []model.Lead{{Title: "a", Link: "https://x/1"}}, nil))

	// simulate a torn write in the middle of the log
	f, err := os.OpenFile(l.Path(), os.O_WRONLY|os.O_APPEND, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"query":"torn","at":"2024-` + "\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.NoError(t, l.Append("second", nil, nil))

	entries, err := l.ReadAll()
	require.NoError(t, err)
	require.Len(t, entries, 2, "the torn line is dropped, the rest survive")
	assert.Equal(t, "first", entries[0].Query)
	assert.Equal(t, "second", entries[1].Query)
}

func TestReadAllToleratesTruncatedTail(t *testing.T) {
	l := tempLog(t)

	require.NoError(t, l.Append("kept", nil, nil))

	// a crash mid-append leaves a partial trailing line with no newline
	f, err := os.OpenFile(l.Path(), os.O_WRONLY|os.O_APPEND, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"query":"half`)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	entries, err := l.ReadAll()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "kept", entries[0].Query)
}

func TestOneRecordPerLine(t *testing.T) {
	l := tempLog(t)

	require.NoError(t, l.Append("one", []model.Lead{{Title: "x", Link: "https://x/1"}}, nil))
	require.NoError(t, l.Append("two", nil, nil))

	raw, err := os.ReadFile(l.Path())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"query":"one"`)
	assert.Contains(t, lines[1], `"query":"two"`)
}

func TestClear(t *testing.T) {
	l := tempLog(t)

	require.NoError(t, l.Clear(), "clearing a log that never existed is fine")

	require.NoError(t, l.Append("one", nil, nil))
	require.NoError(t, l.Clear())

	_, err := os.Stat(l.Path())
	assert.True(t, errors.Is(err, os.ErrNotExist))

	entries, err := l.ReadAll()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAppendCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "recovery.jsonl")
	l := New(path)

	require.NoError(t, l.Append("one", nil, nil))

	entries, err := l.ReadAll()
	require.NoError(t, err)
	require.Len(t, entries, 1)
}
