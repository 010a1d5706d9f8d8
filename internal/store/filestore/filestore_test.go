package filestore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobscout/jobscout/internal/store"
	"github.com/jobscout/jobscout/internal/store/storetest"
)

func TestContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) (store.Store, func() store.Store) {
		dir := t.TempDir()
		s, err := Open(dir, "tester")
		require.NoError(t, err)
		reopen := func() store.Store {
			require.NoError(t, s.Close())
			s2, err := Open(dir, "tester")
			require.NoError(t, err)
			return s2
		}
		return s, reopen
	})
}

func TestDocumentOnDiskIsPlainJSON(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, "tester")
	require.NoError(t, err)

	_, err = s.Add(context.Background(), store.JobDraft{Company: "Acme", Title: "Engineer", Link: "https://acme.example/jobs/1"})
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(dir, "tester.json"))
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	jobs, ok := doc["jobs"].([]any)
	require.True(t, ok)
	require.Len(t, jobs, 1)

	first, ok := jobs[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Acme", first["company"])
	assert.Equal(t, "pending", first["status"])
}

func TestUsersDoNotShareDocuments(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	a, err := Open(dir, "alice")
	require.NoError(t, err)
	b, err := Open(dir, "bob")
	require.NoError(t, err)

	_, err = a.Add(ctx, store.JobDraft{Company: "Acme", Title: "Engineer", Link: "https://acme.example/jobs/1"})
	require.NoError(t, err)

	ok, err := b.HasLink(ctx, "https://acme.example/jobs/1")
	require.NoError(t, err)
	assert.False(t, ok)

	all, err := b.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestOpenCorruptDocument(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tester.json"), []byte("{not json"), 0o644))

	_, err := Open(dir, "tester")
	require.Error(t, err)
	assert.True(t, store.IsStorageError(err))
}

func TestOpenRequiresUser(t *testing.T) {
	_, err := Open(t.TempDir(), "")
	require.Error(t, err)
}
