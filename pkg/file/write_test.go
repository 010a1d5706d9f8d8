package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.json")

	require.NoError(t, WriteAtomic(path, []byte(`{"v":1}`), 0o644))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"v":1}`, string(raw))

	// Overwrites replace the previous content completely.
	require.NoError(t, WriteAtomic(path, []byte(`2`), 0o644))
	raw, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `2`, string(raw))

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "doc.json", entries[0].Name())
}

func TestWriteAtomicMissingDir(t *testing.T) {
	err := WriteAtomic(filepath.Join(t.TempDir(), "nope", "doc.json"), []byte("x"), 0o644)
	require.Error(t, err)
}
