package services

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFileStore(t *testing.T) *FileStore {
	t.Helper()
	fs, err := NewFileStore(t.TempDir(), testLogger())
	require.NoError(t, err)
	return fs
}

func TestFileStoreEmptyAgentIsValid(t *testing.T) {
	fs := newTestFileStore(t)

	files, err := fs.List("fresh-agent")
	require.NoError(t, err)
	assert.Equal(t, []string{}, files)
	assert.False(t, fs.HasDocuments("fresh-agent"))
}

func TestFileStoreSaveListDelete(t *testing.T) {
	fs := newTestFileStore(t)

	_, err := fs.Save("6", "b.txt", []byte("second"))
	require.NoError(t, err)
	path, err := fs.Save("6", "a.txt", []byte("first"))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))

	files, err := fs.List("6")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.txt"}, files)
	assert.True(t, fs.HasDocuments("6"))

	require.NoError(t, fs.Delete("6", "a.txt"))
	files, err = fs.List("6")
	require.NoError(t, err)
	assert.Equal(t, []string{"b.txt"}, files)
}

func TestFileStoreIsolatesAgents(t *testing.T) {
	fs := newTestFileStore(t)

	_, err := fs.Save("6", "doc.txt", []byte("for six"))
	require.NoError(t, err)

	files, err := fs.List("7")
	require.NoError(t, err)
	assert.Empty(t, files)
	assert.Equal(t, []string{"6"}, fs.AgentIDs())
}

func TestFileStoreRejectsTraversal(t *testing.T) {
	fs := newTestFileStore(t)

	// Path segments are stripped to their base name, so the write stays
	// inside the agent directory.
	path, err := fs.Save("6", "../../etc/passwd", []byte("nope"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(fs.BaseDir(), "6", "passwd"), path)

	_, err = fs.Save("6", "", []byte("x"))
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = fs.Save("", "f.txt", []byte("x"))
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestFileStoreMutationHook(t *testing.T) {
	fs := newTestFileStore(t)

	var invalidated []string
	fs.OnMutate(func(agentID string) { invalidated = append(invalidated, agentID) })

	_, err := fs.Save("6", "doc.txt", []byte("content"))
	require.NoError(t, err)
	require.NoError(t, fs.Delete("6", "doc.txt"))

	assert.Equal(t, []string{"6", "6"}, invalidated)
}
