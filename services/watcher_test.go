package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherInvalidatesOnDiskChanges(t *testing.T) {
	fileStore, err := NewFileStore(t.TempDir(), testLogger())
	require.NoError(t, err)
	_, err = fileStore.AgentDir("6")
	require.NoError(t, err)

	cache := NewIndexCache(&fakeBuilder{}, testLogger())
	_, err = cache.Get(context.Background(), "6")
	require.NoError(t, err)
	require.Equal(t, 1, cache.Size())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	watcher := NewCorpusWatcher(fileStore, cache, testLogger())
	go watcher.Run(ctx)

	// Give the watcher a moment to register its watches before mutating.
	time.Sleep(200 * time.Millisecond)

	// Bypass the FileStore hook entirely: write straight to disk, the way an
	// rsync or editor would.
	path := filepath.Join(fileStore.BaseDir(), "6", "dropped.txt")
	require.NoError(t, os.WriteFile(path, []byte("out-of-band content"), 0o644))

	assert.Eventually(t, func() bool {
		return cache.Size() == 0
	}, 5*time.Second, 20*time.Millisecond)
}

func TestFirstSegment(t *testing.T) {
	assert.Equal(t, "6", firstSegment(filepath.Join("6", "doc.txt")))
	assert.Equal(t, "6", firstSegment("6"))
}
