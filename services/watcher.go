package services

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// CorpusWatcher invalidates cached indexes when an agent's documents change
// on disk outside the HTTP surface (rsync, manual copies, editors). API
// uploads and deletes already invalidate through the FileStore hook; the
// watcher closes the side door.
type CorpusWatcher struct {
	fileStore *FileStore
	cache     *IndexCache
	logger    *slog.Logger
}

// NewCorpusWatcher creates a watcher over the file store's base directory.
func NewCorpusWatcher(fileStore *FileStore, cache *IndexCache, logger *slog.Logger) *CorpusWatcher {
	return &CorpusWatcher{fileStore: fileStore, cache: cache, logger: logger}
}

// Run watches until ctx is cancelled. fsnotify is not recursive, so the base
// directory and every agent directory are added individually; a new agent
// directory appearing is itself an event and gets a watch then.
func (w *CorpusWatcher) Run(ctx context.Context) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.logger.Error("failed to create file watcher", "component", "watcher", "error", err)
		return
	}
	defer watcher.Close()

	base := w.fileStore.BaseDir()
	if err := watcher.Add(base); err != nil {
		w.logger.Error("failed to watch data dir", "component", "watcher", "path", base, "error", err)
		return
	}
	for _, agentID := range w.fileStore.AgentIDs() {
		if err := watcher.Add(filepath.Join(base, agentID)); err != nil {
			w.logger.Warn("failed to watch agent dir", "component", "watcher", "agent", agentID, "error", err)
		}
	}
	w.logger.Info("watching agent data", "component", "watcher", "path", base)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			w.handle(watcher, base, event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", "component", "watcher", "error", err)
		case <-ctx.Done():
			w.logger.Info("watcher shutting down", "component", "watcher")
			return
		}
	}
}

func (w *CorpusWatcher) handle(watcher *fsnotify.Watcher, base string, event fsnotify.Event) {
	rel, err := filepath.Rel(base, event.Name)
	if err != nil || rel == "." {
		return
	}
	agentID := firstSegment(rel)

	// A new directory directly under base is a new agent corpus.
	if event.Has(fsnotify.Create) && rel == agentID {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := watcher.Add(event.Name); err != nil {
				w.logger.Warn("failed to watch new agent dir", "component", "watcher", "agent", agentID, "error", err)
			}
			return
		}
	}

	if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		w.logger.Debug("corpus changed on disk", "component", "watcher", "agent", agentID, "event", event.Op.String())
		w.cache.Invalidate(agentID)
	}
}

func firstSegment(rel string) string {
	for i := 0; i < len(rel); i++ {
		if os.IsPathSeparator(rel[i]) {
			return rel[:i]
		}
	}
	return rel
}
