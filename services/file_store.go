package services

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FileStore owns the per-agent document directories that form each agent's
// retrieval corpus. One agent's directory is never visible to another agent.
//
// An empty directory is a valid steady state: List returns an empty slice,
// never an error, for an agent that has not uploaded anything yet.
type FileStore struct {
	baseDir  string
	logger   *slog.Logger
	onMutate func(agentID string)
}

// NewFileStore creates a file store rooted at baseDir, creating it if needed.
func NewFileStore(baseDir string, logger *slog.Logger) (*FileStore, error) {
	absPath, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("could not resolve agent data dir: %w", err)
	}
	if err := os.MkdirAll(absPath, 0o755); err != nil {
		return nil, fmt.Errorf("could not create agent data dir: %w", err)
	}
	return &FileStore{baseDir: absPath, logger: logger}, nil
}

// OnMutate registers a callback invoked after every Save or Delete. The
// service wires this to index-cache invalidation so no query can reuse an
// index built before the mutation.
func (fs *FileStore) OnMutate(fn func(agentID string)) {
	fs.onMutate = fn
}

// BaseDir returns the absolute root of all agent directories.
func (fs *FileStore) BaseDir() string {
	return fs.baseDir
}

// AgentDir returns the directory for one agent, creating it on first use.
func (fs *FileStore) AgentDir(agentID string) (string, error) {
	dir, err := fs.safeJoin(agentID)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("could not create directory for agent %s: %w", agentID, err)
	}
	return dir, nil
}

// List returns the agent's filenames sorted lexicographically. A missing
// directory yields an empty list.
func (fs *FileStore) List(agentID string) ([]string, error) {
	dir, err := fs.safeJoin(agentID)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not list files for agent %s: %w", agentID, err)
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// Save writes one uploaded document into the agent's directory.
func (fs *FileStore) Save(agentID, filename string, data []byte) (string, error) {
	dir, err := fs.AgentDir(agentID)
	if err != nil {
		return "", err
	}
	path, err := sanitizeFilename(dir, filename)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("could not save %s for agent %s: %w", filename, agentID, err)
	}
	fs.logger.Info("document saved", "component", "filestore", "agent", agentID, "file", filename, "bytes", len(data))
	fs.notify(agentID)
	return path, nil
}

// Delete removes one document from the agent's directory.
func (fs *FileStore) Delete(agentID, filename string) error {
	dir, err := fs.safeJoin(agentID)
	if err != nil {
		return err
	}
	path, err := sanitizeFilename(dir, filename)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("could not delete %s for agent %s: %w", filename, agentID, err)
	}
	fs.logger.Info("document deleted", "component", "filestore", "agent", agentID, "file", filename)
	fs.notify(agentID)
	return nil
}

// HasDocuments reports whether the agent's corpus is non-empty.
func (fs *FileStore) HasDocuments(agentID string) bool {
	files, err := fs.List(agentID)
	return err == nil && len(files) > 0
}

// AgentIDs returns every agent that currently has a directory.
func (fs *FileStore) AgentIDs() []string {
	entries, err := os.ReadDir(fs.baseDir)
	if err != nil {
		return nil
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	sort.Strings(ids)
	return ids
}

func (fs *FileStore) notify(agentID string) {
	if fs.onMutate != nil {
		fs.onMutate(agentID)
	}
}

// safeJoin resolves an agent directory while rejecting identifiers that try
// to escape the base directory.
func (fs *FileStore) safeJoin(agentID string) (string, error) {
	if agentID == "" {
		return "", fmt.Errorf("%w: empty agent id", ErrInvalidRequest)
	}
	dir := filepath.Join(fs.baseDir, filepath.Base(agentID))
	if !strings.HasPrefix(dir, fs.baseDir) {
		return "", fmt.Errorf("%w: agent id escapes data directory", ErrInvalidRequest)
	}
	return dir, nil
}

// sanitizeFilename keeps writes inside dir regardless of what the client
// sends as a filename.
func sanitizeFilename(dir, filename string) (string, error) {
	if filename == "" {
		return "", fmt.Errorf("%w: empty filename", ErrInvalidRequest)
	}
	cleanPath := filepath.Join(dir, filepath.Base(filename))
	if !strings.HasPrefix(cleanPath, dir) {
		return "", fmt.Errorf("%w: filename escapes agent directory", ErrInvalidRequest)
	}
	return cleanPath, nil
}
