package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/kulbirminhas/agentic-rag/models"
)

const agentSchema = `
CREATE TABLE IF NOT EXISTS agents (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	name             TEXT NOT NULL UNIQUE,
	display_name     TEXT NOT NULL DEFAULT '',
	description      TEXT NOT NULL DEFAULT '',
	rag_architecture TEXT NOT NULL DEFAULT 'direct',
	created_at       TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	is_active        INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS agent_settings (
	agent_id      INTEGER NOT NULL REFERENCES agents(id),
	setting_key   TEXT NOT NULL,
	setting_value TEXT NOT NULL,
	updated_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(agent_id, setting_key)
);

CREATE TABLE IF NOT EXISTS agent_files (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	agent_id     INTEGER NOT NULL REFERENCES agents(id),
	filename     TEXT NOT NULL,
	file_path    TEXT NOT NULL,
	file_size    INTEGER NOT NULL DEFAULT 0,
	content_type TEXT NOT NULL DEFAULT '',
	uploaded_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// AgentStore persists agent metadata, settings, and file provenance in a
// SQLite database. Document content itself lives in the FileStore; rows here
// are bookkeeping only, so the retrieval path never depends on this store.
type AgentStore struct {
	db   *sql.DB
	path string
}

// NewAgentStore opens (or creates) the metadata database at dbPath, with WAL
// mode for concurrent readers.
func NewAgentStore(dbPath string) (*AgentStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	if _, err := db.Exec(agentSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &AgentStore{db: db, path: dbPath}, nil
}

// Close closes the database connection.
func (s *AgentStore) Close() error {
	return s.db.Close()
}

// Ping reports database reachability for the health endpoint.
func (s *AgentStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateAgent inserts a new agent row and returns it.
func (s *AgentStore) CreateAgent(ctx context.Context, req models.CreateAgentRequest) (*models.Agent, error) {
	arch := req.RAGArchitecture
	if arch == "" {
		arch = "direct"
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO agents (name, display_name, description, rag_architecture) VALUES (?, ?, ?, ?)`,
		req.Name, req.DisplayName, req.Description, arch)
	if err != nil {
		return nil, fmt.Errorf("inserting agent: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading agent id: %w", err)
	}
	return s.getAgent(ctx, `WHERE id = ?`, id)
}

// GetAgent resolves an agent by numeric id or by name, matching how the
// HTTP surface addresses agents with either form.
func (s *AgentStore) GetAgent(ctx context.Context, ident string) (*models.Agent, error) {
	if id, err := strconv.ParseInt(ident, 10, 64); err == nil {
		agent, err := s.getAgent(ctx, `WHERE id = ? AND is_active = 1`, id)
		if err == nil {
			return agent, nil
		}
		if !errors.Is(err, ErrAgentNotFound) {
			return nil, err
		}
	}
	return s.getAgent(ctx, `WHERE name = ? AND is_active = 1`, ident)
}

func (s *AgentStore) getAgent(ctx context.Context, where string, arg any) (*models.Agent, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, display_name, description, rag_architecture, created_at, is_active FROM agents `+where, arg)
	var a models.Agent
	var active int
	err := row.Scan(&a.ID, &a.Name, &a.DisplayName, &a.Description, &a.RAGArchitecture, &a.CreatedAt, &active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAgentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning agent: %w", err)
	}
	a.IsActive = active != 0
	return &a, nil
}

// ListAgents returns all active agents, newest first.
func (s *AgentStore) ListAgents(ctx context.Context) ([]models.Agent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, display_name, description, rag_architecture, created_at, is_active
		 FROM agents WHERE is_active = 1 ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing agents: %w", err)
	}
	defer rows.Close()

	agents := []models.Agent{}
	for rows.Next() {
		var a models.Agent
		var active int
		if err := rows.Scan(&a.ID, &a.Name, &a.DisplayName, &a.Description, &a.RAGArchitecture, &a.CreatedAt, &active); err != nil {
			return nil, fmt.Errorf("scanning agent: %w", err)
		}
		a.IsActive = active != 0
		agents = append(agents, a)
	}
	return agents, rows.Err()
}

// GetSettings returns the agent's settings map. Values are stored as JSON;
// unparseable values pass through as raw strings.
func (s *AgentStore) GetSettings(ctx context.Context, agentID int64) (map[string]any, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT setting_key, setting_value FROM agent_settings WHERE agent_id = ? ORDER BY setting_key`, agentID)
	if err != nil {
		return nil, fmt.Errorf("listing settings: %w", err)
	}
	defer rows.Close()

	settings := map[string]any{}
	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, fmt.Errorf("scanning setting: %w", err)
		}
		var value any
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			settings[key] = raw
			continue
		}
		settings[key] = value
	}
	return settings, rows.Err()
}

// SetSettings upserts the given settings for an agent.
func (s *AgentStore) SetSettings(ctx context.Context, agentID int64, settings map[string]any) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	for key, value := range settings {
		raw, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("encoding setting %s: %w", key, err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO agent_settings (agent_id, setting_key, setting_value) VALUES (?, ?, ?)
			 ON CONFLICT(agent_id, setting_key)
			 DO UPDATE SET setting_value = excluded.setting_value, updated_at = CURRENT_TIMESTAMP`,
			agentID, key, string(raw))
		if err != nil {
			return fmt.Errorf("upserting setting %s: %w", key, err)
		}
	}
	return tx.Commit()
}

// RecordFile stores provenance for an uploaded document. Best effort: the
// upload itself has already succeeded on disk.
func (s *AgentStore) RecordFile(ctx context.Context, agentName string, file models.AgentFile) error {
	agent, err := s.GetAgent(ctx, agentName)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO agent_files (agent_id, filename, file_path, file_size, content_type) VALUES (?, ?, ?, ?, ?)`,
		agent.ID, file.Filename, file.FilePath, file.FileSize, file.ContentType)
	if err != nil {
		return fmt.Errorf("recording file: %w", err)
	}
	return nil
}

// RemoveFileRecord deletes provenance rows for one filename.
func (s *AgentStore) RemoveFileRecord(ctx context.Context, agentName, filename string) error {
	agent, err := s.GetAgent(ctx, agentName)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`DELETE FROM agent_files WHERE agent_id = ? AND filename = ?`, agent.ID, filename)
	if err != nil {
		return fmt.Errorf("removing file record: %w", err)
	}
	return nil
}
