package models

import "time"

// Agent is the logical owner of a document corpus. The agent name uniquely
// determines both its document directory and its vector-store collection.
type Agent struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	DisplayName     string    `json:"display_name"`
	Description     string    `json:"description"`
	RAGArchitecture string    `json:"rag_architecture"`
	CreatedAt       time.Time `json:"created_at"`
	IsActive        bool      `json:"is_active"`
}

// AgentFile records provenance for one uploaded document.
type AgentFile struct {
	ID          int64     `json:"id"`
	AgentID     int64     `json:"agent_id"`
	Filename    string    `json:"filename"`
	FilePath    string    `json:"file_path"`
	FileSize    int64     `json:"file_size"`
	ContentType string    `json:"content_type"`
	UploadedAt  time.Time `json:"uploaded_at"`
}
