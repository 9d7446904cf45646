package models

// QueryRequest is the body of POST /query/.
type QueryRequest struct {
	Query    string `json:"query"`
	AgentID  string `json:"agent_id"`
	Strategy string `json:"strategy,omitempty"`
}

// CreateAgentRequest is the body of POST /agents.
type CreateAgentRequest struct {
	Name            string `json:"name" binding:"required"`
	DisplayName     string `json:"display_name"`
	Description     string `json:"description"`
	RAGArchitecture string `json:"rag_architecture"`
}
