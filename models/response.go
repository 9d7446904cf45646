package models

// Query outcome discriminators. Every recognized outcome is HTTP 200; clients
// branch on Status instead of parsing prose.
const (
	StatusSuccess     = "rag_success"
	StatusFallback    = "fallback_mode"
	StatusNoDocuments = "no_documents"
	StatusError       = "error"
)

// QueryResponse is the body returned by POST /query/.
type QueryResponse struct {
	AgentID     string             `json:"agent_id"`
	Query       string             `json:"query"`
	Response    string             `json:"response"`
	Status      string             `json:"status"`
	Files       []string           `json:"files"`
	RAGUsed     bool               `json:"rag_used"`
	Strategy    string             `json:"strategy"`
	Sources     []Chunk            `json:"sources,omitempty"`
	Iterations  []IterationRecord  `json:"iterations,omitempty"`
	Corrections []CorrectionRecord `json:"corrections,omitempty"`
	BestScore   float64            `json:"best_score,omitempty"`
	Error       string             `json:"error,omitempty"`
}

// IterationRecord captures one pass of the self-critique loop. Records are
// returned for observability and never persisted.
type IterationRecord struct {
	Iteration       int        `json:"iteration"`
	Query           string     `json:"query"`
	Response        string     `json:"response"`
	ContextLength   int        `json:"context_length"`
	RetrievedChunks int        `json:"retrieved_chunks"`
	Evaluation      Evaluation `json:"evaluation"`
}

// CorrectionRecord captures one pass of the corrective loop.
type CorrectionRecord struct {
	Iteration       int           `json:"iteration"`
	Response        string        `json:"response"`
	ErrorAnalysis   ErrorAnalysis `json:"error_analysis"`
	Validation      Validation    `json:"source_validation"`
	NeedsCorrection bool          `json:"needs_correction"`
	ConfidenceScore float64       `json:"confidence_score"`
	ValidationScore float64       `json:"validation_score"`
}

// ListFilesResponse is the body of GET /agent-files/:agent_id.
type ListFilesResponse struct {
	AgentID string   `json:"agent_id"`
	Files   []string `json:"files"`
	Count   int      `json:"count"`
}

// UploadResponse is the body of POST /upload-file/:agent_id.
type UploadResponse struct {
	Message  string `json:"message"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	Path     string `json:"path"`
}
