package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/kulbirminhas/agentic-rag/models"
)

// Strategy selects which answering loop runs for a query. The set is closed;
// unknown names are rejected before any outbound call.
type Strategy string

const (
	StrategyDirect       Strategy = "direct"
	StrategySelfCritique Strategy = "self_critique"
	StrategyCorrective   Strategy = "corrective"
	StrategyHyDE         Strategy = "hyde"
)

// ParseStrategy maps a request's strategy name (and the aliases older clients
// send) onto the closed strategy set. Empty means Direct.
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "direct", "llamaindex-pinecone":
		return StrategyDirect, nil
	case "self_critique", "self-critique", "self_rag", "self-rag":
		return StrategySelfCritique, nil
	case "corrective", "corrective_rag", "crag":
		return StrategyCorrective, nil
	case "hyde", "hyde_rag":
		return StrategyHyDE, nil
	default:
		return "", fmt.Errorf("%w: unknown strategy %q", ErrInvalidRequest, name)
	}
}

// EngineOptions tunes the strategy loops.
type EngineOptions struct {
	TopK           int
	ContextBudget  int
	MaxIterations  int
	MaxCorrections int
}

func (o *EngineOptions) applyDefaults() {
	if o.TopK <= 0 {
		o.TopK = 5
	}
	if o.ContextBudget <= 0 {
		o.ContextBudget = 8000
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = 3
	}
	if o.MaxCorrections <= 0 {
		o.MaxCorrections = 3
	}
}

// RAGEngine runs one of four answering strategies over the shared retrieval
// primitive. One engine instance serves all agents; per-query state lives on
// the stack.
type RAGEngine struct {
	fileStore *FileStore
	retriever Retriever
	generator Generator
	opts      EngineOptions
	logger    *slog.Logger
}

// NewRAGEngine wires the engine.
func NewRAGEngine(fileStore *FileStore, retriever Retriever, generator Generator, opts EngineOptions, logger *slog.Logger) *RAGEngine {
	opts.applyDefaults()
	return &RAGEngine{
		fileStore: fileStore,
		retriever: retriever,
		generator: generator,
		opts:      opts,
		logger:    logger,
	}
}

// strategyResult is what one strategy loop produces before the engine wraps
// it into the HTTP response.
type strategyResult struct {
	Answer      string
	Sources     []models.Chunk
	Iterations  []models.IterationRecord
	Corrections []models.CorrectionRecord
	BestScore   float64
}

// Query answers one question for one agent. Every recognized outcome comes
// back as a response with a status discriminator; the error return is
// reserved for malformed requests.
func (e *RAGEngine) Query(ctx context.Context, agentID, query string, strategy Strategy) (*models.QueryResponse, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty query", ErrInvalidRequest)
	}
	if agentID == "" {
		return nil, fmt.Errorf("%w: missing agent_id", ErrInvalidRequest)
	}

	resp := &models.QueryResponse{
		AgentID:  agentID,
		Query:    query,
		Strategy: string(strategy),
		Files:    []string{},
	}

	files, err := e.fileStore.List(agentID)
	if err != nil {
		resp.Status = models.StatusError
		resp.Error = err.Error()
		resp.Response = "I encountered an error while processing your query. Please try again."
		return resp, nil
	}
	resp.Files = files

	// Zero documents is an expected steady state, decided before any
	// outbound call is made.
	if len(files) == 0 {
		resp.Status = models.StatusNoDocuments
		resp.Response = "I don't have any documents uploaded for this agent yet. Please upload some documents first, then try your question again."
		return resp, nil
	}

	e.logger.Info("query started", "component", "engine", "agent", agentID, "strategy", strategy)

	result, err := e.run(ctx, agentID, query, strategy)
	switch {
	case err == nil:
		resp.Status = models.StatusSuccess
		resp.RAGUsed = true
		resp.Response = result.Answer
		resp.Sources = result.Sources
		resp.Iterations = result.Iterations
		resp.Corrections = result.Corrections
		resp.BestScore = result.BestScore
	case errors.Is(err, ErrNoCorpus):
		resp.Status = models.StatusNoDocuments
		resp.Files = []string{}
		resp.Response = "I don't have any documents uploaded for this agent yet. Please upload some documents first, then try your question again."
	case errors.Is(err, ErrGenerationUnavailable), errors.Is(err, ErrRetrievalUnavailable):
		e.logger.Warn("degraded answer", "component", "engine", "agent", agentID, "error", err)
		resp.Status = models.StatusFallback
		resp.Response = e.fallbackResponse(ctx, agentID, query, files)
	default:
		e.logger.Error("query failed", "component", "engine", "agent", agentID, "error", err)
		resp.Status = models.StatusError
		resp.Error = err.Error()
		resp.Response = "I encountered an error while processing your query. Please try again."
	}
	return resp, nil
}

func (e *RAGEngine) run(ctx context.Context, agentID, query string, strategy Strategy) (*strategyResult, error) {
	switch strategy {
	case StrategySelfCritique:
		return e.selfCritique(ctx, agentID, query)
	case StrategyCorrective:
		return e.corrective(ctx, agentID, query)
	case StrategyHyDE:
		return e.hyde(ctx, agentID, query)
	default:
		return e.direct(ctx, agentID, query)
	}
}

// direct is the baseline retrieve-then-generate pass: RETRIEVE, ASSEMBLE,
// GENERATE, RETURN. Also used as the fallback when other strategies' setup
// fails.
func (e *RAGEngine) direct(ctx context.Context, agentID, query string) (*strategyResult, error) {
	chunks, err := e.retriever.Retrieve(ctx, agentID, query, e.opts.TopK)
	if err != nil {
		return nil, err
	}
	contextText := AssembleContext(chunks, e.opts.ContextBudget)
	answer, err := e.generator.Generate(ctx, answerSystemPrompt, answerPrompt(query, contextText))
	if err != nil {
		return nil, err
	}
	return &strategyResult{Answer: answer, Sources: chunks}, nil
}

// fallbackResponse answers from raw document excerpts when the hosted model
// or the vector store is unavailable. The request still succeeds; the status
// field tells the client the content is degraded.
func (e *RAGEngine) fallbackResponse(ctx context.Context, agentID, query string, files []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "I found %d document(s) for this agent (%s) but could not synthesize an answer right now. Relevant excerpts:\n\n",
		len(files), strings.Join(files, ", "))

	if chunks, err := e.retriever.Retrieve(ctx, agentID, query, 3); err == nil && len(chunks) > 0 {
		for _, chunk := range chunks {
			fmt.Fprintf(&sb, "[%s] %s\n\n", chunk.Source, excerpt(chunk.Text, 500))
		}
		return sb.String()
	}

	// Vector store is down too. Fall back to the first documents on disk.
	dir, err := e.fileStore.AgentDir(agentID)
	if err != nil {
		return sb.String()
	}
	for i, name := range files {
		if i >= 3 {
			break
		}
		path := filepath.Join(dir, name)
		if !SupportedDocument(path) {
			continue
		}
		content, err := ExtractTextFromFile(path)
		if err != nil {
			continue
		}
		fmt.Fprintf(&sb, "[%s] %s\n\n", name, excerpt(content, 500))
	}
	return sb.String()
}
