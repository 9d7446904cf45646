package services

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kulbirminhas/agentic-rag/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// fakeRetriever scripts retrieval per call.
type fakeRetriever struct {
	fn    func(agentID, query string, k int) ([]models.Chunk, error)
	calls atomic.Int64
}

func (f *fakeRetriever) Retrieve(_ context.Context, agentID, query string, k int) ([]models.Chunk, error) {
	f.calls.Add(1)
	return f.fn(agentID, query, k)
}

// fakeGenerator scripts completions per prompt.
type fakeGenerator struct {
	fn    func(system, prompt string) (string, error)
	calls atomic.Int64
}

func (f *fakeGenerator) Generate(_ context.Context, system, prompt string) (string, error) {
	f.calls.Add(1)
	return f.fn(system, prompt)
}

func staticChunks(chunks ...models.Chunk) *fakeRetriever {
	return &fakeRetriever{fn: func(string, string, int) ([]models.Chunk, error) {
		return chunks, nil
	}}
}

func newTestEngine(t *testing.T, retriever Retriever, generator Generator) (*RAGEngine, *FileStore) {
	t.Helper()
	fileStore, err := NewFileStore(t.TempDir(), testLogger())
	require.NoError(t, err)
	engine := NewRAGEngine(fileStore, retriever, generator, EngineOptions{}, testLogger())
	return engine, fileStore
}

func TestQueryRejectsEmptyInput(t *testing.T) {
	engine, _ := newTestEngine(t, staticChunks(), &fakeGenerator{})

	_, err := engine.Query(context.Background(), "6", "   ", StrategyDirect)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = engine.Query(context.Background(), "", "question", StrategyDirect)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestQueryNoDocumentsNeverInvokesGenerator(t *testing.T) {
	generator := &fakeGenerator{fn: func(string, string) (string, error) {
		t.Fatal("generator must not be called for an empty corpus")
		return "", nil
	}}
	retriever := &fakeRetriever{fn: func(string, string, int) ([]models.Chunk, error) {
		t.Fatal("retriever must not be called for an empty corpus")
		return nil, nil
	}}
	engine, _ := newTestEngine(t, retriever, generator)

	resp, err := engine.Query(context.Background(), "9", "anything", StrategyDirect)
	require.NoError(t, err)
	assert.Equal(t, models.StatusNoDocuments, resp.Status)
	assert.Equal(t, []string{}, resp.Files)
	assert.False(t, resp.RAGUsed)
	assert.Zero(t, generator.calls.Load())
	assert.Zero(t, retriever.calls.Load())
}

func TestQueryDirectAnswersFromDocuments(t *testing.T) {
	retriever := staticChunks(models.Chunk{
		Text:   "The capital of Testland is Exampleville.",
		Score:  0.91,
		Source: "testland.txt",
	})
	generator := &fakeGenerator{fn: func(_, prompt string) (string, error) {
		require.Contains(t, prompt, "Exampleville")
		return "The capital of Testland is Exampleville.", nil
	}}
	engine, fileStore := newTestEngine(t, retriever, generator)
	_, err := fileStore.Save("6", "testland.txt", []byte("The capital of Testland is Exampleville."))
	require.NoError(t, err)

	resp, err := engine.Query(context.Background(), "6", "What is the capital of Testland?", StrategyDirect)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSuccess, resp.Status)
	assert.True(t, resp.RAGUsed)
	assert.Contains(t, resp.Response, "Exampleville")
	assert.Equal(t, []string{"testland.txt"}, resp.Files)
}

func TestQueryFallsBackWhenGenerationUnavailable(t *testing.T) {
	retriever := staticChunks(models.Chunk{
		Text:   "The capital of Testland is Exampleville.",
		Score:  0.91,
		Source: "testland.txt",
	})
	generator := &fakeGenerator{fn: func(string, string) (string, error) {
		return "", ErrGenerationUnavailable
	}}
	engine, fileStore := newTestEngine(t, retriever, generator)
	_, err := fileStore.Save("6", "testland.txt", []byte("The capital of Testland is Exampleville."))
	require.NoError(t, err)

	resp, err := engine.Query(context.Background(), "6", "capital?", StrategyDirect)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFallback, resp.Status)
	assert.False(t, resp.RAGUsed)
	// Degraded mode still surfaces raw document excerpts.
	assert.Contains(t, resp.Response, "Exampleville")
	assert.Equal(t, []string{"testland.txt"}, resp.Files)
}

func TestQueryFallsBackToRawFilesWhenRetrievalDown(t *testing.T) {
	retriever := &fakeRetriever{fn: func(string, string, int) ([]models.Chunk, error) {
		return nil, ErrRetrievalUnavailable
	}}
	generator := &fakeGenerator{fn: func(string, string) (string, error) {
		t.Fatal("generation should not run when retrieval is down")
		return "", nil
	}}
	engine, fileStore := newTestEngine(t, retriever, generator)
	_, err := fileStore.Save("6", "notes.md", []byte("Exampleville facts live here."))
	require.NoError(t, err)

	resp, err := engine.Query(context.Background(), "6", "capital?", StrategyDirect)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFallback, resp.Status)
	assert.Contains(t, resp.Response, "Exampleville facts")
}

func TestParseStrategy(t *testing.T) {
	cases := map[string]Strategy{
		"":              StrategyDirect,
		"direct":        StrategyDirect,
		"self_critique": StrategySelfCritique,
		"Self-RAG":      StrategySelfCritique,
		"crag":          StrategyCorrective,
		"corrective":    StrategyCorrective,
		"hyde":          StrategyHyDE,
	}
	for name, want := range cases {
		got, err := ParseStrategy(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseStrategy("graph")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestRetrieveIdempotentWithoutMutation(t *testing.T) {
	retriever := staticChunks(
		models.Chunk{Text: "alpha", Score: 0.9},
		models.Chunk{Text: "beta", Score: 0.7},
	)
	first, err := retriever.Retrieve(context.Background(), "6", "q", 5)
	require.NoError(t, err)
	second, err := retriever.Retrieve(context.Background(), "6", "q", 5)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestFallbackResponseListsFiles(t *testing.T) {
	retriever := &fakeRetriever{fn: func(string, string, int) ([]models.Chunk, error) {
		return nil, ErrRetrievalUnavailable
	}}
	engine, fileStore := newTestEngine(t, retriever, &fakeGenerator{})
	_, err := fileStore.Save("7", "a.txt", []byte(strings.Repeat("x", 10)))
	require.NoError(t, err)

	got := engine.fallbackResponse(context.Background(), "7", "q", []string{"a.txt"})
	assert.Contains(t, got, "a.txt")
}
