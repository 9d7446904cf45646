package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kulbirminhas/agentic-rag/models"
	"github.com/kulbirminhas/agentic-rag/services"
)

type stubRetriever struct{ chunks []models.Chunk }

func (s *stubRetriever) Retrieve(context.Context, string, string, int) ([]models.Chunk, error) {
	return s.chunks, nil
}

type stubGenerator struct{ answer string }

func (s *stubGenerator) Generate(context.Context, string, string) (string, error) {
	return s.answer, nil
}

type stubBuilder struct{}

func (stubBuilder) Build(_ context.Context, agentID string) (*services.AgentIndex, error) {
	return &services.AgentIndex{AgentID: agentID}, nil
}

type testHarness struct {
	router    *gin.Engine
	fileStore *services.FileStore
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.DiscardHandler)

	fileStore, err := services.NewFileStore(t.TempDir(), logger)
	require.NoError(t, err)
	agentStore, err := services.NewAgentStore(filepath.Join(t.TempDir(), "agents.db"))
	require.NoError(t, err)
	t.Cleanup(func() { agentStore.Close() })

	cache := services.NewIndexCache(stubBuilder{}, logger)
	fileStore.OnMutate(cache.Invalidate)

	engine := services.NewRAGEngine(fileStore,
		&stubRetriever{chunks: []models.Chunk{{Text: "Exampleville is the capital.", Score: 0.9, Source: "facts.txt"}}},
		&stubGenerator{answer: "Exampleville is the capital."},
		services.EngineOptions{}, logger)

	config := &services.Config{GeminiAPIKey: "test-key", ChromaURL: "http://localhost:8000"}
	rag := NewRAGController(engine, fileStore, agentStore, cache, config)
	agents := NewAgentController(agentStore, fileStore)

	return &testHarness{router: NewRouter(rag, agents), fileStore: fileStore}
}

func (h *testHarness) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestQueryRejectsMalformedRequests(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/query/", map[string]any{"query": "  ", "agent_id": "6"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodPost, "/query/", map[string]any{"query": "hi"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodPost, "/query/", map[string]any{"query": "hi", "agent_id": "6", "strategy": "graph"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["error"], "strategy")
}

func TestQueryEmptyCorpusReturns200NoDocuments(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/query/", map[string]any{"query": "anything", "agent_id": "9"})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, models.StatusNoDocuments, body["status"])
	assert.Equal(t, []any{}, body["files"])
	assert.Equal(t, false, body["rag_used"])
}

func TestQueryAnswersWithDocuments(t *testing.T) {
	h := newHarness(t)
	_, err := h.fileStore.Save("6", "facts.txt", []byte("Exampleville is the capital."))
	require.NoError(t, err)

	rec := h.do(t, http.MethodPost, "/query/", map[string]any{"query": "capital?", "agent_id": "6"})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, models.StatusSuccess, body["status"])
	assert.Equal(t, true, body["rag_used"])
	assert.Contains(t, body["response"], "Exampleville")
}

func TestUploadListDeleteRoundTrip(t *testing.T) {
	h := newHarness(t)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "notes.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("some notes"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload-file/6", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "notes.txt", decodeBody(t, rec)["filename"])

	rec = h.do(t, http.MethodGet, "/agent-files/6", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, []any{"notes.txt"}, body["files"])
	assert.Equal(t, float64(1), body["count"])

	rec = h.do(t, http.MethodDelete, "/agent-files/6/notes.txt", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(t, http.MethodGet, "/agent-files/6", nil)
	body = decodeBody(t, rec)
	assert.Equal(t, []any{}, body["files"])
}

func TestUploadMissingFileIs400(t *testing.T) {
	h := newHarness(t)

	req := httptest.NewRequest(http.MethodPost, "/upload-file/6", bytes.NewReader(nil))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=xxx")
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthReportsSubsystems(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "healthy", body["status"])
	env := body["environment"].(map[string]any)
	assert.Equal(t, true, env["GEMINI_API_KEY"])
	db := body["database"].(map[string]any)
	assert.Equal(t, true, db["connected"])
}

func TestAgentLifecycle(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/agents", map[string]any{
		"name":         "support-bot",
		"display_name": "Support Bot",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody(t, rec)
	assert.Equal(t, "support-bot", created["name"])

	rec = h.do(t, http.MethodGet, "/agents/support-bot", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(t, http.MethodGet, "/agents/missing-agent", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(t, http.MethodPost, "/agents/support-bot/settings", map[string]any{"strategy": "hyde"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(t, http.MethodGet, "/agents/support-bot/settings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	settings := decodeBody(t, rec)["settings"].(map[string]any)
	assert.Equal(t, "hyde", settings["strategy"])

	rec = h.do(t, http.MethodGet, "/agents", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var agents []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &agents))
	assert.Len(t, agents, 1)
}

func TestCORSPreflight(t *testing.T) {
	h := newHarness(t)

	req := httptest.NewRequest(http.MethodOptions, "/query/", nil)
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
