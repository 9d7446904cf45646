package services

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kulbirminhas/agentic-rag/models"
)

func hydeGenerator() *fakeGenerator {
	return &fakeGenerator{fn: func(system, prompt string) (string, error) {
		if strings.Contains(prompt, "Generate a hypothetical document") {
			// Style arrives via the system prompt; echo it so each probe
			// queries with distinct text.
			return "hypothetical passage: " + system, nil
		}
		return "final answer", nil
	}}
}

func TestHyDEBoostsConvergentChunks(t *testing.T) {
	shared := models.Chunk{Text: "shared finding that every probe hits", Score: 0.5, Source: "a.txt"}
	directOnly := models.Chunk{Text: "only the literal question finds this", Score: 0.6, Source: "b.txt"}

	retriever := &fakeRetriever{fn: func(_, query string, _ int) ([]models.Chunk, error) {
		if strings.HasPrefix(query, "hypothetical passage") {
			return []models.Chunk{shared}, nil
		}
		return []models.Chunk{shared, directOnly}, nil
	}}

	engine, fileStore := newTestEngine(t, retriever, hydeGenerator())
	_, err := fileStore.Save("6", "a.txt", []byte("corpus"))
	require.NoError(t, err)

	resp, err := engine.Query(context.Background(), "6", "question", StrategyHyDE)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSuccess, resp.Status)
	assert.Equal(t, "final answer", resp.Response)

	// One source entry per unique chunk, however many probes returned it.
	var sharedHits, directHits int
	var sharedScore float64
	for _, src := range resp.Sources {
		switch src.Text {
		case shared.Text:
			sharedHits++
			sharedScore = src.Score
		case directOnly.Text:
			directHits++
		}
	}
	assert.Equal(t, 1, sharedHits)
	assert.Equal(t, 1, directHits)

	// shared was returned by the direct query and all four probes, so its
	// composite beats its base and outranks the higher-base direct-only chunk.
	assert.Greater(t, sharedScore, shared.Score)
	assert.Equal(t, shared.Text, resp.Sources[0].Text)
	assert.InDelta(t, 0.5*(1+convergenceBoost*4), sharedScore, 0.001)
}

func TestHyDEHypotheticalGenerationFailureDegradesToStub(t *testing.T) {
	var mu sync.Mutex
	var probeQueries []string
	retriever := &fakeRetriever{fn: func(_, query string, _ int) ([]models.Chunk, error) {
		mu.Lock()
		probeQueries = append(probeQueries, query)
		mu.Unlock()
		return []models.Chunk{{Text: "chunk", Score: 0.7}}, nil
	}}
	generator := &fakeGenerator{fn: func(_, prompt string) (string, error) {
		if strings.Contains(prompt, "Generate a hypothetical document") {
			return "", ErrGenerationUnavailable
		}
		return "final answer", nil
	}}

	engine, fileStore := newTestEngine(t, retriever, generator)
	_, err := fileStore.Save("6", "a.txt", []byte("corpus"))
	require.NoError(t, err)

	resp, err := engine.Query(context.Background(), "6", "quantum tunnelling", StrategyHyDE)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSuccess, resp.Status)

	// Direct query plus one stub probe per style; the stubs embed the query.
	assert.Equal(t, 1+len(hypotheticalStyles), int(retriever.calls.Load()))
	var stubs int
	for _, q := range probeQueries {
		if strings.Contains(q, "This document discusses quantum tunnelling") {
			stubs++
		}
	}
	assert.Equal(t, len(hypotheticalStyles), stubs)
}

func TestHyDEDirectRetrievalFailureIsFatal(t *testing.T) {
	retriever := &fakeRetriever{fn: func(_, query string, _ int) ([]models.Chunk, error) {
		if strings.HasPrefix(query, "hypothetical passage") {
			return []models.Chunk{{Text: "chunk", Score: 0.7}}, nil
		}
		return nil, ErrRetrievalUnavailable
	}}

	engine, fileStore := newTestEngine(t, retriever, hydeGenerator())
	_, err := fileStore.Save("6", "a.txt", []byte("corpus"))
	require.NoError(t, err)

	resp, err := engine.Query(context.Background(), "6", "question", StrategyHyDE)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFallback, resp.Status)
}

func TestRankMergedCapsAndOrders(t *testing.T) {
	merged := map[string]*mergedChunk{
		"a": {chunk: models.Chunk{Text: "a"}, base: 0.9, count: 1, order: 0},
		"b": {chunk: models.Chunk{Text: "b"}, base: 0.6, count: 3, order: 1},
		"c": {chunk: models.Chunk{Text: "c"}, base: 0.9, count: 1, order: 2},
	}

	ranked := rankMerged(merged)
	require.Len(t, ranked, 3)
	// b: 0.6 * 1.4 = 0.84, below the tied 0.9s, which keep retrieval order.
	assert.Equal(t, "a", ranked[0].Text)
	assert.Equal(t, "c", ranked[1].Text)
	assert.Equal(t, "b", ranked[2].Text)
	assert.InDelta(t, 0.84, ranked[2].Score, 0.001)
}
