package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"

	"github.com/kulbirminhas/agentic-rag/models"
)

// Retriever returns the chunks most similar to a query, scores descending,
// ties kept in retrieval order. Returns ErrNoCorpus for an agent with zero
// documents.
type Retriever interface {
	Retrieve(ctx context.Context, agentID, query string, k int) ([]models.Chunk, error)
}

// ChromaRetriever retrieves from the agent's vector-store collection,
// materializing the index through the cache on a cold start.
type ChromaRetriever struct {
	cache    *IndexCache
	embedder Embedder
	logger   *slog.Logger
}

// NewChromaRetriever creates a retriever over a shared index cache.
func NewChromaRetriever(cache *IndexCache, embedder Embedder, logger *slog.Logger) *ChromaRetriever {
	return &ChromaRetriever{cache: cache, embedder: embedder, logger: logger}
}

// Retrieve implements Retriever.
func (r *ChromaRetriever) Retrieve(ctx context.Context, agentID, query string, k int) ([]models.Chunk, error) {
	index, err := r.cache.Get(ctx, agentID)
	if err != nil {
		return nil, err
	}

	queryVector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	embedding := embeddings.NewEmbeddingFromFloat32(queryVector)

	results, err := index.Collection.Query(
		ctx,
		chromago.WithQueryEmbeddings(embedding),
		chromago.WithNResults(k),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: vector query: %v", ErrRetrievalUnavailable, err)
	}

	chunks := collectChunks(results)
	sort.SliceStable(chunks, func(i, j int) bool { return chunks[i].Score > chunks[j].Score })
	r.logger.Debug("retrieved chunks", "component", "retriever", "agent", agentID, "count", len(chunks))
	return chunks, nil
}

// collectChunks flattens the first query group into scored chunks. Chroma
// reports cosine distance; similarity is 1 - distance. A result without a
// distance scores 0.5.
func collectChunks(results chromago.QueryResult) []models.Chunk {
	var chunks []models.Chunk

	documentGroups := results.GetDocumentsGroups()
	metadataGroups := results.GetMetadatasGroups()
	idGroups := results.GetIDGroups()
	distanceGroups := results.GetDistancesGroups()
	if len(documentGroups) == 0 {
		return chunks
	}

	for i, doc := range documentGroups[0] {
		text := doc.ContentString()
		if text == "" {
			continue
		}

		score := 0.5
		if len(distanceGroups) > 0 && i < len(distanceGroups[0]) {
			score = 1 - float64(distanceGroups[0][i])
		}

		var id string
		if len(idGroups) > 0 && i < len(idGroups[0]) {
			id = string(idGroups[0][i])
		}

		var source string
		var metadataMap map[string]interface{}
		if len(metadataGroups) > 0 && i < len(metadataGroups[0]) && metadataGroups[0][i] != nil {
			if jsonBytes, err := json.Marshal(metadataGroups[0][i]); err == nil {
				if err := json.Unmarshal(jsonBytes, &metadataMap); err == nil {
					if name, ok := metadataMap["source_file"].(string); ok {
						source = name
					}
				}
			}
		}

		chunks = append(chunks, models.Chunk{
			ID:       id,
			Text:     text,
			Score:    score,
			Source:   source,
			Metadata: metadataMap,
		})
	}
	return chunks
}
