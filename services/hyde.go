package services

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/kulbirminhas/agentic-rag/models"
)

const (
	// hydeConcurrency bounds concurrent hypothetical generation and
	// per-hypothetical retrieval so a burst of probes cannot overwhelm the
	// embedding API.
	hydeConcurrency = 4

	// hydeTopK is how many merged chunks make the final context.
	hydeTopK = 6

	// convergenceBoost is the per-extra-retrieval multiplier applied to
	// chunks that multiple probes surfaced independently.
	convergenceBoost = 0.2
)

// mergedChunk accumulates one unique chunk across all retrieval probes.
type mergedChunk struct {
	chunk models.Chunk
	base  float64
	count int
	order int
}

// hyde answers through hypothetical-document expansion: several style-varied
// guesses at the ideal answer document probe the embedding space from
// different angles, and chunks that multiple probes agree on are boosted in
// the merged ranking.
func (e *RAGEngine) hyde(ctx context.Context, agentID, query string) (*strategyResult, error) {
	hypotheticals := e.generateHypotheticals(ctx, query)

	merged, err := e.ensembleRetrieve(ctx, agentID, query, hypotheticals)
	if err != nil {
		return nil, err
	}

	ranked := rankMerged(merged)
	if len(ranked) > hydeTopK {
		ranked = ranked[:hydeTopK]
	}

	contextText := AssembleContext(ranked, e.opts.ContextBudget)
	answer, err := e.generator.Generate(ctx, answerSystemPrompt, hydeFinalPrompt(query, contextText, hypotheticals))
	if err != nil {
		return nil, err
	}

	return &strategyResult{Answer: answer, Sources: ranked}, nil
}

// generateHypotheticals produces one pseudo-document per style. Calls are
// independent and issued concurrently under the shared limit. A failed
// generation degrades to a stub built from the query itself rather than
// dropping the probe.
func (e *RAGEngine) generateHypotheticals(ctx context.Context, query string) []models.Hypothetical {
	docs := make([]models.Hypothetical, len(hypotheticalStyles))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(hydeConcurrency)
	for i, style := range hypotheticalStyles {
		g.Go(func() error {
			text, err := e.generator.Generate(gctx, hypotheticalStylePrompts[style], hypotheticalPrompt(query))
			if err != nil {
				e.logger.Warn("hypothetical generation failed", "component", "hyde", "style", style, "error", err)
				text = fmt.Sprintf("This document discusses %s. It provides comprehensive information about the topic including definitions, examples, and practical applications.", query)
			}
			docs[i] = models.Hypothetical{Style: style, Document: text, Length: len(text)}
			return nil
		})
	}
	g.Wait() //nolint:errcheck // workers never return errors; failures degrade in place

	return docs
}

// ensembleRetrieve runs one retrieval per hypothetical plus one with the
// original question, merging all chunk sets keyed by content fingerprint. The
// direct-query retrieval failing is fatal (nothing to answer from); a single
// hypothetical probe failing only weakens the ensemble.
func (e *RAGEngine) ensembleRetrieve(ctx context.Context, agentID, query string, hypotheticals []models.Hypothetical) (map[string]*mergedChunk, error) {
	merged := make(map[string]*mergedChunk)
	var mu sync.Mutex
	next := 0

	merge := func(chunks []models.Chunk) {
		mu.Lock()
		defer mu.Unlock()
		for _, chunk := range chunks {
			key := chunk.Fingerprint()
			if entry, ok := merged[key]; ok {
				entry.count++
				if chunk.Score > entry.base {
					entry.base = chunk.Score
				}
				continue
			}
			merged[key] = &mergedChunk{chunk: chunk, base: chunk.Score, count: 1, order: next}
			next++
		}
	}

	// The direct retrieval goes first so a cold index builds once before the
	// concurrent probes fan out.
	direct, err := e.retriever.Retrieve(ctx, agentID, query, e.opts.TopK)
	if err != nil {
		return nil, err
	}
	merge(direct)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(hydeConcurrency)
	for _, hyp := range hypotheticals {
		g.Go(func() error {
			chunks, err := e.retriever.Retrieve(gctx, agentID, hyp.Document, e.opts.TopK)
			if err != nil {
				e.logger.Warn("hypothetical retrieval failed", "component", "hyde", "style", hyp.Style, "error", err)
				return nil
			}
			merge(chunks)
			return nil
		})
	}
	g.Wait() //nolint:errcheck // probe failures are absorbed above

	return merged, nil
}

// rankMerged orders unique chunks by composite score: the best base score
// boosted for every additional probe that independently surfaced the chunk.
// Ties fall back to first-retrieved order so ranking is stable.
func rankMerged(merged map[string]*mergedChunk) []models.Chunk {
	entries := make([]*mergedChunk, 0, len(merged))
	for _, entry := range merged {
		entries = append(entries, entry)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		si := compositeScore(entries[i])
		sj := compositeScore(entries[j])
		if si != sj {
			return si > sj
		}
		return entries[i].order < entries[j].order
	})

	chunks := make([]models.Chunk, len(entries))
	for i, entry := range entries {
		chunk := entry.chunk
		chunk.Score = compositeScore(entry)
		chunks[i] = chunk
	}
	return chunks
}

func compositeScore(entry *mergedChunk) float64 {
	return entry.base * (1 + convergenceBoost*float64(entry.count-1))
}
