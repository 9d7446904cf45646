package services

import (
	"context"
	"errors"
	"strings"

	"github.com/kulbirminhas/agentic-rag/models"
)

// acceptThreshold is the overall score at which the self-critique loop stops
// refining.
const acceptThreshold = 4.0

// selfCritique generates an answer, scores it, and optionally re-queries with
// a refined question, up to MaxIterations passes. The best-scoring answer
// across all passes wins, so a later regression never replaces a good earlier
// answer.
//
// A failed evaluation gets the conservative mid-range score and still counts
// against the ceiling. A refinement that produces nothing is treated as
// convergence.
func (e *RAGEngine) selfCritique(ctx context.Context, agentID, query string) (*strategyResult, error) {
	result := &strategyResult{}
	currentQuery := query
	var bestAnswer string
	var bestScore float64
	var bestSources []models.Chunk

	for iteration := 1; iteration <= e.opts.MaxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			break
		}

		chunks, err := e.retriever.Retrieve(ctx, agentID, currentQuery, e.opts.TopK)
		if err != nil {
			if iteration == 1 {
				return nil, err
			}
			e.logger.Warn("refined retrieval failed, stopping", "component", "selfcritique", "iteration", iteration, "error", err)
			break
		}
		contextText := AssembleContext(chunks, e.opts.ContextBudget)

		answer, err := e.generator.Generate(ctx, answerSystemPrompt, answerPrompt(currentQuery, contextText))
		if err != nil {
			if iteration == 1 {
				return nil, err
			}
			break
		}

		eval := e.evaluate(ctx, query, answer, contextText)
		result.Iterations = append(result.Iterations, models.IterationRecord{
			Iteration:       iteration,
			Query:           currentQuery,
			Response:        answer,
			ContextLength:   len(contextText),
			RetrievedChunks: len(chunks),
			Evaluation:      eval,
		})

		if eval.Overall > bestScore {
			bestScore = eval.Overall
			bestAnswer = answer
			bestSources = chunks
		}

		if !eval.NeedsImprovement || eval.Overall >= acceptThreshold {
			e.logger.Info("self-critique converged", "component", "selfcritique", "iterations", iteration, "score", eval.Overall)
			break
		}

		if iteration == e.opts.MaxIterations {
			break
		}

		refined := e.refineQuery(ctx, query, answer, eval)
		if refined == "" {
			e.logger.Info("no refined query produced, stopping", "component", "selfcritique", "iteration", iteration)
			break
		}
		currentQuery = refined
	}

	if bestAnswer == "" {
		return nil, errors.New("self-critique produced no answer")
	}
	result.Answer = bestAnswer
	result.BestScore = bestScore
	result.Sources = bestSources
	return result, nil
}

// evaluate scores one answer on the four-axis rubric. Any failure collapses
// to the conservative default.
func (e *RAGEngine) evaluate(ctx context.Context, question, answer, contextText string) models.Evaluation {
	raw, err := e.generator.Generate(ctx, "", evaluationPrompt(question, answer, contextText))
	if err != nil {
		e.logger.Warn("evaluation call failed", "component", "selfcritique", "error", err)
		return conservativeEvaluation()
	}
	eval, err := parseEvaluation(raw)
	if err != nil {
		e.logger.Warn("evaluation unparseable", "component", "selfcritique", "error", err)
	}
	return eval
}

// refineQuery asks the model for a sharper retrieval query. Empty on any
// failure; callers treat that as convergence, not error.
func (e *RAGEngine) refineQuery(ctx context.Context, originalQuery, answer string, eval models.Evaluation) string {
	refined, err := e.generator.Generate(ctx, "", refinementPrompt(originalQuery, answer, eval.ImprovementSuggestions))
	if err != nil {
		e.logger.Warn("refinement call failed", "component", "selfcritique", "error", err)
		return ""
	}
	return strings.TrimSpace(refined)
}
