package services

import (
	"context"
	"strings"

	"github.com/kulbirminhas/agentic-rag/models"
)

// validationThreshold is the source-validation score an answer must clear,
// together with a clean error analysis, for the corrective loop to stop.
const validationThreshold = 0.8

// maxSupplementalQueries bounds the targeted retrievals issued per correction
// pass.
const maxSupplementalQueries = 3

// corrective generates an answer and then runs detect-validate-correct passes
// against the source context, up to MaxCorrections rounds. The running
// context only ever grows: supplemental retrievals are appended, never
// replacing what earlier rounds used.
//
// A detector failure is treated as "errors present, medium confidence" so an
// unvetted answer is never silently accepted.
func (e *RAGEngine) corrective(ctx context.Context, agentID, query string) (*strategyResult, error) {
	chunks, err := e.retriever.Retrieve(ctx, agentID, query, e.opts.TopK)
	if err != nil {
		return nil, err
	}
	currentContext := AssembleContext(chunks, e.opts.ContextBudget)

	currentAnswer, err := e.generator.Generate(ctx, answerSystemPrompt, answerPrompt(query, currentContext))
	if err != nil {
		return nil, err
	}

	result := &strategyResult{Sources: chunks}

	for iteration := 1; iteration <= e.opts.MaxCorrections; iteration++ {
		if err := ctx.Err(); err != nil {
			break
		}

		analysis := e.detectErrors(ctx, query, currentAnswer, currentContext)
		validation := e.validateAgainstSource(ctx, currentAnswer, currentContext)

		result.Corrections = append(result.Corrections, models.CorrectionRecord{
			Iteration:       iteration,
			Response:        currentAnswer,
			ErrorAnalysis:   analysis,
			Validation:      validation,
			NeedsCorrection: analysis.CorrectionNeeded,
			ConfidenceScore: analysis.ConfidenceScore,
			ValidationScore: validation.ValidationScore,
		})

		if !analysis.CorrectionNeeded && validation.ValidationScore > validationThreshold {
			e.logger.Info("corrective loop validated", "component", "corrective", "iterations", iteration)
			break
		}
		if iteration == e.opts.MaxCorrections {
			e.logger.Info("correction ceiling reached", "component", "corrective", "iterations", iteration)
			break
		}

		currentContext = e.fetchCorrectionContext(ctx, agentID, query, analysis, currentContext)

		corrected, err := e.generator.Generate(ctx, "", correctionPrompt(query, currentAnswer, analysis, currentContext, iteration))
		if err != nil {
			e.logger.Warn("regeneration failed, keeping previous answer", "component", "corrective", "iteration", iteration, "error", err)
			break
		}
		currentAnswer = corrected
	}

	result.Answer = currentAnswer
	if n := len(result.Corrections); n > 0 {
		result.BestScore = result.Corrections[n-1].ValidationScore
	}
	return result, nil
}

func (e *RAGEngine) detectErrors(ctx context.Context, query, answer, contextText string) models.ErrorAnalysis {
	raw, err := e.generator.Generate(ctx, "", errorDetectionPrompt(query, answer, contextText))
	if err != nil {
		e.logger.Warn("error detection call failed", "component", "corrective", "error", err)
		return conservativeErrorAnalysis()
	}
	analysis, err := parseErrorAnalysis(raw)
	if err != nil {
		e.logger.Warn("error analysis unparseable", "component", "corrective", "error", err)
	}
	return analysis
}

func (e *RAGEngine) validateAgainstSource(ctx context.Context, answer, contextText string) models.Validation {
	raw, err := e.generator.Generate(ctx, "", validationPrompt(answer, contextText))
	if err != nil {
		e.logger.Warn("validation call failed", "component", "corrective", "error", err)
		return conservativeValidation()
	}
	validation, err := parseValidation(raw)
	if err != nil {
		e.logger.Warn("validation unparseable", "component", "corrective", "error", err)
	}
	return validation
}

// fetchCorrectionContext issues one targeted supplemental query per detected
// issue type and appends the results to the running context. Retrieval
// failures here degrade the pass rather than aborting the query.
func (e *RAGEngine) fetchCorrectionContext(ctx context.Context, agentID, query string, analysis models.ErrorAnalysis, currentContext string) string {
	queries := supplementalQueries(query, analysis)

	var additions []string
	for _, supplemental := range queries {
		chunks, err := e.retriever.Retrieve(ctx, agentID, supplemental, 2)
		if err != nil {
			e.logger.Warn("supplemental retrieval failed", "component", "corrective", "query", supplemental, "error", err)
			continue
		}
		for _, chunk := range chunks {
			if chunk.Text != "" && !strings.Contains(currentContext, chunk.Text) {
				additions = append(additions, chunk.Text)
			}
		}
	}

	if len(additions) == 0 {
		return currentContext
	}
	return currentContext + contextSeparator + strings.Join(additions, contextSeparator)
}

// supplementalQueries derives targeted queries from the detected issues, one
// per issue type, capped at maxSupplementalQueries plus a rephrasing of the
// original question.
func supplementalQueries(query string, analysis models.ErrorAnalysis) []string {
	var queries []string
	seen := map[string]bool{}
	for _, issue := range analysis.DetectedIssues {
		if len(queries) >= maxSupplementalQueries {
			break
		}
		if seen[issue.Type] {
			continue
		}
		switch issue.Type {
		case models.IssueMissingInfo:
			queries = append(queries, query+" "+issue.Description)
			seen[issue.Type] = true
		case models.IssueFactualError:
			queries = append(queries, "correct information about "+issue.Location)
			seen[issue.Type] = true
		case models.IssueUnsupportedClaim:
			queries = append(queries, "evidence for "+issue.Location)
			seen[issue.Type] = true
		}
	}
	return append(queries, "comprehensive information about "+query)
}
