package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kulbirminhas/agentic-rag/models"
)

// decodeJSONBlock parses the first JSON object found in an LLM reply. Models
// wrap JSON in code fences or prose often enough that a bare Unmarshal is not
// sufficient.
func decodeJSONBlock(text string, v any) error {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return fmt.Errorf("%w: no JSON object in output", ErrMalformedEvaluation)
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEvaluation, err)
	}
	return nil
}

// conservativeEvaluation is substituted when the evaluator fails or returns
// garbage: mid-range on every axis and flagged for improvement, so the loop
// neither accepts an unassessed answer nor spins past its ceiling.
func conservativeEvaluation() models.Evaluation {
	return models.Evaluation{
		Relevance:              3,
		Accuracy:               3,
		Completeness:           3,
		Coherence:              3,
		Overall:                3,
		NeedsImprovement:       true,
		ImprovementSuggestions: []string{"Unable to evaluate - system error"},
	}
}

// parseEvaluation decodes the self-critique verdict, recomputing the overall
// score when the model omits it.
func parseEvaluation(text string) (models.Evaluation, error) {
	var eval models.Evaluation
	if err := decodeJSONBlock(text, &eval); err != nil {
		return conservativeEvaluation(), err
	}
	if eval.Overall == 0 {
		eval.Overall = (eval.Relevance + eval.Accuracy + eval.Completeness + eval.Coherence) / 4
	}
	return eval, nil
}

// conservativeErrorAnalysis biases a failed detector toward one more
// correction pass rather than silently accepting an unvetted answer.
func conservativeErrorAnalysis() models.ErrorAnalysis {
	return models.ErrorAnalysis{
		HasErrors:       true,
		ConfidenceScore: 0.5,
		DetectedIssues: []models.DetectedIssue{{
			Type:        models.IssueUnclear,
			Description: "Error detection system encountered an issue",
			Severity:    "medium",
			Location:    "error detection module",
		}},
		OverallAssessment:     "Unable to complete error analysis",
		CorrectionNeeded:      true,
		SuggestedImprovements: []string{"Review response manually", "Verify facts against reliable sources"},
	}
}

func parseErrorAnalysis(text string) (models.ErrorAnalysis, error) {
	var analysis models.ErrorAnalysis
	if err := decodeJSONBlock(text, &analysis); err != nil {
		return conservativeErrorAnalysis(), err
	}
	return analysis, nil
}

// conservativeValidation scores zero so a failed validator can never satisfy
// the corrective loop's acceptance threshold.
func conservativeValidation() models.Validation {
	return models.Validation{
		ValidationScore: 0,
		NeedsCorrection: true,
		IssuesFound:     []string{"Validation system error"},
	}
}

func parseValidation(text string) (models.Validation, error) {
	var validation models.Validation
	if err := decodeJSONBlock(text, &validation); err != nil {
		return conservativeValidation(), err
	}
	return validation, nil
}
