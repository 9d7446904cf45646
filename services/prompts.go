package services

import (
	"fmt"
	"strings"

	"github.com/kulbirminhas/agentic-rag/models"
)

// answerSystemPrompt grounds generation in the retrieved context only.
const answerSystemPrompt = `You are an AI assistant that provides accurate, helpful responses based on the given context.

Instructions:
- Use only the information provided in the context
- If the context doesn't contain enough information, acknowledge this
- Be specific and detailed in your response
- Do not invent information`

func answerPrompt(query, context string) string {
	return fmt.Sprintf("Context: %s\n\nQuestion: %s\n\nPlease provide a comprehensive answer based on the context above.", context, query)
}

func evaluationPrompt(question, response, context string) string {
	return fmt.Sprintf(`Evaluate the quality of this response based on the given context.

Question: %s
Context: %s
Response: %s

Rate the response on the following criteria (1-5 scale):
1. Relevance: How well does the response address the question?
2. Accuracy: How accurate is the information based on the context?
3. Completeness: How complete is the response?
4. Coherence: How well-structured and coherent is the response?

Return your evaluation in JSON format:
{
    "relevance": score,
    "accuracy": score,
    "completeness": score,
    "coherence": score,
    "overall": average_score,
    "needs_improvement": true/false,
    "improvement_suggestions": ["suggestion1", "suggestion2"]
}`, question, context, response)
}

func refinementPrompt(originalQuery, currentResponse string, suggestions []string) string {
	return fmt.Sprintf(`Based on the evaluation feedback, generate a more specific retrieval query to improve the response.

Original Query: %s
Current Response: %s
Issues to Address: %s

Generate a refined query that would retrieve more relevant information to address these issues.
Return only the refined query, nothing else.`, originalQuery, currentResponse, strings.Join(suggestions, ", "))
}

func errorDetectionPrompt(query, response, context string) string {
	return fmt.Sprintf(`You are an expert error detection system. Analyze the provided response for potential errors, inaccuracies, or issues.

Original Question: %s

Context Used: %s

Generated Response: %s

Analyze the response for the following potential issues:
1. Factual inaccuracies or contradictions with the context
2. Missing important information that should be included
3. Logical inconsistencies or reasoning errors
4. Misinterpretation of the question
5. Unsupported claims not backed by the context
6. Unclear or confusing explanations

Return your analysis in JSON format:
{
    "has_errors": true/false,
    "confidence_score": 0.0-1.0,
    "detected_issues": [
        {
            "type": "factual_error|missing_info|logical_error|misinterpretation|unsupported_claim|unclear",
            "description": "Detailed description of the issue",
            "severity": "high|medium|low",
            "location": "Specific part of response where issue occurs"
        }
    ],
    "overall_assessment": "Brief overall assessment",
    "correction_needed": true/false,
    "suggested_improvements": ["improvement 1", "improvement 2"]
}

Be thorough but fair in your analysis.`, query, excerpt(context, 1500), response)
}

func validationPrompt(response, context string) string {
	return fmt.Sprintf(`Validate the following response against the provided source context.

Response to validate: %s

Source context: %s

Check for:
1. Claims in the response that are supported by the source context
2. Claims in the response that contradict the source context
3. Claims in the response that are not mentioned in the source context

Return validation results in JSON format:
{
    "supported_claims": ["claim 1", "claim 2"],
    "contradicted_claims": ["contradicted claim 1"],
    "unsupported_claims": ["unsupported claim 1"],
    "validation_score": 0.0-1.0,
    "needs_correction": true/false,
    "issues_found": ["issue 1", "issue 2"]
}`, response, context)
}

func correctionPrompt(query, previousResponse string, analysis models.ErrorAnalysis, context string, iteration int) string {
	var issues strings.Builder
	for _, issue := range analysis.DetectedIssues {
		fmt.Fprintf(&issues, "- %s: %s\n", issue.Type, issue.Description)
	}
	var improvements strings.Builder
	for _, imp := range analysis.SuggestedImprovements {
		fmt.Fprintf(&improvements, "- %s\n", imp)
	}
	return fmt.Sprintf(`You are tasked with correcting a response based on detailed error analysis.

Original Question: %s

Previous Response (Iteration %d): %s

Detected Issues:
%s
Enhanced Context: %s

Suggested Improvements:
%s
Instructions:
1. Address each detected issue specifically
2. Use the enhanced context to provide accurate information
3. Ensure all claims are supported by the provided context
4. Maintain clarity and coherence in your response
5. If you cannot find sufficient information to address an issue, acknowledge this

Corrected Response:`, query, iteration, previousResponse, issues.String(), excerpt(context, 2500), improvements.String())
}

// Hypothetical document styles, in generation order.
var hypotheticalStyles = []string{"comprehensive", "concise", "academic", "practical"}

var hypotheticalStylePrompts = map[string]string{
	"comprehensive": `Write a comprehensive, detailed document that would perfectly answer the following question. Include specific facts, examples, and explanations. Write as if you're an expert in the field providing a thorough overview of the topic.`,
	"concise":       `Write a concise but informative document that directly answers the following question. Focus on the most important points and key facts.`,
	"academic":      `Write an academic-style document that would answer the following question. Include formal language, structured arguments, and reference to concepts and methodologies.`,
	"practical":     `Write a practical, actionable document that answers the following question. Focus on real-world applications, examples, and implementable solutions.`,
}

func hypotheticalPrompt(query string) string {
	return fmt.Sprintf(`Question: %s

Generate a hypothetical document that would comprehensively answer this question.
The document should be well-structured, informative, and contain the type of content
that would likely be found in a knowledge base addressing this topic.

Hypothetical Document:`, query)
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func hydeFinalPrompt(query, context string, hypotheticals []models.Hypothetical) string {
	var summaries strings.Builder
	for _, hyp := range hypotheticals {
		fmt.Fprintf(&summaries, "- %s: %s\n", titleCase(hyp.Style), excerpt(hyp.Document, 200))
	}
	return fmt.Sprintf(`You have generated hypothetical documents and used them to retrieve relevant information.

Original Question: %s

Hypothetical Documents Generated:
%s
Retrieved Context:
%s

Instructions:
1. Provide a comprehensive answer to the original question using the retrieved context
2. The hypothetical documents helped guide the retrieval - use this to provide a well-rounded response
3. Provide specific examples and details from the retrieved context
4. Structure your response clearly and make it informative

Response:`, query, summaries.String(), context)
}
