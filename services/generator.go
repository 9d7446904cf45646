package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

// Generator sends one prompt to the hosted completion API and returns the
// model's text. Transport or API failures surface as ErrGenerationUnavailable
// so strategies can distinguish "the call failed" from "the model said it
// doesn't know".
type Generator interface {
	Generate(ctx context.Context, systemInstructions, prompt string) (string, error)
}

// GeminiGenerator implements Generator over google.golang.org/genai.
type GeminiGenerator struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewGeminiGenerator wraps an existing genai client. Every call is bounded by
// timeout regardless of the caller's context.
func NewGeminiGenerator(client *genai.Client, model string, timeout time.Duration) *GeminiGenerator {
	return &GeminiGenerator{client: client, model: model, timeout: timeout}
}

// Generate implements Generator.
func (g *GeminiGenerator) Generate(ctx context.Context, systemInstructions, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	var config *genai.GenerateContentConfig
	if systemInstructions != "" {
		contents := genai.Text(systemInstructions)
		if len(contents) > 0 {
			config = &genai.GenerateContentConfig{SystemInstruction: contents[0]}
		}
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("%w: gemini api call failed: %v", ErrGenerationUnavailable, err)
	}
	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: gemini returned no candidates", ErrGenerationUnavailable)
	}

	var responseText strings.Builder
	for _, p := range result.Candidates[0].Content.Parts {
		if p.Text != "" {
			responseText.WriteString(p.Text)
		}
	}
	if responseText.Len() == 0 {
		return "", fmt.Errorf("%w: gemini returned empty response", ErrGenerationUnavailable)
	}
	return responseText.String(), nil
}
