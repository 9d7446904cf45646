package services

import (
	"strings"

	"github.com/kulbirminhas/agentic-rag/models"
)

const contextSeparator = "\n\n"

// AssembleContext concatenates chunks in their given (score-descending) order
// into a context string no longer than budget characters. The last chunk that
// crosses the budget is truncated rather than dropped; budget enforcement
// wins over semantic completeness. Deterministic for the same input.
func AssembleContext(chunks []models.Chunk, budget int) string {
	if budget <= 0 || len(chunks) == 0 {
		return ""
	}

	var sb strings.Builder
	for _, chunk := range chunks {
		text := chunk.Text
		if text == "" {
			continue
		}
		if sb.Len() > 0 {
			if sb.Len()+len(contextSeparator) >= budget {
				break
			}
			sb.WriteString(contextSeparator)
		}
		remaining := budget - sb.Len()
		if len(text) > remaining {
			sb.WriteString(text[:remaining])
			break
		}
		sb.WriteString(text)
	}
	return sb.String()
}

// excerpt returns up to n characters of text, for degraded-mode responses and
// hypothetical summaries.
func excerpt(text string, n int) string {
	if len(text) <= n {
		return text
	}
	return text[:n] + "..."
}
