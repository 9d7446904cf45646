package models

import (
	"crypto/sha256"
	"encoding/hex"
)

// Chunk is a scored span of text produced by a retrieval call. Chunks are
// transient: they exist only between retrieval and answer generation.
type Chunk struct {
	ID       string                 `json:"id"`
	Text     string                 `json:"text"`
	Score    float64                `json:"score"`
	Source   string                 `json:"source,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// fingerprintLen is the number of leading characters hashed to identify a
// chunk across retrievals that surfaced the same content.
const fingerprintLen = 100

// Fingerprint returns a stable dedup key derived only from the chunk content,
// so the same text retrieved by different queries merges into one entry.
func (c Chunk) Fingerprint() string {
	text := c.Text
	if len(text) > fingerprintLen {
		text = text[:fingerprintLen]
	}
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
