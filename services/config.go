package services

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Embedding providers recognized in Config.EmbedProvider.
const (
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
)

// Config carries every environment-driven setting the service recognizes.
type Config struct {
	Port string

	// Hosted LLM
	GeminiAPIKey string
	Model        string

	// Embeddings
	EmbedProvider string
	EmbedModel    string
	OllamaURL     string

	// Vector store
	ChromaURL        string
	CollectionPrefix string

	// Storage
	AgentDataDir string
	DatabasePath string

	// Strategy tuning
	MaxIterations  int
	MaxCorrections int
	TopK           int
	ContextBudget  int
	RequestTimeout time.Duration
}

// LoadConfig reads the environment (after a best-effort .env load) and applies
// defaults for everything optional.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables.")
	}

	cfg := &Config{
		Port:             envOr("PORT", "8000"),
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		Model:            envOr("RAG_MODEL", "gemini-2.5-flash"),
		EmbedProvider:    envOr("RAG_EMBED_PROVIDER", ProviderGemini),
		EmbedModel:       envOr("RAG_EMBED_MODEL", "gemini-embedding-001"),
		OllamaURL:        envOr("OLLAMA_URL", "http://localhost:11434"),
		ChromaURL:        os.Getenv("CHROMA_URL"),
		CollectionPrefix: envOr("CHROMA_COLLECTION_PREFIX", "agent"),
		AgentDataDir:     envOr("AGENT_DATA_DIR", "data/agents"),
		DatabasePath:     envOr("DATABASE_PATH", "data/agentic_ai.db"),
		MaxIterations:    envIntOr("RAG_MAX_ITERATIONS", 3),
		MaxCorrections:   envIntOr("RAG_MAX_CORRECTIONS", 3),
		TopK:             envIntOr("RAG_TOP_K", 5),
		ContextBudget:    envIntOr("RAG_CONTEXT_BUDGET", 8000),
		RequestTimeout:   time.Duration(envIntOr("REQUEST_TIMEOUT_SECONDS", 60)) * time.Second,
	}

	if cfg.EmbedProvider != ProviderGemini && cfg.EmbedProvider != ProviderOllama {
		return nil, fmt.Errorf("%w: unknown embed provider %q", ErrInvalidRequest, cfg.EmbedProvider)
	}
	return cfg, nil
}

// EnvReady reports which required keys are present, for the health endpoint.
func (c *Config) EnvReady() map[string]bool {
	return map[string]bool{
		"GEMINI_API_KEY": c.GeminiAPIKey != "",
		"CHROMA_URL":     c.ChromaURL != "",
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("WARN: ignoring invalid %s=%q", key, v)
		return fallback
	}
	return n
}
