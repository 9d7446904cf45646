package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/gin-gonic/gin"
	"google.golang.org/genai"

	"github.com/kulbirminhas/agentic-rag/controller"
	"github.com/kulbirminhas/agentic-rag/services"
)

func main() {
	cfg, err := services.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Invalid configuration: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if err := services.InitPDFLicense(os.Getenv("UNIDOC_LICENSE_KEY")); err != nil {
		logger.Warn("failed to set UniPDF license key, PDF indexing will fail", "error", err)
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}

	var chromaOpts []chromago.ClientOption
	if cfg.ChromaURL != "" {
		chromaOpts = append(chromaOpts, chromago.WithBaseURL(cfg.ChromaURL))
	}
	chromaClient, err := chromago.NewHTTPClient(chromaOpts...)
	if err != nil {
		log.Fatalf("FATAL: Failed to create chroma client: %v", err)
	}
	defer func() {
		if err := chromaClient.Close(); err != nil {
			logger.Warn("failed to close chroma client", "error", err)
		}
	}()

	geminiClient, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to create Gemini client: %v. Make sure GEMINI_API_KEY is set.", err)
	}
	logger.Info("connected to Google Gemini", "model", cfg.Model)

	var embedder services.Embedder
	switch cfg.EmbedProvider {
	case services.ProviderOllama:
		embedder = services.NewOllamaEmbedder(httpClient, cfg.OllamaURL, cfg.EmbedModel)
	default:
		embedder = services.NewGeminiEmbedder(geminiClient, cfg.EmbedModel)
	}

	fileStore, err := services.NewFileStore(cfg.AgentDataDir, logger)
	if err != nil {
		log.Fatalf("FATAL: Failed to create file store: %v", err)
	}

	agentStore, err := services.NewAgentStore(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("FATAL: Failed to open agent database: %v", err)
	}
	defer agentStore.Close()

	indexer := services.NewFileIndexingService(chromaClient, embedder, fileStore, cfg.CollectionPrefix, logger)
	cache := services.NewIndexCache(indexer, logger)

	// Every document mutation through the API drops that agent's index.
	fileStore.OnMutate(cache.Invalidate)

	retriever := services.NewChromaRetriever(cache, embedder, logger)
	generator := services.NewGeminiGenerator(geminiClient, cfg.Model, cfg.RequestTimeout)

	engine := services.NewRAGEngine(fileStore, retriever, generator, services.EngineOptions{
		TopK:           cfg.TopK,
		ContextBudget:  cfg.ContextBudget,
		MaxIterations:  cfg.MaxIterations,
		MaxCorrections: cfg.MaxCorrections,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Mutations made outside the API (rsync, manual edits) invalidate too.
	watcher := services.NewCorpusWatcher(fileStore, cache, logger)
	go watcher.Run(ctx)

	ragController := controller.NewRAGController(engine, fileStore, agentStore, cache, cfg)
	agentController := controller.NewAgentController(agentStore, fileStore)
	router := controller.NewRouter(ragController, agentController)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown", "error", err)
		}
	}()

	logger.Info("RAG backend starting", "port", cfg.Port, "mode", gin.Mode())
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("FATAL: Failed to start server: %v", err)
	}
}
