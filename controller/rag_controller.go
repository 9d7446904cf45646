package controller

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kulbirminhas/agentic-rag/models"
	"github.com/kulbirminhas/agentic-rag/services"
)

// RAGController handles the HTTP requests for the RAG API. It depends on the
// engine and stores to perform the actual business logic.
type RAGController struct {
	engine     *services.RAGEngine
	fileStore  *services.FileStore
	agentStore *services.AgentStore
	cache      *services.IndexCache
	config     *services.Config
}

// NewRAGController is a constructor function that creates a new RAGController.
func NewRAGController(engine *services.RAGEngine, fileStore *services.FileStore, agentStore *services.AgentStore, cache *services.IndexCache, config *services.Config) *RAGController {
	return &RAGController{
		engine:     engine,
		fileStore:  fileStore,
		agentStore: agentStore,
		cache:      cache,
		config:     config,
	}
}

// Query is the handler for POST /query/. Every recognized outcome is HTTP
// 200 with a status discriminator; only malformed requests get 4xx.
func (c *RAGController) Query(ctx *gin.Context) {
	var req models.QueryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Empty query provided"})
		return
	}
	if req.AgentID == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "agent_id is required"})
		return
	}

	strategy, err := services.ParseStrategy(req.Strategy)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	response, err := c.engine.Query(ctx.Request.Context(), req.AgentID, req.Query, strategy)
	if err != nil {
		if errors.Is(err, services.ErrInvalidRequest) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Query processing error: " + err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, response)
}

// ListFiles is the handler for GET /agent-files/:agent_id. An agent with no
// uploads yet gets an empty list, not an error.
func (c *RAGController) ListFiles(ctx *gin.Context) {
	agentID := ctx.Param("agent_id")
	files, err := c.fileStore.List(agentID)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, models.ListFilesResponse{
		AgentID: agentID,
		Files:   files,
		Count:   len(files),
	})
}

// UploadFile is the handler for POST /upload-file/:agent_id. Saving the file
// invalidates the agent's cached index through the file store hook; the
// provenance row is best effort.
func (c *RAGController) UploadFile(ctx *gin.Context) {
	agentID := ctx.Param("agent_id")

	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Missing file in upload: " + err.Error()})
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Could not read upload: " + err.Error()})
		return
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Could not read upload: " + err.Error()})
		return
	}

	path, err := c.fileStore.Save(agentID, fileHeader.Filename, data)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := c.agentStore.RecordFile(ctx.Request.Context(), agentID, models.AgentFile{
		Filename:    fileHeader.Filename,
		FilePath:    path,
		FileSize:    int64(len(data)),
		ContentType: fileHeader.Header.Get("Content-Type"),
	}); err != nil && !errors.Is(err, services.ErrAgentNotFound) {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Could not record file: " + err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, models.UploadResponse{
		Message:  "File uploaded successfully for agent " + agentID,
		Filename: fileHeader.Filename,
		Size:     int64(len(data)),
		Path:     path,
	})
}

// DeleteFile is the handler for DELETE /agent-files/:agent_id/:filename.
func (c *RAGController) DeleteFile(ctx *gin.Context) {
	agentID := ctx.Param("agent_id")
	filename := ctx.Param("filename")

	if err := c.fileStore.Delete(agentID, filename); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := c.agentStore.RemoveFileRecord(ctx.Request.Context(), agentID, filename); err != nil && !errors.Is(err, services.ErrAgentNotFound) {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Could not remove file record: " + err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "File deleted for agent " + agentID, "filename": filename})
}

// Health is the handler for GET /health: environment completeness, index
// cache occupancy, corpus presence per agent, and database reachability.
func (c *RAGController) Health(ctx *gin.Context) {
	dbErr := c.agentStore.Ping(ctx.Request.Context())

	corpora := map[string]bool{}
	for _, agentID := range c.fileStore.AgentIDs() {
		corpora[agentID] = c.fileStore.HasDocuments(agentID)
	}

	status := "healthy"
	if dbErr != nil {
		status = "degraded"
	}

	ctx.JSON(http.StatusOK, gin.H{
		"status":      status,
		"environment": c.config.EnvReady(),
		"database":    gin.H{"connected": dbErr == nil},
		"rag_system": gin.H{
			"active_indexes": c.cache.Size(),
			"index_builds":   c.cache.BuildCount(),
			"agent_corpora":  corpora,
		},
	})
}
