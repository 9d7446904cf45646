package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kulbirminhas/agentic-rag/models"
	"github.com/kulbirminhas/agentic-rag/services"
)

// AgentController handles agent metadata endpoints backed by the SQLite
// store.
type AgentController struct {
	agentStore *services.AgentStore
	fileStore  *services.FileStore
}

// NewAgentController creates the controller.
func NewAgentController(agentStore *services.AgentStore, fileStore *services.FileStore) *AgentController {
	return &AgentController{agentStore: agentStore, fileStore: fileStore}
}

// List is the handler for GET /agents.
func (c *AgentController) List(ctx *gin.Context) {
	agents, err := c.agentStore.ListAgents(ctx.Request.Context())
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Database error: " + err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, agents)
}

// Create is the handler for POST /agents. The agent's document directory is
// created alongside the row so a first upload has somewhere to land.
func (c *AgentController) Create(ctx *gin.Context) {
	var req models.CreateAgentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	agent, err := c.agentStore.CreateAgent(ctx.Request.Context(), req)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create agent: " + err.Error()})
		return
	}
	if _, err := c.fileStore.AgentDir(agent.Name); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create agent directory: " + err.Error()})
		return
	}
	ctx.JSON(http.StatusCreated, agent)
}

// Get is the handler for GET /agents/:agent_id.
func (c *AgentController) Get(ctx *gin.Context) {
	agent, ok := c.lookup(ctx)
	if !ok {
		return
	}
	ctx.JSON(http.StatusOK, agent)
}

// GetSettings is the handler for GET /agents/:agent_id/settings.
func (c *AgentController) GetSettings(ctx *gin.Context) {
	agent, ok := c.lookup(ctx)
	if !ok {
		return
	}
	settings, err := c.agentStore.GetSettings(ctx.Request.Context(), agent.ID)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Database error: " + err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"agent_id": agent.ID, "settings": settings})
}

// UpdateSettings is the handler for POST /agents/:agent_id/settings.
func (c *AgentController) UpdateSettings(ctx *gin.Context) {
	agent, ok := c.lookup(ctx)
	if !ok {
		return
	}

	var settings map[string]any
	if err := ctx.ShouldBindJSON(&settings); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	if err := c.agentStore.SetSettings(ctx.Request.Context(), agent.ID, settings); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update settings: " + err.Error()})
		return
	}

	keys := make([]string, 0, len(settings))
	for key := range settings {
		keys = append(keys, key)
	}
	ctx.JSON(http.StatusOK, gin.H{
		"message":          "Settings updated for agent " + strconv.FormatInt(agent.ID, 10),
		"updated_settings": keys,
	})
}

func (c *AgentController) lookup(ctx *gin.Context) (*models.Agent, bool) {
	agent, err := c.agentStore.GetAgent(ctx.Request.Context(), ctx.Param("agent_id"))
	if errors.Is(err, services.ErrAgentNotFound) {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Agent not found"})
		return nil, false
	}
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Database error: " + err.Error()})
		return nil, false
	}
	return agent, true
}
