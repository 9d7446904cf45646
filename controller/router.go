package controller

import "github.com/gin-gonic/gin"

// NewRouter assembles the gin engine with CORS and all routes. Kept separate
// from main so tests can drive the full HTTP surface in-process.
func NewRouter(rag *RAGController, agents *AgentController) *gin.Engine {
	router := gin.Default()

	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	router.GET("/health", rag.Health)
	router.POST("/query/", rag.Query)
	router.GET("/agent-files/:agent_id", rag.ListFiles)
	router.POST("/upload-file/:agent_id", rag.UploadFile)
	router.DELETE("/agent-files/:agent_id/:filename", rag.DeleteFile)

	router.GET("/agents", agents.List)
	router.POST("/agents", agents.Create)
	router.GET("/agents/:agent_id", agents.Get)
	router.GET("/agents/:agent_id/settings", agents.GetSettings)
	router.POST("/agents/:agent_id/settings", agents.UpdateSettings)

	return router
}
