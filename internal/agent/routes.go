package agent

import (
	"github.com/gin-gonic/gin"
)

// Configures all agent API routes
func (s *Server) setupRoutes(router *gin.Engine) {
	// API version prefix
	v1 := router.Group("/api/v1")

	// Health check endpoint
	v1.GET("/health", s.handleHealth)

	// Remote command execution
	v1.POST("/exec", s.handleExec)

	// Cluster membership as seen by this node's finder
	v1.GET("/nodes", s.handleNodes)

	// Error-stream delivery target
	streams := v1.Group("/streams")
	{
		streams.POST("/stderr", s.handleStderr)
	}

	// Config store access, whitelist enforced on writes
	config := v1.Group("/config")
	{
		config.GET("/:key", s.handleConfigGet)
		config.PUT("/:key", s.handleConfigSet)
	}
}
