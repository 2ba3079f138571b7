package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/northfold/agentrelay/pkg/memory"
)

// GetMemory handles GET /api/memory?assistant_id=.
func (s *Server) GetMemory(c *gin.Context) {
	userID := userIDFromContext(c)
	assistantID := c.Query("assistant_id")

	loader := memory.NewLoader(s.memoryCfg, userID, assistantID)
	content := loader.Load()

	c.JSON(http.StatusOK, gin.H{
		"user_memory":    content.UserMemory,
		"project_memory": content.ProjectMemory,
	})
}

// ClearMemory handles DELETE /api/memory?assistant_id=, audited per §3a.
func (s *Server) ClearMemory(c *gin.Context) {
	userID := userIDFromContext(c)
	assistantID := c.Query("assistant_id")

	loader := memory.NewLoader(s.memoryCfg, userID, assistantID)
	cleared, err := loader.ClearMemory()
	if err != nil {
		writeError(c, err)
		return
	}

	s.recordAudit(c, userID, "memory.clear", "memory", assistantID, nil)
	c.JSON(http.StatusOK, gin.H{"cleared": cleared})
}
