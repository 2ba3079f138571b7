package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/northfold/agentrelay/pkg/store"
)

// GetMCPConfig handles GET /api/mcp/config.
func (s *Server) GetMCPConfig(c *gin.Context) {
	userID := userIDFromContext(c)
	cfg, err := s.mcpConfigs.GetUserConfig(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// putMCPConfigRequest is the request body for PUT /api/mcp/config: the full
// replacement set of a user's MCP server configs.
type putMCPConfigRequest struct {
	Servers []store.MCPServerConfig `json:"servers"`
}

// PutMCPConfig handles PUT /api/mcp/config, audited per §3a. It replaces
// the user's entire server set, then connects every enabled server in the
// new set that has no live connection yet. Existing connections are left as
// they are, including connections to servers no longer in the set; a connect
// failure is logged and does not fail the request.
func (s *Server) PutMCPConfig(c *gin.Context) {
	userID := userIDFromContext(c)

	var req putMCPConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorEnvelope{ErrorCode: "VALIDATION_ERROR", Message: err.Error()})
		return
	}

	cfg := store.UserMCPConfig{UserID: userID, Servers: req.Servers}
	if err := s.mcpConfigs.SaveUserConfig(c.Request.Context(), userID, cfg); err != nil {
		writeError(c, err)
		return
	}

	if err := s.mcpPool.Connect(c.Request.Context(), userID, cfg); err != nil {
		loggerFromContext(c.Request.Context()).Warn("mcp reconnect after config update failed", "user_id", userID, "error", err)
	}

	s.recordAudit(c, userID, "mcp_config.put", "mcp_config", userID, map[string]any{"server_count": len(cfg.Servers)})
	c.JSON(http.StatusOK, cfg)
}

// DeleteMCPConfig handles DELETE /api/mcp/config, audited per §3a.
func (s *Server) DeleteMCPConfig(c *gin.Context) {
	userID := userIDFromContext(c)

	if err := s.mcpConfigs.DeleteUserConfig(c.Request.Context(), userID); err != nil {
		writeError(c, err)
		return
	}
	if err := s.mcpPool.Disconnect(c.Request.Context(), userID, ""); err != nil {
		loggerFromContext(c.Request.Context()).Warn("mcp disconnect after config delete failed", "user_id", userID, "error", err)
	}

	s.recordAudit(c, userID, "mcp_config.delete", "mcp_config", userID, nil)
	c.Status(http.StatusNoContent)
}

// mcpServerHealth is one server's entry in the GetMCPHealth response.
type mcpServerHealth struct {
	Connected bool   `json:"connected"`
	ToolCount int    `json:"tool_count"`
	Error     string `json:"error,omitempty"`
}

// GetMCPHealth handles GET /api/mcp/health: a per-server connected/tool-count
// snapshot from the pool.
func (s *Server) GetMCPHealth(c *gin.Context) {
	userID := userIDFromContext(c)

	failures := s.mcpPool.HealthCheck(c.Request.Context(), userID)
	toolsByServer, err := s.mcpPool.GetToolsByServer(c.Request.Context(), userID)
	if err != nil {
		toolsByServer = nil
	}

	cfg, err := s.mcpConfigs.GetUserConfig(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}

	report := make(map[string]mcpServerHealth, len(cfg.Servers))
	for _, server := range cfg.Servers {
		if server.Disabled {
			continue
		}
		health := mcpServerHealth{Connected: s.mcpPool.HasSession(userID, server.Name)}
		if failErr, failed := failures[server.Name]; failed {
			health.Connected = false
			health.Error = failErr.Error()
		}
		health.ToolCount = len(toolsByServer[server.Name])
		report[server.Name] = health
	}

	c.JSON(http.StatusOK, gin.H{"servers": report})
}
