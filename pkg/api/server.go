// Package api implements the HTTP/WebSocket surface of §4.14 and §6: a gin
// router exposing the streaming and one-shot chat endpoints, session and
// message listing, rule and memory management, and MCP config endpoints,
// fronted by request-correlation, security-header, and auth middleware.
package api

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/northfold/agentrelay/pkg/config"
	"github.com/northfold/agentrelay/pkg/dispatch"
	"github.com/northfold/agentrelay/pkg/mcp"
	"github.com/northfold/agentrelay/pkg/memory"
	"github.com/northfold/agentrelay/pkg/rules"
	"github.com/northfold/agentrelay/pkg/session"
	"github.com/northfold/agentrelay/pkg/store"
	"github.com/northfold/agentrelay/pkg/stream"
	"github.com/northfold/agentrelay/pkg/version"
)

// Server wires every subsystem the HTTP surface fronts. It holds no
// business logic of its own beyond request parsing, auth, and response
// shaping — every operation delegates to the package that owns it.
type Server struct {
	dispatcher *dispatch.Dispatcher
	sessions   *session.Manager
	connection *stream.Manager
	messages   store.MessageStore
	ruleStore  rules.Store
	mcpConfigs store.MCPConfigStore
	mcpPool    *mcp.Pool
	auditLog   store.AuditLogStore
	memoryCfg  memory.Config
	authCfg    config.AuthConfig

	tokens TokenVerifier
	keys   APIKeyVerifier

	started time.Time
	logger  *slog.Logger
}

// Deps collects everything NewServer wires together, to keep the
// constructor signature from growing unreadable as the surface expands.
type Deps struct {
	Dispatcher *dispatch.Dispatcher
	Sessions   *session.Manager
	Connection *stream.Manager
	Messages   store.MessageStore
	Rules      rules.Store
	MCPConfigs store.MCPConfigStore
	MCPPool    *mcp.Pool
	AuditLog   store.AuditLogStore
	MemoryCfg  memory.Config
	AuthCfg    config.AuthConfig
	Tokens     TokenVerifier
	Keys       APIKeyVerifier
}

// NewServer builds a Server from deps.
func NewServer(deps Deps) *Server {
	return &Server{
		dispatcher: deps.Dispatcher,
		sessions:   deps.Sessions,
		connection: deps.Connection,
		messages:   deps.Messages,
		ruleStore:  deps.Rules,
		mcpConfigs: deps.MCPConfigs,
		mcpPool:    deps.MCPPool,
		auditLog:   deps.AuditLog,
		memoryCfg:  deps.MemoryCfg,
		authCfg:    deps.AuthCfg,
		tokens:     deps.Tokens,
		keys:       deps.Keys,
		started:    time.Now().UTC(),
		logger:     slog.Default(),
	}
}

// Router builds the gin.Engine with every middleware and route registered.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestID(), securityHeaders())

	router.GET("/health", s.Health)

	authed := router.Group("/api")
	authed.Use(auth(s.authCfg, s.tokens, s.keys))
	{
		authed.POST("/chat", s.CreateChat)
		authed.GET("/chat/stream/:session_id", s.StreamChat)
		authed.POST("/chat/:session_id/cancel", s.CancelChat)

		authed.GET("/sessions", s.ListSessions)
		authed.GET("/sessions/:session_id", s.GetSession)
		authed.DELETE("/sessions/:session_id", s.DeleteSession)
		authed.GET("/sessions/:session_id/messages", s.GetSessionMessages)

		authed.GET("/rules", s.ListRules)
		authed.PUT("/rules", s.PutRule)
		authed.DELETE("/rules/:scope/:scope_owner/:name", s.DeleteRule)

		authed.GET("/memory", s.GetMemory)
		authed.DELETE("/memory", s.ClearMemory)

		authed.GET("/mcp/config", s.GetMCPConfig)
		authed.PUT("/mcp/config", s.PutMCPConfig)
		authed.DELETE("/mcp/config", s.DeleteMCPConfig)
		authed.GET("/mcp/health", s.GetMCPHealth)
	}

	return router
}

// Health reports process status, version, and uptime. It carries no auth
// requirement — it is the target of external liveness probes.
func (s *Server) Health(c *gin.Context) {
	c.JSON(200, gin.H{
		"status":         "ok",
		"version":        version.Full(),
		"uptime_seconds": int(time.Since(s.started).Seconds()),
	})
}
