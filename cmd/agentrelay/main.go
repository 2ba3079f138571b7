// agentrelay is the streaming chat orchestrator: it exposes the HTTP/WebSocket
// API and wires together session, rule, memory, MCP, and HITL subsystems.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/northfold/agentrelay/pkg/agent"
	"github.com/northfold/agentrelay/pkg/api"
	"github.com/northfold/agentrelay/pkg/config"
	"github.com/northfold/agentrelay/pkg/database"
	"github.com/northfold/agentrelay/pkg/dispatch"
	"github.com/northfold/agentrelay/pkg/hitl"
	"github.com/northfold/agentrelay/pkg/mcp"
	"github.com/northfold/agentrelay/pkg/memory"
	"github.com/northfold/agentrelay/pkg/rules"
	"github.com/northfold/agentrelay/pkg/session"
	"github.com/northfold/agentrelay/pkg/store"
	"github.com/northfold/agentrelay/pkg/stream"
	"github.com/northfold/agentrelay/pkg/version"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configPath := flag.String("config",
		getEnv("CONFIG_PATH", "./deploy/config/config.yaml"),
		"Path to config.yaml")
	envPath := flag.String("env-file",
		getEnv("ENV_FILE", "./deploy/config/.env"),
		"Path to a .env file to load before config resolution")
	flag.Parse()

	if err := godotenv.Load(*envPath); err != nil {
		log.Printf("no .env file loaded from %s: %v (continuing with existing environment)", *envPath, err)
	}

	cfg, err := config.Initialize(*configPath)
	if err != nil {
		log.Fatalf("failed to initialize configuration: %v", err)
	}

	gin.SetMode(getEnv("GIN_MODE", "release"))

	slog.Info("starting agentrelay", "version", version.Full(), "backend", cfg.Database.Backend, "addr", cfg.HTTP.Addr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessionStore, messageStore, profileStore, mcpConfigStore, auditLogStore, apiKeyStore, rulesStore, closeDB := buildStores(ctx, cfg)
	if closeDB != nil {
		defer closeDB()
	}

	sessions := session.NewManager(sessionStore, session.Config{
		Timeout:         cfg.Session.Timeout,
		CleanupInterval: cfg.Session.CleanupInterval,
		AutoCleanup:     cfg.Session.AutoCleanup,
	})
	sessions.Start()
	defer sessions.Stop()

	merger := rules.NewMerger(cfg.Rules.MaxContentSize)
	memoryCfg := memory.Config{
		DataRoot:    cfg.Memory.DataRoot,
		AppName:     cfg.Memory.AppName,
		MultiTenant: cfg.Memory.MultiTenant,
	}
	pool := mcp.NewPool(cfg.MCP.MaxConnectionsPerUser, cfg.MCP.MaxConnectionsTotal)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := pool.DisconnectAll(shutdownCtx); err != nil {
			slog.Error("mcp pool shutdown disconnect failed", "error", err)
		}
	}()

	connMgr := stream.NewManager(cfg.Stream.MaxConnections)
	hitlHandler := hitl.NewHandler(connMgr, cfg.HITL.Timeout)

	dispatcher := dispatch.New(sessions, messageStore, profileStore, rulesStore, merger, memoryCfg, pool, agent.EchoFactory{}, hitlHandler, connMgr)

	server := api.NewServer(api.Deps{
		Dispatcher: dispatcher,
		Sessions:   sessions,
		Connection: connMgr,
		Messages:   messageStore,
		Rules:      rulesStore,
		MCPConfigs: mcpConfigStore,
		MCPPool:    pool,
		AuditLog:   auditLogStore,
		MemoryCfg:  memoryCfg,
		AuthCfg:    cfg.Auth,
		Tokens:     apiKeyBearerAdapter{store: apiKeyStore},
		Keys:       apiKeyBearerAdapter{store: apiKeyStore},
	})

	httpServer := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: server.Router(),
	}

	go func() {
		slog.Info("http server listening", "addr", cfg.HTTP.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown failed", "error", err)
	}
}

// buildStores constructs every capability-shaped store per cfg.Database.Backend,
// returning a close func for the shared pool when running against postgres
// (nil when running against the in-memory backend).
func buildStores(ctx context.Context, cfg *config.Config) (
	store.SessionStore, store.MessageStore, store.ProfileStore,
	store.MCPConfigStore, store.AuditLogStore, store.APIKeyStore, rules.Store,
	func(),
) {
	if cfg.Database.Backend == "memory" {
		return store.NewMemorySessionStore(), store.NewMemoryMessageStore(), store.NewMemoryProfileStore(),
			store.NewMemoryMCPConfigStore(), store.NewMemoryAuditLogStore(), store.NewMemoryAPIKeyStore(), rules.NewMemoryStore(),
			nil
	}

	pool, err := database.NewPool(ctx, database.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Database,
		SSLMode:         cfg.Database.SSLMode,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
	})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	slog.Info("connected to postgres", "host", cfg.Database.Host, "database", cfg.Database.Database)

	return store.NewPostgresSessionStore(pool), store.NewPostgresMessageStore(pool), store.NewPostgresProfileStore(pool),
		store.NewPostgresMCPConfigStore(pool), store.NewPostgresAuditLogStore(pool), store.NewPostgresAPIKeyStore(pool), rules.NewPostgresStore(pool),
		pool.Close
}
