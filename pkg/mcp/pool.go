package mcp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/northfold/agentrelay/pkg/store"
	"github.com/northfold/agentrelay/pkg/version"
)

// connection is one live MCP session plus the client that created it, kept
// around so a failed operation can recreate the session.
type connection struct {
	client  *mcpsdk.Client
	session *mcpsdk.ClientSession
	config  store.MCPServerConfig
}

// Pool manages per-user sets of MCP server connections, enforcing per-user
// and global capacity caps. Safe for concurrent use.
type Pool struct {
	maxPerUser int
	maxTotal   int

	mu    sync.RWMutex
	conns map[string]map[string]*connection // userID -> serverName -> connection
	total int

	toolCacheMu sync.RWMutex
	toolCache   map[string]map[string][]*mcpsdk.Tool // userID -> serverName -> tools

	reinitMu sync.Map // (userID, serverName) -> *sync.Mutex

	logger *slog.Logger
}

// NewPool constructs an empty Pool bounded by maxPerUser and maxTotal
// connections. A zero value for either means "unbounded".
func NewPool(maxPerUser, maxTotal int) *Pool {
	return &Pool{
		maxPerUser: maxPerUser,
		maxTotal:   maxTotal,
		conns:      make(map[string]map[string]*connection),
		toolCache:  make(map[string]map[string][]*mcpsdk.Tool),
		logger:     slog.Default(),
	}
}

func reinitKey(userID, serverName string) string { return userID + "\x00" + serverName }

// Connect establishes connections for every enabled server in cfg that
// isn't already connected, respecting maxPerUser/maxTotal. A failure on any
// server closes every connection this call opened (no half-connected
// state leaks into the pool) and returns that server's error, wrapped with
// ErrCapacityExceeded when the failure was a cap rejection.
func (p *Pool) Connect(ctx context.Context, userID string, cfg store.UserMCPConfig) error {
	var opened []string

	for _, server := range cfg.Servers {
		if server.Disabled {
			continue
		}
		if p.HasSession(userID, server.Name) {
			continue
		}

		if err := p.reserveSlot(userID); err != nil {
			p.disconnectOpened(ctx, userID, opened)
			return err
		}

		if err := p.connectOne(ctx, userID, server); err != nil {
			p.releaseSlot(userID)
			p.disconnectOpened(ctx, userID, opened)
			p.logger.Warn("mcp server failed to connect", "user", userID, "server", server.Name, "error", err)
			return fmt.Errorf("mcp: connect %q: %w", server.Name, err)
		}
		opened = append(opened, server.Name)
	}

	return nil
}

func (p *Pool) disconnectOpened(ctx context.Context, userID string, serverNames []string) {
	for _, name := range serverNames {
		_ = p.Disconnect(ctx, userID, name)
	}
}

// reserveSlot atomically checks and increments counters under one lock so
// two concurrent Connect calls for the same user can't both observe
// capacity and overrun the cap.
func (p *Pool) reserveSlot(userID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	userCount := len(p.conns[userID])
	if p.maxPerUser > 0 && userCount >= p.maxPerUser {
		return ErrCapacityExceeded
	}
	if p.maxTotal > 0 && p.total >= p.maxTotal {
		return ErrCapacityExceeded
	}
	// Reserve by pre-creating the per-user map; connectOne fills the entry.
	if p.conns[userID] == nil {
		p.conns[userID] = make(map[string]*connection)
	}
	p.total++
	return nil
}

func (p *Pool) releaseSlot(userID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.total--
}

// connectOne dials a single server. The pool mutex is never held across the
// network dial: reserveSlot/releaseSlot bracket it, and the session is
// committed into the map only after a successful Connect, mirroring the
// teacher's dial-then-commit discipline for session recreation.
func (p *Pool) connectOne(ctx context.Context, userID string, server store.MCPServerConfig) error {
	muI, _ := p.reinitMu.LoadOrStore(reinitKey(userID, server.Name), &sync.Mutex{})
	mu := muI.(*sync.Mutex)
	mu.Lock()
	defer mu.Unlock()

	transport, err := createTransport(server)
	if err != nil {
		return err
	}

	dialCtx, cancel := context.WithTimeout(ctx, DialTimeout)
	defer cancel()

	client := mcpsdk.NewClient(&mcpsdk.Implementation{
		Name:    version.AppName,
		Version: version.GitCommit,
	}, nil)

	session, err := client.Connect(dialCtx, transport, nil)
	if err != nil {
		if closer, ok := transport.(io.Closer); ok {
			_ = closer.Close()
		}
		return err
	}

	p.mu.Lock()
	if p.conns[userID] == nil {
		p.conns[userID] = make(map[string]*connection)
	}
	p.conns[userID][server.Name] = &connection{client: client, session: session, config: server}
	p.mu.Unlock()

	return nil
}

// HasSession reports whether userID has a live connection to serverName.
func (p *Pool) HasSession(userID, serverName string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.conns[userID][serverName]
	return ok
}

// GetTools aggregates tools from every live connection for userID. A
// per-server failure is logged and that server's tools are omitted; an
// error is returned only when every server fails.
func (p *Pool) GetTools(ctx context.Context, userID string) ([]*mcpsdk.Tool, error) {
	byServer, err := p.GetToolsByServer(ctx, userID)
	if err != nil {
		return nil, err
	}
	var tools []*mcpsdk.Tool
	for _, serverTools := range byServer {
		tools = append(tools, serverTools...)
	}
	return tools, nil
}

// GetToolsByServer is GetTools but keeps each server's tools attributed to
// it, for callers (e.g. the streaming dispatcher) that need to route a
// subsequent CallTool back to the right server.
func (p *Pool) GetToolsByServer(ctx context.Context, userID string) (map[string][]*mcpsdk.Tool, error) {
	p.mu.RLock()
	names := make([]string, 0, len(p.conns[userID]))
	for name := range p.conns[userID] {
		names = append(names, name)
	}
	p.mu.RUnlock()

	byServer := make(map[string][]*mcpsdk.Tool, len(names))
	var lastErr error
	failures := 0
	for _, name := range names {
		serverTools, err := p.listTools(ctx, userID, name)
		if err != nil {
			lastErr = err
			failures++
			p.logger.Warn("failed to list tools", "user", userID, "server", name, "error", err)
			continue
		}
		byServer[name] = serverTools
	}

	if len(names) > 0 && failures == len(names) {
		return nil, fmt.Errorf("mcp: all servers failed to list tools: %w", lastErr)
	}
	return byServer, nil
}

func (p *Pool) listTools(ctx context.Context, userID, serverName string) ([]*mcpsdk.Tool, error) {
	p.toolCacheMu.RLock()
	if cached, ok := p.toolCache[userID][serverName]; ok {
		p.toolCacheMu.RUnlock()
		return cached, nil
	}
	p.toolCacheMu.RUnlock()

	p.mu.RLock()
	conn, ok := p.conns[userID][serverName]
	p.mu.RUnlock()
	if !ok {
		return nil, ErrNoConnection
	}

	opCtx, cancel := context.WithTimeout(ctx, OperationTimeout)
	defer cancel()

	result, err := conn.session.ListTools(opCtx, nil)
	if err != nil {
		return nil, err
	}
	tools := result.Tools
	if tools == nil {
		tools = []*mcpsdk.Tool{}
	}

	p.toolCacheMu.Lock()
	if p.toolCache[userID] == nil {
		p.toolCache[userID] = make(map[string][]*mcpsdk.Tool)
	}
	p.toolCache[userID][serverName] = tools
	p.toolCacheMu.Unlock()

	return tools, nil
}

// CallTool invokes toolName on serverName for userID, retrying once (with a
// jittered backoff and, if the classified failure is transport-level, a
// session recreation) on transient errors.
func (p *Pool) CallTool(ctx context.Context, userID, serverName, toolName string, args map[string]any) (*mcpsdk.CallToolResult, error) {
	params := &mcpsdk.CallToolParams{Name: toolName, Arguments: args}

	result, err := p.callToolOnce(ctx, userID, serverName, params)
	if err == nil {
		return result, nil
	}

	action := ClassifyError(err)
	if action == NoRetry {
		return nil, err
	}

	backoff := RetryBackoffMin + time.Duration(rand.Int64N(int64(RetryBackoffMax-RetryBackoffMin)))
	select {
	case <-time.After(backoff):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if action == RetryNewSession {
		if err := p.recreateSession(ctx, userID, serverName); err != nil {
			return nil, fmt.Errorf("mcp: session recreation failed for %q: %w", serverName, err)
		}
	}

	result, err = p.callToolOnce(ctx, userID, serverName, params)
	if err != nil {
		return nil, fmt.Errorf("mcp: retry failed for %q.%s: %w", serverName, toolName, err)
	}
	return result, nil
}

func (p *Pool) callToolOnce(ctx context.Context, userID, serverName string, params *mcpsdk.CallToolParams) (*mcpsdk.CallToolResult, error) {
	p.mu.RLock()
	conn, ok := p.conns[userID][serverName]
	p.mu.RUnlock()
	if !ok {
		return nil, ErrNoConnection
	}

	opCtx, cancel := context.WithTimeout(ctx, OperationTimeout)
	defer cancel()
	return conn.session.CallTool(opCtx, params)
}

func (p *Pool) recreateSession(ctx context.Context, userID, serverName string) error {
	muI, _ := p.reinitMu.LoadOrStore(reinitKey(userID, serverName), &sync.Mutex{})
	mu := muI.(*sync.Mutex)
	mu.Lock()
	defer mu.Unlock()

	p.mu.Lock()
	conn, ok := p.conns[userID][serverName]
	if ok {
		_ = conn.session.Close()
		delete(p.conns[userID], serverName)
	}
	p.mu.Unlock()
	if !ok {
		return ErrNoConnection
	}

	p.invalidateToolCache(userID, serverName)

	reinitCtx, cancel := context.WithTimeout(ctx, ReinitTimeout)
	defer cancel()

	if err := p.connectOne(reinitCtx, userID, conn.config); err != nil {
		return err
	}
	return nil
}

func (p *Pool) invalidateToolCache(userID, serverName string) {
	p.toolCacheMu.Lock()
	delete(p.toolCache[userID], serverName)
	p.toolCacheMu.Unlock()
}

// HealthCheck pings every live connection for userID and returns the set of
// servers that failed to respond within HealthPingTimeout.
func (p *Pool) HealthCheck(ctx context.Context, userID string) map[string]error {
	p.mu.RLock()
	conns := make(map[string]*connection, len(p.conns[userID]))
	for name, c := range p.conns[userID] {
		conns[name] = c
	}
	p.mu.RUnlock()

	failures := make(map[string]error)
	for name, conn := range conns {
		pingCtx, cancel := context.WithTimeout(ctx, HealthPingTimeout)
		_, err := conn.session.ListTools(pingCtx, nil)
		cancel()
		if err != nil {
			failures[name] = err
		}
	}
	return failures
}

// Disconnect closes the named server's connection for userID, or every
// connection for userID when serverName is empty, decrementing counters
// only for entries actually removed.
func (p *Pool) Disconnect(ctx context.Context, userID, serverName string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	byServer := p.conns[userID]
	if byServer == nil {
		return nil
	}

	if serverName == "" {
		for name, conn := range byServer {
			_ = conn.session.Close()
			delete(byServer, name)
			p.total--
		}
		delete(p.conns, userID)
		return nil
	}

	conn, ok := byServer[serverName]
	if !ok {
		return nil
	}
	_ = conn.session.Close()
	delete(byServer, serverName)
	p.total--
	return nil
}

// DisconnectAll tears down every connection in the pool and zeroes counters.
func (p *Pool) DisconnectAll(ctx context.Context) error {
	p.mu.Lock()
	var firstErr error
	for _, byServer := range p.conns {
		for _, conn := range byServer {
			if err := conn.session.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	p.conns = make(map[string]map[string]*connection)
	p.total = 0
	p.mu.Unlock()

	p.toolCacheMu.Lock()
	p.toolCache = make(map[string]map[string][]*mcpsdk.Tool)
	p.toolCacheMu.Unlock()

	return firstErr
}
