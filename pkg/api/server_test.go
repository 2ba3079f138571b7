package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northfold/agentrelay/pkg/agent"
	"github.com/northfold/agentrelay/pkg/api"
	"github.com/northfold/agentrelay/pkg/config"
	"github.com/northfold/agentrelay/pkg/dispatch"
	"github.com/northfold/agentrelay/pkg/events"
	"github.com/northfold/agentrelay/pkg/hitl"
	"github.com/northfold/agentrelay/pkg/mcp"
	"github.com/northfold/agentrelay/pkg/memory"
	"github.com/northfold/agentrelay/pkg/rules"
	"github.com/northfold/agentrelay/pkg/session"
	"github.com/northfold/agentrelay/pkg/store"
	"github.com/northfold/agentrelay/pkg/stream"
)

type fakeExecutor struct {
	run func(ctx context.Context, cfg agent.Config, decisions agent.DecisionResolver, emit func(events.Event)) error
}

func (e fakeExecutor) Run(ctx context.Context, cfg agent.Config, decisions agent.DecisionResolver, emit func(events.Event)) error {
	return e.run(ctx, cfg, decisions, emit)
}

type fakeFactory struct{ executor agent.Executor }

func (f fakeFactory) NewExecutor(string) agent.Executor { return f.executor }

type testHarness struct {
	server     *api.Server
	sessions   *session.Manager
	messages   store.MessageStore
	ruleStore  rules.Store
	mcpConfigs store.MCPConfigStore
	auditLog   store.AuditLogStore
}

func newTestHarness(t *testing.T, executor agent.Executor, authCfg config.AuthConfig) *testHarness {
	t.Helper()

	sessions := session.NewManager(store.NewMemorySessionStore(), session.Config{})
	messages := store.NewMemoryMessageStore()
	profiles := store.NewMemoryProfileStore()
	ruleStore := rules.NewMemoryStore()
	merger := rules.NewMerger(0)
	memCfg := memory.Config{DataRoot: t.TempDir(), MultiTenant: true}
	pool := mcp.NewPool(0, 0)
	connMgr := stream.NewManager(0)
	hitlHandler := hitl.NewHandler(connMgr, time.Second)
	mcpConfigs := store.NewMemoryMCPConfigStore()
	auditLog := store.NewMemoryAuditLogStore()

	d := dispatch.New(sessions, messages, profiles, ruleStore, merger, memCfg, pool, fakeFactory{executor: executor}, hitlHandler, connMgr)

	srv := api.NewServer(api.Deps{
		Dispatcher: d,
		Sessions:   sessions,
		Connection: connMgr,
		Messages:   messages,
		Rules:      ruleStore,
		MCPConfigs: mcpConfigs,
		MCPPool:    pool,
		AuditLog:   auditLog,
		MemoryCfg:  memCfg,
		AuthCfg:    authCfg,
	})

	return &testHarness{server: srv, sessions: sessions, messages: messages, ruleStore: ruleStore, mcpConfigs: mcpConfigs, auditLog: auditLog}
}

func devAuthCfg() config.AuthConfig {
	return config.AuthConfig{Disabled: true, TenantHeader: "X-User-ID"}
}

func TestHealth_ReturnsOKWithoutAuth(t *testing.T) {
	h := newTestHarness(t, fakeExecutor{run: func(context.Context, agent.Config, agent.DecisionResolver, func(events.Event)) error { return nil }}, devAuthCfg())
	router := h.server.Router()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Contains(t, body, "version")
	assert.Contains(t, body, "uptime_seconds")
}

func TestAuth_DisabledModeRequiresTenantHeader(t *testing.T) {
	h := newTestHarness(t, fakeExecutor{run: func(context.Context, agent.Config, agent.DecisionResolver, func(events.Event)) error { return nil }}, devAuthCfg())
	router := h.server.Router()

	req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_DisabledModeTrustsTenantHeader(t *testing.T) {
	h := newTestHarness(t, fakeExecutor{run: func(context.Context, agent.Config, agent.DecisionResolver, func(events.Event)) error { return nil }}, devAuthCfg())
	router := h.server.Router()

	req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
	req.Header.Set("X-User-ID", "user-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(0), body["total"])
}

func TestRequestID_GeneratedWhenAbsentAndEchoedWhenPresent(t *testing.T) {
	h := newTestHarness(t, fakeExecutor{run: func(context.Context, agent.Config, agent.DecisionResolver, func(events.Event)) error { return nil }}, devAuthCfg())
	router := h.server.Router()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	req2 := httptest.NewRequest(http.MethodGet, "/health", nil)
	req2.Header.Set("X-Request-ID", "fixed-id")
	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, req2)
	assert.Equal(t, "fixed-id", rec2.Header().Get("X-Request-ID"))
}

func TestSecurityHeaders_SetOnEveryResponse(t *testing.T) {
	h := newTestHarness(t, fakeExecutor{run: func(context.Context, agent.Config, agent.DecisionResolver, func(events.Event)) error { return nil }}, devAuthCfg())
	router := h.server.Router()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestCreateChat_RunsTurnAndReturnsRecordedEvents(t *testing.T) {
	executor := fakeExecutor{run: func(_ context.Context, _ agent.Config, _ agent.DecisionResolver, emit func(events.Event)) error {
		emit(events.NewText("hi there", true))
		return nil
	}}
	h := newTestHarness(t, executor, devAuthCfg())
	router := h.server.Router()

	reqBody, _ := json.Marshal(map[string]any{"message": "hello"})
	req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "user-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		SessionID string           `json:"session_id"`
		Events    []map[string]any `json:"events"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body.SessionID)

	var types []string
	for _, e := range body.Events {
		types = append(types, e["event_type"].(string))
	}
	assert.Contains(t, types, "text")
	assert.Contains(t, types, "done")
}

func TestGetSession_NotFoundReturnsStructuredError(t *testing.T) {
	h := newTestHarness(t, fakeExecutor{run: func(context.Context, agent.Config, agent.DecisionResolver, func(events.Event)) error { return nil }}, devAuthCfg())
	router := h.server.Router()

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/does-not-exist", nil)
	req.Header.Set("X-User-ID", "user-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "SESSION_NOT_FOUND", body["error_code"])
}

func TestDeleteSession_RecordsAuditEntry(t *testing.T) {
	h := newTestHarness(t, fakeExecutor{run: func(context.Context, agent.Config, agent.DecisionResolver, func(events.Event)) error { return nil }}, devAuthCfg())
	router := h.server.Router()

	sess, err := h.sessions.GetOrCreateSession(context.Background(), "user-1", "assistant-1", "")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodDelete, "/api/sessions/"+sess.SessionID, nil)
	req.Header.Set("X-User-ID", "user-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)

	entries, err := h.auditLog.ListForUser(context.Background(), "user-1", 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "session.delete", entries[0].Action)
	assert.Equal(t, sess.SessionID, entries[0].TargetID)
}

func TestPutRuleThenListRules_RoundTrips(t *testing.T) {
	h := newTestHarness(t, fakeExecutor{run: func(context.Context, agent.Config, agent.DecisionResolver, func(events.Event)) error { return nil }}, devAuthCfg())
	router := h.server.Router()

	body, _ := json.Marshal(map[string]any{
		"scope": "global", "name": "house-style", "inclusion": "always", "content": "be terse",
	})
	req := httptest.NewRequest(http.MethodPut, "/api/rules", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "user-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	listReq := httptest.NewRequest(http.MethodGet, "/api/rules?scope=global", nil)
	listReq.Header.Set("X-User-ID", "user-1")
	listRec := httptest.NewRecorder()
	router.ServeHTTP(listRec, listReq)
	require.Equal(t, http.StatusOK, listRec.Code)

	var listBody struct {
		Rules []map[string]any `json:"rules"`
	}
	require.NoError(t, json.Unmarshal(listRec.Body.Bytes(), &listBody))
	require.Len(t, listBody.Rules, 1)
	assert.Equal(t, "house-style", listBody.Rules[0]["name"])
}

func TestDeleteRule_NotFoundReturns404(t *testing.T) {
	h := newTestHarness(t, fakeExecutor{run: func(context.Context, agent.Config, agent.DecisionResolver, func(events.Event)) error { return nil }}, devAuthCfg())
	router := h.server.Router()

	req := httptest.NewRequest(http.MethodDelete, "/api/rules/global/none/missing-rule", nil)
	req.Header.Set("X-User-ID", "user-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetAndClearMemory(t *testing.T) {
	h := newTestHarness(t, fakeExecutor{run: func(context.Context, agent.Config, agent.DecisionResolver, func(events.Event)) error { return nil }}, devAuthCfg())
	router := h.server.Router()

	req := httptest.NewRequest(http.MethodGet, "/api/memory?assistant_id=assistant-1", nil)
	req.Header.Set("X-User-ID", "user-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	clearReq := httptest.NewRequest(http.MethodDelete, "/api/memory?assistant_id=assistant-1", nil)
	clearReq.Header.Set("X-User-ID", "user-1")
	clearRec := httptest.NewRecorder()
	router.ServeHTTP(clearRec, clearReq)
	require.Equal(t, http.StatusOK, clearRec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(clearRec.Body.Bytes(), &body))
	assert.Equal(t, false, body["cleared"])
}

func TestMCPConfig_PutGetDelete(t *testing.T) {
	h := newTestHarness(t, fakeExecutor{run: func(context.Context, agent.Config, agent.DecisionResolver, func(events.Event)) error { return nil }}, devAuthCfg())
	router := h.server.Router()

	body, _ := json.Marshal(map[string]any{
		"servers": []map[string]any{{"name": "fs", "transport": "stdio", "command": "mcp-fs"}},
	})
	putReq := httptest.NewRequest(http.MethodPut, "/api/mcp/config", bytes.NewReader(body))
	putReq.Header.Set("Content-Type", "application/json")
	putReq.Header.Set("X-User-ID", "user-1")
	putRec := httptest.NewRecorder()
	router.ServeHTTP(putRec, putReq)
	require.Equal(t, http.StatusOK, putRec.Code)

	getReq := httptest.NewRequest(http.MethodGet, "/api/mcp/config", nil)
	getReq.Header.Set("X-User-ID", "user-1")
	getRec := httptest.NewRecorder()
	router.ServeHTTP(getRec, getReq)
	require.Equal(t, http.StatusOK, getRec.Code)

	var cfg store.UserMCPConfig
	require.NoError(t, json.Unmarshal(getRec.Body.Bytes(), &cfg))
	require.Len(t, cfg.Servers, 1)
	assert.Equal(t, "fs", cfg.Servers[0].Name)

	delReq := httptest.NewRequest(http.MethodDelete, "/api/mcp/config", nil)
	delReq.Header.Set("X-User-ID", "user-1")
	delRec := httptest.NewRecorder()
	router.ServeHTTP(delRec, delReq)
	assert.Equal(t, http.StatusNoContent, delRec.Code)
}

func TestCancelChat_NoActiveTaskReturns404(t *testing.T) {
	h := newTestHarness(t, fakeExecutor{run: func(context.Context, agent.Config, agent.DecisionResolver, func(events.Event)) error { return nil }}, devAuthCfg())
	router := h.server.Router()

	req := httptest.NewRequest(http.MethodPost, "/api/chat/no-such-session/cancel", nil)
	req.Header.Set("X-User-ID", "user-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
