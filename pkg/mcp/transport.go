package mcp

import (
	"fmt"
	"net/http"
	"os"
	"os/exec"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/northfold/agentrelay/pkg/store"
)

// createTransport builds an MCP SDK transport from a server config. stdio
// spawns a child process; sse dials a streamable HTTP/SSE endpoint.
func createTransport(cfg store.MCPServerConfig) (mcpsdk.Transport, error) {
	switch cfg.Transport {
	case store.TransportStdio:
		return createStdioTransport(cfg)
	case store.TransportSSE:
		return createSSETransport(cfg)
	default:
		return nil, fmt.Errorf("mcp: unsupported transport %q", cfg.Transport)
	}
}

func createStdioTransport(cfg store.MCPServerConfig) (*mcpsdk.CommandTransport, error) {
	if cfg.Command == "" {
		return nil, fmt.Errorf("mcp: stdio transport requires a command")
	}

	cmd := exec.Command(cfg.Command, cfg.Args...)

	env := os.Environ()
	for k, v := range cfg.Env {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}
	cmd.Env = env

	return &mcpsdk.CommandTransport{Command: cmd}, nil
}

func createSSETransport(cfg store.MCPServerConfig) (*mcpsdk.SSEClientTransport, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("mcp: sse transport requires a url")
	}
	transport := &mcpsdk.SSEClientTransport{Endpoint: cfg.URL}
	if len(cfg.Headers) > 0 {
		transport.HTTPClient = &http.Client{Transport: &headerTransport{
			base:    http.DefaultTransport,
			headers: cfg.Headers,
		}}
	}
	return transport, nil
}

// headerTransport injects static headers (auth tokens, tenant markers) on
// every outbound request, mirroring the bearer-token wrapper pattern used
// for the stdio transport's env passthrough.
type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	return t.base.RoundTrip(req)
}
