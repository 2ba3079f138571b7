// Package mcp manages per-user pools of MCP (Model Context Protocol) tool
// server connections: dialing stdio/sse transports, aggregating tools
// across a user's live connections, and enforcing per-user and global
// connection caps.
package mcp

import "errors"

// ErrCapacityExceeded is returned by Connect when establishing a server
// would push a user's connection count past max_per_user or the pool's
// total past max_total.
var ErrCapacityExceeded = errors.New("mcp: capacity exceeded")

// ErrNoConnection is returned when an operation targets a user/server pair
// that has no live connection.
var ErrNoConnection = errors.New("mcp: no connection")
