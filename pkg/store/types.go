package store

import "time"

// Session is a per-user, per-assistant container for one or more turns.
// user_id is immutable after creation.
type Session struct {
	SessionID   string
	UserID      string
	AssistantID string
	CreatedAt   time.Time
	LastActive  time.Time
	State       map[string]any
	Metadata    map[string]any
}

// Role is the speaker of a persisted message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// Message is one append-only entry in a session's transcript.
type Message struct {
	MessageID string
	SessionID string
	Role      Role
	Content   string
	CreatedAt time.Time
	Metadata  map[string]any
	// seq disambiguates ties on CreatedAt by insertion order; not exported
	// on the wire, only used to keep GetMessages deterministic.
	seq int64
}

// Seq returns the store-assigned insertion sequence number, used to break
// CreatedAt ties deterministically. Exposed for store implementations and
// tests that need to assert ordering explicitly.
func (m Message) Seq() int64 { return m.seq }

// Profile is a user's per-tenant profile row. user_id is immutable. Email is
// sensitive: loaded by the store, but the rule/prompt-composition layer
// (pkg/rules, pkg/memory) must never place it into a system prompt.
type Profile struct {
	UserID       string
	Username     string
	DisplayName  string
	Email        string
	Department   string
	Role         string
	CustomFields map[string]any
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ProfilePatch carries the subset of Profile fields to merge into an
// existing row. Nil CustomFields leaves the existing map untouched; a
// non-nil map is merged key-wise (keys not present are preserved, keys
// present with a nil value are deleted).
type ProfilePatch struct {
	DisplayName  *string
	Email        *string
	Department   *string
	Role         *string
	CustomFields map[string]any
}

// Transport is the wire protocol an MCP server is reached over.
type Transport string

const (
	TransportStdio Transport = "stdio"
	TransportSSE   Transport = "sse"
)

// MCPServerConfig is one user's configuration for one MCP tool server.
// Uniqueness is (UserID, Name).
type MCPServerConfig struct {
	UserID      string            `json:"-"`
	Name        string            `json:"name"`
	Command     string            `json:"command,omitempty"`
	Args        []string          `json:"args,omitempty"`
	Env         map[string]string `json:"env,omitempty"`
	URL         string            `json:"url,omitempty"`
	Transport   Transport         `json:"transport"`
	Headers     map[string]string `json:"headers,omitempty"`
	Disabled    bool              `json:"disabled"`
	AutoApprove []string          `json:"auto_approve,omitempty"`
}

// UserMCPConfig is the full set of MCP server configs for one user.
type UserMCPConfig struct {
	UserID  string            `json:"user_id"`
	Servers []MCPServerConfig `json:"servers"`
}

// AuditLog is one append-only audit trail entry, written for session
// deletion, MCP config mutation, rule mutation, and HITL decisions.
type AuditLog struct {
	ID         string
	UserID     string
	Action     string
	TargetType string
	TargetID   string
	Detail     map[string]any
	CreatedAt  time.Time
}

// APIKey is an opaque authentication primitive. Hashing the raw key is the
// caller's responsibility (out of scope here) — this row only carries the
// already-hashed value.
type APIKey struct {
	KeyID     string
	UserID    string
	HashedKey string
	CreatedAt time.Time
	RevokedAt *time.Time
}
