package store

import (
	"context"
	"time"
)

// SessionStore is the capability set of §4.2 (C2). All operations are
// mutually atomic with respect to one another: serializable under a single
// mutex for the in-memory backend, read-committed-or-better transactional
// isolation for the PostgreSQL backend. ListByUser/ListByAssistant must
// never observe rows owned by a different user than requested.
type SessionStore interface {
	Create(ctx context.Context, userID, assistantID string) (Session, error)
	Get(ctx context.Context, sessionID string) (Session, error)
	// Update replaces the stored row verbatim. It does NOT implicitly touch
	// LastActive — callers that want to mark activity must set it
	// themselves before calling Update (see pkg/session.Manager).
	Update(ctx context.Context, session Session) error
	Delete(ctx context.Context, sessionID string) error
	ListByUser(ctx context.Context, userID string) ([]Session, error)
	ListByAssistant(ctx context.Context, assistantID string) ([]Session, error)
	// CleanupExpired deletes every session whose LastActive is older than
	// timeout and returns the count removed. Must not race with Update in a
	// way that revives a row already slated for deletion.
	CleanupExpired(ctx context.Context, timeout time.Duration) (int, error)
}

// MessageStore is the capability set of §4.3 (C3).
type MessageStore interface {
	SaveMessage(ctx context.Context, sessionID string, role Role, content string, metadata map[string]any) (string, error)
	// GetMessages returns rows ordered by CreatedAt ascending (ties broken by
	// insertion order), honoring limit/offset pagination.
	GetMessages(ctx context.Context, sessionID string, limit, offset int) ([]Message, error)
	CountMessages(ctx context.Context, sessionID string) (int, error)
	DeleteMessages(ctx context.Context, sessionID string) (int, error)
}

// ProfileStore is the capability set of §4.4 (C4).
type ProfileStore interface {
	Create(ctx context.Context, profile Profile) (Profile, error)
	Get(ctx context.Context, userID string) (Profile, error)
	Update(ctx context.Context, userID string, patch ProfilePatch) (Profile, error)
	Delete(ctx context.Context, userID string) error
}

// MCPConfigStore is the capability set of §4.5 (C5). Isolation invariant: for
// any user_a != user_b, no read on behalf of user_a returns rows owned by
// user_b and no write on behalf of user_a affects rows owned by user_b.
type MCPConfigStore interface {
	GetUserConfig(ctx context.Context, userID string) (UserMCPConfig, error)
	// SaveUserConfig replaces the entire set of servers for userID.
	SaveUserConfig(ctx context.Context, userID string, cfg UserMCPConfig) error
	DeleteUserConfig(ctx context.Context, userID string) error
	// AddServer upserts on (userID, server.Name).
	AddServer(ctx context.Context, userID string, server MCPServerConfig) error
	RemoveServer(ctx context.Context, userID, name string) error
	GetServer(ctx context.Context, userID, name string) (MCPServerConfig, error)
}

// AuditLogStore is the append-only capability set of §3a. There is no
// update or delete operation: once written, a row is permanent.
type AuditLogStore interface {
	// Record appends one entry, assigning ID and CreatedAt.
	Record(ctx context.Context, entry AuditLog) (AuditLog, error)
	// ListForUser returns a user's entries ordered by CreatedAt descending,
	// honoring limit/offset pagination.
	ListForUser(ctx context.Context, userID string, limit, offset int) ([]AuditLog, error)
}

// APIKeyStore is the capability set of §3a backing bearer/API-key auth.
type APIKeyStore interface {
	// Create stores a new key, assigning KeyID and CreatedAt.
	Create(ctx context.Context, key APIKey) (APIKey, error)
	// GetByHashedKey looks up a key by its already-hashed value. Returns
	// ErrNotFound if absent or revoked.
	GetByHashedKey(ctx context.Context, hashedKey string) (APIKey, error)
	// Revoke sets RevokedAt on keyID. Revoking an already-revoked or
	// missing key returns ErrNotFound.
	Revoke(ctx context.Context, keyID string) error
	ListForUser(ctx context.Context, userID string) ([]APIKey, error)
}
