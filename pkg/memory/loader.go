// Package memory loads and composes the long-term, filesystem-backed memory
// an assistant carries across sessions: a per-(user, assistant) agent.md file
// and an optional per-project agent.md file, both folded into the system
// prompt before each model call.
package memory

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Config controls where memory files are resolved from.
type Config struct {
	// DataRoot is the base directory for user memory, e.g. "~/.agentrelay".
	DataRoot string
	// ProjectRoot is the detected project directory, if any. Empty means
	// no project memory is consulted.
	ProjectRoot string
	// AppName names the per-project dotdir, e.g. "agentrelay" for
	// "<project_root>/.agentrelay/agent.md".
	AppName string
	// MultiTenant selects the user-isolated path layout.
	MultiTenant bool
}

// Loader resolves and loads memory for one (user, assistant) pair.
type Loader struct {
	cfg         Config
	userID      string
	assistantID string
}

// NewLoader builds a Loader for the given assistant, optionally isolated by
// user when cfg.MultiTenant is set. userID is ignored in single-tenant mode.
func NewLoader(cfg Config, userID, assistantID string) *Loader {
	return &Loader{cfg: cfg, userID: userID, assistantID: assistantID}
}

// UserMemoryPath returns the resolved path to the user's agent.md.
func (l *Loader) UserMemoryPath() string {
	if l.cfg.MultiTenant && l.userID != "" {
		return filepath.Join(l.cfg.DataRoot, "users", l.userID, l.assistantID, "agent.md")
	}
	return filepath.Join(l.cfg.DataRoot, l.assistantID, "agent.md")
}

// ProjectMemoryPath returns the resolved path to the project's agent.md, or
// "" if no project root is configured.
func (l *Loader) ProjectMemoryPath() string {
	if l.cfg.ProjectRoot == "" {
		return ""
	}
	return filepath.Join(l.cfg.ProjectRoot, "."+l.cfg.AppName, "agent.md")
}

// Content holds the raw memory text loaded from disk. Either field may be
// empty when its file does not exist or could not be read.
type Content struct {
	UserMemory    string
	ProjectMemory string
}

// Load reads the user and project memory files if present. I/O and
// decoding errors are swallowed — a run proceeds with whatever memory it
// could read, never failing the turn over a missing or unreadable file.
func (l *Loader) Load() Content {
	var c Content
	if b, err := os.ReadFile(l.UserMemoryPath()); err == nil {
		c.UserMemory = string(b)
	}
	if projectPath := l.ProjectMemoryPath(); projectPath != "" {
		if b, err := os.ReadFile(projectPath); err == nil {
			c.ProjectMemory = string(b)
		}
	}
	return c
}

// ClearMemory removes the user's memory directory recursively. Returns
// false (not an error) if the directory does not exist.
func (l *Loader) ClearMemory() (bool, error) {
	dir := filepath.Dir(l.UserMemoryPath())
	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat memory dir: %w", err)
	}
	if err := os.RemoveAll(dir); err != nil {
		return false, fmt.Errorf("remove memory dir: %w", err)
	}
	return true, nil
}

// EnsureMemoryDir creates the user's memory directory if it does not exist.
func (l *Loader) EnsureMemoryDir() error {
	return os.MkdirAll(filepath.Dir(l.UserMemoryPath()), 0o755)
}
