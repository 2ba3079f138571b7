package rules

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/northfold/agentrelay/pkg/store"
)

// Store persists rules, sharing the same capability-shaped, sentinel-error
// discipline as the pkg/store interfaces (store.ErrNotFound on missing
// rows).
type Store interface {
	Create(ctx context.Context, rule Rule) (Rule, error)
	Get(ctx context.Context, ruleID string) (Rule, error)
	Update(ctx context.Context, rule Rule) error
	Delete(ctx context.Context, ruleID string) error
	// ListForScope returns every rule whose Scope/ScopeID matches one of the
	// given (scope, scopeID) pairs — callers typically pass
	// {global,""}, {user,userID}, {project,projectID}, {session,sessionID}
	// to gather every rule relevant to one composition request.
	ListForScope(ctx context.Context, scopes []ScopeRef) ([]Rule, error)
}

// ScopeRef identifies one scope level to fetch rules for.
type ScopeRef struct {
	Scope   Scope
	ScopeID string
}

// MemoryStore is the in-memory reference implementation of Store.
type MemoryStore struct {
	mu    sync.Mutex
	rules map[string]Rule
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rules: make(map[string]Rule)}
}

func (s *MemoryStore) Create(_ context.Context, rule Rule) (Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, existing := range s.rules {
		if existing.Scope == rule.Scope && existing.ScopeID == rule.ScopeID && existing.Name == rule.Name {
			rule.RuleID = id
			rule.CreatedAt = existing.CreatedAt
			rule.UpdatedAt = time.Now().UTC()
			s.rules[id] = rule
			return rule, nil
		}
	}

	now := time.Now().UTC()
	rule.RuleID = uuid.NewString()
	rule.CreatedAt = now
	rule.UpdatedAt = now
	s.rules[rule.RuleID] = rule
	return rule, nil
}

func (s *MemoryStore) Get(_ context.Context, ruleID string) (Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rules[ruleID]
	if !ok {
		return Rule{}, store.ErrNotFound
	}
	return r, nil
}

func (s *MemoryStore) Update(_ context.Context, rule Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rules[rule.RuleID]; !ok {
		return store.ErrNotFound
	}
	rule.UpdatedAt = time.Now().UTC()
	s.rules[rule.RuleID] = rule
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, ruleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rules[ruleID]; !ok {
		return store.ErrNotFound
	}
	delete(s.rules, ruleID)
	return nil
}

func (s *MemoryStore) ListForScope(_ context.Context, scopes []ScopeRef) ([]Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wanted := make(map[ScopeRef]bool, len(scopes))
	for _, sc := range scopes {
		wanted[sc] = true
	}

	var out []Rule
	for _, r := range s.rules {
		if wanted[ScopeRef{Scope: r.Scope, ScopeID: r.ScopeID}] {
			out = append(out, r)
		}
	}
	return out, nil
}

// PostgresStore is the PostgreSQL-backed Store.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an existing pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Create inserts a new rule. Rules are keyed by (scope, scope_id, name): a
// create that collides with an existing rule at that key replaces its
// content in place rather than erroring, keeping the original rule_id and
// created_at — mirroring the mcp server config upsert in
// pkg/store/mcpconfig_postgres.go.
func (s *PostgresStore) Create(ctx context.Context, rule Rule) (Rule, error) {
	rule.RuleID = uuid.NewString()
	rule.CreatedAt = time.Now().UTC()
	rule.UpdatedAt = rule.CreatedAt

	fileMatch, _ := marshalFileMatch(rule.FileMatchPattern)
	row := s.pool.QueryRow(ctx, `
		INSERT INTO s_rule (rule_id, scope_type, scope_id, name, priority, file_match, content, enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (scope_type, scope_id, name) DO UPDATE SET
			priority=EXCLUDED.priority, file_match=EXCLUDED.file_match, content=EXCLUDED.content,
			enabled=EXCLUDED.enabled, updated_at=EXCLUDED.updated_at
		RETURNING rule_id, created_at`,
		rule.RuleID, string(rule.Scope), rule.ScopeID, rule.Name, rule.Priority, fileMatch, rule.Content, rule.Enabled, rule.CreatedAt, rule.UpdatedAt)
	if err := row.Scan(&rule.RuleID, &rule.CreatedAt); err != nil {
		return Rule{}, err
	}
	return rule, nil
}

func (s *PostgresStore) Get(ctx context.Context, ruleID string) (Rule, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT rule_id, scope_type, scope_id, name, priority, file_match, content, enabled, created_at, updated_at
		FROM s_rule WHERE rule_id = $1`, ruleID)
	return scanRule(row)
}

func (s *PostgresStore) Update(ctx context.Context, rule Rule) error {
	rule.UpdatedAt = time.Now().UTC()
	fileMatch, _ := marshalFileMatch(rule.FileMatchPattern)
	tag, err := s.pool.Exec(ctx, `
		UPDATE s_rule SET scope_type=$2, scope_id=$3, name=$4, priority=$5, file_match=$6, content=$7, enabled=$8, updated_at=$9
		WHERE rule_id=$1`,
		rule.RuleID, string(rule.Scope), rule.ScopeID, rule.Name, rule.Priority, fileMatch, rule.Content, rule.Enabled, rule.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, ruleID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM s_rule WHERE rule_id = $1`, ruleID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListForScope(ctx context.Context, scopes []ScopeRef) ([]Rule, error) {
	var out []Rule
	for _, sc := range scopes {
		rows, err := s.pool.Query(ctx, `
			SELECT rule_id, scope_type, scope_id, name, priority, file_match, content, enabled, created_at, updated_at
			FROM s_rule WHERE scope_type = $1 AND scope_id = $2`, string(sc.Scope), sc.ScopeID)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			r, err := scanRule(rows)
			if err != nil {
				rows.Close()
				return nil, err
			}
			out = append(out, r)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRule(row rowScanner) (Rule, error) {
	var r Rule
	var scopeType string
	var fileMatchJSON []byte
	err := row.Scan(&r.RuleID, &scopeType, &r.ScopeID, &r.Name, &r.Priority, &fileMatchJSON, &r.Content, &r.Enabled, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return Rule{}, store.ErrNotFound
		}
		return Rule{}, err
	}
	r.Scope = Scope(scopeType)
	r.FileMatchPattern = unmarshalFileMatch(fileMatchJSON)
	return r, nil
}

// marshalFileMatch/unmarshalFileMatch store the single pattern string as a
// one-element JSON array in the s_rule.file_match column, leaving room for
// a future multi-pattern rule without a schema change.
func marshalFileMatch(pattern string) ([]byte, error) {
	if pattern == "" {
		return json.Marshal([]string{})
	}
	return json.Marshal([]string{pattern})
}

func unmarshalFileMatch(raw []byte) string {
	var patterns []string
	if len(raw) == 0 {
		return ""
	}
	if err := json.Unmarshal(raw, &patterns); err != nil || len(patterns) == 0 {
		return ""
	}
	return patterns[0]
}
