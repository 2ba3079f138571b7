package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSessionStore is the PostgreSQL-backed SessionStore. It shares a
// *pgxpool.Pool with the other PostgreSQL store implementations in this
// package, so it acquires/releases a connection per operation rather than
// holding one for the store's lifetime.
type PostgresSessionStore struct {
	pool *pgxpool.Pool
}

// NewPostgresSessionStore wraps an existing pool. The caller owns the pool's
// lifecycle (construction and Close).
func NewPostgresSessionStore(pool *pgxpool.Pool) *PostgresSessionStore {
	return &PostgresSessionStore{pool: pool}
}

func (s *PostgresSessionStore) Create(ctx context.Context, userID, assistantID string) (Session, error) {
	sess := Session{
		SessionID:   uuid.NewString(),
		UserID:      userID,
		AssistantID: assistantID,
		CreatedAt:   time.Now().UTC(),
		State:       map[string]any{},
		Metadata:    map[string]any{},
	}
	sess.LastActive = sess.CreatedAt

	stateJSON, _ := json.Marshal(sess.State)
	metaJSON, _ := json.Marshal(sess.Metadata)

	_, err := s.pool.Exec(ctx, `
		INSERT INTO s_session (session_id, user_id, assistant_id, created_at, last_active, state, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		sess.SessionID, sess.UserID, sess.AssistantID, sess.CreatedAt, sess.LastActive, stateJSON, metaJSON)
	if err != nil {
		return Session{}, fmt.Errorf("store: create session: %w", err)
	}
	return sess, nil
}

func (s *PostgresSessionStore) Get(ctx context.Context, sessionID string) (Session, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT session_id, user_id, assistant_id, created_at, last_active, state, metadata
		FROM s_session WHERE session_id = $1`, sessionID)
	return scanSession(row)
}

func (s *PostgresSessionStore) Update(ctx context.Context, session Session) error {
	stateJSON, _ := json.Marshal(session.State)
	metaJSON, _ := json.Marshal(session.Metadata)

	tag, err := s.pool.Exec(ctx, `
		UPDATE s_session
		SET user_id = $2, assistant_id = $3, last_active = $4, state = $5, metadata = $6
		WHERE session_id = $1`,
		session.SessionID, session.UserID, session.AssistantID, session.LastActive, stateJSON, metaJSON)
	if err != nil {
		return fmt.Errorf("store: update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresSessionStore) Delete(ctx context.Context, sessionID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM s_session WHERE session_id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("store: delete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresSessionStore) ListByUser(ctx context.Context, userID string) ([]Session, error) {
	return s.listWhere(ctx, "user_id", userID)
}

func (s *PostgresSessionStore) ListByAssistant(ctx context.Context, assistantID string) ([]Session, error) {
	return s.listWhere(ctx, "assistant_id", assistantID)
}

func (s *PostgresSessionStore) listWhere(ctx context.Context, column, value string) ([]Session, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
		SELECT session_id, user_id, assistant_id, created_at, last_active, state, metadata
		FROM s_session WHERE %s = $1 ORDER BY last_active DESC`, column), value)
	if err != nil {
		return nil, fmt.Errorf("store: list sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

func (s *PostgresSessionStore) CleanupExpired(ctx context.Context, timeout time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-timeout)
	tag, err := s.pool.Exec(ctx, `DELETE FROM s_session WHERE last_active < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("store: cleanup expired sessions: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// rowScanner is satisfied by both pgx.Row (QueryRow) and pgx.Rows (Query),
// letting scanSession serve both call sites.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (Session, error) {
	var sess Session
	var stateJSON, metaJSON []byte
	err := row.Scan(&sess.SessionID, &sess.UserID, &sess.AssistantID, &sess.CreatedAt, &sess.LastActive, &stateJSON, &metaJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Session{}, ErrNotFound
		}
		return Session{}, fmt.Errorf("store: scan session: %w", err)
	}
	if len(stateJSON) > 0 {
		_ = json.Unmarshal(stateJSON, &sess.State)
	}
	if len(metaJSON) > 0 {
		_ = json.Unmarshal(metaJSON, &sess.Metadata)
	}
	return sess, nil
}
