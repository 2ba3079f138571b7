package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresMessageStore is the PostgreSQL-backed MessageStore. Ordering ties
// on created_at are broken by the s_message.seq bigserial column, mirroring
// Message.Seq's role in the in-memory backend.
type PostgresMessageStore struct {
	pool *pgxpool.Pool
}

// NewPostgresMessageStore wraps an existing pool.
func NewPostgresMessageStore(pool *pgxpool.Pool) *PostgresMessageStore {
	return &PostgresMessageStore{pool: pool}
}

func (s *PostgresMessageStore) SaveMessage(ctx context.Context, sessionID string, role Role, content string, metadata map[string]any) (string, error) {
	metaJSON, _ := json.Marshal(metadata)
	messageID := uuid.NewString()

	_, err := s.pool.Exec(ctx, `
		INSERT INTO s_message (message_id, session_id, role, content, created_at, metadata)
		VALUES ($1, $2, $3, $4, now(), $5)`,
		messageID, sessionID, string(role), content, metaJSON)
	if err != nil {
		return "", fmt.Errorf("store: save message: %w", err)
	}
	return messageID, nil
}

func (s *PostgresMessageStore) GetMessages(ctx context.Context, sessionID string, limit, offset int) ([]Message, error) {
	if limit <= 0 {
		limit = -1 // pgx/PostgreSQL: LIMIT -1 (via ALL) omitted by passing no cap
	}
	rows, err := s.pool.Query(ctx, `
		SELECT message_id, session_id, role, content, created_at, metadata, seq
		FROM s_message
		WHERE session_id = $1
		ORDER BY created_at ASC, seq ASC
		LIMIT NULLIF($2, -1) OFFSET $3`,
		sessionID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("store: get messages: %w", err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var msg Message
		var roleStr string
		var metaJSON []byte
		if err := rows.Scan(&msg.MessageID, &msg.SessionID, &roleStr, &msg.Content, &msg.CreatedAt, &metaJSON, &msg.seq); err != nil {
			return nil, fmt.Errorf("store: scan message: %w", err)
		}
		msg.Role = Role(roleStr)
		if len(metaJSON) > 0 {
			_ = json.Unmarshal(metaJSON, &msg.Metadata)
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}

func (s *PostgresMessageStore) CountMessages(ctx context.Context, sessionID string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM s_message WHERE session_id = $1`, sessionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("store: count messages: %w", err)
	}
	return count, nil
}

func (s *PostgresMessageStore) DeleteMessages(ctx context.Context, sessionID string) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM s_message WHERE session_id = $1`, sessionID)
	if err != nil {
		return 0, fmt.Errorf("store: delete messages: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
