package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresAuditLogStore is the PostgreSQL-backed AuditLogStore.
type PostgresAuditLogStore struct {
	pool *pgxpool.Pool
}

// NewPostgresAuditLogStore wraps an existing pool.
func NewPostgresAuditLogStore(pool *pgxpool.Pool) *PostgresAuditLogStore {
	return &PostgresAuditLogStore{pool: pool}
}

func (s *PostgresAuditLogStore) Record(ctx context.Context, entry AuditLog) (AuditLog, error) {
	detailJSON, _ := json.Marshal(entry.Detail)
	entry.ID = uuid.NewString()

	row := s.pool.QueryRow(ctx, `
		INSERT INTO s_audit_log (id, user_id, action, target_type, target_id, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		RETURNING created_at`,
		entry.ID, entry.UserID, entry.Action, entry.TargetType, entry.TargetID, detailJSON)
	if err := row.Scan(&entry.CreatedAt); err != nil {
		return AuditLog{}, fmt.Errorf("store: record audit log: %w", err)
	}
	return entry, nil
}

func (s *PostgresAuditLogStore) ListForUser(ctx context.Context, userID string, limit, offset int) ([]AuditLog, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, action, target_type, target_id, detail, created_at
		FROM s_audit_log
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT NULLIF($2, -1) OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("store: list audit log: %w", err)
	}
	defer rows.Close()

	var out []AuditLog
	for rows.Next() {
		var e AuditLog
		var detailJSON []byte
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &e.TargetType, &e.TargetID, &detailJSON, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan audit log: %w", err)
		}
		if len(detailJSON) > 0 {
			_ = json.Unmarshal(detailJSON, &e.Detail)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
