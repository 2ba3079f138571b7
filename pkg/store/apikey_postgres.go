package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresAPIKeyStore is the PostgreSQL-backed APIKeyStore.
type PostgresAPIKeyStore struct {
	pool *pgxpool.Pool
}

// NewPostgresAPIKeyStore wraps an existing pool.
func NewPostgresAPIKeyStore(pool *pgxpool.Pool) *PostgresAPIKeyStore {
	return &PostgresAPIKeyStore{pool: pool}
}

func (s *PostgresAPIKeyStore) Create(ctx context.Context, key APIKey) (APIKey, error) {
	key.KeyID = uuid.NewString()

	row := s.pool.QueryRow(ctx, `
		INSERT INTO s_api_key (key_id, user_id, hashed_key, created_at, revoked_at)
		VALUES ($1, $2, $3, now(), NULL)
		RETURNING created_at`,
		key.KeyID, key.UserID, key.HashedKey)
	if err := row.Scan(&key.CreatedAt); err != nil {
		return APIKey{}, fmt.Errorf("store: create api key: %w", err)
	}
	key.RevokedAt = nil
	return key, nil
}

func (s *PostgresAPIKeyStore) GetByHashedKey(ctx context.Context, hashedKey string) (APIKey, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT key_id, user_id, hashed_key, created_at, revoked_at
		FROM s_api_key
		WHERE hashed_key = $1 AND revoked_at IS NULL`, hashedKey)

	var k APIKey
	if err := row.Scan(&k.KeyID, &k.UserID, &k.HashedKey, &k.CreatedAt, &k.RevokedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return APIKey{}, ErrNotFound
		}
		return APIKey{}, fmt.Errorf("store: get api key: %w", err)
	}
	return k, nil
}

func (s *PostgresAPIKeyStore) Revoke(ctx context.Context, keyID string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE s_api_key SET revoked_at = now()
		WHERE key_id = $1 AND revoked_at IS NULL`, keyID)
	if err != nil {
		return fmt.Errorf("store: revoke api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresAPIKeyStore) ListForUser(ctx context.Context, userID string) ([]APIKey, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT key_id, user_id, hashed_key, created_at, revoked_at
		FROM s_api_key
		WHERE user_id = $1
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("store: list api keys: %w", err)
	}
	defer rows.Close()

	var out []APIKey
	for rows.Next() {
		var k APIKey
		if err := rows.Scan(&k.KeyID, &k.UserID, &k.HashedKey, &k.CreatedAt, &k.RevokedAt); err != nil {
			return nil, fmt.Errorf("store: scan api key: %w", err)
		}
		out = append(out, k)
	}
	return out, rows.Err()
}
