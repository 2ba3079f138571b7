package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresProfileStore is the PostgreSQL-backed ProfileStore.
type PostgresProfileStore struct {
	pool *pgxpool.Pool
}

// NewPostgresProfileStore wraps an existing pool.
func NewPostgresProfileStore(pool *pgxpool.Pool) *PostgresProfileStore {
	return &PostgresProfileStore{pool: pool}
}

func (s *PostgresProfileStore) Create(ctx context.Context, profile Profile) (Profile, error) {
	if profile.CustomFields == nil {
		profile.CustomFields = map[string]any{}
	}
	fieldsJSON, _ := json.Marshal(profile.CustomFields)

	row := s.pool.QueryRow(ctx, `
		INSERT INTO s_profile (user_id, username, display_name, email, department, role, custom_fields, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		ON CONFLICT (user_id) DO NOTHING
		RETURNING created_at, updated_at`,
		profile.UserID, profile.Username, profile.DisplayName, profile.Email, profile.Department, profile.Role, fieldsJSON)

	if err := row.Scan(&profile.CreatedAt, &profile.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Profile{}, ErrAlreadyExists
		}
		return Profile{}, fmt.Errorf("store: create profile: %w", err)
	}
	return profile, nil
}

func (s *PostgresProfileStore) Get(ctx context.Context, userID string) (Profile, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT user_id, username, display_name, email, department, role, custom_fields, created_at, updated_at
		FROM s_profile WHERE user_id = $1`, userID)

	var p Profile
	var fieldsJSON []byte
	err := row.Scan(&p.UserID, &p.Username, &p.DisplayName, &p.Email, &p.Department, &p.Role, &fieldsJSON, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, fmt.Errorf("store: get profile: %w", err)
	}
	if len(fieldsJSON) > 0 {
		_ = json.Unmarshal(fieldsJSON, &p.CustomFields)
	}
	return p, nil
}

// Update merges patch into the stored row inside a transaction: the custom
// fields merge (key-wise, nil value deletes) can't be expressed as a single
// JSONB expression safely without reading the current value first.
func (s *PostgresProfileStore) Update(ctx context.Context, userID string, patch ProfilePatch) (Profile, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Profile{}, fmt.Errorf("store: update profile: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var p Profile
	var fieldsJSON []byte
	row := tx.QueryRow(ctx, `
		SELECT user_id, username, display_name, email, department, role, custom_fields, created_at, updated_at
		FROM s_profile WHERE user_id = $1 FOR UPDATE`, userID)
	err = row.Scan(&p.UserID, &p.Username, &p.DisplayName, &p.Email, &p.Department, &p.Role, &fieldsJSON, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, fmt.Errorf("store: update profile: select: %w", err)
	}
	if len(fieldsJSON) > 0 {
		_ = json.Unmarshal(fieldsJSON, &p.CustomFields)
	}

	if patch.DisplayName != nil {
		p.DisplayName = *patch.DisplayName
	}
	if patch.Email != nil {
		p.Email = *patch.Email
	}
	if patch.Department != nil {
		p.Department = *patch.Department
	}
	if patch.Role != nil {
		p.Role = *patch.Role
	}
	if patch.CustomFields != nil {
		if p.CustomFields == nil {
			p.CustomFields = map[string]any{}
		}
		for k, v := range patch.CustomFields {
			if v == nil {
				delete(p.CustomFields, k)
				continue
			}
			p.CustomFields[k] = v
		}
	}

	newFieldsJSON, _ := json.Marshal(p.CustomFields)
	err = tx.QueryRow(ctx, `
		UPDATE s_profile
		SET display_name = $2, email = $3, department = $4, role = $5, custom_fields = $6, updated_at = now()
		WHERE user_id = $1
		RETURNING updated_at`, userID, p.DisplayName, p.Email, p.Department, p.Role, newFieldsJSON).Scan(&p.UpdatedAt)
	if err != nil {
		return Profile{}, fmt.Errorf("store: update profile: update: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Profile{}, fmt.Errorf("store: update profile: commit: %w", err)
	}
	return p, nil
}

func (s *PostgresProfileStore) Delete(ctx context.Context, userID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM s_profile WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("store: delete profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
