package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresMCPConfigStore is the PostgreSQL-backed MCPConfigStore. Rows are
// uniquely keyed on (user_id, name); SaveUserConfig replaces the full set
// for a user inside a transaction so a partial write never leaves a mixed
// old/new server list visible to a concurrent reader.
type PostgresMCPConfigStore struct {
	pool *pgxpool.Pool
}

// NewPostgresMCPConfigStore wraps an existing pool.
func NewPostgresMCPConfigStore(pool *pgxpool.Pool) *PostgresMCPConfigStore {
	return &PostgresMCPConfigStore{pool: pool}
}

func (s *PostgresMCPConfigStore) GetUserConfig(ctx context.Context, userID string) (UserMCPConfig, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT user_id, name, command, args, env, url, transport, headers, disabled, auto_approve
		FROM s_mcp_server WHERE user_id = $1 ORDER BY name`, userID)
	if err != nil {
		return UserMCPConfig{}, fmt.Errorf("store: get mcp config: %w", err)
	}
	defer rows.Close()

	cfg := UserMCPConfig{UserID: userID}
	for rows.Next() {
		srv, err := scanMCPServer(rows)
		if err != nil {
			return UserMCPConfig{}, err
		}
		cfg.Servers = append(cfg.Servers, srv)
	}
	return cfg, rows.Err()
}

func (s *PostgresMCPConfigStore) SaveUserConfig(ctx context.Context, userID string, cfg UserMCPConfig) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("store: save mcp config: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM s_mcp_server WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("store: save mcp config: clear: %w", err)
	}
	for _, srv := range cfg.Servers {
		if err := insertMCPServer(ctx, tx, userID, srv); err != nil {
			return err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("store: save mcp config: commit: %w", err)
	}
	return nil
}

func (s *PostgresMCPConfigStore) DeleteUserConfig(ctx context.Context, userID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM s_mcp_server WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("store: delete mcp config: %w", err)
	}
	return nil
}

func (s *PostgresMCPConfigStore) AddServer(ctx context.Context, userID string, server MCPServerConfig) error {
	return insertMCPServer(ctx, s.pool, userID, server)
}

func (s *PostgresMCPConfigStore) RemoveServer(ctx context.Context, userID, name string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM s_mcp_server WHERE user_id = $1 AND name = $2`, userID, name)
	if err != nil {
		return fmt.Errorf("store: remove mcp server: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresMCPConfigStore) GetServer(ctx context.Context, userID, name string) (MCPServerConfig, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT user_id, name, command, args, env, url, transport, headers, disabled, auto_approve
		FROM s_mcp_server WHERE user_id = $1 AND name = $2`, userID, name)
	return scanMCPServer(row)
}

// sqlExecer is satisfied by both *pgxpool.Pool and pgx.Tx; insertMCPServer
// runs unchanged whether called directly or inside SaveUserConfig's
// transaction.
type sqlExecer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func insertMCPServer(ctx context.Context, tx sqlExecer, userID string, server MCPServerConfig) error {
	argsJSON, _ := json.Marshal(server.Args)
	envJSON, _ := json.Marshal(server.Env)
	headersJSON, _ := json.Marshal(server.Headers)
	autoApproveJSON, _ := json.Marshal(server.AutoApprove)

	_, err := tx.Exec(ctx, `
		INSERT INTO s_mcp_server (user_id, name, command, args, env, url, transport, headers, disabled, auto_approve)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (user_id, name) DO UPDATE SET
			command = EXCLUDED.command,
			args = EXCLUDED.args,
			env = EXCLUDED.env,
			url = EXCLUDED.url,
			transport = EXCLUDED.transport,
			headers = EXCLUDED.headers,
			disabled = EXCLUDED.disabled,
			auto_approve = EXCLUDED.auto_approve`,
		userID, server.Name, server.Command, argsJSON, envJSON, server.URL, string(server.Transport), headersJSON, server.Disabled, autoApproveJSON)
	if err != nil {
		return fmt.Errorf("store: upsert mcp server: %w", err)
	}
	return nil
}

func scanMCPServer(row rowScanner) (MCPServerConfig, error) {
	var srv MCPServerConfig
	var transport string
	var argsJSON, envJSON, headersJSON, autoApproveJSON []byte

	err := row.Scan(&srv.UserID, &srv.Name, &srv.Command, &argsJSON, &envJSON, &srv.URL, &transport, &headersJSON, &srv.Disabled, &autoApproveJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return MCPServerConfig{}, ErrNotFound
		}
		return MCPServerConfig{}, fmt.Errorf("store: scan mcp server: %w", err)
	}
	srv.Transport = Transport(transport)
	if len(argsJSON) > 0 {
		_ = json.Unmarshal(argsJSON, &srv.Args)
	}
	if len(envJSON) > 0 {
		_ = json.Unmarshal(envJSON, &srv.Env)
	}
	if len(headersJSON) > 0 {
		_ = json.Unmarshal(headersJSON, &srv.Headers)
	}
	if len(autoApproveJSON) > 0 {
		_ = json.Unmarshal(autoApproveJSON, &srv.AutoApprove)
	}
	return srv, nil
}
