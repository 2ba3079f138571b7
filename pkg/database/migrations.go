package database

import (
	"context"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations
var migrationsFS embed.FS

// migration is one embedded, numbered SQL file.
type migration struct {
	version  int
	name     string
	sql      string
	checksum string
}

// loadMigrations reads every *.sql file under migrations/, in filename
// order. File names must start with a zero-padded integer version
// (0001_session.sql), matching the convention the embedded migrations in
// this package follow.
func loadMigrations() ([]migration, error) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("database: read embedded migrations: %w", err)
	}

	var out []migration
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		prefix, _, ok := strings.Cut(entry.Name(), "_")
		if !ok {
			return nil, fmt.Errorf("database: migration %q missing version prefix", entry.Name())
		}
		version, err := strconv.Atoi(prefix)
		if err != nil {
			return nil, fmt.Errorf("database: migration %q has non-numeric version prefix: %w", entry.Name(), err)
		}
		data, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("database: read migration %q: %w", entry.Name(), err)
		}
		sum := sha256.Sum256(data)
		out = append(out, migration{
			version:  version,
			name:     entry.Name(),
			sql:      string(data),
			checksum: hex.EncodeToString(sum[:]),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].version < out[j].version })
	return out, nil
}

// Migrate applies every embedded migration not yet recorded in
// s_schema_version, in version order, inside one transaction per migration.
//
// Unlike golang-migrate's internal dirty/version bookkeeping (a single
// "current version" row that can be left dirty on a crash mid-apply), this
// ledger is append-only: every applied migration gets its own row carrying
// the checksum of the SQL that was run. A later run that finds an applied
// migration's on-disk content no longer matches its recorded checksum fails
// loudly instead of silently re-running or skipping it — migrations in this
// codebase are meant to be immutable once shipped.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS s_schema_version (
			version     INTEGER PRIMARY KEY,
			name        TEXT NOT NULL,
			checksum    TEXT NOT NULL,
			applied_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		)`); err != nil {
		return fmt.Errorf("database: create schema_version ledger: %w", err)
	}

	migrations, err := loadMigrations()
	if err != nil {
		return err
	}

	applied := make(map[int]string) // version -> checksum
	rows, err := pool.Query(ctx, `SELECT version, checksum FROM s_schema_version`)
	if err != nil {
		return fmt.Errorf("database: read schema_version ledger: %w", err)
	}
	for rows.Next() {
		var version int
		var checksum string
		if err := rows.Scan(&version, &checksum); err != nil {
			rows.Close()
			return fmt.Errorf("database: scan schema_version row: %w", err)
		}
		applied[version] = checksum
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("database: read schema_version ledger: %w", err)
	}

	for _, m := range migrations {
		if checksum, ok := applied[m.version]; ok {
			if checksum != m.checksum {
				return fmt.Errorf("database: migration %q has drifted since it was applied (recorded checksum %s, on-disk %s)", m.name, checksum, m.checksum)
			}
			continue
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("database: begin migration %q: %w", m.name, err)
		}
		if _, err := tx.Exec(ctx, m.sql); err != nil {
			tx.Rollback(ctx)
			return fmt.Errorf("database: apply migration %q: %w", m.name, err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO s_schema_version (version, name, checksum) VALUES ($1, $2, $3)`,
			m.version, m.name, m.checksum); err != nil {
			tx.Rollback(ctx)
			return fmt.Errorf("database: record migration %q: %w", m.name, err)
		}
		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("database: commit migration %q: %w", m.name, err)
		}
	}

	return nil
}

// CurrentVersion returns the newest version recorded in s_schema_version, or
// 0 if the ledger is empty (including when the ledger table itself has
// never been created, since that is equivalent to no migration having run).
func CurrentVersion(ctx context.Context, pool *pgxpool.Pool) (int, error) {
	var version int
	err := pool.QueryRow(ctx, `
		SELECT COALESCE(MAX(version), 0) FROM s_schema_version`).Scan(&version)
	if err != nil {
		if isUndefinedTable(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("database: read current version: %w", err)
	}
	return version, nil
}

// Rollback removes every ledger row newer than version, so a subsequent
// Migrate re-applies them. It does not undo the DDL those migrations ran —
// rollback scripts are an operator responsibility, not this package's — it
// only rewinds the ledger's bookkeeping of what has been applied.
func Rollback(ctx context.Context, pool *pgxpool.Pool, version int) error {
	_, err := pool.Exec(ctx, `DELETE FROM s_schema_version WHERE version > $1`, version)
	if err != nil {
		return fmt.Errorf("database: rollback ledger to version %d: %w", version, err)
	}
	return nil
}

// isUndefinedTable reports whether err is Postgres error code 42P01
// (undefined_table), so CurrentVersion can treat "ledger never created" the
// same as "ledger empty" instead of surfacing a confusing query error.
func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "42P01"
}
