package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	migrationsGlob   = "sql/migrations/*.sql"
	migrationLockKey = int64(20260831)

	migrationTableDDL = `
CREATE TABLE IF NOT EXISTS schema_migrations (
    version BIGINT PRIMARY KEY,
    name TEXT NOT NULL,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`
)

//go:embed sql/migrations/*.sql
var migrationsFS embed.FS

var migrationFilePattern = regexp.MustCompile(`^(\d+)_([a-zA-Z0-9_]+)\.(up|down)\.sql$`)

type migration struct {
	Version int64
	Name    string
	UpSQL   string
	DownSQL string
}

// MigrateUp применяет up-миграции. steps=0 означает "применить все доступные".
func (s *Store) MigrateUp(ctx context.Context, steps int) error {
	return s.withMigrationLock(ctx, func(conn *sql.Conn, migrations []migration) error {
		applied, err := appliedVersions(ctx, conn)
		if err != nil {
			return err
		}

		done := 0
		for _, m := range migrations {
			if applied[m.Version] {
				continue
			}
			if err := runMigrationStep(ctx, conn, m, true); err != nil {
				return err
			}
			done++
			if steps > 0 && done >= steps {
				break
			}
		}
		return nil
	})
}

// MigrateDown откатывает миграции. steps<=0 интерпретируется как 1 шаг.
func (s *Store) MigrateDown(ctx context.Context, steps int) error {
	if steps <= 0 {
		steps = 1
	}
	return s.withMigrationLock(ctx, func(conn *sql.Conn, migrations []migration) error {
		byVersion := make(map[int64]migration, len(migrations))
		for _, m := range migrations {
			byVersion[m.Version] = m
		}

		rows, err := conn.QueryContext(ctx, `
			SELECT version
			FROM schema_migrations
			ORDER BY version DESC
			LIMIT $1
		`, steps)
		if err != nil {
			return fmt.Errorf("query applied migrations: %w", err)
		}
		defer rows.Close()

		versions := make([]int64, 0, steps)
		for rows.Next() {
			var version int64
			if err := rows.Scan(&version); err != nil {
				return fmt.Errorf("scan applied migration version: %w", err)
			}
			versions = append(versions, version)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate applied migrations: %w", err)
		}

		for _, version := range versions {
			m, ok := byVersion[version]
			if !ok {
				return fmt.Errorf("cannot rollback unknown migration version %d", version)
			}
			if err := runMigrationStep(ctx, conn, m, false); err != nil {
				return err
			}
		}
		return nil
	})
}

// MigrationStatus возвращает текущую версию и количество применённых миграций.
func (s *Store) MigrationStatus(ctx context.Context) (int64, int, error) {
	if s == nil || s.db == nil {
		return 0, 0, fmt.Errorf("postgres store is not initialized")
	}

	queryCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := s.db.ExecContext(queryCtx, migrationTableDDL); err != nil {
		return 0, 0, fmt.Errorf("ensure migration table: %w", err)
	}

	var (
		version int64
		count   int
	)
	if err := s.db.QueryRowContext(queryCtx, `
		SELECT COALESCE(MAX(version), 0), COUNT(*)
		FROM schema_migrations
	`).Scan(&version, &count); err != nil {
		return 0, 0, fmt.Errorf("query migration status: %w", err)
	}

	return version, count, nil
}

// withMigrationLock берёт advisory lock, чтобы несколько инстансов не
// применяли миграции одновременно, и выполняет fn на выделенном соединении.
func (s *Store) withMigrationLock(ctx context.Context, fn func(conn *sql.Conn, migrations []migration) error) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("postgres store is not initialized")
	}

	migrations, err := loadMigrationsFromFS(migrationsFS)
	if err != nil {
		return err
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire db connection: %w", err)
	}
	defer conn.Close()

	lockCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := conn.ExecContext(lockCtx, "SELECT pg_advisory_lock($1)", migrationLockKey); err != nil {
		return fmt.Errorf("acquire migration lock: %w", err)
	}
	defer func() {
		_, _ = conn.ExecContext(context.Background(), "SELECT pg_advisory_unlock($1)", migrationLockKey)
	}()

	if _, err := conn.ExecContext(ctx, migrationTableDDL); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	return fn(conn, migrations)
}

// runMigrationStep выполняет одну миграцию и запись о ней в одной транзакции.
func runMigrationStep(ctx context.Context, conn *sql.Conn, m migration, up bool) error {
	direction := "down"
	body := m.DownSQL
	record := `DELETE FROM schema_migrations WHERE version = $1`
	recordArgs := []any{m.Version}
	if up {
		direction = "up"
		body = m.UpSQL
		record = `INSERT INTO schema_migrations (version, name, applied_at) VALUES ($1, $2, NOW())`
		recordArgs = []any{m.Version, m.Name}
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration tx (%s %d): %w", direction, m.Version, err)
	}

	if _, err := tx.ExecContext(ctx, body); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("execute %s migration %d_%s: %w", direction, m.Version, m.Name, err)
	}
	if _, err := tx.ExecContext(ctx, record, recordArgs...); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("record %s migration %d_%s: %w", direction, m.Version, m.Name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s migration %d_%s: %w", direction, m.Version, m.Name, err)
	}

	return nil
}

func appliedVersions(ctx context.Context, conn *sql.Conn) (map[int64]bool, error) {
	rows, err := conn.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("query applied migrations: %w", err)
	}
	defer rows.Close()

	result := make(map[int64]bool)
	for rows.Next() {
		var version int64
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("scan applied migration version: %w", err)
		}
		result[version] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applied migrations: %w", err)
	}

	return result, nil
}

func loadMigrationsFromFS(fsys fs.FS) ([]migration, error) {
	files, err := fs.Glob(fsys, migrationsGlob)
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	if len(files) == 0 {
		return nil, errors.New("no migration files found")
	}

	partial := make(map[int64]*migration)
	for _, file := range files {
		base := filepath.Base(file)
		matches := migrationFilePattern.FindStringSubmatch(base)
		if len(matches) != 4 {
			return nil, fmt.Errorf("invalid migration file name: %s", base)
		}

		version, err := strconv.ParseInt(matches[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse migration version from %s: %w", base, err)
		}
		name := matches[2]
		direction := matches[3]

		bodyRaw, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, fmt.Errorf("read migration file %s: %w", file, err)
		}
		body := strings.TrimSpace(string(bodyRaw))
		if body == "" {
			return nil, fmt.Errorf("migration file is empty: %s", base)
		}

		m, ok := partial[version]
		if !ok {
			m = &migration{Version: version, Name: name}
			partial[version] = m
		} else if m.Name != name {
			return nil, fmt.Errorf("migration name mismatch for version %d: %s vs %s", version, m.Name, name)
		}

		switch direction {
		case "up":
			if m.UpSQL != "" {
				return nil, fmt.Errorf("duplicate up migration for version %d", version)
			}
			m.UpSQL = body
		case "down":
			if m.DownSQL != "" {
				return nil, fmt.Errorf("duplicate down migration for version %d", version)
			}
			m.DownSQL = body
		}
	}

	versions := make([]int64, 0, len(partial))
	for version := range partial {
		versions = append(versions, version)
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i] < versions[j] })

	migrations := make([]migration, 0, len(versions))
	for _, version := range versions {
		m := partial[version]
		if m.UpSQL == "" || m.DownSQL == "" {
			return nil, fmt.Errorf("migration %d_%s must have both up and down files", m.Version, m.Name)
		}
		migrations = append(migrations, *m)
	}

	return migrations, nil
}
