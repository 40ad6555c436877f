/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	applog "cutlayout/internal/log"
	"cutlayout/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	// ArchiveDirName holds workspace-local data under the workspace root.
	ArchiveDirName  = ".cut"
	ArchiveFileName = "archive.sqlite"

	// schemaVersion tracks the archive schema.
	// Bump this when you perform breaking schema changes and add migrations.
	schemaVersion = 3
)

// Archive is an open export archive. It is safe for concurrent use; the
// underlying pool is limited to a single connection.
type Archive struct {
	db   *sql.DB
	path string
}

// ArchivePath returns the full path to the workspace's archive database file.
func ArchivePath(root string) string {
	return filepath.Join(root, ArchiveDirName, ArchiveFileName)
}

// OpenArchive ensures that the archive exists at <root>/.cut/archive.sqlite,
// opens it, enables WAL mode and brings the schema up to date.
func OpenArchive(root string) (*Archive, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "archive_open").With(
		slog.String("root", root),
	)
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("workspace root is required")
	}
	if err := os.MkdirAll(filepath.Join(root, ArchiveDirName), 0o755); err != nil {
		l.Error("create archive dir failed", slog.Any("err", err))
		return nil, fmt.Errorf("create %s dir: %w", ArchiveDirName, err)
	}

	path := ArchivePath(root)
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if err := ensureMetaAndVersion(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure meta/version failed", slog.Any("err", err))
		return nil, err
	}
	if err := ensureArchiveSchema(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure archive schema failed", slog.Any("err", err))
		return nil, err
	}
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		l.Error("run migrations failed", slog.Any("err", err))
		return nil, err
	}

	l.Debug("archive ready", slog.String("path", path))
	return &Archive{db: db, path: path}, nil
}

// Path returns the database file location.
func (a *Archive) Path() string { return a.path }

// Close releases the database handle.
func (a *Archive) Close() error {
	if a == nil || a.db == nil {
		return nil
	}
	return a.db.Close()
}

// SchemaVersion reports the schema version recorded in the archive.
func (a *Archive) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	if err := a.db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&v); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return v, nil
}

func ensureMetaAndVersion(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	appv := version.String()
	var curSchema int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&curSchema)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// fresh database starts at version 1 and migrates forward
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, 1, ?, ?, ?)`, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

// language=SQL
// dialect=SQLite
const createExportsSQL = `CREATE TABLE IF NOT EXISTS exports (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	ad_id      INTEGER NOT NULL,
	created_at TEXT NOT NULL,
	sections   INTEGER NOT NULL DEFAULT 0,
	items      INTEGER NOT NULL DEFAULT 0,
	payload    BLOB NOT NULL
);`

func ensureArchiveSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, createExportsSQL); err != nil {
		return fmt.Errorf("create exports table: %w", err)
	}
	return nil
}

// migration is one schema step. backfill, when set, runs inside the same
// transaction after the statements.
type migration struct {
	stmts    []string
	backfill func(ctx context.Context, tx *sql.Tx) error
}

var migrations = map[int]migration{
	2: {stmts: []string{
		`CREATE INDEX IF NOT EXISTS idx_exports_ad_created ON exports(ad_id, created_at);`,
	}},
	// created_at text does not sort chronologically once fractions lose
	// trailing zeros, so ordering moves to an integer column.
	3: {
		stmts: []string{
			`ALTER TABLE exports ADD COLUMN created_ns INTEGER NOT NULL DEFAULT 0;`,
			`DROP INDEX IF EXISTS idx_exports_ad_created;`,
			`CREATE INDEX IF NOT EXISTS idx_exports_ad_created_ns ON exports(ad_id, created_ns);`,
		},
		backfill: backfillCreatedNs,
	},
}

// runMigrations applies incremental schema migrations up to schemaVersion.
func runMigrations(ctx context.Context, db *sql.DB) error {
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if cur > schemaVersion {
		// written by a newer build; never downgrade
		return nil
	}
	for cur < schemaVersion {
		next := cur + 1
		if err := migrateStep(ctx, db, next, migrations[next]); err != nil {
			return err
		}
		cur = next
	}
	return nil
}

func migrateStep(ctx context.Context, db *sql.DB, next int, m migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %d: %w", next, err)
	}
	for _, q := range m.stmts {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d stmt failed: %w", next, err)
		}
	}
	if m.backfill != nil {
		if err := m.backfill(ctx, tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d backfill: %w", next, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=?, updated_at=? WHERE id=1`, next, time.Now().UTC().Format(time.RFC3339)); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("migration %d update version: %w", next, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("migration %d commit: %w", next, err)
	}
	return nil
}

// backfillCreatedNs derives created_ns from the created_at text of rows
// written before schema 3. Unreadable stamps stay at 0 and sort oldest.
func backfillCreatedNs(ctx context.Context, tx *sql.Tx) error {
	rows, err := tx.QueryContext(ctx, `SELECT id, created_at FROM exports`)
	if err != nil {
		return err
	}
	stamps := map[int64]int64{}
	for rows.Next() {
		var id int64
		var ts string
		if err := rows.Scan(&id, &ts); err != nil {
			_ = rows.Close()
			return err
		}
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			stamps[id] = t.UnixNano()
		}
	}
	if err := rows.Close(); err != nil {
		return err
	}
	for id, ns := range stamps {
		if _, err := tx.ExecContext(ctx, `UPDATE exports SET created_ns=? WHERE id=?`, ns, id); err != nil {
			return err
		}
	}
	return nil
}
