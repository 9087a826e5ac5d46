package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLite is the on-device Store, a single file in WAL mode.
type SQLite struct {
	db     *sql.DB
	logger *zap.Logger
	closed atomic.Bool
}

// OpenSQLite creates or opens the database at path and applies the schema.
// Opening an existing database is idempotent: tables and indexes are only
// created when missing and no data is touched.
func OpenSQLite(ctx context.Context, path string, logger *zap.Logger) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect database: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = FULL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("execute %q: %w", pragma, err)
		}
	}

	if err := applySQLiteSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("Store opened", zap.String("driver", "sqlite"), zap.String("path", path))
	return &SQLite{db: db, logger: logger}, nil
}

func applySQLiteSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range sqliteDialect.ddl() {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema %q: %w", stmt, err)
		}
	}
	if _, err := tx.ExecContext(ctx, sqliteDialect.metaSeed, schemaVersion); err != nil {
		return fmt.Errorf("seed schema version: %w", err)
	}

	var version int
	if err := tx.QueryRowContext(ctx, "SELECT version FROM schema_version WHERE id = 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version > schemaVersion {
		return fmt.Errorf("%w: have %d, support %d", ErrSchemaTooNew, version, schemaVersion)
	}
	return tx.Commit()
}

func (s *SQLite) Put(ctx context.Context, c Collection, doc Document) error {
	def, err := s.prepare(c)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, sqliteDialect.upsertSQL(def), def.args(doc)...); err != nil {
		return fmt.Errorf("put %s/%s: %w", c, doc.Key, err)
	}
	return nil
}

func (s *SQLite) Get(ctx context.Context, c Collection, key string) ([]byte, bool, error) {
	def, err := s.prepare(c)
	if err != nil {
		return nil, false, err
	}
	var body []byte
	err = s.db.QueryRowContext(ctx, sqliteDialect.getSQL(def), key).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s/%s: %w", c, key, err)
	}
	return body, true, nil
}

func (s *SQLite) QueryByIndex(ctx context.Context, c Collection, idx Index, value any) ([][]byte, error) {
	def, err := s.prepare(c)
	if err != nil {
		return nil, err
	}
	ix, err := def.index(idx)
	if err != nil {
		return nil, err
	}

	var rows *sql.Rows
	if value == nil {
		rows, err = s.db.QueryContext(ctx, sqliteDialect.querySQL(def, ix, false))
	} else {
		rows, err = s.db.QueryContext(ctx, sqliteDialect.querySQL(def, ix, true), value)
	}
	if err != nil {
		return nil, fmt.Errorf("query %s by %s: %w", c, idx, err)
	}
	defer rows.Close()

	var out [][]byte
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan %s: %w", c, err)
		}
		out = append(out, body)
	}
	return out, rows.Err()
}

func (s *SQLite) Delete(ctx context.Context, c Collection, key string) error {
	def, err := s.prepare(c)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, sqliteDialect.deleteSQL(def), key); err != nil {
		return fmt.Errorf("delete %s/%s: %w", c, key, err)
	}
	return nil
}

func (s *SQLite) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

func (s *SQLite) prepare(c Collection) (*collectionDef, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	return lookup(c)
}
