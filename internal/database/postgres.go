package database

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"
	"go.uber.org/zap"
)

// pgPool is the subset of *pgxpool.Pool the store needs.
type pgPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// Postgres is a Store for deployments where several devices share one
// database, e.g. a kiosk backend. Layout and semantics match SQLite.
type Postgres struct {
	pool   pgPool
	logger *zap.Logger
	closed atomic.Bool
}

// ConnectPostgres opens a pool with query tracing routed to logger and
// applies the schema.
func ConnectPostgres(ctx context.Context, dsn string, logger *zap.Logger) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.ConnConfig.Tracer = &tracelog.TraceLog{
		Logger:   newZapTracer(logger),
		LogLevel: tracelog.LogLevelWarn,
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	s := &Postgres{pool: pool, logger: logger}
	if err := s.applySchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	logger.Info("Store opened", zap.String("driver", "postgres"), zap.String("host", cfg.ConnConfig.Host))
	return s, nil
}

func (s *Postgres) applySchema(ctx context.Context) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, stmt := range postgresDialect.ddl() {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema %q: %w", stmt, err)
		}
	}
	if _, err := tx.Exec(ctx, postgresDialect.metaSeed, schemaVersion); err != nil {
		return fmt.Errorf("seed schema version: %w", err)
	}

	var version int
	if err := tx.QueryRow(ctx, "SELECT version FROM schema_version WHERE id = 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version > schemaVersion {
		return fmt.Errorf("%w: have %d, support %d", ErrSchemaTooNew, version, schemaVersion)
	}
	return tx.Commit(ctx)
}

func (s *Postgres) Put(ctx context.Context, c Collection, doc Document) error {
	def, err := s.prepare(c)
	if err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, postgresDialect.upsertSQL(def), def.args(doc)...); err != nil {
		return fmt.Errorf("put %s/%s: %w", c, doc.Key, err)
	}
	return nil
}

func (s *Postgres) Get(ctx context.Context, c Collection, key string) ([]byte, bool, error) {
	def, err := s.prepare(c)
	if err != nil {
		return nil, false, err
	}
	var body []byte
	err = s.pool.QueryRow(ctx, postgresDialect.getSQL(def), key).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s/%s: %w", c, key, err)
	}
	return body, true, nil
}

func (s *Postgres) QueryByIndex(ctx context.Context, c Collection, idx Index, value any) ([][]byte, error) {
	def, err := s.prepare(c)
	if err != nil {
		return nil, err
	}
	ix, err := def.index(idx)
	if err != nil {
		return nil, err
	}

	var rows pgx.Rows
	if value == nil {
		rows, err = s.pool.Query(ctx, postgresDialect.querySQL(def, ix, false))
	} else {
		rows, err = s.pool.Query(ctx, postgresDialect.querySQL(def, ix, true), value)
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

func (s *Postgres) Delete(ctx context.Context, c Collection, key string) error {
	def, err := s.prepare(c)
	if err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, postgresDialect.deleteSQL(def), key); err != nil {
		return fmt.Errorf("delete %s/%s: %w", c, key, err)
	}
	return nil
}

func (s *Postgres) Close() error {
	if !s.closed.Swap(true) {
		s.pool.Close()
	}
	return nil
}

func (s *Postgres) prepare(c Collection) (*collectionDef, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	return lookup(c)
}
