package persistence

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrations embed.FS

// PostgresStore persists records to the chain_log table.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresStore creates a PostgresStore backed by the given connection pool.
// The pool is owned by the store and closed by Close.
func NewPostgresStore(pool *pgxpool.Pool, logger *zap.Logger) *PostgresStore {
	return &PostgresStore{pool: pool, logger: logger}
}

// Load implements Store.
func (s *PostgresStore) Load(ctx context.Context) ([]Record, error) {
	rows, err := s.pool.Query(ctx, "SELECT seq, record FROM chain_log ORDER BY seq ASC")
	if err != nil {
		return nil, fmt.Errorf("query chain_log: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var seq int64
		var rec Record
		if err := rows.Scan(&seq, &rec.Value); err != nil {
			return nil, fmt.Errorf("scan chain_log row: %w", err)
		}
		rec.Seq = uint64(seq)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Save implements Store.
func (s *PostgresStore) Save(ctx context.Context, rec Record) error {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO chain_log (seq, record) VALUES ($1, $2)
		 ON CONFLICT (seq) DO NOTHING`,
		int64(rec.Seq), rec.Value,
	)
	if err != nil {
		return fmt.Errorf("insert chain_log seq %d: %w", rec.Seq, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("insert chain_log seq %d: %w", rec.Seq, ErrSeqExists)
	}

	s.logger.Debug("record saved", zap.Uint64("seq", rec.Seq))
	return nil
}

// Close implements Store.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// Migrate applies the embedded migrations that have not been applied yet.
// It tracks versions in a golang-migrate compatible schema_migrations table
// and returns the number of migrations applied.
func (s *PostgresStore) Migrate(ctx context.Context) (int, error) {
	if _, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version bigint NOT NULL,
			dirty   boolean NOT NULL,
			PRIMARY KEY (version)
		)`); err != nil {
		return 0, fmt.Errorf("create schema_migrations: %w", err)
	}

	files, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return 0, fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(files)

	applied := 0
	for _, f := range files {
		name := strings.TrimPrefix(f, "migrations/")
		ver, err := versionFromFile(name)
		if err != nil {
			return applied, fmt.Errorf("parse version from %s: %w", name, err)
		}

		var exists bool
		if err := s.pool.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1 AND dirty = false)`,
			ver,
		).Scan(&exists); err != nil {
			return applied, fmt.Errorf("check %s: %w", name, err)
		}
		if exists {
			s.logger.Debug("migration already applied", zap.String("file", name))
			continue
		}

		sql, err := migrations.ReadFile(f)
		if err != nil {
			return applied, fmt.Errorf("read %s: %w", name, err)
		}

		// Mark dirty before applying so a crash is visible.
		if _, err := s.pool.Exec(ctx,
			`INSERT INTO schema_migrations (version, dirty) VALUES ($1, true)
			 ON CONFLICT (version) DO UPDATE SET dirty = true`, ver,
		); err != nil {
			return applied, fmt.Errorf("mark dirty %s: %w", name, err)
		}
		if _, err := s.pool.Exec(ctx, string(sql)); err != nil {
			return applied, fmt.Errorf("apply %s: %w", name, err)
		}
		if _, err := s.pool.Exec(ctx,
			`UPDATE schema_migrations SET dirty = false WHERE version = $1`, ver,
		); err != nil {
			return applied, fmt.Errorf("mark clean %s: %w", name, err)
		}

		s.logger.Info("migration applied", zap.String("file", name))
		applied++
	}
	return applied, nil
}

// versionFromFile extracts the leading integer from a migration filename.
// "001_chain_log.up.sql" → 1
func versionFromFile(filename string) (int64, error) {
	prefix, _, ok := strings.Cut(filename, "_")
	if !ok {
		return 0, fmt.Errorf("unexpected filename format")
	}
	return strconv.ParseInt(prefix, 10, 64)
}
