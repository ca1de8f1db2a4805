// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/envimetry/pipeline/internal/metrics"
	"github.com/envimetry/pipeline/internal/telemetry"
	"github.com/envimetry/pipeline/internal/transform"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// LoaderConfig controls the Postgres connection pool used for run loads.
type LoaderConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type beginExecCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Begin(context.Context) (pgx.Tx, error)
	Close()
}

// Loader writes a transformed dataset into Postgres. Dimension tables are
// replaced on every load; the fact table is append-only, so rerunning the
// same batch duplicates fact rows.
type Loader struct {
	pool   beginExecCloser
	logger *zap.Logger
}

// NewLoader creates a Postgres-backed Loader using the provided config.
func NewLoader(ctx context.Context, cfg LoaderConfig, logger *zap.Logger) (*Loader, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return NewLoaderWithPool(pool, logger)
}

// NewLoaderWithPool constructs a loader from an existing pool (primarily for
// testing).
func NewLoaderWithPool(pool beginExecCloser, logger *zap.Logger) (*Loader, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{pool: pool, logger: logger}, nil
}

// Close releases the underlying pool resources.
func (l *Loader) Close() {
	if l == nil || l.pool == nil {
		return
	}
	l.pool.Close()
}

// Load persists one dataset. The connectivity probe runs before anything
// else: if it fails no table is touched and the error wraps
// telemetry.ErrStoreUnavailable. On success every dimension table is dropped
// and recreated inside a single transaction, then fact rows are appended.
func (l *Loader) Load(ctx context.Context, s telemetry.Schema, ds transform.Dataset) error {
	if l == nil || l.pool == nil {
		return fmt.Errorf("loader is not configured")
	}
	start := time.Now()

	if _, err := l.pool.Exec(ctx, "SELECT 1"); err != nil {
		return fmt.Errorf("%w: %v", telemetry.ErrStoreUnavailable, err)
	}

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin load transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, dim := range ds.Dimensions {
		if err := l.replaceTable(ctx, tx, s, dim); err != nil {
			return err
		}
		metrics.AddLoadedRows(ds.Domain, dim.Name, len(dim.Rows))
	}
	if err := l.appendFact(ctx, tx, s, ds.Fact); err != nil {
		return err
	}
	metrics.AddLoadedRows(ds.Domain, ds.Fact.Name, len(ds.Fact.Rows))

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit load transaction: %w", err)
	}

	metrics.ObserveLoad(ds.Domain, time.Since(start))
	l.logger.Info("dataset loaded",
		zap.String("domain", ds.Domain),
		zap.String("run_id", ds.RunID),
		zap.Int("dimensions", len(ds.Dimensions)),
		zap.Int("fact_rows", len(ds.Fact.Rows)),
		zap.Duration("duration", time.Since(start)))
	return nil
}

// replaceTable rebuilds one dimension table from scratch. CASCADE clears any
// foreign keys left by a previous run's fact rows.
func (l *Loader) replaceTable(ctx context.Context, tx pgx.Tx, s telemetry.Schema, table transform.Table) error {
	if !validTableName.MatchString(table.Name) {
		return fmt.Errorf("invalid table name %q", table.Name)
	}
	if _, err := tx.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", table.Name)); err != nil {
		return fmt.Errorf("drop %s: %w", table.Name, err)
	}
	if _, err := tx.Exec(ctx, createStatement(s, table, true)); err != nil {
		return fmt.Errorf("create %s: %w", table.Name, err)
	}
	return l.insertRows(ctx, tx, table)
}

// appendFact creates the fact table if missing and appends this run's rows.
func (l *Loader) appendFact(ctx context.Context, tx pgx.Tx, s telemetry.Schema, table transform.Table) error {
	if !validTableName.MatchString(table.Name) {
		return fmt.Errorf("invalid table name %q", table.Name)
	}
	if _, err := tx.Exec(ctx, createStatement(s, table, false)); err != nil {
		return fmt.Errorf("create %s: %w", table.Name, err)
	}
	return l.insertRows(ctx, tx, table)
}

func (l *Loader) insertRows(ctx context.Context, tx pgx.Tx, table transform.Table) error {
	if len(table.Rows) == 0 {
		return nil
	}
	query := insertStatement(table)
	for _, row := range table.Rows {
		if _, err := tx.Exec(ctx, query, row...); err != nil {
			return fmt.Errorf("insert into %s: %w", table.Name, err)
		}
	}
	return nil
}

// createStatement builds the DDL for a table. replace selects between the
// dimension form (always recreated) and the fact form (created once).
func createStatement(s telemetry.Schema, table transform.Table, replace bool) string {
	cols := make([]string, 0, len(table.Columns))
	for _, c := range table.Columns {
		if !validTableName.MatchString(c) {
			continue
		}
		cols = append(cols, fmt.Sprintf("%s %s", c, columnType(s, c)))
	}
	form := "CREATE TABLE IF NOT EXISTS"
	if replace {
		form = "CREATE TABLE"
	}
	return fmt.Sprintf("%s %s (%s)", form, table.Name, strings.Join(cols, ", "))
}

func insertStatement(table transform.Table) string {
	placeholders := make([]string, len(table.Columns))
	for i := range table.Columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table.Name, strings.Join(table.Columns, ", "), strings.Join(placeholders, ", "))
}

// columnType maps a column name to its Postgres type using the schema. Key
// and provenance columns are not schema fields and are typed by convention.
func columnType(s telemetry.Schema, column string) string {
	switch {
	case column == "timestamp":
		return "TIMESTAMPTZ"
	case column == "imputed_fields", column == "source":
		return "TEXT"
	case strings.HasSuffix(column, "_id"):
		return "BIGINT"
	}
	if f, ok := s.Field(column); ok && f.Kind == telemetry.KindNumber {
		return "DOUBLE PRECISION"
	}
	return "TEXT"
}
