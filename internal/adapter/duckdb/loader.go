package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"strings"
)

// Loader replaces the managed table with the contents of a CSV stream. The
// stream is spooled to a temporary file so DuckDB's CSV reader can infer the
// schema; the file is always removed afterwards.
type Loader struct {
	db        *sql.DB
	tableName string
}

func NewLoader(db *sql.DB, tableName string) *Loader {
	return &Loader{db: db, tableName: tableName}
}

// LoadCSV drops the previous table, recreates it from the CSV, and returns
// the loaded row count. Drop, create and count run in one transaction so a
// failed load never leaves the table half-replaced.
func (l *Loader) LoadCSV(ctx context.Context, csv io.Reader) (int64, error) {
	tmp, err := os.CreateTemp("", "strait-upload-*.csv")
	if err != nil {
		return 0, fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if _, err := io.Copy(tmp, csv); err != nil {
		_ = tmp.Close()
		return 0, fmt.Errorf("spooling CSV to disk: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("closing temp file: %w", err)
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", l.tableName)); err != nil {
		return 0, fmt.Errorf("dropping previous table: %w", err)
	}

	// The temp path is server-generated, but single quotes are escaped anyway.
	quoted := strings.ReplaceAll(tmpPath, "'", "''")
	createSQL := fmt.Sprintf(
		"CREATE TABLE %s AS SELECT * FROM read_csv_auto('%s', header=True)",
		l.tableName, quoted,
	)
	if _, err := tx.ExecContext(ctx, createSQL); err != nil {
		return 0, fmt.Errorf("loading CSV into table: %w", err)
	}

	var count int64
	row := tx.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", l.tableName))
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("counting loaded rows: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing load: %w", err)
	}

	return count, nil
}
