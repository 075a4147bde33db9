package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"time"

	"github.com/guillermoBallester/strait/internal/core/port"
)

var selectOrExplainRe = regexp.MustCompile(`(?i)^\s*(select|explain)\b`)

// Executor runs validated statements with a per-statement timeout.
type Executor struct {
	db           *sql.DB
	queryTimeout time.Duration
}

func NewExecutor(db *sql.DB, queryTimeout time.Duration) *Executor {
	return &Executor{db: db, queryTimeout: queryTimeout}
}

// Execute runs sql and materializes the result. Write statements go through
// Exec and report an empty result set, mirroring how the engine exposes no
// row description for them.
func (e *Executor) Execute(ctx context.Context, sqlText string) (*port.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, e.queryTimeout)
	defer cancel()

	if !selectOrExplainRe.MatchString(sqlText) {
		if _, err := e.db.ExecContext(ctx, sqlText); err != nil {
			return nil, fmt.Errorf("executing statement: %w", err)
		}
		return &port.Result{Columns: []string{}, Rows: [][]any{}}, nil
	}

	rows, err := e.db.QueryContext(ctx, sqlText)
	if err != nil {
		return nil, fmt.Errorf("executing query: %w", err)
	}
	defer rows.Close()

	return resultFromRows(rows)
}
