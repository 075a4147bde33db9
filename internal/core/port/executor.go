package port

import (
	"context"
	"io"
)

// Result is the shape the engine hands back for an executed statement.
// Statements without a result set (INSERT/UPDATE/DELETE) produce empty
// columns and rows.
type Result struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// StatementExecutor runs a validated, limited SQL statement against the
// managed table's engine.
type StatementExecutor interface {
	Execute(ctx context.Context, sql string) (*Result, error)
}

// TableLoader replaces the managed table's contents with the rows of a CSV
// stream and reports how many rows were loaded.
type TableLoader interface {
	LoadCSV(ctx context.Context, csv io.Reader) (int64, error)
}
