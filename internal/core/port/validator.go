package port

// StatementValidator authorizes SQL statements before execution, returning
// the cleaned statement text on success.
type StatementValidator interface {
	Validate(sql string) (string, error)
}

// RowLimiter bounds the result size of an already-validated statement.
type RowLimiter interface {
	Apply(sql string) string
}
