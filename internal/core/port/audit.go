package port

import "context"

// AuditEntry represents a single auditable request: a query or a CSV load.
type AuditEntry struct {
	Source       string // transport + operation, e.g. "http.query", "mcp.load_csv"
	SQL          string // empty for loads
	RowsReturned int
	RowsLoaded   int64
	DurationMS   int64
	Err          error
}

// RequestAuditor records audit events.
type RequestAuditor interface {
	Record(ctx context.Context, entry AuditEntry)
	Close() error
}

// NoopAuditor discards all audit entries.
type NoopAuditor struct{}

func (NoopAuditor) Record(context.Context, AuditEntry) {}
func (NoopAuditor) Close() error                       { return nil }
