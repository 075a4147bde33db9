package domain

import (
	"fmt"
	"regexp"
)

var (
	selectRe = regexp.MustCompile(`^\s*select\b`)
	limitRe  = regexp.MustCompile(`\blimit\b`)
)

// Limiter bounds the row count of read queries that carry no LIMIT of their
// own. It never rejects and never touches write statements; callers must run
// the Validator first.
type Limiter struct {
	maxRows int
}

func NewLimiter(p *Policy) *Limiter {
	return &Limiter{maxRows: p.MaxRows}
}

// Apply returns sql ready for execution. A SELECT without a LIMIT is wrapped
// whole as a subquery so its ordering, aggregation and filtering are
// untouched — only the total row count is capped. A statement that already
// limits itself, or is not a SELECT, comes back cleaned but otherwise
// unchanged. Apply is idempotent: its own output always contains a LIMIT.
func (l *Limiter) Apply(sql string) string {
	cleaned := Clean(sql)
	folded := Fold(cleaned)

	if !selectRe.MatchString(folded) {
		return cleaned
	}
	if limitRe.MatchString(folded) {
		// The caller's explicit bound is honored, never overridden.
		return cleaned
	}

	return fmt.Sprintf("SELECT * FROM (%s) AS subquery LIMIT %d", cleaned, l.maxRows)
}
