package domain

import (
	"fmt"
	"regexp"
)

// Sandbox defaults. The managed table name is fixed: every uploaded CSV is
// loaded into it, replacing the previous contents, and it is the only table a
// client statement may reference.
const (
	DefaultTableName = "tablename"
	DefaultMaxRows   = 1000
)

// AllowedVerbs are the statement verbs the sandbox accepts, in the order they
// are reported to callers.
var AllowedVerbs = []string{"select", "insert", "update", "delete"}

// defaultForbiddenPatterns block the engine surface a client must never
// reach: file-reading table functions, import/export, extension management,
// introspection, DDL, and system invocation. Matched case-insensitively on
// word boundaries against the folded statement text.
var defaultForbiddenPatterns = []string{
	`\bread_csv_auto\b`,
	`\bread_parquet\b`,
	`\bparquet_scan\b`,
	`\bhttpfs\b`,
	`\bcopy\b`,
	`\battach\b`,
	`\bdetach\b`,
	`\bpragma\b`,
	`\binstall\b`,
	`\bload\b`,
	`\bexport\b`,
	`\bimport\b`,
	`\bcreate\s+table\b`,
	`\bdrop\s+table\b`,
	`\balter\b`,
	`\btruncate\b`,
	`\bcall\b`,
	`\bsystem\b`,
}

// Policy is the immutable sandbox configuration: the one table a statement
// may touch, the constructs it may never contain, and the row cap applied to
// unbounded SELECTs. Built once at startup and shared by all callers.
type Policy struct {
	TableName string
	MaxRows   int
	Forbidden []*regexp.Regexp
}

// DefaultPolicy returns the fixed policy the service ships with.
func DefaultPolicy() *Policy {
	p, err := NewPolicy(DefaultTableName, DefaultMaxRows, nil)
	if err != nil {
		panic(err) // default patterns are constants; compiling them cannot fail
	}
	return p
}

// NewPolicy builds a policy with the given table name and row cap, plus any
// extra forbidden patterns appended after the defaults. Extra patterns let an
// operator tighten the sandbox; nothing can be removed from the default set.
func NewPolicy(tableName string, maxRows int, extraForbidden []string) (*Policy, error) {
	if tableName == "" {
		return nil, fmt.Errorf("policy: table name must not be empty")
	}
	if maxRows <= 0 {
		return nil, fmt.Errorf("policy: max rows must be positive, got %d", maxRows)
	}

	patterns := make([]string, 0, len(defaultForbiddenPatterns)+len(extraForbidden))
	patterns = append(patterns, defaultForbiddenPatterns...)
	patterns = append(patterns, extraForbidden...)

	forbidden := make([]*regexp.Regexp, 0, len(patterns))
	for _, pat := range patterns {
		re, err := regexp.Compile(pat)
		if err != nil {
			return nil, fmt.Errorf("policy: invalid forbidden pattern %q: %w", pat, err)
		}
		forbidden = append(forbidden, re)
	}

	return &Policy{
		TableName: tableName,
		MaxRows:   maxRows,
		Forbidden: forbidden,
	}, nil
}
