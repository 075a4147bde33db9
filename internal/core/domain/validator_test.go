package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newValidator(t *testing.T) *Validator {
	t.Helper()
	return NewValidator(DefaultPolicy())
}

func TestValidate_AcceptsCleanSelect(t *testing.T) {
	t.Parallel()
	v := newValidator(t)

	cleaned, err := v.Validate("SELECT * FROM tablename")
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM tablename", cleaned)
}

func TestValidate_StripsTrailingTerminatorAndWhitespace(t *testing.T) {
	t.Parallel()
	v := newValidator(t)

	cleaned, err := v.Validate("  SELECT * FROM tablename;  ")
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM tablename", cleaned)
}

func TestValidate_PreservesOriginalCasing(t *testing.T) {
	t.Parallel()
	v := newValidator(t)

	cleaned, err := v.Validate("SeLeCt Name FROM tablename WHERE Name = 'X'")
	require.NoError(t, err)
	assert.Equal(t, "SeLeCt Name FROM tablename WHERE Name = 'X'", cleaned)
}

func TestValidate_Rejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		sql      string
		wantErr  error
		wantRule string
	}{
		{
			name:     "empty input",
			sql:      "",
			wantErr:  ErrEmptyStatement,
			wantRule: "empty_statement",
		},
		{
			name:     "whitespace only",
			sql:      "   \n\t  ",
			wantErr:  ErrEmptyStatement,
			wantRule: "empty_statement",
		},
		{
			name:     "two statements",
			sql:      "UPDATE tablename SET x=1; DELETE FROM tablename",
			wantErr:  ErrMultipleStatements,
			wantRule: "multiple_statements",
		},
		{
			name:     "separator inside a string literal still rejected",
			sql:      "SELECT * FROM tablename WHERE note = 'a;b'",
			wantErr:  ErrMultipleStatements,
			wantRule: "multiple_statements",
		},
		{
			name:     "unknown verb",
			sql:      "EXPLAIN SELECT * FROM tablename",
			wantErr:  ErrVerbNotAllowed,
			wantRule: "verb_not_allowed",
		},
		{
			name:     "ddl verb rejected before construct check",
			sql:      "DROP TABLE tablename",
			wantErr:  ErrVerbNotAllowed,
			wantRule: "verb_not_allowed",
		},
		{
			name:     "bare terminator",
			sql:      ";",
			wantErr:  ErrVerbNotAllowed,
			wantRule: "verb_not_allowed",
		},
		{
			name:     "etc path",
			sql:      "SELECT * FROM tablename WHERE f = '/etc/passwd'",
			wantErr:  ErrFilesystemAccess,
			wantRule: "filesystem_access",
		},
		{
			name:     "parent traversal",
			sql:      "SELECT * FROM tablename WHERE f = '../../secret'",
			wantErr:  ErrFilesystemAccess,
			wantRule: "filesystem_access",
		},
		{
			name:     "file reading function",
			sql:      "SELECT * FROM read_csv_auto('x.csv')",
			wantErr:  ErrForbiddenConstruct,
			wantRule: "forbidden_construct",
		},
		{
			name:     "parquet scan",
			sql:      "SELECT * FROM parquet_scan('x')",
			wantErr:  ErrForbiddenConstruct,
			wantRule: "forbidden_construct",
		},
		{
			name:     "pragma",
			sql:      "SELECT pragma FROM tablename",
			wantErr:  ErrForbiddenConstruct,
			wantRule: "forbidden_construct",
		},
		{
			name:     "ddl keyword anywhere in a select",
			sql:      "SELECT * FROM tablename WHERE alter",
			wantErr:  ErrForbiddenConstruct,
			wantRule: "forbidden_construct",
		},
		{
			name:     "forbidden match is case insensitive",
			sql:      "SELECT * FROM tablename WHERE InStAlL = 1",
			wantErr:  ErrForbiddenConstruct,
			wantRule: "forbidden_construct",
		},
		{
			name:     "join",
			sql:      "SELECT * FROM tablename JOIN other ON 1=1",
			wantErr:  ErrJoinNotAllowed,
			wantRule: "join_not_allowed",
		},
		{
			name:     "wrong table in from",
			sql:      "SELECT * FROM other_table",
			wantErr:  ErrWrongTable,
			wantRule: "wrong_table",
		},
		{
			name:     "update wrong table",
			sql:      "UPDATE sometable SET x = 1",
			wantErr:  ErrWrongTableForVerb,
			wantRule: "wrong_table_for_verb",
		},
		{
			name:     "delete wrong table",
			sql:      "DELETE FROM tablename2 WHERE id = 1",
			wantErr:  ErrWrongTable,
			wantRule: "wrong_table",
		},
		{
			name:     "insert wrong table",
			sql:      "INSERT INTO othertable VALUES (1)",
			wantErr:  ErrWrongTableForVerb,
			wantRule: "wrong_table_for_verb",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			v := NewValidator(DefaultPolicy())

			_, err := v.Validate(tt.sql)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)

			var rej *Rejection
			require.ErrorAs(t, err, &rej)
			assert.Equal(t, tt.wantRule, rej.Rule)
		})
	}
}

func TestValidate_RejectionSentinels(t *testing.T) {
	t.Parallel()
	v := newValidator(t)

	_, err := v.Validate("TRUNCATE tablename")
	assert.ErrorIs(t, err, ErrVerbNotAllowed)

	_, err = v.Validate("SELECT * FROM other_table")
	assert.ErrorIs(t, err, ErrWrongTable)

	_, err = v.Validate("UPDATE other SET x=1")
	assert.ErrorIs(t, err, ErrWrongTableForVerb)
}

func TestValidate_VerbBindingTagsVerb(t *testing.T) {
	t.Parallel()
	v := newValidator(t)

	_, err := v.Validate("INSERT INTO wrongtable VALUES (1)")
	var rej *Rejection
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, "insert", rej.Verb)
	assert.Contains(t, rej.Error(), "insert")
	assert.Contains(t, rej.Error(), "can only operate on the managed table")
}

func TestValidate_WriteVerbsBoundToManagedTable(t *testing.T) {
	t.Parallel()
	v := newValidator(t)

	accepted := []string{
		"INSERT INTO tablename VALUES (1, 'a')",
		"UPDATE tablename SET x = 1 WHERE y = 2",
		"DELETE FROM tablename WHERE x > 10",
	}
	for _, sql := range accepted {
		_, err := v.Validate(sql)
		assert.NoError(t, err, "expected accept: %s", sql)
	}
}

func TestValidate_FirstFailingRuleWins(t *testing.T) {
	t.Parallel()
	v := newValidator(t)

	// Contains a separator, a forbidden construct and a JOIN; the separator
	// check runs first.
	_, err := v.Validate("SELECT * FROM tablename; DROP TABLE tablename JOIN x")
	assert.ErrorIs(t, err, ErrMultipleStatements)
}

func TestValidate_StatelessAcrossCalls(t *testing.T) {
	t.Parallel()
	v := newValidator(t)

	_, err := v.Validate("DROP TABLE tablename")
	require.Error(t, err)

	// A prior rejection must not taint the next verdict.
	cleaned, err := v.Validate("SELECT * FROM tablename")
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM tablename", cleaned)
}

func TestValidate_LimiterOutputRevalidates(t *testing.T) {
	t.Parallel()
	p := DefaultPolicy()
	v := NewValidator(p)
	l := NewLimiter(p)

	cleaned, err := v.Validate("SELECT a, b FROM tablename ORDER BY a")
	require.NoError(t, err)

	bounded := l.Apply(cleaned)
	revalidated, err := v.Validate(bounded)
	require.NoError(t, err, "limiter wrapping must never trip the validator")
	assert.Equal(t, bounded, revalidated)
}

func TestValidate_ConcurrentCallers(t *testing.T) {
	t.Parallel()
	v := newValidator(t)

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 100; j++ {
				_, err := v.Validate("SELECT * FROM tablename")
				assert.NoError(t, err)
				_, err = v.Validate("SELECT * FROM other")
				assert.Error(t, err)
			}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}
}
