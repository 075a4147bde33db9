package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_Apply(t *testing.T) {
	t.Parallel()

	l := NewLimiter(DefaultPolicy())

	tests := []struct {
		name string
		sql  string
		want string
	}{
		{
			name: "unbounded select is wrapped",
			sql:  "SELECT * FROM tablename",
			want: "SELECT * FROM (SELECT * FROM tablename) AS subquery LIMIT 1000",
		},
		{
			name: "trailing terminator stripped before wrapping",
			sql:  "SELECT * FROM tablename;",
			want: "SELECT * FROM (SELECT * FROM tablename) AS subquery LIMIT 1000",
		},
		{
			name: "explicit limit is honored",
			sql:  "SELECT * FROM tablename LIMIT 5",
			want: "SELECT * FROM tablename LIMIT 5",
		},
		{
			name: "limit detection is case insensitive",
			sql:  "select * from tablename limit 10",
			want: "select * from tablename limit 10",
		},
		{
			name: "insert passes through",
			sql:  "INSERT INTO tablename VALUES (1)",
			want: "INSERT INTO tablename VALUES (1)",
		},
		{
			name: "update passes through",
			sql:  "UPDATE tablename SET x = 1",
			want: "UPDATE tablename SET x = 1",
		},
		{
			name: "delete passes through",
			sql:  "DELETE FROM tablename WHERE x = 1",
			want: "DELETE FROM tablename WHERE x = 1",
		},
		{
			name: "ordering survives inside the wrapper",
			sql:  "SELECT a FROM tablename ORDER BY a DESC",
			want: "SELECT * FROM (SELECT a FROM tablename ORDER BY a DESC) AS subquery LIMIT 1000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, l.Apply(tt.sql))
		})
	}
}

func TestLimiter_ApplyIsIdempotent(t *testing.T) {
	t.Parallel()

	l := NewLimiter(DefaultPolicy())

	once := l.Apply("SELECT * FROM tablename")
	twice := l.Apply(once)
	assert.Equal(t, once, twice)
}

func TestLimiter_UsesPolicyCap(t *testing.T) {
	t.Parallel()

	p, err := NewPolicy(DefaultTableName, 25, nil)
	require.NoError(t, err)
	l := NewLimiter(p)

	got := l.Apply("SELECT * FROM tablename")
	assert.Equal(t, "SELECT * FROM (SELECT * FROM tablename) AS subquery LIMIT 25", got)
}
