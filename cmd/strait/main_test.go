package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags_Empty(t *testing.T) {
	t.Parallel()

	o, err := parseFlags(nil)
	require.NoError(t, err)

	assert.Nil(t, o.DBPath)
	assert.Nil(t, o.QueryTimeout)
	assert.Nil(t, o.MaxRows)
	assert.Nil(t, o.Transport)
	assert.False(t, o.OTelEnabled)
	assert.Empty(t, o.AuditLog)
}

func TestParseFlags_AllSet(t *testing.T) {
	t.Parallel()

	o, err := parseFlags([]string{
		"-db-path", ":memory:",
		"-query-timeout", "30s",
		"-max-rows", "50",
		"-policy-file", "policy.yaml",
		"-max-upload-bytes", "1048576",
		"-transport", "mcp",
		"-http-addr", ":9090",
		"-log-level", "debug",
		"-otel",
		"-audit-log", "audit.ndjson",
	})
	require.NoError(t, err)

	require.NotNil(t, o.DBPath)
	assert.Equal(t, ":memory:", *o.DBPath)
	require.NotNil(t, o.QueryTimeout)
	assert.Equal(t, 30*time.Second, *o.QueryTimeout)
	require.NotNil(t, o.MaxRows)
	assert.Equal(t, 50, *o.MaxRows)
	require.NotNil(t, o.PolicyFile)
	assert.Equal(t, "policy.yaml", *o.PolicyFile)
	require.NotNil(t, o.MaxUploadBytes)
	assert.Equal(t, int64(1048576), *o.MaxUploadBytes)
	require.NotNil(t, o.Transport)
	assert.Equal(t, "mcp", *o.Transport)
	require.NotNil(t, o.HTTPAddr)
	assert.Equal(t, ":9090", *o.HTTPAddr)
	require.NotNil(t, o.LogLevel)
	assert.Equal(t, "debug", *o.LogLevel)
	assert.True(t, o.OTelEnabled)
	assert.Equal(t, "audit.ndjson", o.AuditLog)
}

func TestParseFlags_UnsetFlagsStayNil(t *testing.T) {
	t.Parallel()

	o, err := parseFlags([]string{"-max-rows", "10"})
	require.NoError(t, err)

	require.NotNil(t, o.MaxRows)
	assert.Equal(t, 10, *o.MaxRows)
	assert.Nil(t, o.DBPath, "flags not passed must stay nil so env vars win")
	assert.Nil(t, o.Transport)
}

func TestParseFlags_Invalid(t *testing.T) {
	t.Parallel()

	_, err := parseFlags([]string{"-no-such-flag"})
	assert.Error(t, err)
}
