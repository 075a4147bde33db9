package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/guillermoBallester/strait/internal/core/domain"
	"github.com/guillermoBallester/strait/internal/core/port"
	"github.com/guillermoBallester/strait/internal/core/service"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mock StatementExecutor ---

type mockExecutor struct {
	result  *port.Result
	err     error
	lastSQL string // captures the SQL passed to Execute
}

func (m *mockExecutor) Execute(_ context.Context, sql string) (*port.Result, error) {
	m.lastSQL = sql
	return m.result, m.err
}

// --- mock TableLoader ---

type mockLoader struct {
	rows    int64
	err     error
	content string
}

func (m *mockLoader) LoadCSV(_ context.Context, csv io.Reader) (int64, error) {
	b, _ := io.ReadAll(csv)
	m.content = string(b)
	return m.rows, m.err
}

// --- helpers ---

func callTool(t *testing.T, s *server.MCPServer, toolName string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	session := server.NewInProcessSession("test", nil)
	require.NoError(t, s.RegisterSession(ctx, session))
	sessionCtx := s.WithContext(ctx, session)

	// Initialize session.
	initBytes, _ := json.Marshal(map[string]any{
		"jsonrpc": "2.0", "id": "init", "method": "initialize",
		"params": map[string]any{
			"protocolVersion": "2025-03-26",
			"capabilities":    map[string]any{},
			"clientInfo":      map[string]any{"name": "test", "version": "1.0"},
		},
	})
	s.HandleMessage(sessionCtx, initBytes)

	// Call tool.
	reqBytes, _ := json.Marshal(map[string]any{
		"jsonrpc": "2.0", "id": "call-1", "method": "tools/call",
		"params": map[string]any{
			"name":      toolName,
			"arguments": args,
		},
	})
	resp := s.HandleMessage(sessionCtx, reqBytes)
	respBytes, _ := json.Marshal(resp)

	var rpc struct {
		Result *mcp.CallToolResult       `json:"result"`
		Error  *struct{ Message string } `json:"error,omitempty"`
	}
	require.NoError(t, json.Unmarshal(respBytes, &rpc))
	require.Nil(t, rpc.Error, "unexpected RPC error: %v", rpc.Error)
	require.NotNil(t, rpc.Result)
	return rpc.Result
}

func toolText(result *mcp.CallToolResult) string {
	if len(result.Content) == 0 {
		return ""
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		return ""
	}
	return tc.Text
}

func setupServer(executor *mockExecutor, loader *mockLoader) *server.MCPServer {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	p := domain.DefaultPolicy()
	querySvc := service.NewQueryService(domain.NewValidator(p), domain.NewLimiter(p), executor, nil, logger, nil, nil)
	uploadSvc := service.NewUploadService(loader, nil, logger, nil, nil)

	s := server.NewMCPServer("test", "0.1.0", server.WithToolCapabilities(true))
	RegisterTools(s, querySvc, uploadSvc)
	return s
}

// --- tests ---

func TestQuery_HappyPath(t *testing.T) {
	executor := &mockExecutor{
		result: &port.Result{
			Columns: []string{"id", "name"},
			Rows:    [][]any{{float64(1), "alice"}},
		},
	}
	s := setupServer(executor, &mockLoader{})

	result := callTool(t, s, "query", map[string]any{"sql": "SELECT id, name FROM tablename"})
	require.False(t, result.IsError)

	var res port.Result
	require.NoError(t, json.Unmarshal([]byte(toolText(result)), &res))
	assert.Equal(t, []string{"id", "name"}, res.Columns)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "alice", res.Rows[0][1])
}

func TestQuery_AppliesRowCap(t *testing.T) {
	executor := &mockExecutor{result: &port.Result{}}
	s := setupServer(executor, &mockLoader{})

	result := callTool(t, s, "query", map[string]any{"sql": "SELECT * FROM tablename"})
	assert.False(t, result.IsError)
	assert.Equal(t, "SELECT * FROM (SELECT * FROM tablename) AS subquery LIMIT 1000", executor.lastSQL)
}

func TestQuery_MissingSQL(t *testing.T) {
	s := setupServer(&mockExecutor{}, &mockLoader{})

	result := callTool(t, s, "query", map[string]any{})
	assert.True(t, result.IsError)
	assert.Contains(t, toolText(result), "sql is required")
}

func TestQuery_RejectedStatement(t *testing.T) {
	executor := &mockExecutor{}
	s := setupServer(executor, &mockLoader{})

	result := callTool(t, s, "query", map[string]any{"sql": "DROP TABLE tablename"})
	assert.True(t, result.IsError)
	assert.Contains(t, toolText(result), "verb not allowed")
	assert.Empty(t, executor.lastSQL)
}

func TestQuery_ExecutorError(t *testing.T) {
	executor := &mockExecutor{err: fmt.Errorf("Binder Error: no such column")}
	s := setupServer(executor, &mockLoader{})

	result := callTool(t, s, "query", map[string]any{"sql": "SELECT nope FROM tablename"})
	assert.True(t, result.IsError)
	assert.Contains(t, toolText(result), "query failed:")
}

func TestLoadCSV_HappyPath(t *testing.T) {
	loader := &mockLoader{rows: 2}
	s := setupServer(&mockExecutor{}, loader)

	result := callTool(t, s, "load_csv", map[string]any{"csv": "a,b\n1,2\n3,4\n"})
	require.False(t, result.IsError)

	var resp map[string]any
	require.NoError(t, json.Unmarshal([]byte(toolText(result)), &resp))
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, float64(2), resp["rows_loaded"])
	assert.Equal(t, "a,b\n1,2\n3,4\n", loader.content)
}

func TestLoadCSV_MissingContent(t *testing.T) {
	s := setupServer(&mockExecutor{}, &mockLoader{})

	result := callTool(t, s, "load_csv", map[string]any{})
	assert.True(t, result.IsError)
	assert.Contains(t, toolText(result), "csv is required")
}

func TestLoadCSV_LoaderError(t *testing.T) {
	loader := &mockLoader{err: fmt.Errorf("Invalid Input Error: ragged rows")}
	s := setupServer(&mockExecutor{}, loader)

	result := callTool(t, s, "load_csv", map[string]any{"csv": "a,b\n1\n"})
	assert.True(t, result.IsError)
	assert.Contains(t, toolText(result), "load failed:")
}
