package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/guillermoBallester/strait/internal/core/service"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Server metadata
const serverName = "strait"

// Tool descriptions
const (
	descQuery = "Execute a SQL statement against the single managed table (named 'tablename') " +
		"and return columns and rows as JSON. Only SELECT, INSERT, UPDATE and DELETE are allowed, " +
		"only the managed table may be referenced, and unbounded SELECTs are capped at a server-side row limit."

	descQueryParam = "SQL statement to execute against the 'tablename' table"

	descLoadCSV = "Load CSV content into the managed table, replacing its previous contents. " +
		"The first line is treated as the header and column types are inferred. " +
		"Returns the number of rows loaded."

	descLoadCSVParam = "Raw CSV content, header line first"
)

func RegisterTools(s *server.MCPServer, query *service.QueryService, upload *service.UploadService) {
	s.AddTool(
		mcp.NewTool("query",
			mcp.WithDescription(descQuery),
			mcp.WithString("sql",
				mcp.Required(),
				mcp.Description(descQueryParam),
			),
		),
		queryHandler(query),
	)

	s.AddTool(
		mcp.NewTool("load_csv",
			mcp.WithDescription(descLoadCSV),
			mcp.WithString("csv",
				mcp.Required(),
				mcp.Description(descLoadCSVParam),
			),
		),
		loadCSVHandler(upload),
	)
}

func queryHandler(query *service.QueryService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sql, ok := request.GetArguments()["sql"].(string)
		if !ok || sql == "" {
			return mcp.NewToolResultError("sql is required"), nil
		}

		ctx = service.WithSource(ctx, "mcp.query")
		result, err := query.Execute(ctx, sql)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", err)), nil
		}

		data, err := json.Marshal(result)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}

		return mcp.NewToolResultText(string(data)), nil
	}
}

func loadCSVHandler(upload *service.UploadService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		csv, ok := request.GetArguments()["csv"].(string)
		if !ok || csv == "" {
			return mcp.NewToolResultError("csv is required"), nil
		}

		ctx = service.WithSource(ctx, "mcp.load_csv")
		rows, err := upload.Load(ctx, "inline.csv", strings.NewReader(csv))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("load failed: %v", err)), nil
		}

		data, err := json.Marshal(map[string]any{"status": "ok", "rows_loaded": rows})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}

		return mcp.NewToolResultText(string(data)), nil
	}
}
