package mcp

import (
	"log/slog"

	"github.com/guillermoBallester/strait/internal/core/port"
	"github.com/guillermoBallester/strait/internal/core/service"
	"github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/trace"
)

// NewServer creates an MCPServer exposing the sandbox's two operations as
// tools, with logging hooks.
func NewServer(version string, query *service.QueryService, upload *service.UploadService, logger *slog.Logger, tracer trace.Tracer, inst port.Instrumentation) *server.MCPServer {
	s := server.NewMCPServer(
		serverName,
		version,
		server.WithHooks(ToolCallHooks(logger, tracer, inst)),
	)

	RegisterTools(s, query, upload)

	return s
}
