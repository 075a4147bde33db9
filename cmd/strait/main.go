package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/guillermoBallester/strait/internal/adapter/duckdb"
	"github.com/guillermoBallester/strait/internal/adapter/httpapi"
	straitmcp "github.com/guillermoBallester/strait/internal/adapter/mcp"
	"github.com/guillermoBallester/strait/internal/adapter/policyfile"
	"github.com/guillermoBallester/strait/internal/audit"
	"github.com/guillermoBallester/strait/internal/config"
	"github.com/guillermoBallester/strait/internal/core/domain"
	"github.com/guillermoBallester/strait/internal/core/port"
	"github.com/guillermoBallester/strait/internal/core/service"
	"github.com/guillermoBallester/strait/internal/telemetry"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

var version = "dev"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// parseFlags parses CLI flags into config overrides.
func parseFlags(args []string) (config.Overrides, error) {
	var o config.Overrides

	fs := flag.NewFlagSet("strait", flag.ContinueOnError)
	dbPath := fs.String("db-path", "", "path to the DuckDB database file (\":memory:\" for ephemeral)")
	queryTimeout := fs.Duration("query-timeout", 0, "per-statement execution timeout")
	maxRows := fs.Int("max-rows", 0, "row cap applied to unbounded SELECTs")
	policyFile := fs.String("policy-file", "", "path to policy-tightening YAML")
	maxUpload := fs.Int64("max-upload-bytes", 0, "maximum accepted CSV upload size in bytes")
	transport := fs.String("transport", "", "transport: http or mcp")
	httpAddr := fs.String("http-addr", "", "HTTP listen address")
	logLevel := fs.String("log-level", "", "log level: debug, info, warn, error")
	fs.BoolVar(&o.OTelEnabled, "otel", false, "enable OpenTelemetry tracing and metrics")
	fs.StringVar(&o.AuditLog, "audit-log", "", "path to NDJSON audit log file")

	if err := fs.Parse(args); err != nil {
		return config.Overrides{}, err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "db-path":
			o.DBPath = dbPath
		case "query-timeout":
			o.QueryTimeout = queryTimeout
		case "max-rows":
			o.MaxRows = maxRows
		case "policy-file":
			o.PolicyFile = policyFile
		case "max-upload-bytes":
			o.MaxUploadBytes = maxUpload
		case "transport":
			o.Transport = transport
		case "http-addr":
			o.HTTPAddr = httpAddr
		case "log-level":
			o.LogLevel = logLevel
		}
	})

	return o, nil
}

func run(args []string) error {
	overrides, err := parseFlags(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load(overrides)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Logs go to stderr when serving MCP — stdout is the stdio transport.
	logOut := os.Stdout
	if cfg.Transport == "mcp" {
		logOut = os.Stderr
	}
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	logger.Info("starting strait",
		slog.String("version", version),
		slog.String("transport", cfg.Transport),
		slog.String("db_path", cfg.DBPath),
		slog.Int("max_rows", cfg.MaxRows),
		slog.String("query_timeout", cfg.QueryTimeout.String()),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Observability (optional).
	var tracer trace.Tracer
	var inst port.Instrumentation
	if cfg.OTelEnabled {
		provider, err := telemetry.Init(ctx, "strait", version)
		if err != nil {
			return fmt.Errorf("initializing telemetry: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := provider.Shutdown(shutdownCtx); err != nil {
				logger.Error("telemetry shutdown", slog.String("error.message", err.Error()))
			}
		}()
		tracer = otel.Tracer("strait")
		inst = telemetry.NewInstruments()
	} else {
		tracer = telemetry.NoopTracer()
		inst = telemetry.NoopInstruments()
	}

	// Sandbox policy: fixed defaults, optionally tightened by a policy file.
	var pol *domain.Policy
	if cfg.PolicyFile != "" {
		pol, err = policyfile.Load(cfg.PolicyFile, cfg.MaxRows)
		if err != nil {
			return fmt.Errorf("loading policy: %w", err)
		}
		logger.Info("policy tightened", slog.String("file", cfg.PolicyFile))
	} else {
		pol, err = domain.NewPolicy(domain.DefaultTableName, cfg.MaxRows, nil)
		if err != nil {
			return fmt.Errorf("building policy: %w", err)
		}
	}

	// Engine.
	db, err := duckdb.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() { _ = db.Close() }()

	logger.Info("database opened", slog.String("db.system", "duckdb"))

	// Audit.
	var auditor port.RequestAuditor = port.NoopAuditor{}
	if cfg.AuditLog != "" {
		fa, err := audit.NewFileAuditor(cfg.AuditLog)
		if err != nil {
			return fmt.Errorf("opening audit log: %w", err)
		}
		defer func() { _ = fa.Close() }()
		auditor = fa
		logger.Info("audit log enabled", slog.String("file", cfg.AuditLog))
	}

	// Domain.
	validator := domain.NewValidator(pol)
	limiter := domain.NewLimiter(pol)

	// Adapters.
	executor := duckdb.NewExecutor(db, cfg.QueryTimeout)
	loader := duckdb.NewLoader(db, pol.TableName)

	// Services.
	querySvc := service.NewQueryService(validator, limiter, executor, auditor, logger, tracer, inst)
	uploadSvc := service.NewUploadService(loader, auditor, logger, tracer, inst)

	switch cfg.Transport {
	case "mcp":
		return serveMCP(ctx, cfg, querySvc, uploadSvc, logger, tracer, inst)
	default:
		return serveHTTP(ctx, cfg, querySvc, uploadSvc, logger)
	}
}

func serveHTTP(ctx context.Context, cfg *config.Config, querySvc *service.QueryService, uploadSvc *service.UploadService, logger *slog.Logger) error {
	srv := httpapi.NewServer(querySvc, uploadSvc, logger, cfg.MaxUploadBytes, cfg.AllowedOrigins)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("serving HTTP", slog.String("addr", cfg.HTTPAddr))
		if err := srv.Start(cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}

	logger.Info("shutdown complete")
	return nil
}

func serveMCP(ctx context.Context, cfg *config.Config, querySvc *service.QueryService, uploadSvc *service.UploadService, logger *slog.Logger, tracer trace.Tracer, inst port.Instrumentation) error {
	mcpServer := straitmcp.NewServer(version, querySvc, uploadSvc, logger, tracer, inst)
	stdioServer := mcpserver.NewStdioServer(mcpServer)

	logger.Info("serving MCP over stdio")
	if err := stdioServer.Listen(ctx, os.Stdin, os.Stdout); err != nil {
		return fmt.Errorf("stdio server: %w", err)
	}

	logger.Info("shutdown complete")
	return nil
}
