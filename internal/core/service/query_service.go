package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/guillermoBallester/strait/internal/core/port"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

type sourceKey struct{}

// WithSource returns a context carrying the transport/operation name
// ("http.query", "mcp.load_csv", ...) for audit logging.
func WithSource(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, sourceKey{}, name)
}

func sourceFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(sourceKey{}).(string); ok {
		return v
	}
	return ""
}

// QueryService orchestrates the sandbox pipeline: validate (domain), bound
// the row count (domain), then delegate to the engine (infrastructure).
type QueryService struct {
	validator port.StatementValidator
	limiter   port.RowLimiter
	executor  port.StatementExecutor
	auditor   port.RequestAuditor
	logger    *slog.Logger
	tracer    trace.Tracer
	inst      port.Instrumentation
}

func NewQueryService(validator port.StatementValidator, limiter port.RowLimiter, executor port.StatementExecutor, auditor port.RequestAuditor, logger *slog.Logger, tracer trace.Tracer, inst port.Instrumentation) *QueryService {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("noop")
	}
	if inst == nil {
		inst = port.NoopInstrumentation{}
	}
	if auditor == nil {
		auditor = port.NoopAuditor{}
	}
	return &QueryService{
		validator: validator,
		limiter:   limiter,
		executor:  executor,
		auditor:   auditor,
		logger:    logger,
		tracer:    tracer,
		inst:      inst,
	}
}

// Execute validates sql against the sandbox policy and, if accepted, runs the
// row-limited form against the engine. A validation failure comes back as a
// *domain.Rejection (caller fault); an engine failure is wrapped as an
// execution fault and never reclassified.
func (s *QueryService) Execute(ctx context.Context, sql string) (*port.Result, error) {
	ctx, span := s.tracer.Start(ctx, "QueryService.Execute",
		trace.WithAttributes(
			attribute.String("db.system", "duckdb"),
			attribute.String("db.operation.name", "query"),
			attribute.String("db.statement", sql),
		),
	)
	defer span.End()

	cleaned, err := s.validator.Validate(sql)
	if err != nil {
		s.logger.WarnContext(ctx, "statement rejected",
			slog.String("db.statement", sql),
			slog.String("error.type", "validation_error"),
			slog.String("reason", err.Error()),
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.inst.IncrementQueryRejections(ctx)
		s.auditor.Record(ctx, port.AuditEntry{
			Source: sourceFromCtx(ctx),
			SQL:    sql,
			Err:    err,
		})
		return nil, err
	}

	bounded := s.limiter.Apply(cleaned)

	start := time.Now()
	result, err := s.executor.Execute(ctx, bounded)
	durationMS := time.Since(start).Milliseconds()

	s.inst.RecordQueryDuration(ctx, float64(durationMS))

	rows := 0
	if result != nil {
		rows = len(result.Rows)
	}
	s.auditor.Record(ctx, port.AuditEntry{
		Source:       sourceFromCtx(ctx),
		SQL:          bounded,
		RowsReturned: rows,
		DurationMS:   durationMS,
		Err:          err,
	})

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.inst.IncrementQueryErrors(ctx)
		return nil, fmt.Errorf("executing query: %w", err)
	}

	s.inst.IncrementQueryCount(ctx)
	span.SetAttributes(attribute.Int("db.response.rows", rows))

	return result, nil
}
