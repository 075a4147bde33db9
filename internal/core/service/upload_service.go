package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/guillermoBallester/strait/internal/core/port"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// ErrNotCSV rejects uploads whose filename does not end in .csv. Caller
// fault, like a statement rejection.
var ErrNotCSV = errors.New("only .csv files are supported")

// UploadService loads a caller-supplied CSV stream into the managed table.
type UploadService struct {
	loader  port.TableLoader
	auditor port.RequestAuditor
	logger  *slog.Logger
	tracer  trace.Tracer
	inst    port.Instrumentation
}

func NewUploadService(loader port.TableLoader, auditor port.RequestAuditor, logger *slog.Logger, tracer trace.Tracer, inst port.Instrumentation) *UploadService {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("noop")
	}
	if inst == nil {
		inst = port.NoopInstrumentation{}
	}
	if auditor == nil {
		auditor = port.NoopAuditor{}
	}
	return &UploadService{
		loader:  loader,
		auditor: auditor,
		logger:  logger,
		tracer:  tracer,
		inst:    inst,
	}
}

// Load replaces the managed table with the contents of the CSV stream and
// returns the number of rows loaded. The previous table contents are gone
// once the loader succeeds; on failure the loader's error is a server fault.
func (s *UploadService) Load(ctx context.Context, filename string, csv io.Reader) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "UploadService.Load",
		trace.WithAttributes(
			attribute.String("upload.filename", filename),
		),
	)
	defer span.End()

	if !strings.HasSuffix(strings.ToLower(filename), ".csv") {
		span.RecordError(ErrNotCSV)
		span.SetStatus(codes.Error, ErrNotCSV.Error())
		return 0, ErrNotCSV
	}

	start := time.Now()
	rows, err := s.loader.LoadCSV(ctx, csv)
	durationMS := time.Since(start).Milliseconds()

	s.inst.RecordUploadDuration(ctx, float64(durationMS))

	s.auditor.Record(ctx, port.AuditEntry{
		Source:     sourceFromCtx(ctx),
		RowsLoaded: rows,
		DurationMS: durationMS,
		Err:        err,
	})

	if err != nil {
		s.logger.ErrorContext(ctx, "csv load failed",
			slog.String("upload.filename", filename),
			slog.String("error.message", err.Error()),
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("loading CSV: %w", err)
	}

	s.inst.IncrementUploadCount(ctx)
	s.logger.InfoContext(ctx, "csv loaded",
		slog.String("upload.filename", filename),
		slog.Int64("rows_loaded", rows),
		slog.Int64("duration_ms", durationMS),
	)
	span.SetAttributes(attribute.Int64("upload.rows_loaded", rows))

	return rows, nil
}
