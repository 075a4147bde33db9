package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "github.com/guillermoBallester/strait"

// Instruments holds pre-created OTel metric instruments.
type Instruments struct {
	QueryCount      metric.Int64Counter
	QueryDuration   metric.Float64Histogram
	QueryErrors     metric.Int64Counter
	QueryRejections metric.Int64Counter
	UploadCount     metric.Int64Counter
	UploadDuration  metric.Float64Histogram
	ToolDuration    metric.Float64Histogram
}

// NewInstruments creates metric instruments from the global MeterProvider.
// Returns nil-safe instruments: if creation fails, noop instruments are used.
func NewInstruments() *Instruments {
	meter := otel.Meter(meterName)
	return newInstrumentsFromMeter(meter)
}

// NoopInstruments returns instruments that record nothing.
func NoopInstruments() *Instruments {
	meter := noop.NewMeterProvider().Meter(meterName)
	return newInstrumentsFromMeter(meter)
}

func newInstrumentsFromMeter(meter metric.Meter) *Instruments {
	// OTel SDK returns noop instruments on error; safe to discard.
	queryCount, _ := meter.Int64Counter("strait.query.count",
		metric.WithDescription("Total number of SQL statements executed"),
	)
	queryDuration, _ := meter.Float64Histogram("strait.query.duration",
		metric.WithDescription("SQL statement execution duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	queryErrors, _ := meter.Int64Counter("strait.query.errors",
		metric.WithDescription("Total number of statements that failed in the engine"),
	)
	queryRejections, _ := meter.Int64Counter("strait.query.rejections",
		metric.WithDescription("Total number of statements rejected by the sandbox"),
	)
	uploadCount, _ := meter.Int64Counter("strait.upload.count",
		metric.WithDescription("Total number of CSV loads into the managed table"),
	)
	uploadDuration, _ := meter.Float64Histogram("strait.upload.duration",
		metric.WithDescription("CSV load duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	toolDuration, _ := meter.Float64Histogram("strait.tool.duration",
		metric.WithDescription("MCP tool call duration in milliseconds"),
		metric.WithUnit("ms"),
	)

	return &Instruments{
		QueryCount:      queryCount,
		QueryDuration:   queryDuration,
		QueryErrors:     queryErrors,
		QueryRejections: queryRejections,
		UploadCount:     uploadCount,
		UploadDuration:  uploadDuration,
		ToolDuration:    toolDuration,
	}
}

func (i *Instruments) RecordQueryDuration(ctx context.Context, ms float64) {
	i.QueryDuration.Record(ctx, ms)
}

func (i *Instruments) IncrementQueryCount(ctx context.Context) {
	i.QueryCount.Add(ctx, 1)
}

func (i *Instruments) IncrementQueryErrors(ctx context.Context) {
	i.QueryErrors.Add(ctx, 1)
}

func (i *Instruments) IncrementQueryRejections(ctx context.Context) {
	i.QueryRejections.Add(ctx, 1)
}

func (i *Instruments) IncrementUploadCount(ctx context.Context) {
	i.UploadCount.Add(ctx, 1)
}

func (i *Instruments) RecordUploadDuration(ctx context.Context, ms float64) {
	i.UploadDuration.Record(ctx, ms)
}

func (i *Instruments) RecordToolDuration(ctx context.Context, ms float64) {
	i.ToolDuration.Record(ctx, ms)
}
