package crontab

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "plm-chat-api/crontab"

// jobInstrumenter wraps each scheduled job in a span and records its
// duration and outcome through the global OpenTelemetry providers.
type jobInstrumenter struct {
	tracer      trace.Tracer
	jobDuration metric.Float64Histogram
	jobsTotal   metric.Int64Counter
}

func newJobInstrumenter() *jobInstrumenter {
	meter := otel.Meter(instrumentationName)
	jobDuration, _ := meter.Float64Histogram(
		"jan_plm_chat_job_duration_seconds",
		metric.WithDescription("Background job duration"),
		metric.WithUnit("s"),
	)
	jobsTotal, _ := meter.Int64Counter(
		"jan_plm_chat_jobs_total",
		metric.WithDescription("Total background jobs processed"),
	)
	return &jobInstrumenter{
		tracer:      otel.Tracer(instrumentationName),
		jobDuration: jobDuration,
		jobsTotal:   jobsTotal,
	}
}

func (j *jobInstrumenter) run(ctx context.Context, jobType string, fn func(context.Context) error) error {
	ctx, span := j.tracer.Start(ctx, "cron."+jobType,
		trace.WithAttributes(attribute.String("job.type", jobType)),
	)
	defer span.End()

	start := time.Now()
	err := fn(ctx)

	status := "success"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	attrs := metric.WithAttributes(
		attribute.String("job.type", jobType),
		attribute.String("status", status),
	)
	if j.jobDuration != nil {
		j.jobDuration.Record(ctx, time.Since(start).Seconds(), attrs)
	}
	if j.jobsTotal != nil {
		j.jobsTotal.Add(ctx, 1, attrs)
	}
	return err
}
