package publishing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	metricapi "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const scopeName = "autopublish/publishing"

type telemetry struct {
	tracer    trace.Tracer
	published metricapi.Int64Counter
	failed    metricapi.Int64Counter
	duration  metricapi.Int64Histogram
}

func newTelemetry(meter metricapi.Meter, tracer trace.Tracer) (*telemetry, error) {
	if meter == nil {
		meter = otel.Meter(scopeName)
	}
	if tracer == nil {
		tracer = otel.Tracer(scopeName)
	}

	published, err := meter.Int64Counter("autopublish.entries.published",
		metricapi.WithDescription("Entries published to a site"))
	if err != nil {
		return nil, err
	}
	failed, err := meter.Int64Counter("autopublish.entries.failed",
		metricapi.WithDescription("Entries that stopped at a pipeline stage"))
	if err != nil {
		return nil, err
	}
	duration, err := meter.Int64Histogram("autopublish.entry.duration",
		metricapi.WithDescription("Per-entry processing time"),
		metricapi.WithUnit("ms"))
	if err != nil {
		return nil, err
	}

	return &telemetry{tracer: tracer, published: published, failed: failed, duration: duration}, nil
}

func (t *telemetry) startEntry(ctx context.Context, entry *Entry) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "publishing.entry", trace.WithAttributes(
		attribute.String("autopublish.campaign_id", entry.CampaignID),
		attribute.String("autopublish.site_id", entry.SiteID),
		attribute.String("autopublish.entry_id", entry.ID.String()),
	))
}

func (t *telemetry) recordSuccess(ctx context.Context, span trace.Span, result *Result) {
	attrs := []attribute.KeyValue{
		attribute.String("autopublish.site_id", result.SiteID),
		attribute.Int("autopublish.template_id", result.TemplateID),
	}
	t.published.Add(ctx, 1, metricapi.WithAttributes(attrs...))
	t.duration.Record(ctx, result.ProcessingTimeMs, metricapi.WithAttributes(attrs...))
	span.SetAttributes(
		attribute.Int("autopublish.template_id", result.TemplateID),
		attribute.String("autopublish.url", result.PublishedURL),
	)
	span.SetStatus(codes.Ok, "")
}

func (t *telemetry) recordFailure(ctx context.Context, span trace.Span, failure *Failure, elapsedMs int64) {
	attrs := []attribute.KeyValue{
		attribute.String("autopublish.site_id", failure.SiteID),
		attribute.String("autopublish.stage", string(failure.Stage)),
		attribute.Bool("autopublish.retryable", failure.Retryable),
	}
	t.failed.Add(ctx, 1, metricapi.WithAttributes(attrs...))
	t.duration.Record(ctx, elapsedMs, metricapi.WithAttributes(attrs...))
	if span != nil {
		span.SetAttributes(attrs...)
		span.SetStatus(codes.Error, failure.ErrorMessage)
	}
}
