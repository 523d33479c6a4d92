package adapter

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/Datus-ai/datus-semantic-adapter/pkg/adapter"

// telemetryRunner records a span, an invocation counter and a latency
// histogram for every run of the wrapped runner.
type telemetryRunner struct {
	next        Runner
	tracer      trace.Tracer
	invocations metric.Int64Counter
	latency     metric.Float64Histogram
}

// WithTelemetry wraps a runner with OpenTelemetry instrumentation taken from
// the global tracer and meter providers. Without an installed SDK the
// instrumentation is a no-op.
func WithTelemetry(next Runner) Runner {
	meter := otel.Meter(instrumentationName)
	invocations, err := meter.Int64Counter(
		"semantic.cli.invocations",
		metric.WithDescription("Number of semantic tool invocations"),
	)
	if err != nil {
		return next
	}
	latency, err := meter.Float64Histogram(
		"semantic.cli.latency",
		metric.WithDescription("Semantic tool invocation latency in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return next
	}
	return &telemetryRunner{
		next:        next,
		tracer:      otel.Tracer(instrumentationName),
		invocations: invocations,
		latency:     latency,
	}
}

func (r *telemetryRunner) Run(ctx context.Context, inv Invocation) (*Output, error) {
	ctx, span := r.tracer.Start(ctx, "semantic.cli.invoke", trace.WithAttributes(
		attribute.String("semantic.operation", inv.Operation),
		attribute.String("semantic.cli.path", inv.Path),
	))
	defer span.End()

	out, err := r.next.Run(ctx, inv)

	attrs := []attribute.KeyValue{
		attribute.String("operation", inv.Operation),
		attribute.String("outcome", outcome(out, err)),
	}
	r.invocations.Add(ctx, 1, metric.WithAttributes(attrs...))

	switch {
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	case out.ExitCode != 0:
		span.SetAttributes(attribute.Int("semantic.cli.exit_code", out.ExitCode))
		span.SetStatus(codes.Error, "non-zero exit")
	default:
		span.SetStatus(codes.Ok, "")
	}
	if out != nil {
		r.latency.Record(ctx, out.Duration.Seconds(), metric.WithAttributes(attrs...))
	}
	return out, err
}

func outcome(out *Output, err error) string {
	switch {
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrConfig):
		return "config_error"
	case err != nil:
		return "error"
	case out.ExitCode != 0:
		return "exit_error"
	default:
		return "ok"
	}
}
