package trace

import (
	"context"
	"io"

	"github.com/rustyeddy/tradebook/config"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const ServiceName = "tradebook"

// Tracer starts spans for runs and requests. A disabled Tracer hands out
// non-recording spans.
type Tracer struct {
	tracer   trace.Tracer
	provider *sdktrace.TracerProvider
}

// New builds a Tracer exporting to w when cfg enables tracing.
func New(cfg config.TracingConfig, w io.Writer, version string) (*Tracer, error) {
	if !cfg.Enabled {
		return Noop(), nil
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(ServiceName),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return nil, err
	}

	return newTracer(sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)), nil
}

// NewWithProcessor builds a Tracer around a caller supplied span processor.
func NewWithProcessor(sp sdktrace.SpanProcessor) *Tracer {
	return newTracer(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sp)))
}

func newTracer(tp *sdktrace.TracerProvider) *Tracer {
	return &Tracer{
		tracer:   tp.Tracer(ServiceName),
		provider: tp,
	}
}

func Noop() *Tracer {
	return &Tracer{tracer: noop.NewTracerProvider().Tracer(ServiceName)}
}

func (t *Tracer) Enabled() bool {
	return t.provider != nil
}

func (t *Tracer) StartSpan(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, spanName, opts...)
}

// Shutdown flushes pending spans.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t.provider != nil {
		return t.provider.Shutdown(ctx)
	}
	return nil
}

// Fields returns the trace and span ids of the span in ctx as log fields,
// or nil when there is no recording span.
func Fields(ctx context.Context) logrus.Fields {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return nil
	}
	return logrus.Fields{
		"trace_id": sc.TraceID().String(),
		"span_id":  sc.SpanID().String(),
	}
}
