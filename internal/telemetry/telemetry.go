// Package telemetry installs the global OpenTelemetry tracer provider.
package telemetry

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/joelkehle/feasibility-study/internal/logger"
)

type ShutdownFunc func(context.Context) error

// Setup exports spans over OTLP/HTTP when endpoint is set. Without an endpoint
// spans are still created, so trace ids appear in logs, but nothing leaves
// the process.
func Setup(ctx context.Context, log *logger.Logger, service, endpoint string) (ShutdownFunc, error) {
	if strings.TrimSpace(service) == "" {
		service = "feasibility-study"
	}
	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceNameKey.String(service),
		attribute.String("service.component", service),
	))
	if err != nil {
		log.Warn("otel resource init failed (continuing)", "err", err)
	}

	opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	endpoint = strings.TrimSpace(endpoint)
	if endpoint != "" {
		exp, err := otlptracehttp.New(ctx, otlpOptions(endpoint)...)
		if err != nil {
			return nil, err
		}
		opts = append(opts, sdktrace.WithBatcher(exp, sdktrace.WithBatchTimeout(5*time.Second)))
	}
	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	log.Info("otel tracing initialized", "service", service, "endpoint", endpoint)
	return tp.Shutdown, nil
}

// otlpOptions accepts either a bare host:port or a full URL.
func otlpOptions(endpoint string) []otlptracehttp.Option {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return []otlptracehttp.Option{otlptracehttp.WithEndpointURL(endpoint)}
	}
	return []otlptracehttp.Option{otlptracehttp.WithEndpoint(endpoint), otlptracehttp.WithInsecure()}
}

const (
	HeaderTraceID   = "X-Trace-Id"
	HeaderRequestID = "X-Request-Id"
)

// Middleware starts a server span per request and echoes trace and request
// ids in the response headers.
func Middleware(next http.Handler) http.Handler {
	tracer := otel.Tracer("feasibility/http")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.Path, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		reqID := strings.TrimSpace(r.Header.Get(HeaderRequestID))
		if reqID == "" {
			reqID = uuid.NewString()
		}
		traceID := ""
		if sc := span.SpanContext(); sc.HasTraceID() {
			traceID = sc.TraceID().String()
		}
		if traceID == "" {
			traceID = uuid.NewString()
		}
		span.SetAttributes(attribute.String("request.id", reqID))
		w.Header().Set(HeaderTraceID, traceID)
		w.Header().Set(HeaderRequestID, reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
