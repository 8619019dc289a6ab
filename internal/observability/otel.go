package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"smartats/internal/ai"
	"smartats/internal/config"
	"smartats/internal/types"
)

// Metrics holds all custom metrics for the analysis service
type Metrics struct {
	AnalysisDuration metric.Float64Histogram
	AnalysisCount    metric.Int64Counter
	AnalysisErrors   metric.Int64Counter
	FallbackCount    metric.Int64Counter
	TokenUsage       metric.Int64Histogram

	RateLimitHits metric.Int64Counter
}

// Manager manages OpenTelemetry setup
type Manager struct {
	config           config.ObservabilityConfig
	serviceVersion   string
	tracerProvider   *trace.TracerProvider
	meterProvider    *sdkmetric.MeterProvider
	metrics          *Metrics
	shutdownFuncs    []func(context.Context) error
	prometheusServer *http.ServeMux
}

// NewManager creates a new observability manager from configuration
func NewManager(cfg config.ObservabilityConfig, version string) (*Manager, error) {
	if cfg.ServiceVersion != "" {
		version = cfg.ServiceVersion
	}

	m := &Manager{
		config:         cfg,
		serviceVersion: version,
		shutdownFuncs:  make([]func(context.Context) error, 0),
	}

	if !cfg.Enabled {
		return m, nil
	}

	if err := m.initTracing(); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	if err := m.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	return m, nil
}

// createResource creates the OpenTelemetry resource
func (m *Manager) createResource() (*resource.Resource, error) {
	return resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(m.config.ServiceName),
			semconv.ServiceVersion(m.serviceVersion),
			attribute.String("service.instance.id", m.config.ServiceInstance),
		),
	)
}

// initTracing sets up OpenTelemetry tracing
func (m *Manager) initTracing() error {
	var exporter trace.SpanExporter
	var err error

	switch {
	case m.config.ConsoleOutput:
		// Console exporter for development
		opts := []stdouttrace.Option{}
		if m.config.Console.PrettyPrint {
			opts = append(opts, stdouttrace.WithPrettyPrint())
		}
		exporter, err = stdouttrace.New(opts...)
	case m.config.OTLP.Enabled:
		exporter, err = m.createOTLPTraceExporter()
	default:
		exporter = &noOpSpanExporter{}
	}
	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res, err := m.createResource()
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(res),
		trace.WithSampler(trace.TraceIDRatioBased(m.config.SampleRate)),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	m.tracerProvider = tp
	m.shutdownFuncs = append(m.shutdownFuncs, tp.Shutdown)

	return nil
}

// initMetrics sets up OpenTelemetry metrics
func (m *Manager) initMetrics() error {
	readers, err := m.setupMetricReaders()
	if err != nil {
		return err
	}

	res, err := m.createResource()
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	meterProviderOptions := []sdkmetric.Option{
		sdkmetric.WithResource(res),
	}
	for _, reader := range readers {
		meterProviderOptions = append(meterProviderOptions, sdkmetric.WithReader(reader))
	}

	mp := sdkmetric.NewMeterProvider(meterProviderOptions...)

	otel.SetMeterProvider(mp)
	m.meterProvider = mp
	m.shutdownFuncs = append(m.shutdownFuncs, mp.Shutdown)

	return m.initCustomMetrics()
}

// setupMetricReaders sets up all metric readers based on configuration
func (m *Manager) setupMetricReaders() ([]sdkmetric.Reader, error) {
	var readers []sdkmetric.Reader

	if m.config.ConsoleOutput {
		exporter, err := stdoutmetric.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create console metric exporter: %w", err)
		}
		readers = append(readers, sdkmetric.NewPeriodicReader(exporter,
			sdkmetric.WithInterval(15*time.Second)))
	}

	if m.config.OTLP.Enabled {
		otlpReader, err := m.createOTLPMetricsReader()
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP metrics reader: %w", err)
		}
		readers = append(readers, otlpReader)
	}

	if m.config.Prometheus.Enabled {
		prometheusReader, prometheusMux, err := SetupPrometheusExporter(m.config.Prometheus)
		if err != nil {
			return nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
		}
		if prometheusReader != nil {
			readers = append(readers, prometheusReader)
			m.prometheusServer = prometheusMux

			if err := StartPrometheusServer(prometheusMux, m.config.Prometheus.Port); err != nil {
				return nil, fmt.Errorf("failed to start Prometheus server: %w", err)
			}
		}
	}

	// Manual reader as fallback so the meter provider always has one
	if len(readers) == 0 {
		readers = append(readers, sdkmetric.NewManualReader())
	}

	return readers, nil
}

// initCustomMetrics creates all custom metrics for the analysis service
func (m *Manager) initCustomMetrics() error {
	meter := m.meterProvider.Meter(m.config.ServiceName)
	m.metrics = &Metrics{}

	var err error

	m.metrics.AnalysisDuration, err = meter.Float64Histogram(
		"smartats_analysis_duration_seconds",
		metric.WithDescription("End-to-end analysis pipeline duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("failed to create analysis duration metric: %w", err)
	}

	m.metrics.AnalysisCount, err = meter.Int64Counter(
		"smartats_analyses_total",
		metric.WithDescription("Total number of analysis pipeline runs"),
	)
	if err != nil {
		return fmt.Errorf("failed to create analysis count metric: %w", err)
	}

	m.metrics.AnalysisErrors, err = meter.Int64Counter(
		"smartats_analysis_errors_total",
		metric.WithDescription("Total number of failed analysis requests"),
	)
	if err != nil {
		return fmt.Errorf("failed to create analysis error metric: %w", err)
	}

	m.metrics.FallbackCount, err = meter.Int64Counter(
		"smartats_fallbacks_total",
		metric.WithDescription("Total number of analyses resolved with the fallback result"),
	)
	if err != nil {
		return fmt.Errorf("failed to create fallback count metric: %w", err)
	}

	m.metrics.TokenUsage, err = meter.Int64Histogram(
		"smartats_ai_token_usage_total",
		metric.WithDescription("Token usage for AI requests (input, output, total)"),
		metric.WithUnit("tokens"),
	)
	if err != nil {
		return fmt.Errorf("failed to create token usage metric: %w", err)
	}

	m.metrics.RateLimitHits, err = meter.Int64Counter(
		"smartats_rate_limit_hits_total",
		metric.WithDescription("Total number of rate limit hits"),
	)
	if err != nil {
		return fmt.Errorf("failed to create rate limit hits metric: %w", err)
	}

	return nil
}

// GetMetrics returns the metrics instance
func (m *Manager) GetMetrics() *Metrics {
	if m.metrics == nil {
		return &Metrics{}
	}
	return m.metrics
}

// HTTPMiddleware returns HTTP middleware with OpenTelemetry instrumentation
func (m *Manager) HTTPMiddleware() func(http.Handler) http.Handler {
	if !m.config.Enabled {
		return func(h http.Handler) http.Handler { return h }
	}

	return otelhttp.NewMiddleware(
		m.config.ServiceName,
		otelhttp.WithTracerProvider(m.tracerProvider),
		otelhttp.WithMeterProvider(m.meterProvider),
	)
}

// Tracer returns a tracer for the service
func (m *Manager) Tracer(name string) oteltrace.Tracer {
	if !m.config.Enabled {
		return noop.NewTracerProvider().Tracer(name)
	}
	return otel.Tracer(name)
}

// Shutdown gracefully shuts down all observability components
func (m *Manager) Shutdown(ctx context.Context) error {
	for _, shutdown := range m.shutdownFuncs {
		if err := shutdown(ctx); err != nil {
			return err
		}
	}
	return nil
}

// RecordAnalysis implements ai.UsageRecorder: one call per completed pipeline
// run, success or fallback.
func (m *Metrics) RecordAnalysis(ctx context.Context, status types.OutcomeStatus, attempts int, duration time.Duration, usage *ai.TokenUsage) {
	attrs := []attribute.KeyValue{
		attribute.String("status", string(status)),
		attribute.Int("attempts", attempts),
	}

	if m.AnalysisDuration != nil {
		m.AnalysisDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	}
	if m.AnalysisCount != nil {
		m.AnalysisCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	if status == types.OutcomeFallback && m.FallbackCount != nil {
		m.FallbackCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	}

	m.recordTokenUsage(ctx, usage, attrs)
}

// recordTokenUsage records one histogram sample per token type
func (m *Metrics) recordTokenUsage(ctx context.Context, usage *ai.TokenUsage, attrs []attribute.KeyValue) {
	if usage == nil || m.TokenUsage == nil {
		return
	}

	tokenTypes := []struct {
		tokenType string
		value     int64
	}{
		{"input", usage.InputTokens},
		{"output", usage.OutputTokens},
		{"total", usage.TotalTokens},
	}

	for _, tt := range tokenTypes {
		tokenAttrs := append(attrs, attribute.String("token_type", tt.tokenType))
		m.TokenUsage.Record(ctx, tt.value, metric.WithAttributes(tokenAttrs...))
	}
}

// RecordAnalysisError counts a failed analysis request
func (m *Metrics) RecordAnalysisError(ctx context.Context, code string) {
	if m.AnalysisErrors != nil {
		m.AnalysisErrors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("error_code", code),
		))
	}
}

// RecordRateLimitHit counts a rejected request
func (m *Metrics) RecordRateLimitHit(ctx context.Context) {
	if m.RateLimitHits != nil {
		m.RateLimitHits.Add(ctx, 1)
	}
}

// noOpSpanExporter drops spans when no exporter is configured
type noOpSpanExporter struct{}

func (n *noOpSpanExporter) ExportSpans(ctx context.Context, spans []trace.ReadOnlySpan) error {
	return nil
}

func (n *noOpSpanExporter) Shutdown(ctx context.Context) error {
	return nil
}

// createOTLPTraceExporter creates an OTLP HTTP trace exporter
func (m *Manager) createOTLPTraceExporter() (trace.SpanExporter, error) {
	otlpConfig := m.config.OTLP

	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpointURL(otlpConfig.Endpoint),
	}
	if otlpConfig.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if len(otlpConfig.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(otlpConfig.Headers))
	}

	exporter, err := otlptracehttp.New(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	return exporter, nil
}

// createOTLPMetricsReader creates an OTLP HTTP metrics reader
func (m *Manager) createOTLPMetricsReader() (sdkmetric.Reader, error) {
	otlpConfig := m.config.OTLP

	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpointURL(otlpConfig.Endpoint),
	}
	if otlpConfig.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	if len(otlpConfig.Headers) > 0 {
		opts = append(opts, otlpmetrichttp.WithHeaders(otlpConfig.Headers))
	}

	exporter, err := otlpmetrichttp.New(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP metrics exporter: %w", err)
	}

	return sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(15*time.Second)), nil
}
