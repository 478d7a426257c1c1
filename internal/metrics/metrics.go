package metrics

import (
	"context"
	"net/http"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

type Metrics struct {
	HTTPRequests   metric.Int64Counter
	HTTPDuration   metric.Float64Histogram
	ImportRuns     metric.Int64Counter
	MoviesImported metric.Int64Counter
	LedgerHits     metric.Int64Counter
	LedgerMisses   metric.Int64Counter
}

// Setup builds the meter provider and returns the instruments together with
// the handler that serves them in the Prometheus text format. Each call uses
// its own registry.
func Setup(serviceName string) (*Metrics, http.Handler, error) {
	registry := promclient.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, nil, err
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	m := &Metrics{}

	m.HTTPRequests, err = meter.Int64Counter(
		"cdx_http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.HTTPDuration, err = meter.Float64Histogram(
		"cdx_http_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.ImportRuns, err = meter.Int64Counter(
		"cdx_import_runs_total",
		metric.WithDescription("Total number of import runs by outcome"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.MoviesImported, err = meter.Int64Counter(
		"cdx_movies_imported_total",
		metric.WithDescription("Total number of movies persisted by import runs"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.LedgerHits, err = meter.Int64Counter(
		"cdx_import_ledger_hits_total",
		metric.WithDescription("Total number of import ledger lookups that found a run"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.LedgerMisses, err = meter.Int64Counter(
		"cdx_import_ledger_misses_total",
		metric.WithDescription("Total number of import ledger lookups for unknown runs"),
	)
	if err != nil {
		return nil, nil, err
	}

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return m, handler, nil
}

func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, status int, duration time.Duration) {
	labels := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("path", path),
		attribute.Int("status", status),
	)

	m.HTTPRequests.Add(ctx, 1, labels)
	m.HTTPDuration.Record(ctx, duration.Seconds(), labels)
}

// RecordImport counts a finished import run. Movies persisted by failed runs
// are counted too since they are not rolled back.
func (m *Metrics) RecordImport(ctx context.Context, outcome string, persisted int) {
	m.ImportRuns.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	if persisted > 0 {
		m.MoviesImported.Add(ctx, int64(persisted))
	}
}

func (m *Metrics) RecordLedgerHit(ctx context.Context) {
	m.LedgerHits.Add(ctx, 1)
}

func (m *Metrics) RecordLedgerMiss(ctx context.Context) {
	m.LedgerMisses.Add(ctx, 1)
}
