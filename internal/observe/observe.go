// Package observe wires OpenTelemetry metrics to an optional Prometheus
// scrape endpoint.
package observe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/ravitez/vinu/internal/config"
	"github.com/ravitez/vinu/internal/version"
)

// Runtime holds the live metrics instruments and the shutdown hook for the
// exporter and scrape server.
type Runtime struct {
	Metrics *Metrics

	server   *http.Server
	provider *sdkmetric.MeterProvider
}

// Setup builds the metric instruments. When cfg.Bind is set a Prometheus
// exporter and an HTTP server exposing /metrics and /healthz are started;
// otherwise instruments record through the global (no-op backed) provider.
func Setup(ctx context.Context, cfg config.ObserveConfig, logger *slog.Logger) (*Runtime, error) {
	if cfg.Bind == "" {
		metrics, err := NewMetrics(otel.GetMeterProvider())
		if err != nil {
			return nil, err
		}
		return &Runtime{Metrics: metrics}, nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName("vinu"),
			semconv.ServiceVersion(version.Version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("build telemetry resource: %w", err)
	}

	exporter, err := promexporter.New()
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(provider)

	metrics, err := NewMetrics(provider)
	if err != nil {
		_ = provider.Shutdown(ctx)
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	server := &http.Server{
		Addr:              cfg.Bind,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if serveErr := server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			if logger != nil {
				logger.Error("metrics server failed", "bind", cfg.Bind, "error", serveErr.Error())
			}
		}
	}()

	if logger != nil {
		logger.Info("metrics endpoint up", "bind", cfg.Bind)
	}

	return &Runtime{Metrics: metrics, server: server, provider: provider}, nil
}

// Shutdown stops the scrape server and flushes the exporter.
func (r *Runtime) Shutdown(ctx context.Context) error {
	var errs []error
	if r.server != nil {
		if err := r.server.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if r.provider != nil {
		if err := r.provider.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
