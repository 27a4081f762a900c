// Package observability exposes the relay's metrics through a Prometheus
// scrape endpoint backed by the OpenTelemetry metric SDK.
package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"ombridge/internal/logging"
)

// Config configures the metrics collector.
type Config struct {
	Enabled bool
	Port    int
}

// Collector manages the relay's metrics. A nil Collector is valid and
// records nothing, so tests and disabled deployments need no wiring.
type Collector struct {
	meter metric.Meter

	relayEvents     metric.Int64Counter
	wizardCommits   metric.Int64Counter
	wizardUndos     metric.Int64Counter
	upstreamErrors  metric.Int64Counter
	upstreamLatency metric.Float64Histogram
	sessionsActive  metric.Int64UpDownCounter

	server *http.Server
}

// NewCollector builds the collector and registers all instruments.
func NewCollector(cfg Config) (*Collector, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter("ombridge")
	c := &Collector{meter: meter}

	if c.relayEvents, err = meter.Int64Counter(
		"ombridge.relay.events",
		metric.WithDescription("Webhook events relayed, by source"),
		metric.WithUnit("{event}"),
	); err != nil {
		return nil, fmt.Errorf("create relay events counter: %w", err)
	}
	if c.wizardCommits, err = meter.Int64Counter(
		"ombridge.wizard.commits",
		metric.WithDescription("Wizard commit actions, by wizard kind"),
		metric.WithUnit("{commit}"),
	); err != nil {
		return nil, fmt.Errorf("create wizard commits counter: %w", err)
	}
	if c.wizardUndos, err = meter.Int64Counter(
		"ombridge.wizard.undo",
		metric.WithDescription("Undo attempts, by outcome"),
		metric.WithUnit("{attempt}"),
	); err != nil {
		return nil, fmt.Errorf("create wizard undo counter: %w", err)
	}
	if c.upstreamErrors, err = meter.Int64Counter(
		"ombridge.upstream.errors",
		metric.WithDescription("Backend service failures, by operation"),
		metric.WithUnit("{error}"),
	); err != nil {
		return nil, fmt.Errorf("create upstream errors counter: %w", err)
	}
	if c.upstreamLatency, err = meter.Float64Histogram(
		"ombridge.upstream.latency",
		metric.WithDescription("Backend service call latency"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("create upstream latency histogram: %w", err)
	}
	if c.sessionsActive, err = meter.Int64UpDownCounter(
		"ombridge.sessions.active",
		metric.WithDescription("Wizard sessions currently held in the store"),
		metric.WithUnit("{session}"),
	); err != nil {
		return nil, fmt.Errorf("create active sessions counter: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promclient.Handler())
	c.server = &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     mux,
		ReadTimeout: 10 * time.Second,
	}
	return c, nil
}

// Start serves the scrape endpoint until Shutdown.
func (c *Collector) Start(logger logging.Logger) {
	if c == nil || c.server == nil {
		return
	}
	logger = logging.OrNop(logger)
	go func() {
		logger.Info("Metrics listening on %s", c.server.Addr)
		if err := c.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Metrics server failed: %v", err)
		}
	}()
}

// Shutdown stops the scrape endpoint.
func (c *Collector) Shutdown(ctx context.Context) error {
	if c == nil || c.server == nil {
		return nil
	}
	return c.server.Shutdown(ctx)
}

// RecordRelayEvent counts one relayed webhook event.
func (c *Collector) RecordRelayEvent(ctx context.Context, source string) {
	if c == nil || c.relayEvents == nil {
		return
	}
	c.relayEvents.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))
}

// RecordWizardCommit counts one committed wizard action.
func (c *Collector) RecordWizardCommit(ctx context.Context, kind string) {
	if c == nil || c.wizardCommits == nil {
		return
	}
	c.wizardCommits.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordWizardUndo counts one undo attempt with its outcome.
func (c *Collector) RecordWizardUndo(ctx context.Context, outcome string) {
	if c == nil || c.wizardUndos == nil {
		return
	}
	c.wizardUndos.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordUpstreamError counts one backend failure.
func (c *Collector) RecordUpstreamError(ctx context.Context, op string) {
	if c == nil || c.upstreamErrors == nil {
		return
	}
	c.upstreamErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}

// RecordUpstreamLatency records one backend call duration.
func (c *Collector) RecordUpstreamLatency(ctx context.Context, op string, elapsed time.Duration) {
	if c == nil || c.upstreamLatency == nil {
		return
	}
	c.upstreamLatency.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attribute.String("op", op)))
}

// AddActiveSessions moves the active session gauge by delta.
func (c *Collector) AddActiveSessions(ctx context.Context, delta int64) {
	if c == nil || c.sessionsActive == nil {
		return
	}
	c.sessionsActive.Add(ctx, delta)
}
