// Package observability provides logging, Prometheus metrics, OpenTelemetry
// tracing, health checks and graceful shutdown for the plugin host.
//
// # Structured Logging
//
// Create logger:
//
//	logger := observability.NewLogger(logrus.InfoLevel, observability.FormatJSON, os.Stderr)
//	logger.WithField("plugin", name).Info("Enabled plugin")
//
// Trace-aware logging:
//
//	observability.WithTraceContext(ctx, logger).Warn("Resolution failed")
//
// # Metrics
//
// Metrics and OTelMetrics both implement Recorder, which covers the
// observer interfaces of the bridge, loader, resolver and event dispatcher:
//
//	metrics := observability.NewMetrics(prometheus.NewRegistry())
//	b := bridge.New(bridge.WithObserver(metrics))
//
// Combine both with MultiRecorder when OpenTelemetry is enabled.
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(version)
//	checker.AddCheck("bridge", false, func(ctx context.Context) observability.DependencyStatus {
//		...
//	})
//	observability.RegisterHealthRoutes(router, checker)
//
// # OpenTelemetry
//
//	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
//		Enabled:     true,
//		Endpoint:    "otel-collector:4317",
//		ServiceName: "patchbridge",
//	}, logger)
//	defer observability.ShutdownOTel(ctx, providers, logger)
//
// # Related Packages
//
//   - pkg/config: Observability configuration
//   - pkg/host: Wires everything together
package observability
