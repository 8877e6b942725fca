/*
Package metrics exports dispatcher activity to Prometheus.

	┌─────────────┐
	│  Collector  │  ← types.MetricsCollector for the dispatcher
	└──────┬──────┘
	       │
	   ┌───┴────────────────────────────┐
	   │                                │
	┌──▼───────────┐         ┌─────────▼──────────┐
	│  Prometheus  │         │  HTTP Endpoints     │
	│   Registry   │         │  /metrics           │
	│              │         │  /health            │
	│ - Counters   │         │  /debug/operations  │
	│ - Histograms │         └────────────────────┘
	│ - Gauges     │
	└──────────────┘

Series, all under the configured namespace:

	operations_total{operation,status}
	operation_duration_seconds{operation}
	operation_size_bytes{operation}
	errors_total{operation,errno}
	open_handles, uptime_seconds          (after RegisterStats)

Usage:

	collector, err := metrics.NewCollector(&metrics.Config{
		Enabled:   true,
		Address:   "127.0.0.1:9464",
		Namespace: "blokfs",
	}, log)
	if err != nil {
		return err
	}
	d := filesystem.NewDispatcher(mountCtx, collector)
	_ = collector.RegisterStats(d)
	g.Go(func() error { return collector.Serve(ctx) })
*/
package metrics
