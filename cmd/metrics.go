package cmd

import (
	"context"
	"sync"

	"github.com/michaelpento.lv/routegas/utils/metrics"
	"github.com/michaelpento.lv/routegas/utils/monitor"
	"go.uber.org/zap"
)

type processMetrics struct {
	router   *metrics.RouterMetrics
	gas      *metrics.GasMetrics
	provider *metrics.ProviderMetrics
}

var (
	metricsOnce sync.Once
	collectors  processMetrics
)

// instruments registers the process metrics on first use
func instruments() processMetrics {
	metricsOnce.Do(func() {
		ns, reg := cfg.Metrics.Namespace, metrics.Registry()
		collectors = processMetrics{
			router:   metrics.NewRouterMetrics(ns, reg),
			gas:      metrics.NewGasMetrics(ns, reg),
			provider: metrics.NewProviderMetrics(ns, reg),
		}
	})
	return collectors
}

// serveMetrics exposes the registry when metrics are enabled
func serveMetrics(ctx context.Context) *monitor.Server {
	if !cfg.Metrics.Enabled {
		return nil
	}
	srv, err := monitor.NewServer(cfg.Metrics.ListenAddress, metrics.Registry(), log)
	if err != nil {
		log.Error("Failed to create metrics server", zap.Error(err))
		return nil
	}
	srv.Start(ctx)
	return srv
}
