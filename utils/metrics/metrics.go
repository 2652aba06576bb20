package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	registry = prometheus.NewRegistry()
	logger   *zap.Logger
)

type MetricsConfig struct {
	Namespace  string
	LogMetrics bool
}

func Initialize(cfg *MetricsConfig, log *zap.Logger) {
	logger = log
	prometheus.DefaultRegisterer = registry
	prometheus.DefaultGatherer = registry
	if cfg != nil && cfg.LogMetrics && logger != nil {
		logger.Info("Metrics initialized", zap.String("namespace", cfg.Namespace))
	}
}

// Registry returns the process wide registry
func Registry() *prometheus.Registry {
	return registry
}

// RouterMetrics tracks route enumeration
type RouterMetrics struct {
	RoutesComputed *prometheus.CounterVec
	RouteHops      prometheus.Histogram
	Enumerations   *prometheus.CounterVec
}

func NewRouterMetrics(namespace string, reg prometheus.Registerer) *RouterMetrics {
	factory := promauto.With(reg)
	return &RouterMetrics{
		RoutesComputed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "routes_computed_total",
			Help:      "Total number of candidate routes produced",
		}, []string{"protocol"}),
		RouteHops: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "route_hops",
			Help:      "Number of pools per candidate route",
			Buckets:   prometheus.LinearBuckets(1, 1, 6),
		}),
		Enumerations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "route_enumerations_total",
			Help:      "Total number of route enumeration calls",
		}, []string{"protocol"}),
	}
}

// GasMetrics tracks gas model outcomes
type GasMetrics struct {
	Estimates      *prometheus.CounterVec
	EstimateErrors prometheus.Counter
	GasEstimate    prometheus.Histogram
	L1Fees         *prometheus.CounterVec
}

func NewGasMetrics(namespace string, reg prometheus.Registerer) *GasMetrics {
	factory := promauto.With(reg)
	return &GasMetrics{
		Estimates: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gas_estimates_total",
			Help:      "Total number of route gas estimates by outcome",
		}, []string{"status"}),
		EstimateErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gas_estimate_errors_total",
			Help:      "Total number of gas estimates that failed to convert",
		}),
		GasEstimate: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "gas_estimate_units",
			Help:      "Heuristic gas units per route",
			Buckets:   prometheus.ExponentialBuckets(50000, 2, 8),
		}),
		L1Fees: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "l1_fee_calculations_total",
			Help:      "Total number of L1 security fee calculations by chain family",
		}, []string{"family"}),
	}
}

// ProviderMetrics tracks pool and gas data lookups
type ProviderMetrics struct {
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter
	RPCCalls    *prometheus.CounterVec
	RPCLatency  prometheus.Histogram
}

func NewProviderMetrics(namespace string, reg prometheus.Registerer) *ProviderMetrics {
	factory := promauto.With(reg)
	return &ProviderMetrics{
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pool_cache_hits_total",
			Help:      "Total number of pool lookups served from cache",
		}),
		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pool_cache_misses_total",
			Help:      "Total number of pool lookups forwarded to the source",
		}),
		RPCCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "contract_calls_total",
			Help:      "Total number of view calls against pool and gas data contracts",
		}, []string{"method"}),
		RPCLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "contract_call_latency_seconds",
			Help:      "Contract view call latency in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
	}
}
