package observability

import (
	"math/big"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// AgentMetrics tracks agent runs. All methods are safe on a nil receiver so
// components can run without metrics.
type AgentMetrics struct {
	Runs          *prometheus.CounterVec
	Attempts      prometheus.Counter
	Retries       prometheus.Counter
	StageDuration *prometheus.HistogramVec
	GasPrice      prometheus.Gauge
	HopCount      prometheus.Histogram
}

func NewAgentMetrics(reg prometheus.Registerer, namespace string) *AgentMetrics {
	factory := promauto.With(reg)
	return &AgentMetrics{
		Runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of agent runs by terminal state",
		}, []string{"state"}),
		Attempts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attempts_total",
			Help:      "Total number of pipeline attempts, including retries",
		}),
		Retries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retries_total",
			Help:      "Total number of attempts retried after a transport error",
		}),
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Time spent in each pipeline stage",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}, []string{"stage"}),
		GasPrice: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "gas_price_wei",
			Help:      "Last observed network gas price in wei",
		}),
		HopCount: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "route_hops",
			Help:      "Number of hops in routes returned by the router",
			Buckets:   prometheus.LinearBuckets(1, 1, 8),
		}),
	}
}

func (m *AgentMetrics) ObserveRun(state string) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(state).Inc()
}

func (m *AgentMetrics) ObserveAttempt(retry bool) {
	if m == nil {
		return
	}
	m.Attempts.Inc()
	if retry {
		m.Retries.Inc()
	}
}

func (m *AgentMetrics) ObserveStage(stage string, started time.Time) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(time.Since(started).Seconds())
}

func (m *AgentMetrics) ObserveGasPrice(wei *big.Int) {
	if m == nil || wei == nil {
		return
	}
	f, _ := new(big.Float).SetInt(wei).Float64()
	m.GasPrice.Set(f)
}

func (m *AgentMetrics) ObserveHops(n int) {
	if m == nil {
		return
	}
	m.HopCount.Observe(float64(n))
}
