// Package monitoring 提供预测指标与实时推送
package monitoring

import (
	"net/http"
	"time"

	"fraudguard/ml"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "fraudguard"

// Metrics 预测相关的Prometheus指标
type Metrics struct {
	PredictionsTotal  *prometheus.CounterVec
	InferenceDuration prometheus.Histogram
	ModelAvailable    prometheus.Gauge

	gatherer prometheus.Gatherer
}

// NewMetrics 在给定registry上注册指标
func NewMetrics(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		PredictionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "predictions_total",
				Help:      "Predictions served by outcome and verdict",
			},
			[]string{"outcome", "verdict"},
		),
		InferenceDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "inference_duration_seconds",
				Help:      "Time spent in the inference pipeline",
				Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
			},
		),
		ModelAvailable: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "model_available",
				Help:      "1 when a model artifact is loaded, 0 in degraded mode",
			},
		),
		gatherer: reg,
	}
}

// SetModelAvailable 记录模型加载状态
func (m *Metrics) SetModelAvailable(available bool) {
	if available {
		m.ModelAvailable.Set(1)
		return
	}
	m.ModelAvailable.Set(0)
}

// ObserveOutcome 记录一次预测
func (m *Metrics) ObserveOutcome(outcome ml.Outcome, elapsed time.Duration) {
	verdict := "none"
	if outcome.Succeeded() {
		verdict = outcome.Verdict.String()
	}
	m.PredictionsTotal.WithLabelValues(string(outcome.Kind), verdict).Inc()
	m.InferenceDuration.Observe(elapsed.Seconds())
}

// Handler 返回 /metrics 处理器
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
