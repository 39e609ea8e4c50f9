package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// 评估
	evaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guardian_evaluations_total",
			Help: "Total number of subject evaluations by overall status",
		},
		[]string{"status"},
	)

	evaluationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "guardian_evaluation_duration_seconds",
			Help:    "End-to-end subject evaluation duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	anomaliesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guardian_dimension_anomalies_total",
			Help: "Total number of anomalous dimension results",
		},
		[]string{"dimension", "severity"},
	)

	thresholdResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guardian_threshold_resolutions_total",
			Help: "Threshold resolutions by provenance",
		},
		[]string{"provenance"},
	)

	// 学习
	learningRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guardian_learning_runs_total",
			Help: "Baseline learning runs by result",
		},
		[]string{"result"},
	)

	// 依赖降级
	degradationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guardian_dependency_degradations_total",
			Help: "Times a dependency failure was absorbed by a fallback",
		},
		[]string{"dependency"},
	)

	enrichmentDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "guardian_enrichment_request_duration_seconds",
			Help:    "Text generation request duration in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"kind", "status"},
	)

	alertsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guardian_alerts_published_total",
			Help: "Alerts fanned out by channel and result",
		},
		[]string{"channel", "result"},
	)
)

// Handler Prometheus 指标 HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordEvaluation 记录一次评估
func RecordEvaluation(status string, duration time.Duration) {
	evaluationsTotal.WithLabelValues(status).Inc()
	evaluationDuration.Observe(duration.Seconds())
}

// RecordAnomaly 记录一个异常维度
func RecordAnomaly(dimension, severity string) {
	anomaliesTotal.WithLabelValues(dimension, severity).Inc()
}

// RecordThresholdResolution 记录阈值来源
func RecordThresholdResolution(provenance string) {
	thresholdResolutions.WithLabelValues(provenance).Inc()
}

// RecordLearning 记录一次学习结果（ok / insufficient / locked / failed）
func RecordLearning(result string) {
	learningRunsTotal.WithLabelValues(result).Inc()
}

// RecordDegradation 记录一次依赖降级
func RecordDegradation(dependency string) {
	degradationsTotal.WithLabelValues(dependency).Inc()
}

// RecordEnrichmentRequest 记录文本生成请求
func RecordEnrichmentRequest(kind string, ok bool, duration time.Duration) {
	status := "error"
	if ok {
		status = "ok"
	}
	enrichmentDuration.WithLabelValues(kind, status).Observe(duration.Seconds())
}

// RecordAlertPublished 记录告警推送
func RecordAlertPublished(channel string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	alertsPublished.WithLabelValues(channel, result).Inc()
}
