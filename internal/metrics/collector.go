// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器。所有 Record 方法对 nil 接收者安全。
type Collector struct {
	// HTTP 指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// 生成指标
	generationsTotal   *prometheus.CounterVec
	generationDuration *prometheus.HistogramVec

	// 团队流程指标
	flowsStarted  *prometheus.CounterVec
	flowsFinished *prometheus.CounterVec
	flowSteps     *prometheus.CounterVec
	verdicts      *prometheus.CounterVec
	retries       *prometheus.CounterVec
	suspensions   *prometheus.CounterVec
	pendingFlows  prometheus.Gauge

	// 任务归档指标
	missionsArchived *prometheus.CounterVec

	logger *zap.Logger
}

// NewCollector 创建指标收集器；reg 为 nil 时注册到默认 Registerer
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	// HTTP 指标
	c.httpRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	c.httpRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// 生成指标
	c.generationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Total number of hat response generations",
		},
		[]string{"model", "status"},
	)

	c.generationDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Hat response generation duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"model"},
	)

	// 团队流程指标
	c.flowsStarted = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "team_flows_started_total",
			Help:      "Total number of team flow runs started",
		},
		[]string{"team"},
	)

	c.flowsFinished = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "team_flows_finished_total",
			Help:      "Total number of team flow runs that reached a terminal state",
		},
		[]string{"team", "state", "outcome"},
	)

	c.flowSteps = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "team_flow_steps_total",
			Help:      "Total number of flow step records",
		},
		[]string{"hat", "kind"},
	)

	c.verdicts = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quality_gate_verdicts_total",
			Help:      "Quality gate verdicts by kind",
		},
		[]string{"verdict"},
	)

	c.retries = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "revision_retries_total",
			Help:      "Regenerations triggered by critic feedback",
		},
		[]string{"hat", "result"}, // result: scheduled, limit_reached
	)

	c.suspensions = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flow_suspensions_total",
			Help:      "Flows suspended for human approval",
		},
		[]string{"verdict"},
	)

	c.pendingFlows = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "flows_awaiting_approval",
			Help:      "Flows currently waiting for approve or retry",
		},
	)

	c.missionsArchived = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "missions_archived_total",
			Help:      "Mission records written to the archive",
		},
		[]string{"outcome", "status"},
	)

	return c
}

// =============================================================================
// 🎯 记录方法
// =============================================================================

// RecordHTTPRequest 记录 HTTP 请求
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if c == nil {
		return
	}
	c.httpRequestsTotal.WithLabelValues(method, path, statusCode(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordGeneration 记录一次 Hat 响应生成
func (c *Collector) RecordGeneration(model string, err error, duration time.Duration) {
	if c == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	c.generationsTotal.WithLabelValues(model, status).Inc()
	c.generationDuration.WithLabelValues(model).Observe(duration.Seconds())
}

// RecordFlowStarted 记录流程开始
func (c *Collector) RecordFlowStarted(team string) {
	if c == nil {
		return
	}
	c.flowsStarted.WithLabelValues(team).Inc()
}

// RecordFlowFinished 记录流程终止（completed / abandoned）
func (c *Collector) RecordFlowFinished(team, state, outcome string) {
	if c == nil {
		return
	}
	c.flowsFinished.WithLabelValues(team, state, outcome).Inc()
}

// RecordStep 记录一条流程记录
func (c *Collector) RecordStep(hat, kind string) {
	if c == nil {
		return
	}
	c.flowSteps.WithLabelValues(hat, kind).Inc()
}

// RecordVerdict 记录质量门判定
func (c *Collector) RecordVerdict(verdict string) {
	if c == nil {
		return
	}
	c.verdicts.WithLabelValues(verdict).Inc()
}

// RecordRetry 记录一次修订重试
func (c *Collector) RecordRetry(hat string, limitReached bool) {
	if c == nil {
		return
	}
	result := "scheduled"
	if limitReached {
		result = "limit_reached"
	}
	c.retries.WithLabelValues(hat, result).Inc()
}

// RecordSuspended 记录流程挂起等待审批
func (c *Collector) RecordSuspended(verdict string) {
	if c == nil {
		return
	}
	c.suspensions.WithLabelValues(verdict).Inc()
	c.pendingFlows.Inc()
}

// RecordResumed 记录挂起流程被消费
func (c *Collector) RecordResumed() {
	if c == nil {
		return
	}
	c.pendingFlows.Dec()
}

// RecordMissionArchived 记录任务归档
func (c *Collector) RecordMissionArchived(outcome string, err error) {
	if c == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
		c.logger.Warn("mission archive failed", zap.String("outcome", outcome), zap.Error(err))
	}
	c.missionsArchived.WithLabelValues(outcome, status).Inc()
}

// =============================================================================
// 🔧 辅助函数
// =============================================================================

func statusCode(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	case code >= 200:
		return "2xx"
	default:
		return strconv.Itoa(code)
	}
}
