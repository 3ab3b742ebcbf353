// Package metrics 检查结果的Prometheus指标
package metrics

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/RecoveryAshes/DeadLinkCheck/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "deadlinkcheck"

// Recorder 记录检查指标
// 每个Recorder有独立的Registry,CLI运行和Web服务互不影响
type Recorder struct {
	registry *prometheus.Registry
	checks   *prometheus.CounterVec
	duration *prometheus.HistogramVec
	runs     *prometheus.CounterVec
}

// NewRecorder 创建指标记录器
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		checks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checks_total",
			Help:      "Total URL checks by strategy and status kind",
		}, []string{"strategy", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "check_duration_seconds",
			Help:      "Time spent fetching and classifying a single URL",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"strategy"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total batch runs by outcome",
		}, []string{"outcome"}),
	}

	r.registry.MustRegister(r.checks, r.duration, r.runs)

	// 预先初始化所有标签组合,未出现的类别也输出0
	for _, strategy := range []models.Strategy{models.StrategyHTTP, models.StrategyBrowser} {
		for _, kind := range models.AllStatusKinds {
			r.checks.WithLabelValues(string(strategy), kind.String())
		}
	}
	return r
}

// WithProcessCollectors 注册Go运行时和进程指标(Web服务使用)
func (r *Recorder) WithProcessCollectors() *Recorder {
	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Observe 记录单个检查结果,实现 core.ResultRecorder
func (r *Recorder) Observe(strategy models.Strategy, result models.CheckResult) {
	r.checks.WithLabelValues(string(strategy), result.Kind.String()).Inc()
	r.duration.WithLabelValues(string(strategy)).Observe(result.Duration.Seconds())
}

// ObserveRun 记录一次批量运行
func (r *Recorder) ObserveRun(err error) {
	outcome := "completed"
	if err != nil {
		outcome = "cancelled"
	}
	r.runs.WithLabelValues(outcome).Inc()
}

// Register 注册额外的收集器
func (r *Recorder) Register(c prometheus.Collector) error {
	return r.registry.Register(c)
}

// Registry 底层Registry
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler /metrics 处理器
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// WriteTextfile 以Prometheus文本格式写入文件(node_exporter textfile收集器可读)
func (r *Recorder) WriteTextfile(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("创建指标目录失败: %w", err)
		}
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("写入指标文件失败: %w", err)
	}
	return nil
}
