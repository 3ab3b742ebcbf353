package server

import (
	"sync"

	"github.com/RecoveryAshes/DeadLinkCheck/internal/models"
	"github.com/prometheus/client_golang/prometheus"
)

// RunStore 最近运行结果的内存存储
// 超出容量时淘汰最早的运行,进程退出即丢弃
type RunStore struct {
	mu    sync.RWMutex
	limit int
	order []string
	runs  map[string]*models.RunReport
}

// NewRunStore 创建存储,limit<1时按1处理
func NewRunStore(limit int) *RunStore {
	if limit < 1 {
		limit = 1
	}
	return &RunStore{
		limit: limit,
		runs:  make(map[string]*models.RunReport, limit),
	}
}

// Add 保存一次运行
func (s *RunStore) Add(report *models.RunReport) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[report.RunID]; !exists {
		s.order = append(s.order, report.RunID)
	}
	s.runs[report.RunID] = report

	for len(s.order) > s.limit {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.runs, oldest)
	}
}

// Get 按ID查找
func (s *RunStore) Get(id string) (*models.RunReport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	report, ok := s.runs[id]
	return report, ok
}

// Recent 最近的运行,新的在前
func (s *RunStore) Recent() []*models.RunReport {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.RunReport, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		result = append(result, s.runs[s.order[i]])
	}
	return result
}

// Len 当前保存的运行数
func (s *RunStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

var storedRunsDesc = prometheus.NewDesc(
	"deadlinkcheck_stored_runs",
	"Number of runs currently kept in memory for download",
	nil,
	nil,
)

// storeCollector 每次抓取指标时读取RunStore的大小
type storeCollector struct {
	store *RunStore
}

func (c *storeCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- storedRunsDesc
}

func (c *storeCollector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(storedRunsDesc, prometheus.GaugeValue, float64(c.store.Len()))
}
