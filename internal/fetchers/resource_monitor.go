package fetchers

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/RecoveryAshes/DeadLinkCheck/internal/utils"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

const (
	mb = 1024 * 1024
	gb = 1024 * mb
)

// ResourceMonitorConfig 资源监控器配置
type ResourceMonitorConfig struct {
	SafetyReserveMemory int64 // 为系统保留的内存(字节)
	SafetyThreshold     int64 // 低于该可用内存时不再新开标签页(字节)
	CPULoadThreshold    int   // CPU负载阈值(%),>=200视为禁用
	MaxTabsLimit        int   // 绝对最大标签页数
	TabMemoryUsage      int64 // 单个标签页平均内存消耗(字节)
}

// DefaultResourceMonitorConfig 默认资源限制
func DefaultResourceMonitorConfig(maxTabs int) ResourceMonitorConfig {
	return ResourceMonitorConfig{
		SafetyReserveMemory: 1 * gb,
		SafetyThreshold:     500 * mb,
		CPULoadThreshold:    80,
		MaxTabsLimit:        maxTabs,
		TabMemoryUsage:      100 * mb,
	}
}

// MemoryStatus 内存状态
type MemoryStatus struct {
	TotalMemory     uint64
	AvailableMemory int64 // 扣除安全保留后的可用内存
	MemoryPressure  string
}

// ResourceMonitor 系统资源监控器
// 周期采样可用内存和CPU负载,计算浏览器标签页上限
type ResourceMonitor struct {
	config ResourceMonitorConfig

	mu        sync.RWMutex
	available uint64 // 系统可用内存(字节)
	total     uint64
	cpuUsage  float64

	cacheMu       sync.Mutex
	cachedMaxTabs int
	lastCacheTime time.Time

	cancel context.CancelFunc
}

// NewResourceMonitor 创建资源监控器并做一次初始采样
func NewResourceMonitor(config ResourceMonitorConfig) *ResourceMonitor {
	if config.TabMemoryUsage <= 0 {
		config.TabMemoryUsage = 100 * mb
	}
	if config.MaxTabsLimit < 1 {
		config.MaxTabsLimit = 1
	}

	rm := &ResourceMonitor{config: config}
	rm.sampleMemory()

	utils.Debugf("系统总内存: %.2f GB, 标签页上限配置: %d",
		float64(rm.total)/float64(gb), config.MaxTabsLimit)
	return rm
}

// sampleMemory 使用gopsutil读取系统内存,失败时按4GB估算
func (rm *ResourceMonitor) sampleMemory() {
	vmStat, err := mem.VirtualMemory()

	rm.mu.Lock()
	defer rm.mu.Unlock()

	if err != nil {
		utils.Warnf("获取系统内存失败,使用默认值: %v", err)
		rm.total = 4 * gb
		rm.available = 4 * gb
		return
	}
	rm.total = vmStat.Total
	rm.available = vmStat.Available
}

// sampleCPU 采样100ms内的整体CPU使用率
func (rm *ResourceMonitor) sampleCPU() {
	percentages, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil || len(percentages) == 0 {
		return
	}

	rm.mu.Lock()
	rm.cpuUsage = percentages[0]
	rm.mu.Unlock()
}

// StartMonitoring 启动后台采样,重复调用无副作用
func (rm *ResourceMonitor) StartMonitoring(interval time.Duration) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	rm.cancel = cancel

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rm.sampleMemory()
				rm.sampleCPU()
			}
		}
	}()
}

// StopMonitoring 停止后台采样
func (rm *ResourceMonitor) StopMonitoring() {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.cancel != nil {
		rm.cancel()
		rm.cancel = nil
	}
}

// availableAfterReserve 可用内存减去安全保留
func (rm *ResourceMonitor) availableAfterReserve() int64 {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return int64(rm.available) - rm.config.SafetyReserveMemory
}

// CalculateMaxTabs 当前允许的最大标签页数,结果缓存1秒
// 取 内存余量/单页内存、CPU核数、配置上限 三者最小值,至少为1
func (rm *ResourceMonitor) CalculateMaxTabs() int {
	rm.cacheMu.Lock()
	defer rm.cacheMu.Unlock()

	if time.Since(rm.lastCacheTime) < time.Second && rm.cachedMaxTabs > 0 {
		return rm.cachedMaxTabs
	}

	byMemory := 1
	if surplus := rm.availableAfterReserve() - rm.config.SafetyThreshold; surplus > 0 {
		byMemory = int(surplus / rm.config.TabMemoryUsage)
	}

	result := min(byMemory, runtime.NumCPU(), rm.config.MaxTabsLimit)
	if result < 1 {
		result = 1
	}

	rm.cachedMaxTabs = result
	rm.lastCacheTime = time.Now()
	return result
}

// CheckResourceAvailability 检查是否允许再开一个标签页
func (rm *ResourceMonitor) CheckResourceAvailability() (canCreate bool, reason string) {
	available := rm.availableAfterReserve()
	if available < rm.config.SafetyThreshold {
		reason = fmt.Sprintf("内存不足(当前%dMB)", available/mb)
		utils.Warnf("可用内存不足(当前%dMB),标签页创建受限", available/mb)
		return false, reason
	}

	if rm.config.CPULoadThreshold < 200 {
		rm.mu.RLock()
		usage := rm.cpuUsage
		rm.mu.RUnlock()

		if usage > float64(rm.config.CPULoadThreshold) {
			return false, fmt.Sprintf("CPU负载过高(当前%.1f%%)", usage)
		}
	}

	return true, ""
}

// GetMemoryStatus 当前内存状态
func (rm *ResourceMonitor) GetMemoryStatus() MemoryStatus {
	available := rm.availableAfterReserve()

	rm.mu.RLock()
	total := rm.total
	rm.mu.RUnlock()

	return MemoryStatus{
		TotalMemory:     total,
		AvailableMemory: available,
		MemoryPressure:  memoryPressure(available / mb),
	}
}

// ShouldScaleDown 内存吃紧时是否应该关闭空闲标签页
func (rm *ResourceMonitor) ShouldScaleDown(currentTabs int) (bool, int) {
	availableMB := rm.availableAfterReserve() / mb

	switch memoryPressure(availableMB) {
	case "emergency":
		utils.Errorf("内存紧急状态(当前%dMB),标签页缩减至1个", availableMB)
		return currentTabs > 1, 1
	case "critical":
		target := max(currentTabs/2, 1)
		utils.Warnf("内存严重不足(当前%dMB),标签页缩减至%d个", availableMB, target)
		return currentTabs > target, target
	default:
		return false, currentTabs
	}
}

func memoryPressure(availableMB int64) string {
	switch {
	case availableMB < 200:
		return "emergency"
	case availableMB < 300:
		return "critical"
	case availableMB < 500:
		return "warning"
	default:
		return "normal"
	}
}
