package diagnostics

import (
	"strings"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemMetrics holds host details shown alongside a snapshot.
// Fields the platform cannot report stay at their zero value.
type SystemMetrics struct {
	// Host
	Platform      string        `json:"platform" yaml:"platform"`
	KernelVersion string        `json:"kernel_version" yaml:"kernel_version"`
	Uptime        time.Duration `json:"uptime" yaml:"uptime"`

	// CPU
	CPUModel   string  `json:"cpu_model" yaml:"cpu_model"`
	CPUCores   int     `json:"cpu_cores" yaml:"cpu_cores"`
	CPUThreads int     `json:"cpu_threads" yaml:"cpu_threads"`
	CPUPercent float64 `json:"cpu_percent" yaml:"cpu_percent"`

	// Memory
	MemTotal   string  `json:"mem_total" yaml:"mem_total"`
	MemUsed    string  `json:"mem_used" yaml:"mem_used"`
	MemPercent float64 `json:"mem_percent" yaml:"mem_percent"`

	// Load Average (Unix)
	LoadAvg1  float64 `json:"load_avg_1" yaml:"load_avg_1"`
	LoadAvg5  float64 `json:"load_avg_5" yaml:"load_avg_5"`
	LoadAvg15 float64 `json:"load_avg_15" yaml:"load_avg_15"`
}

// SystemMetricsCollector collects host-wide statistics.
type SystemMetricsCollector struct {
	mu           sync.Mutex
	lastCPUTotal float64
	lastCPUIdle  float64

	infoCollected bool
	platform      string
	kernel        string
	cpuModel      string
	cpuCores      int
	cpuThreads    int
}

// NewSystemMetricsCollector creates a new system metrics collector.
func NewSystemMetricsCollector() *SystemMetricsCollector {
	return &SystemMetricsCollector{}
}

// Collect gathers current host statistics. CPUPercent is computed against
// the previous call and is zero on the first one.
func (c *SystemMetricsCollector) Collect() SystemMetrics {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := SystemMetrics{}

	// Static info (cached)
	c.collectHostInfo(&stats)

	c.collectMemoryInfo(&stats)
	c.collectCPUInfo(&stats)
	c.collectLoadAvg(&stats)

	return stats
}

func (c *SystemMetricsCollector) collectHostInfo(stats *SystemMetrics) {
	if !c.infoCollected {
		if info, err := host.Info(); err == nil {
			c.platform = strings.TrimSpace(info.Platform + " " + info.PlatformVersion)
			c.kernel = info.KernelVersion
		}
		if infos, err := cpu.Info(); err == nil && len(infos) > 0 {
			c.cpuModel = strings.TrimSpace(infos[0].ModelName)
		}
		if cores, err := cpu.Counts(false); err == nil && cores > 0 {
			c.cpuCores = cores
		}
		if threads, err := cpu.Counts(true); err == nil && threads > 0 {
			c.cpuThreads = threads
		}
		c.infoCollected = true
	}
	stats.Platform = c.platform
	stats.KernelVersion = c.kernel
	stats.CPUModel = c.cpuModel
	stats.CPUCores = c.cpuCores
	stats.CPUThreads = c.cpuThreads

	if up, err := host.Uptime(); err == nil {
		stats.Uptime = time.Duration(up) * time.Second
	}
}

// collectMemoryInfo reads system memory information.
func (c *SystemMetricsCollector) collectMemoryInfo(stats *SystemMetrics) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return
	}

	stats.MemTotal = FormatBestUnit(clampInt64(vm.Total))
	stats.MemUsed = FormatBestUnit(clampInt64(vm.Used))
	stats.MemPercent = vm.UsedPercent
}

// collectCPUInfo reads system CPU usage.
func (c *SystemMetricsCollector) collectCPUInfo(stats *SystemMetrics) {
	times, err := cpu.Times(false)
	if err != nil || len(times) == 0 {
		return
	}

	t := times[0]
	total := t.User + t.Nice + t.System + t.Idle + t.Iowait + t.Irq + t.Softirq + t.Steal
	idleTime := t.Idle + t.Iowait

	if c.lastCPUTotal > 0 {
		totalDelta := total - c.lastCPUTotal
		idleDelta := idleTime - c.lastCPUIdle
		if totalDelta > 0 {
			stats.CPUPercent = (1 - idleDelta/totalDelta) * 100
		}
	}

	c.lastCPUTotal = total
	c.lastCPUIdle = idleTime
}

// collectLoadAvg reads system load averages.
func (c *SystemMetricsCollector) collectLoadAvg(stats *SystemMetrics) {
	avg, err := load.Avg()
	if err != nil {
		return
	}
	stats.LoadAvg1 = avg.Load1
	stats.LoadAvg5 = avg.Load5
	stats.LoadAvg15 = avg.Load15
}

func clampInt64(v uint64) int64 {
	const maxInt64 = 1<<63 - 1
	if v > maxInt64 {
		return maxInt64
	}
	return int64(v)
}
