package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/v4/process"
)

var (
	coreCPUPercent = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "core",
			Name:      "cpu_percent",
			Help:      "CPU usage percentage of the running core.",
		}, []string{"unit"},
	)
	coreMemoryRSS = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "core",
			Name:      "memory_rss_bytes",
			Help:      "Resident set size of the running core.",
		}, []string{"unit"},
	)
	coreNumThreads = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "core",
			Name:      "num_threads",
			Help:      "Thread count of the running core.",
		}, []string{"unit"},
	)
)

// Usage is a point-in-time resource sample of one process.
type Usage struct {
	PID        int32
	CPUPercent float64
	MemoryRSS  uint64
	NumThreads int32
}

// SampleProcess reads CPU, memory and thread usage of pid.
func SampleProcess(pid int) (Usage, error) {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return Usage{}, err
	}
	u := Usage{PID: p.Pid}
	if cpu, err := p.CPUPercent(); err == nil {
		u.CPUPercent = cpu
	}
	if mem, err := p.MemoryInfo(); err == nil && mem != nil {
		u.MemoryRSS = mem.RSS
	}
	if n, err := p.NumThreads(); err == nil {
		u.NumThreads = n
	}
	return u, nil
}

// ObserveCore samples pid and publishes its usage under unit. Sampling errors
// are ignored; the core may exit between the liveness check and the sample.
func ObserveCore(unit string, pid int) {
	if !regOK.Load() || pid <= 0 {
		return
	}
	u, err := SampleProcess(pid)
	if err != nil {
		return
	}
	coreCPUPercent.WithLabelValues(unit).Set(u.CPUPercent)
	coreMemoryRSS.WithLabelValues(unit).Set(float64(u.MemoryRSS))
	coreNumThreads.WithLabelValues(unit).Set(float64(u.NumThreads))
}

// ClearCore drops the resource series of unit once its core is gone.
func ClearCore(unit string) {
	if !regOK.Load() {
		return
	}
	coreCPUPercent.DeleteLabelValues(unit)
	coreMemoryRSS.DeleteLabelValues(unit)
	coreNumThreads.DeleteLabelValues(unit)
}
