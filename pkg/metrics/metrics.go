// Package metrics is a small in-process collector: named counters and a
// bounded window of latency observations, served verbatim on /metrics.
package metrics

import (
	"sync"
	"time"
)

const latencyWindow = 100

type MetricsCollector struct {
	counters  map[string]int64
	latencies map[string][]time.Duration
	mutex     sync.RWMutex
}

func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		counters:  make(map[string]int64),
		latencies: make(map[string][]time.Duration),
	}
}

func (mc *MetricsCollector) IncrementCounter(name string) {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()
	mc.counters[name]++
}

func (mc *MetricsCollector) ObserveLatency(name string, duration time.Duration) {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	observed := append(mc.latencies[name], duration)
	if len(observed) > latencyWindow {
		observed = observed[len(observed)-latencyWindow:]
	}
	mc.latencies[name] = observed
}

func (mc *MetricsCollector) GetCounters() map[string]int64 {
	mc.mutex.RLock()
	defer mc.mutex.RUnlock()

	counters := make(map[string]int64, len(mc.counters))
	for name, value := range mc.counters {
		counters[name] = value
	}
	return counters
}

// GetLatencies reports the average latency per operation in milliseconds
// over the retained window.
func (mc *MetricsCollector) GetLatencies() map[string]float64 {
	mc.mutex.RLock()
	defer mc.mutex.RUnlock()

	result := make(map[string]float64, len(mc.latencies))
	for name, durations := range mc.latencies {
		if len(durations) == 0 {
			continue
		}
		var sum time.Duration
		for _, d := range durations {
			sum += d
		}
		result[name] = float64(sum) / float64(len(durations)) / float64(time.Millisecond)
	}
	return result
}
