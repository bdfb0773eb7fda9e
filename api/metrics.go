package api

import (
	"sync"
	"time"
)

// RouteMetrics aggregates timing for a single method+path pair
type RouteMetrics struct {
	Method      string        `json:"method"`
	Path        string        `json:"path"`
	Count       int64         `json:"count"`
	ErrorCount  int64         `json:"errorCount"`
	TotalTime   time.Duration `json:"totalTime"`
	AvgTime     time.Duration `json:"avgTime"`
	MinTime     time.Duration `json:"minTime"`
	MaxTime     time.Duration `json:"maxTime"`
	LastRequest time.Time     `json:"lastRequest"`
}

// MetricsCollector collects and aggregates request metrics.
// Recording is best-effort and never blocks the request path.
type MetricsCollector struct {
	mu            sync.RWMutex
	routeMetrics  map[string]*RouteMetrics
	windowStart   time.Time
	totalRequests int64
	totalErrors   int64
}

var (
	globalMetrics *MetricsCollector
	metricsOnce   sync.Once
)

// GetMetrics returns the global metrics collector, initializing it on first use
func GetMetrics() *MetricsCollector {
	metricsOnce.Do(func() {
		globalMetrics = &MetricsCollector{
			routeMetrics: make(map[string]*RouteMetrics),
			windowStart:  time.Now(),
		}
	})
	return globalMetrics
}

// Record folds one completed request into the per-route aggregates
func (mc *MetricsCollector) Record(method, path string, status int, duration time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.totalRequests++
	if status >= 400 {
		mc.totalErrors++
	}

	key := method + " " + path
	rm, ok := mc.routeMetrics[key]
	if !ok {
		rm = &RouteMetrics{Method: method, Path: path, MinTime: duration}
		mc.routeMetrics[key] = rm
	}
	rm.Count++
	if status >= 400 {
		rm.ErrorCount++
	}
	rm.TotalTime += duration
	rm.AvgTime = rm.TotalTime / time.Duration(rm.Count)
	if duration < rm.MinTime {
		rm.MinTime = duration
	}
	if duration > rm.MaxTime {
		rm.MaxTime = duration
	}
	rm.LastRequest = time.Now()
}

// GetSummary returns the high-level counters plus per-route aggregates
func (mc *MetricsCollector) GetSummary() map[string]interface{} {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	routes := make([]map[string]interface{}, 0, len(mc.routeMetrics))
	for _, rm := range mc.routeMetrics {
		routes = append(routes, map[string]interface{}{
			"method":      rm.Method,
			"path":        rm.Path,
			"count":       rm.Count,
			"errorCount":  rm.ErrorCount,
			"avgTime":     rm.AvgTime.Milliseconds(),
			"minTime":     rm.MinTime.Milliseconds(),
			"maxTime":     rm.MaxTime.Milliseconds(),
			"lastRequest": rm.LastRequest,
		})
	}

	errorRate := float64(0)
	if mc.totalRequests > 0 {
		errorRate = float64(mc.totalErrors) / float64(mc.totalRequests)
	}

	return map[string]interface{}{
		"totalRequests": mc.totalRequests,
		"totalErrors":   mc.totalErrors,
		"errorRate":     errorRate,
		"windowStart":   mc.windowStart,
		"routeCount":    len(mc.routeMetrics),
		"routes":        routes,
	}
}
