package metrics

import (
	"net/http"

	prom "github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zeusync/methodwatch/internal/core/stats"
)

const namespace = "methodwatch"

var _ prom.Collector = (*Collector)(nil)

// Collector exposes the statistics registry as Prometheus metrics. Values
// are read from a fresh snapshot on every scrape; nothing is cached.
type Collector struct {
	registry *stats.Registry

	executions *prom.Desc
	failures   *prom.Desc
	exceeded   *prom.Desc
	totalTime  *prom.Desc
	minTime    *prom.Desc
	maxTime    *prom.Desc
	lastTime   *prom.Desc
	avgTime    *prom.Desc
	threshold  *prom.Desc
}

func NewCollector(registry *stats.Registry) *Collector {
	desc := func(name, help string) *prom.Desc {
		return prom.NewDesc(prom.BuildFQName(namespace, "", name), help, []string{"key"}, nil)
	}
	return &Collector{
		registry:   registry,
		executions: desc("executions_total", "Completed executions per key."),
		failures:   desc("failures_total", "Failed executions per key."),
		exceeded:   desc("threshold_exceeded_total", "Executions at or above the key threshold."),
		totalTime:  desc("time_ms_total", "Sum of execution times in milliseconds."),
		minTime:    desc("min_time_ms", "Fastest execution in milliseconds."),
		maxTime:    desc("max_time_ms", "Slowest execution in milliseconds."),
		lastTime:   desc("last_time_ms", "Most recent execution time in milliseconds."),
		avgTime:    desc("average_time_ms", "Integer mean execution time in milliseconds."),
		threshold:  desc("threshold_ms", "Slow threshold fixed by the first execution."),
	}
}

func (c *Collector) Describe(ch chan<- *prom.Desc) {
	ch <- c.executions
	ch <- c.failures
	ch <- c.exceeded
	ch <- c.totalTime
	ch <- c.minTime
	ch <- c.maxTime
	ch <- c.lastTime
	ch <- c.avgTime
	ch <- c.threshold
}

func (c *Collector) Collect(ch chan<- prom.Metric) {
	if c.registry == nil {
		return
	}
	for _, s := range c.registry.All() {
		counter := func(d *prom.Desc, v uint64) {
			ch <- prom.MustNewConstMetric(d, prom.CounterValue, float64(v), s.Key)
		}
		gauge := func(d *prom.Desc, v uint64) {
			ch <- prom.MustNewConstMetric(d, prom.GaugeValue, float64(v), s.Key)
		}
		counter(c.executions, s.TotalExecutions)
		counter(c.failures, s.TotalFailures)
		counter(c.exceeded, s.ExceededThresholdCount)
		counter(c.totalTime, s.TotalTimeMs)
		gauge(c.minTime, s.MinTimeMs)
		gauge(c.maxTime, s.MaxTimeMs)
		gauge(c.lastTime, s.LastExecutionMs)
		gauge(c.avgTime, s.AverageTimeMs())
		gauge(c.threshold, s.ThresholdMs)
	}
}

// NewRegistry returns a Prometheus registry with the statistics collector
// and the Go runtime collectors registered.
func NewRegistry(registry *stats.Registry) (*prom.Registry, error) {
	reg := prom.NewRegistry()
	if err := reg.Register(NewCollector(registry)); err != nil {
		return nil, err
	}
	if err := reg.Register(prom.NewGoCollector()); err != nil {
		return nil, err
	}
	return reg, nil
}

// HTTPHandler returns an http.Handler that serves Prometheus metrics for the provided registry.
func HTTPHandler(reg *prom.Registry) http.Handler {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
