package cache

import "github.com/prometheus/client_golang/prometheus"

// StatsCollector exports a Reporter's counters in the Prometheus format.
type StatsCollector struct {
	reporter Reporter

	hits    *prometheus.Desc
	misses  *prometheus.Desc
	sets    *prometheus.Desc
	deletes *prometheus.Desc
	errors  *prometheus.Desc
}

var _ prometheus.Collector = (*StatsCollector)(nil)

// NewStatsCollector creates a collector reading r on every scrape.
func NewStatsCollector(r Reporter) *StatsCollector {
	return &StatsCollector{
		reporter: r,
		hits:     prometheus.NewDesc("task_cache_hits_total", "Task listing cache hits", nil, nil),
		misses:   prometheus.NewDesc("task_cache_misses_total", "Task listing cache misses", nil, nil),
		sets:     prometheus.NewDesc("task_cache_sets_total", "Task listing cache writes", nil, nil),
		deletes:  prometheus.NewDesc("task_cache_invalidations_total", "Task listing cache invalidations", nil, nil),
		errors:   prometheus.NewDesc("task_cache_errors_total", "Task listing cache errors", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *StatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.hits
	ch <- c.misses
	ch <- c.sets
	ch <- c.deletes
	ch <- c.errors
}

// Collect implements prometheus.Collector.
func (c *StatsCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.reporter.Stats()
	ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(s.Hits))
	ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(s.Misses))
	ch <- prometheus.MustNewConstMetric(c.sets, prometheus.CounterValue, float64(s.Sets))
	ch <- prometheus.MustNewConstMetric(c.deletes, prometheus.CounterValue, float64(s.Deletes))
	ch <- prometheus.MustNewConstMetric(c.errors, prometheus.CounterValue, float64(s.Errors))
}
