package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PoolStats is the snapshot a native connection pool reports. *pgxpool.Stat
// satisfies it.
type PoolStats interface {
	MaxConns() int32
	TotalConns() int32
	IdleConns() int32
	AcquiredConns() int32
	AcquireCount() int64
	EmptyAcquireCount() int64
	AcquireDuration() time.Duration
}

type poolStatsCollector struct {
	stat func() PoolStats

	maxConns        *prometheus.Desc
	totalConns      *prometheus.Desc
	idleConns       *prometheus.Desc
	acquiredConns   *prometheus.Desc
	acquireCount    *prometheus.Desc
	emptyAcquire    *prometheus.Desc
	acquireDuration *prometheus.Desc
}

func newPoolStatsCollector(stat func() PoolStats, dbName string) *poolStatsCollector {
	labels := prometheus.Labels{"db_name": dbName}
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName("pgxpool", "", name), help, nil, labels)
	}
	return &poolStatsCollector{
		stat:            stat,
		maxConns:        desc("max_conns", "Maximum size of the pool."),
		totalConns:      desc("total_conns", "Connections currently in the pool."),
		idleConns:       desc("idle_conns", "Idle connections in the pool."),
		acquiredConns:   desc("acquired_conns", "Connections currently checked out."),
		acquireCount:    desc("acquire_count_total", "Successful acquires from the pool."),
		emptyAcquire:    desc("empty_acquire_count_total", "Acquires that waited because the pool was empty."),
		acquireDuration: desc("acquire_duration_seconds_total", "Time spent in successful acquires."),
	}
}

func (c *poolStatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.maxConns
	ch <- c.totalConns
	ch <- c.idleConns
	ch <- c.acquiredConns
	ch <- c.acquireCount
	ch <- c.emptyAcquire
	ch <- c.acquireDuration
}

func (c *poolStatsCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.stat()
	ch <- prometheus.MustNewConstMetric(c.maxConns, prometheus.GaugeValue, float64(s.MaxConns()))
	ch <- prometheus.MustNewConstMetric(c.totalConns, prometheus.GaugeValue, float64(s.TotalConns()))
	ch <- prometheus.MustNewConstMetric(c.idleConns, prometheus.GaugeValue, float64(s.IdleConns()))
	ch <- prometheus.MustNewConstMetric(c.acquiredConns, prometheus.GaugeValue, float64(s.AcquiredConns()))
	ch <- prometheus.MustNewConstMetric(c.acquireCount, prometheus.CounterValue, float64(s.AcquireCount()))
	ch <- prometheus.MustNewConstMetric(c.emptyAcquire, prometheus.CounterValue, float64(s.EmptyAcquireCount()))
	ch <- prometheus.MustNewConstMetric(c.acquireDuration, prometheus.CounterValue, s.AcquireDuration().Seconds())
}
