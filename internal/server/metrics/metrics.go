// Package metrics exposes the server's Prometheus instruments.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what the gRPC layer reports into.
type Recorder interface {
	RecordRPC(method, code string, d time.Duration)
	RecordRateLimited(method string)
	WatcherAdded()
	WatcherRemoved()
	RecordSnapshotPush(users int)
}

type Collector struct {
	rpcTotal      *prometheus.CounterVec
	rpcLatency    *prometheus.HistogramVec
	rateLimited   *prometheus.CounterVec
	watchers      prometheus.Gauge
	snapshots     prometheus.Counter
	snapshotUsers prometheus.Histogram
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		rpcTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "resdex_rpc_total",
			Help: "Handled RPCs by method and status code.",
		}, []string{"method", "code"}),
		rpcLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "resdex_rpc_latency_seconds",
			Help:    "RPC handling latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "resdex_rpc_rate_limited_total",
			Help: "RPCs rejected by the per-peer limiter.",
		}, []string{"method"}),
		watchers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "resdex_snapshot_watchers",
			Help: "Open WatchUsers streams.",
		}),
		snapshots: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "resdex_snapshot_pushes_total",
			Help: "Snapshots sent to watchers.",
		}),
		snapshotUsers: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "resdex_snapshot_users",
			Help:    "Users per pushed snapshot.",
			Buckets: []float64{0, 1, 5, 10, 25, 50},
		}),
	}

	reg.MustRegister(
		c.rpcTotal,
		c.rpcLatency,
		c.rateLimited,
		c.watchers,
		c.snapshots,
		c.snapshotUsers,
	)

	return c
}

func (c *Collector) RecordRPC(method, code string, d time.Duration) {
	c.rpcTotal.WithLabelValues(method, code).Inc()
	c.rpcLatency.WithLabelValues(method).Observe(d.Seconds())
}

func (c *Collector) RecordRateLimited(method string) {
	c.rateLimited.WithLabelValues(method).Inc()
}

func (c *Collector) WatcherAdded()   { c.watchers.Inc() }
func (c *Collector) WatcherRemoved() { c.watchers.Dec() }

func (c *Collector) RecordSnapshotPush(users int) {
	c.snapshots.Inc()
	c.snapshotUsers.Observe(float64(users))
}

// Handler serves the scrape endpoint for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordRPC(string, string, time.Duration) {}
func (Nop) RecordRateLimited(string)                {}
func (Nop) WatcherAdded()                           {}
func (Nop) WatcherRemoved()                         {}
func (Nop) RecordSnapshotPush(int)                  {}
