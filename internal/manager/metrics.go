package manager

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Diagnostic gauges/counters mirroring the manager's registries. spec.md
// §1 keeps "the manager's bookkeeping counters" out of core as a
// re-specified contract, but a manager daemon with nothing to scrape
// would be out of step with the rest of the corpus — grounded on
// cuemby-warren/pkg/metrics's collector-over-a-registry pattern.
var (
	UsersTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dssraid_manager_users_total",
		Help: "Total number of registered users",
	})

	NodesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dssraid_manager_nodes_total",
			Help: "Total number of registered storage nodes by state",
		},
		[]string{"state"},
	)

	DSSTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dssraid_manager_dss_total",
		Help: "Total number of configured DSSs",
	})

	FilesTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dssraid_manager_files_total",
		Help: "Total number of committed file records across all DSSs",
	})

	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dssraid_manager_requests_total",
			Help: "Total manager requests by verb and outcome",
		},
		[]string{"verb", "outcome"},
	)

	TwoPhaseTimeoutsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dssraid_manager_two_phase_timeouts_total",
			Help: "Total phase-1 transactions whose phase-2 follow-up never arrived",
		},
		[]string{"verb"},
	)
)

// MustRegister registers every manager gauge/counter against reg. Call
// once at startup with a fresh prometheus.Registry.
func MustRegister(reg *prometheus.Registry) {
	reg.MustRegister(UsersTotal, NodesTotal, DSSTotal, FilesTotal, RequestsTotal, TwoPhaseTimeoutsTotal)
}

// Collector periodically samples a Registry's Counts into the gauges
// above, the same poll-and-set shape cuemby-warren's metrics.Collector
// uses to sample its manager.Manager.
type Collector struct {
	registry *Registry
	interval time.Duration
	stopCh   chan struct{}
}

// NewCollector returns a Collector sampling registry every interval.
func NewCollector(registry *Registry, interval time.Duration) *Collector {
	return &Collector{registry: registry, interval: interval, stopCh: make(chan struct{})}
}

// Start begins sampling in a background goroutine.
func (c *Collector) Start() {
	ticker := time.NewTicker(c.interval)
	go func() {
		c.sample()
		for {
			select {
			case <-ticker.C:
				c.sample()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop halts sampling.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) sample() {
	counts := c.registry.Snapshot()
	UsersTotal.Set(float64(counts.Users))
	DSSTotal.Set(float64(counts.DSSs))
	FilesTotal.Set(float64(counts.Files))
	NodesTotal.WithLabelValues("free").Set(float64(counts.Nodes - counts.NodesInDSS))
	NodesTotal.WithLabelValues("in_dss").Set(float64(counts.NodesInDSS))
}
