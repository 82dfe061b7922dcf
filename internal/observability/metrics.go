package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SimCollector bundles Prometheus metrics for the simulation engine and its
// control plane.
type SimCollector struct {
	gatherer prometheus.Gatherer

	ControlRequests *prometheus.CounterVec
	WorkerTicks     prometheus.Counter

	SimNodes   prometheus.Gauge
	SimLinks   prometheus.Gauge
	SimPaused  prometheus.Gauge
	SimWorkers prometheus.Gauge
}

// NewSimCollector registers simulation metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
// Re-registration of identical collectors is tolerated so multiple engines in
// one process can share a registry.
func NewSimCollector(reg prometheus.Registerer) (*SimCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sim_control_requests_total",
		Help: "Total number of handled control-plane requests, labeled by command.",
	}, []string{"cmd"})
	requests, err := registerCounterVec(reg, requests, "sim_control_requests_total")
	if err != nil {
		return nil, err
	}

	ticks, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sim_worker_ticks_total",
		Help: "Total number of activity ticks counted across all node workers.",
	}), "sim_worker_ticks_total")
	if err != nil {
		return nil, err
	}

	nodes, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_nodes",
		Help: "Number of nodes in the simulated topology.",
	}), "sim_nodes")
	if err != nil {
		return nil, err
	}
	links, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_active_links",
		Help: "Number of links currently in the active edge set.",
	}), "sim_active_links")
	if err != nil {
		return nil, err
	}
	paused, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_paused",
		Help: "1 while the simulation is paused, 0 otherwise.",
	}), "sim_paused")
	if err != nil {
		return nil, err
	}
	workers, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_workers",
		Help: "Number of live node workers.",
	}), "sim_workers")
	if err != nil {
		return nil, err
	}

	return &SimCollector{
		gatherer:        gatherer,
		ControlRequests: requests,
		WorkerTicks:     ticks,
		SimNodes:        nodes,
		SimLinks:        links,
		SimPaused:       paused,
		SimWorkers:      workers,
	}, nil
}

// ObserveControlRequest counts one control-plane request for the given
// command label.
func (c *SimCollector) ObserveControlRequest(cmd string) {
	if c == nil || c.ControlRequests == nil {
		return
	}
	c.ControlRequests.WithLabelValues(cmd).Inc()
}

// ObserveWorkerTick counts one worker activity tick.
func (c *SimCollector) ObserveWorkerTick() {
	if c == nil || c.WorkerTicks == nil {
		return
	}
	c.WorkerTicks.Inc()
}

// SetTopologyCounts updates the node and active-link gauges.
func (c *SimCollector) SetTopologyCounts(nodes, links int) {
	if c == nil {
		return
	}
	if c.SimNodes != nil {
		c.SimNodes.Set(float64(nodes))
	}
	if c.SimLinks != nil {
		c.SimLinks.Set(float64(links))
	}
}

// SetPaused flips the paused gauge.
func (c *SimCollector) SetPaused(paused bool) {
	if c == nil || c.SimPaused == nil {
		return
	}
	if paused {
		c.SimPaused.Set(1)
	} else {
		c.SimPaused.Set(0)
	}
}

// SetWorkerCount updates the live worker gauge.
func (c *SimCollector) SetWorkerCount(n int) {
	if c == nil || c.SimWorkers == nil {
		return
	}
	c.SimWorkers.Set(float64(n))
}

// Handler exposes a ready-to-use /metrics handler.
func (c *SimCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
