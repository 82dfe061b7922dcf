package sim

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/netfabrik/netsim/internal/logging"
	"github.com/netfabrik/netsim/internal/observability"
	"github.com/netfabrik/netsim/topology"
)

// Defaults for the engine configuration: workers count activity every 50ms
// and re-check the pause flag every 100ms while paused.
const (
	DefaultControlAddr  = "127.0.0.1:54024"
	DefaultTickInterval = 50 * time.Millisecond
	DefaultPausePoll    = 100 * time.Millisecond
	DefaultReadTimeout  = 5 * time.Second
)

var (
	ErrAlreadyStarted = errors.New("engine already started")
	ErrEngineStopped  = errors.New("engine stopped")
)

// State is the engine lifecycle state.
type State int32

const (
	StateInit State = iota
	StateRunning
	StatePaused
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Config controls engine timing and the control-plane listener.
type Config struct {
	// ControlAddr is the TCP address of the control plane. An empty string
	// selects the default loopback address.
	ControlAddr string

	// TickInterval is the worker activity cadence; PausePollInterval is how
	// often a paused worker re-checks its pause flag.
	TickInterval      time.Duration
	PausePollInterval time.Duration

	// ReadTimeout bounds the single read performed per control connection so
	// a silent client cannot hold a handler indefinitely.
	ReadTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.ControlAddr == "" {
		c.ControlAddr = DefaultControlAddr
	}
	if c.TickInterval <= 0 {
		c.TickInterval = DefaultTickInterval
	}
	if c.PausePollInterval <= 0 {
		c.PausePollInterval = DefaultPausePoll
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	return c
}

// Option customises engine construction.
type Option func(*Engine)

// WithLogger attaches a structured logger. The default drops all logs.
func WithLogger(log logging.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithMetrics attaches a Prometheus collector that tracks worker ticks,
// control requests, and topology gauges.
func WithMetrics(collector *observability.SimCollector) Option {
	return func(e *Engine) { e.metrics = collector }
}

// Engine owns one simulation run: the topology reference, the worker set, the
// shared stats store, the control-plane server, and the lifecycle state.
// It is an explicit instance passed by reference to whoever owns the
// simulation's lifecycle; nothing here is process-wide.
type Engine struct {
	mu sync.Mutex

	topo    *topology.Graph
	cfg     Config
	log     logging.Logger
	metrics *observability.SimCollector

	state   State
	workers map[string]*nodeWorker
	stats   *StatsStore
	ctl     *controlServer
}

// NewEngine constructs an engine that owns the given topology for the
// lifetime of the run.
func NewEngine(topo *topology.Graph, cfg Config, opts ...Option) *Engine {
	e := &Engine{
		topo:    topo,
		cfg:     cfg.withDefaults(),
		log:     logging.Noop(),
		state:   StateInit,
		workers: make(map[string]*nodeWorker),
		stats:   NewStatsStore(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start brings the engine to RUNNING: it starts the control-plane listener
// (best effort; a bind failure degrades remote control but the simulation
// proceeds) and spawns exactly one worker per current topology node.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case StateStopped:
		return ErrEngineStopped
	case StateRunning, StatePaused:
		return ErrAlreadyStarted
	}

	ctl := newControlServer(e, e.cfg.ReadTimeout, e.log, e.metrics)
	if err := ctl.start(e.cfg.ControlAddr); err != nil {
		e.log.Warn(context.Background(), "control plane unavailable, remote control disabled",
			logging.String("addr", e.cfg.ControlAddr),
			logging.String("error", err.Error()))
	} else {
		e.ctl = ctl
	}

	for _, node := range e.topo.Nodes() {
		w := newNodeWorker(node, e.topo, e.stats, e.cfg.TickInterval, e.cfg.PausePollInterval, e.log)
		if e.metrics != nil {
			w.onTick = e.metrics.ObserveWorkerTick
		}
		e.workers[node] = w
		go w.run()
	}

	e.state = StateRunning
	e.metrics.SetTopologyCounts(e.topo.NodeCount(), e.topo.EdgeCount())
	e.metrics.SetWorkerCount(len(e.workers))
	e.metrics.SetPaused(false)

	e.log.Info(context.Background(), "simulation started",
		logging.Int("nodes", len(e.workers)),
		logging.Int("links", e.topo.EdgeCount()))
	return nil
}

// Pause suspends counting on every live worker. Idempotent: pausing an
// already paused engine has no further effect.
func (e *Engine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case StateStopped:
		return ErrEngineStopped
	case StateRunning:
	default:
		return nil
	}

	for _, w := range e.workers {
		w.pause()
	}
	e.state = StatePaused
	e.metrics.SetPaused(true)
	e.log.Info(context.Background(), "simulation paused")
	return nil
}

// Resume clears the pause flag on every live worker. Idempotent: resuming a
// running engine has no further effect.
func (e *Engine) Resume() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case StateStopped:
		return ErrEngineStopped
	case StatePaused:
	default:
		return nil
	}

	for _, w := range e.workers {
		w.resume()
	}
	e.state = StateRunning
	e.metrics.SetPaused(false)
	e.log.Info(context.Background(), "simulation resumed")
	return nil
}

// InjectLinkFailure marks the edge's attributes with the down indicator for
// diagnostics and removes it from the active edge set, so subsequent neighbor
// lookups by either endpoint exclude the peer. No effect if the edge does not
// exist.
func (e *Engine) InjectLinkFailure(u, v string) {
	if err := e.topo.RemoveEdge(u, v); err != nil {
		return
	}
	e.metrics.SetTopologyCounts(e.topo.NodeCount(), e.topo.EdgeCount())
	e.log.Info(context.Background(), "link failure injected",
		logging.String("u", u), logging.String("v", v))
}

// RestoreLink re-adds a previously failed (or missing) edge. Nil attrs select
// the default bandwidth with an unspecified link type. When the edge already
// exists, supplied attributes refresh it in place; a nil-attrs restore leaves
// it untouched.
func (e *Engine) RestoreLink(u, v string, attrs *topology.LinkAttrs) {
	if e.topo.HasEdge(u, v) {
		if attrs != nil {
			_ = e.topo.SetEdgeAttrs(u, v, attrs)
		}
		return
	}
	if attrs == nil {
		attrs = &topology.LinkAttrs{BandwidthMbps: topology.DefaultBandwidthMbps}
	}
	if err := e.topo.AddEdge(u, v, attrs); err != nil {
		e.log.Warn(context.Background(), "link restore failed",
			logging.String("u", u), logging.String("v", v),
			logging.String("error", err.Error()))
		return
	}
	e.metrics.SetTopologyCounts(e.topo.NodeCount(), e.topo.EdgeCount())
	e.log.Info(context.Background(), "link restored",
		logging.String("u", u), logging.String("v", v))
}

// Stop signals every worker's stop flag, waits for the loops to drain, and
// closes the control listener. Terminal: no lifecycle call is valid
// afterwards. Stopping twice is harmless.
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.state == StateStopped {
		e.mu.Unlock()
		return
	}

	for _, w := range e.workers {
		w.stop()
	}
	workers := make([]*nodeWorker, 0, len(e.workers))
	for _, w := range e.workers {
		workers = append(workers, w)
	}
	ctl := e.ctl
	e.ctl = nil
	e.state = StateStopped
	e.mu.Unlock()

	// Each worker observes its stop flag within one sleep interval.
	for _, w := range workers {
		<-w.done
	}
	if ctl != nil {
		ctl.close()
	}

	e.metrics.SetWorkerCount(0)
	e.log.Info(context.Background(), "simulation stopped")
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Nodes returns the IDs of all nodes with a live worker, sorted. Before Start
// it is empty.
func (e *Engine) Nodes() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]string, 0, len(e.workers))
	for node := range e.workers {
		out = append(out, node)
	}
	sort.Strings(out)
	return out
}

// Stats returns a point-in-time snapshot of the shared counter store.
func (e *Engine) Stats() map[string]Counters {
	return e.stats.Snapshot()
}

// Links returns a snapshot of the active edge set.
func (e *Engine) Links() []topology.EdgeView {
	return e.topo.Edges()
}

// ControlAddr returns the bound control-plane address, or "" when remote
// control is unavailable (bind failure or not started).
func (e *Engine) ControlAddr() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ctl.addr()
}
