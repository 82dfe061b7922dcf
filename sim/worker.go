package sim

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/netfabrik/netsim/internal/logging"
	"github.com/netfabrik/netsim/topology"
)

// nodeWorker simulates periodic traffic activity for a single topology node.
// Pause and stop are cooperative flags: the loop observes them on its next
// iteration, so both take effect within one sleep interval.
type nodeWorker struct {
	node  string
	topo  *topology.Graph
	stats *StatsStore
	log   logging.Logger

	tick      time.Duration
	pausePoll time.Duration

	paused  atomic.Bool
	stopped atomic.Bool
	done    chan struct{}

	// onTick, when set, is invoked once per counted tick. Used to drive the
	// worker tick metric without the worker knowing about collectors.
	onTick func()
}

func newNodeWorker(node string, topo *topology.Graph, stats *StatsStore, tick, pausePoll time.Duration, log logging.Logger) *nodeWorker {
	return &nodeWorker{
		node:      node,
		topo:      topo,
		stats:     stats,
		log:       log.With(logging.String("node", node)),
		tick:      tick,
		pausePoll: pausePoll,
		done:      make(chan struct{}),
	}
}

// run is the worker loop. It performs no blocking I/O besides its own sleeps
// and only ever mutates its own node's stats record.
func (w *nodeWorker) run() {
	defer close(w.done)

	w.log.Debug(context.Background(), "node worker started")
	for !w.stopped.Load() {
		if w.paused.Load() {
			time.Sleep(w.pausePoll)
			continue
		}

		neighbors := w.topo.Neighbors(w.node)
		w.stats.RecordTick(w.node, len(neighbors))
		if w.onTick != nil {
			w.onTick()
		}

		time.Sleep(w.tick)
	}
	w.log.Debug(context.Background(), "node worker stopped")
}

func (w *nodeWorker) pause()  { w.paused.Store(true) }
func (w *nodeWorker) resume() { w.paused.Store(false) }
func (w *nodeWorker) stop()   { w.stopped.Store(true) }
