package sim

import "sync"

// Counters accumulates the simulated activity of one node.
type Counters struct {
	Ticks    uint64 `json:"ticks"`
	Sent     uint64 `json:"sent"`
	Received uint64 `json:"received"`
}

// StatsStore is the shared per-node counter store. Each worker only ever
// writes its own node's record, but entries are created lazily on first
// update, so the map itself must be guarded against concurrent first-touch
// from different workers and concurrent reads from the control plane.
type StatsStore struct {
	mu       sync.Mutex
	counters map[string]*Counters
}

// NewStatsStore creates an empty stats store.
func NewStatsStore() *StatsStore {
	return &StatsStore{counters: make(map[string]*Counters)}
}

// RecordTick registers one activity tick for the node: the tick count goes up
// by one and sent/received each grow by the node's current neighbor count.
func (s *StatsStore) RecordTick(node string, neighborCount int) {
	if node == "" {
		return
	}
	if neighborCount < 0 {
		neighborCount = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counters[node]
	if !ok {
		c = &Counters{}
		s.counters[node] = c
	}
	c.Ticks++
	c.Sent += uint64(neighborCount)
	c.Received += uint64(neighborCount)
}

// Get returns a copy of one node's counters.
func (s *StatsStore) Get(node string) (Counters, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counters[node]
	if !ok {
		return Counters{}, false
	}
	return *c, true
}

// Snapshot returns a point-in-time copy of every node's counters.
func (s *StatsStore) Snapshot() map[string]Counters {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]Counters, len(s.counters))
	for node, c := range s.counters {
		out[node] = *c
	}
	return out
}
