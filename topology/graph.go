package topology

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrNodeExists   = errors.New("node already exists")
	ErrNodeNotFound = errors.New("node not found")
	ErrEmptyNodeID  = errors.New("empty node ID")
	ErrEdgeExists   = errors.New("edge already exists")
	ErrEdgeNotFound = errors.New("edge not found")
	ErrSelfLoop     = errors.New("edge endpoints must differ")
)

// DefaultBandwidthMbps is assumed for links whose capacity is unknown.
const DefaultBandwidthMbps = 1000

// NodeAttrs carries per-device metadata attached to a graph node.
type NodeAttrs struct {
	DeviceType string `json:"device_type" yaml:"device_type"`
	Layer      string `json:"layer" yaml:"layer"`
	Label      string `json:"label" yaml:"label"`
}

// LinkAttrs carries per-link metadata. Down marks a link that was taken out
// of service by fault injection; a Down-marked record only survives on the
// diagnostic side of the graph, never in the active edge set.
type LinkAttrs struct {
	BandwidthMbps int    `json:"bandwidth_mbps" yaml:"bandwidth_mbps"`
	LinkType      string `json:"link_type,omitempty" yaml:"link_type,omitempty"`
	Subnet        string `json:"subnet,omitempty" yaml:"subnet,omitempty"`
	Down          bool   `json:"down,omitempty" yaml:"down,omitempty"`
}

// EdgeView is a read-only snapshot of one edge and its attributes.
type EdgeView struct {
	U string `json:"u"`
	V string `json:"v"`
	LinkAttrs
}

// pairKey identifies an edge by its unordered endpoint pair.
type pairKey struct {
	a, b string
}

func newPairKey(u, v string) pairKey {
	if u > v {
		u, v = v, u
	}
	return pairKey{a: u, b: v}
}

// Graph is a mutable network topology shared between the simulation engine
// and every node worker. All access goes through these methods: neighbor
// queries take the read lock, while fault injection and restoration take the
// write lock, so concurrent reads never observe a half-applied edge change.
type Graph struct {
	mu sync.RWMutex

	nodes map[string]*NodeAttrs
	edges map[pairKey]*LinkAttrs

	// downed retains the last-known attributes of removed edges, with the
	// Down marker set, for diagnostics. These records are not part of the
	// active edge set and are never returned by Neighbors or Edges.
	downed map[pairKey]*LinkAttrs
}

// NewGraph creates an empty topology graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:  make(map[string]*NodeAttrs),
		edges:  make(map[pairKey]*LinkAttrs),
		downed: make(map[pairKey]*LinkAttrs),
	}
}

//
// ---------- Nodes ----------
//

// AddNode inserts a device node. Nil attrs are allowed and default to empty
// metadata.
func (g *Graph) AddNode(id string, attrs *NodeAttrs) error {
	if id == "" {
		return fmt.Errorf("%w", ErrEmptyNodeID)
	}
	if attrs == nil {
		attrs = &NodeAttrs{}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.nodes[id]; exists {
		return fmt.Errorf("%w: %q", ErrNodeExists, id)
	}
	g.nodes[id] = attrs
	return nil
}

// Node returns a copy of the node's attributes, or false if the node is
// unknown.
func (g *Graph) Node(id string) (NodeAttrs, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	attrs, ok := g.nodes[id]
	if !ok {
		return NodeAttrs{}, false
	}
	return *attrs, true
}

// HasNode reports whether the node exists.
func (g *Graph) HasNode(id string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.nodes[id]
	return ok
}

// Nodes returns all node IDs in sorted order.
func (g *Graph) Nodes() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// SetLayer records the hierarchical layer assigned to a node.
func (g *Graph) SetLayer(id, layer string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	attrs, ok := g.nodes[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNodeNotFound, id)
	}
	attrs.Layer = layer
	return nil
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

//
// ---------- Edges ----------
//

// AddEdge inserts an edge between two existing nodes. Nil attrs default to
// DefaultBandwidthMbps with an unspecified link type. Adding an edge clears
// any diagnostic down-marker held for the pair.
func (g *Graph) AddEdge(u, v string, attrs *LinkAttrs) error {
	if u == "" || v == "" {
		return fmt.Errorf("%w", ErrEmptyNodeID)
	}
	if u == v {
		return fmt.Errorf("%w: %q", ErrSelfLoop, u)
	}
	if attrs == nil {
		attrs = &LinkAttrs{BandwidthMbps: DefaultBandwidthMbps}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.nodes[u]; !ok {
		return fmt.Errorf("%w: %q", ErrNodeNotFound, u)
	}
	if _, ok := g.nodes[v]; !ok {
		return fmt.Errorf("%w: %q", ErrNodeNotFound, v)
	}

	key := newPairKey(u, v)
	if _, exists := g.edges[key]; exists {
		return fmt.Errorf("%w: %s<->%s", ErrEdgeExists, u, v)
	}

	cp := *attrs
	cp.Down = false
	g.edges[key] = &cp
	delete(g.downed, key)
	return nil
}

// RemoveEdge removes an edge from the active edge set, retaining its
// last-known attributes with the Down marker set for diagnostics.
func (g *Graph) RemoveEdge(u, v string) error {
	key := newPairKey(u, v)

	g.mu.Lock()
	defer g.mu.Unlock()

	attrs, exists := g.edges[key]
	if !exists {
		return fmt.Errorf("%w: %s<->%s", ErrEdgeNotFound, u, v)
	}

	attrs.Down = true
	g.downed[key] = attrs
	delete(g.edges, key)
	return nil
}

// Edge returns a copy of the active edge's attributes, or false if the pair
// is not currently connected.
func (g *Graph) Edge(u, v string) (LinkAttrs, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	attrs, ok := g.edges[newPairKey(u, v)]
	if !ok {
		return LinkAttrs{}, false
	}
	return *attrs, true
}

// HasEdge reports whether the pair is connected by an active edge.
func (g *Graph) HasEdge(u, v string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.edges[newPairKey(u, v)]
	return ok
}

// SetEdgeAttrs overwrites the attributes of an existing active edge.
func (g *Graph) SetEdgeAttrs(u, v string, attrs *LinkAttrs) error {
	if attrs == nil {
		return fmt.Errorf("%w: nil attrs", ErrEdgeNotFound)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	key := newPairKey(u, v)
	if _, exists := g.edges[key]; !exists {
		return fmt.Errorf("%w: %s<->%s", ErrEdgeNotFound, u, v)
	}
	cp := *attrs
	cp.Down = false
	g.edges[key] = &cp
	return nil
}

// DownedEdge returns the retained attributes of a removed edge, or false if
// the pair has no diagnostic record.
func (g *Graph) DownedEdge(u, v string) (LinkAttrs, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	attrs, ok := g.downed[newPairKey(u, v)]
	if !ok {
		return LinkAttrs{}, false
	}
	return *attrs, true
}

// Edges returns a snapshot of all active edges, sorted by endpoint pair.
func (g *Graph) Edges() []EdgeView {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]EdgeView, 0, len(g.edges))
	for key, attrs := range g.edges {
		out = append(out, EdgeView{U: key.a, V: key.b, LinkAttrs: *attrs})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].U != out[j].U {
			return out[i].U < out[j].U
		}
		return out[i].V < out[j].V
	})
	return out
}

// EdgeCount returns the number of active edges.
func (g *Graph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.edges)
}

//
// ---------- Traversal ----------
//

// Neighbors returns the IDs of nodes reachable from id via currently active
// edges, in sorted order. Removed edges are excluded regardless of any
// diagnostic down-marker held for the pair.
func (g *Graph) Neighbors(id string) []string {
	if id == "" {
		return nil
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []string
	for key := range g.edges {
		switch id {
		case key.a:
			out = append(out, key.b)
		case key.b:
			out = append(out, key.a)
		}
	}
	sort.Strings(out)
	return out
}

// Degree returns the number of active edges attached to the node.
func (g *Graph) Degree(id string) int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	n := 0
	for key := range g.edges {
		if key.a == id || key.b == id {
			n++
		}
	}
	return n
}
