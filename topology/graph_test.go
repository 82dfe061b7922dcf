package topology

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
)

func newTriangleGraph(t *testing.T) *Graph {
	t.Helper()

	g := NewGraph()
	for _, id := range []string{"A", "B", "C"} {
		if err := g.AddNode(id, &NodeAttrs{DeviceType: "router", Label: id}); err != nil {
			t.Fatalf("AddNode(%s): %v", id, err)
		}
	}
	if err := g.AddEdge("A", "B", &LinkAttrs{BandwidthMbps: 1000, LinkType: "subnet"}); err != nil {
		t.Fatalf("AddEdge(A,B): %v", err)
	}
	if err := g.AddEdge("B", "C", &LinkAttrs{BandwidthMbps: 1000, LinkType: "subnet"}); err != nil {
		t.Fatalf("AddEdge(B,C): %v", err)
	}
	return g
}

func TestAddNodeRejectsDuplicates(t *testing.T) {
	g := NewGraph()
	if err := g.AddNode("A", nil); err != nil {
		t.Fatalf("AddNode(A): %v", err)
	}
	if err := g.AddNode("A", nil); !errors.Is(err, ErrNodeExists) {
		t.Fatalf("expected ErrNodeExists, got %v", err)
	}
	if err := g.AddNode("", nil); !errors.Is(err, ErrEmptyNodeID) {
		t.Fatalf("expected ErrEmptyNodeID, got %v", err)
	}
}

func TestEdgeKeyIsUnordered(t *testing.T) {
	g := newTriangleGraph(t)

	if !g.HasEdge("B", "A") {
		t.Fatalf("expected edge B<->A to exist regardless of endpoint order")
	}
	attrs, ok := g.Edge("B", "A")
	if !ok {
		t.Fatalf("Edge(B,A) not found")
	}
	if attrs.BandwidthMbps != 1000 {
		t.Fatalf("BandwidthMbps = %d, want 1000", attrs.BandwidthMbps)
	}

	if err := g.AddEdge("B", "A", nil); !errors.Is(err, ErrEdgeExists) {
		t.Fatalf("expected ErrEdgeExists for reversed duplicate, got %v", err)
	}
}

func TestAddEdgeValidation(t *testing.T) {
	g := NewGraph()
	if err := g.AddNode("A", nil); err != nil {
		t.Fatalf("AddNode(A): %v", err)
	}

	if err := g.AddEdge("A", "A", nil); !errors.Is(err, ErrSelfLoop) {
		t.Fatalf("expected ErrSelfLoop, got %v", err)
	}
	if err := g.AddEdge("A", "missing", nil); !errors.Is(err, ErrNodeNotFound) {
		t.Fatalf("expected ErrNodeNotFound, got %v", err)
	}
}

func TestNeighborsReflectActiveEdgesOnly(t *testing.T) {
	g := newTriangleGraph(t)

	if got := g.Neighbors("B"); !reflect.DeepEqual(got, []string{"A", "C"}) {
		t.Fatalf("Neighbors(B) = %v, want [A C]", got)
	}

	if err := g.RemoveEdge("A", "B"); err != nil {
		t.Fatalf("RemoveEdge(A,B): %v", err)
	}

	if got := g.Neighbors("A"); len(got) != 0 {
		t.Fatalf("Neighbors(A) after removal = %v, want empty", got)
	}
	if got := g.Neighbors("B"); !reflect.DeepEqual(got, []string{"C"}) {
		t.Fatalf("Neighbors(B) after removal = %v, want [C]", got)
	}
}

func TestRemoveEdgeRetainsDownedRecord(t *testing.T) {
	g := newTriangleGraph(t)

	if err := g.RemoveEdge("A", "B"); err != nil {
		t.Fatalf("RemoveEdge(A,B): %v", err)
	}

	// The diagnostic record survives with the down marker, but the edge is
	// gone from every active view.
	downed, ok := g.DownedEdge("A", "B")
	if !ok {
		t.Fatalf("expected downed record for A<->B")
	}
	if !downed.Down {
		t.Fatalf("downed record should carry the down marker")
	}
	if downed.LinkType != "subnet" {
		t.Fatalf("downed record LinkType = %q, want subnet", downed.LinkType)
	}
	if g.HasEdge("A", "B") {
		t.Fatalf("removed edge must not remain in the active edge set")
	}
	for _, e := range g.Edges() {
		if e.U == "A" && e.V == "B" {
			t.Fatalf("removed edge must not be listed by Edges()")
		}
	}

	if err := g.RemoveEdge("A", "B"); !errors.Is(err, ErrEdgeNotFound) {
		t.Fatalf("expected ErrEdgeNotFound on second removal, got %v", err)
	}
}

func TestReAddClearsDownMarker(t *testing.T) {
	g := newTriangleGraph(t)

	if err := g.RemoveEdge("A", "B"); err != nil {
		t.Fatalf("RemoveEdge(A,B): %v", err)
	}
	if err := g.AddEdge("A", "B", &LinkAttrs{BandwidthMbps: 100, Down: true}); err != nil {
		t.Fatalf("AddEdge(A,B) re-add: %v", err)
	}

	attrs, ok := g.Edge("A", "B")
	if !ok {
		t.Fatalf("re-added edge not found")
	}
	if attrs.Down {
		t.Fatalf("active edge must not carry the down marker")
	}
	if _, ok := g.DownedEdge("A", "B"); ok {
		t.Fatalf("re-adding an edge should clear its diagnostic record")
	}
}

func TestEdgesSnapshotSorted(t *testing.T) {
	g := newTriangleGraph(t)

	edges := g.Edges()
	if len(edges) != 2 {
		t.Fatalf("EdgeCount = %d, want 2", len(edges))
	}
	if edges[0].U != "A" || edges[0].V != "B" || edges[1].U != "B" || edges[1].V != "C" {
		t.Fatalf("Edges() not sorted by pair: %+v", edges)
	}
}

// TestConcurrentNeighborReadsDuringMutation exercises neighbor queries racing
// against edge removal and restoration, the access pattern of node workers
// running alongside fault injection.
func TestConcurrentNeighborReadsDuringMutation(t *testing.T) {
	g := NewGraph()
	const n = 8
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("node-%d", i)
		ids = append(ids, id)
		if err := g.AddNode(id, nil); err != nil {
			t.Fatalf("AddNode(%s): %v", id, err)
		}
	}
	for i := 1; i < n; i++ {
		if err := g.AddEdge(ids[0], ids[i], nil); err != nil {
			t.Fatalf("AddEdge(%s,%s): %v", ids[0], ids[i], err)
		}
	}

	var wg sync.WaitGroup
	stop := make(chan struct{})

	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				_ = g.Neighbors(id)
				_ = g.Degree(id)
				_ = g.Edges()
			}
		}(id)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			target := ids[1+i%(n-1)]
			_ = g.RemoveEdge(ids[0], target)
			_ = g.AddEdge(ids[0], target, nil)
		}
		close(stop)
	}()

	wg.Wait()

	if got := g.Degree(ids[0]); got != n-1 {
		t.Fatalf("Degree(%s) = %d, want %d", ids[0], got, n-1)
	}
}
