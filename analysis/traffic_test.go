package analysis

import (
	"strings"
	"testing"

	"github.com/netfabrik/netsim/topology"
)

// starGraph wires center-leaf edges with the given capacity on each link.
func starGraph(t *testing.T, leaves int, capacity int) *topology.Graph {
	t.Helper()
	g := topology.NewGraph()
	if err := g.AddNode("hub", &topology.NodeAttrs{DeviceType: "switch"}); err != nil {
		t.Fatalf("AddNode(hub): %v", err)
	}
	for i := 0; i < leaves; i++ {
		leaf := string(rune('a' + i))
		if err := g.AddNode(leaf, &topology.NodeAttrs{DeviceType: "pc"}); err != nil {
			t.Fatalf("AddNode(%s): %v", leaf, err)
		}
		if err := g.AddEdge("hub", leaf, &topology.LinkAttrs{BandwidthMbps: capacity, LinkType: "subnet"}); err != nil {
			t.Fatalf("AddEdge(hub,%s): %v", leaf, err)
		}
	}
	return g
}

func TestTrafficUtilization(t *testing.T) {
	// Two leaves: each link sees (deg(hub)+deg(leaf))*10 = (2+1)*10 = 30 Mbps.
	g := starGraph(t, 2, 100)
	report := NewTrafficAnalyzer(g).Analyze()

	if len(report.LinkUtilization) != 2 {
		t.Fatalf("LinkUtilization has %d entries, want 2", len(report.LinkUtilization))
	}
	util, ok := report.LinkUtilization["a-hub"]
	if !ok {
		t.Fatalf("no entry for a-hub: %v", report.LinkUtilization)
	}
	if util.EstimatedTrafficMbps != 30 {
		t.Errorf("EstimatedTrafficMbps = %v, want 30", util.EstimatedTrafficMbps)
	}
	if util.UtilizationPercent != 30 {
		t.Errorf("UtilizationPercent = %v, want 30", util.UtilizationPercent)
	}
	if util.LinkType != "subnet" {
		t.Errorf("LinkType = %q, want subnet", util.LinkType)
	}
	if len(report.Bottlenecks) != 0 {
		t.Errorf("Bottlenecks = %v, want none at 30%%", report.Bottlenecks)
	}
}

func TestTrafficBottleneckSeverity(t *testing.T) {
	// Eight leaves: (8+1)*10 = 90 Mbps on a 100 Mbps link is a warning.
	report := NewTrafficAnalyzer(starGraph(t, 8, 100)).Analyze()
	if len(report.Bottlenecks) != 8 {
		t.Fatalf("Bottlenecks has %d entries, want 8", len(report.Bottlenecks))
	}
	for _, b := range report.Bottlenecks {
		if b.Severity != "warning" {
			t.Errorf("Bottleneck %s severity = %q, want warning", b.Link, b.Severity)
		}
	}
	if len(report.LoadBalancingRecommendations) != 8 {
		t.Fatalf("recommendations = %v, want one per bottleneck", report.LoadBalancingRecommendations)
	}
	if !strings.Contains(report.LoadBalancingRecommendations[0], "ECMP") {
		t.Errorf("recommendation = %q, want ECMP hint", report.LoadBalancingRecommendations[0])
	}
}

func TestTrafficUtilizationCapped(t *testing.T) {
	// (10+1)*10 = 110 Mbps on a 100 Mbps link caps at 100% and is critical.
	report := NewTrafficAnalyzer(starGraph(t, 10, 100)).Analyze()
	for key, util := range report.LinkUtilization {
		if util.UtilizationPercent != 100 {
			t.Errorf("%s utilization = %v, want capped at 100", key, util.UtilizationPercent)
		}
	}
	for _, b := range report.Bottlenecks {
		if b.Severity != "critical" {
			t.Errorf("Bottleneck %s severity = %q, want critical", b.Link, b.Severity)
		}
	}
}

func TestTrafficDefaultCapacity(t *testing.T) {
	g := topology.NewGraph()
	for _, n := range []string{"x", "y"} {
		if err := g.AddNode(n, nil); err != nil {
			t.Fatalf("AddNode(%s): %v", n, err)
		}
	}
	if err := g.AddEdge("x", "y", &topology.LinkAttrs{}); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}

	report := NewTrafficAnalyzer(g).Analyze()
	util := report.LinkUtilization["x-y"]
	if util.CapacityMbps != topology.DefaultBandwidthMbps {
		t.Errorf("CapacityMbps = %d, want default %d", util.CapacityMbps, topology.DefaultBandwidthMbps)
	}
	if util.LinkType != "unknown" {
		t.Errorf("LinkType = %q, want unknown", util.LinkType)
	}
}

func TestDay2Tallies(t *testing.T) {
	configs := topology.DeviceConfigs{
		"R1": {Hostname: "R1", Interfaces: []topology.InterfaceConfig{
			{Name: "Gi0/0", IPAddress: "10.0.1.1", SubnetMask: "255.255.255.0", MTU: 9000},
		}},
		"R2": {Hostname: "R2", Interfaces: []topology.InterfaceConfig{
			{Name: "Gi0/0", IPAddress: "10.0.1.2", SubnetMask: "255.255.255.0", MTU: 1500},
		}},
		"BARE": {},
	}
	topo := buildTopo(t, configs)
	report := NewDay2Tester(configs, topo).RunAll()

	// Per device: hostname + interfaces checks. BARE fails both. One
	// reachability test (BARE is isolated from R2, so it fails) and one MTU
	// warning on the R1-R2 link.
	if report.Total != 8 {
		t.Fatalf("Total = %d, want 8 (details: %v)", report.Total, report.Details)
	}
	if report.Failed != 3 {
		t.Errorf("Failed = %d, want 3", report.Failed)
	}
	if report.Warnings != 1 {
		t.Errorf("Warnings = %d, want 1", report.Warnings)
	}
	if report.Passed != 4 {
		t.Errorf("Passed = %d, want 4", report.Passed)
	}
}

func TestDay2ReachabilityPass(t *testing.T) {
	g := starGraph(t, 2, 100)
	report := NewDay2Tester(topology.DeviceConfigs{}, g).RunAll()

	for _, r := range report.Details {
		if strings.HasPrefix(r.Name, "reach-") && r.Result != "pass" {
			t.Errorf("%s = %s (%s), want pass", r.Name, r.Result, r.Message)
		}
	}
	if report.Failed != 0 {
		t.Errorf("Failed = %d, want 0 (details: %v)", report.Failed, report.Details)
	}
}
