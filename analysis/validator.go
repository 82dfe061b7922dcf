package analysis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/netfabrik/netsim/topology"
)

// ValidationReport aggregates every heuristic check the validator runs over a
// topology and its device configurations.
type ValidationReport struct {
	MissingComponents        []string `json:"missing_components"`
	DuplicateIPs             []string `json:"duplicate_ips"`
	VLANIssues               []string `json:"vlan_issues"`
	GatewayIssues            []string `json:"gateway_issues"`
	RoutingRecommendations   []string `json:"routing_recommendations"`
	MTUMismatches            []string `json:"mtu_mismatches"`
	NetworkLoops             []string `json:"network_loops"`
	AggregationOpportunities []string `json:"aggregation_opportunities"`
}

// IssueCount returns the total number of findings across all categories,
// excluding recommendations.
func (r *ValidationReport) IssueCount() int {
	return len(r.MissingComponents) + len(r.DuplicateIPs) + len(r.VLANIssues) +
		len(r.GatewayIssues) + len(r.MTUMismatches) + len(r.NetworkLoops)
}

// Validator runs configuration and topology sanity checks: duplicate IPs,
// isolated endpoints, VLAN consistency, gateway presence, MTU mismatches,
// loop detection, and aggregation hints.
type Validator struct {
	configs topology.DeviceConfigs
	topo    *topology.Graph
}

// NewValidator constructs a validator over the given configs and topology.
func NewValidator(configs topology.DeviceConfigs, topo *topology.Graph) *Validator {
	return &Validator{configs: configs, topo: topo}
}

// ValidateAll runs every check and collects the findings.
func (v *Validator) ValidateAll() *ValidationReport {
	return &ValidationReport{
		MissingComponents:        v.checkMissingComponents(),
		DuplicateIPs:             v.checkDuplicateIPs(),
		VLANIssues:               v.checkVLANConsistency(),
		GatewayIssues:            v.checkGateways(),
		RoutingRecommendations:   v.routingRecommendations(),
		MTUMismatches:            v.checkMTUMismatches(),
		NetworkLoops:             v.detectLoops(),
		AggregationOpportunities: v.aggregationOpportunities(),
	}
}

// checkMissingComponents flags endpoints that are isolated or not attached to
// an access switch.
func (v *Validator) checkMissingComponents() []string {
	var issues []string
	for _, node := range v.topo.Nodes() {
		attrs, _ := v.topo.Node(node)
		if attrs.DeviceType != "pc" {
			continue
		}
		neighbors := v.topo.Neighbors(node)
		if len(neighbors) == 0 {
			issues = append(issues, fmt.Sprintf("PC %s appears to be isolated (no neighbors)", node))
			continue
		}
		hasSwitch := false
		for _, n := range neighbors {
			if na, ok := v.topo.Node(n); ok && na.DeviceType == "switch" {
				hasSwitch = true
				break
			}
		}
		if !hasSwitch {
			issues = append(issues, fmt.Sprintf("PC %s not connected to an access switch", node))
		}
	}
	return issues
}

func (v *Validator) checkDuplicateIPs() []string {
	type owner struct{ device, iface string }
	ipOwners := make(map[string][]owner)
	for _, name := range v.configs.Names() {
		cfg := v.configs[name]
		if cfg == nil {
			continue
		}
		for _, iface := range cfg.Interfaces {
			if iface.IPAddress == "" {
				continue
			}
			ipOwners[iface.IPAddress] = append(ipOwners[iface.IPAddress], owner{name, iface.Name})
		}
	}

	ips := make([]string, 0, len(ipOwners))
	for ip := range ipOwners {
		ips = append(ips, ip)
	}
	sort.Strings(ips)

	var issues []string
	for _, ip := range ips {
		owners := ipOwners[ip]
		if len(owners) < 2 {
			continue
		}
		parts := make([]string, 0, len(owners))
		for _, o := range owners {
			parts = append(parts, fmt.Sprintf("%s/%s", o.device, o.iface))
		}
		issues = append(issues, fmt.Sprintf("IP %s used by: %s", ip, strings.Join(parts, ", ")))
	}
	return issues
}

// checkVLANConsistency flags subnets whose member interfaces disagree on the
// VLAN ID.
func (v *Validator) checkVLANConsistency() []string {
	subnetVLANs := make(map[string]map[int]bool)
	for _, name := range v.configs.Names() {
		cfg := v.configs[name]
		if cfg == nil {
			continue
		}
		for _, iface := range cfg.Interfaces {
			if iface.VLAN == 0 {
				continue
			}
			subnet, ok := iface.Subnet()
			if !ok {
				continue
			}
			if subnetVLANs[subnet] == nil {
				subnetVLANs[subnet] = make(map[int]bool)
			}
			subnetVLANs[subnet][iface.VLAN] = true
		}
	}

	subnets := make([]string, 0, len(subnetVLANs))
	for s := range subnetVLANs {
		subnets = append(subnets, s)
	}
	sort.Strings(subnets)

	var issues []string
	for _, subnet := range subnets {
		vlans := subnetVLANs[subnet]
		if len(vlans) < 2 {
			continue
		}
		ids := make([]int, 0, len(vlans))
		for id := range vlans {
			ids = append(ids, id)
		}
		sort.Ints(ids)
		issues = append(issues, fmt.Sprintf("Subnet %s has multiple VLANs configured: %v", subnet, ids))
	}
	return issues
}

// checkGateways verifies that every gateway configured on a PC exists as an
// interface address somewhere in the network.
func (v *Validator) checkGateways() []string {
	known := make(map[string]bool)
	for _, cfg := range v.configs {
		if cfg == nil {
			continue
		}
		for _, iface := range cfg.Interfaces {
			if iface.IPAddress != "" {
				known[iface.IPAddress] = true
			}
		}
	}

	var issues []string
	for _, name := range v.configs.Names() {
		cfg := v.configs[name]
		if cfg == nil || !strings.EqualFold(cfg.DeviceType, "pc") {
			continue
		}
		for _, iface := range cfg.Interfaces {
			if iface.Gateway == "" {
				continue
			}
			if !known[iface.Gateway] {
				issues = append(issues, fmt.Sprintf("PC %s gateway %s not found on any device", name, iface.Gateway))
			}
		}
	}
	return issues
}

func (v *Validator) routingRecommendations() []string {
	var recs []string
	for _, name := range v.configs.Names() {
		cfg := v.configs[name]
		if cfg == nil {
			continue
		}
		if cfg.Routing.BGP {
			recs = append(recs, fmt.Sprintf("Device %s has BGP configuration present", name))
		}
	}
	return recs
}

// checkMTUMismatches flags active edges whose endpoints disagree on their
// largest configured MTU.
func (v *Validator) checkMTUMismatches() []string {
	var issues []string
	for _, edge := range v.topo.Edges() {
		mtuU := v.configs.MaxMTU(edge.U)
		mtuV := v.configs.MaxMTU(edge.V)
		if mtuU != 0 && mtuV != 0 && mtuU != mtuV {
			issues = append(issues, fmt.Sprintf("MTU mismatch between %s (%d) and %s (%d)", edge.U, mtuU, edge.V, mtuV))
		}
	}
	return issues
}

// detectLoops reports one entry per independent cycle in the topology, using
// a spanning-forest cycle basis.
func (v *Validator) detectLoops() []string {
	var issues []string
	for _, cycle := range cycleBasis(v.topo) {
		issues = append(issues, strings.Join(cycle, " -> "))
	}
	return issues
}

// aggregationOpportunities suggests stacking for switches with high degree.
func (v *Validator) aggregationOpportunities() []string {
	var recs []string
	for _, node := range v.topo.Nodes() {
		attrs, _ := v.topo.Node(node)
		deg := v.topo.Degree(node)
		if attrs.DeviceType == "switch" && deg >= 4 {
			recs = append(recs, fmt.Sprintf("Switch %s has degree %d - consider aggregation or stack", node, deg))
		}
	}
	return recs
}

// cycleBasis builds a spanning forest and derives one cycle per non-tree
// edge: the tree path between the edge's endpoints plus the edge itself.
func cycleBasis(g *topology.Graph) [][]string {
	parent := make(map[string]string)
	visited := make(map[string]bool)
	var cycles [][]string

	for _, root := range g.Nodes() {
		if visited[root] {
			continue
		}
		visited[root] = true
		parent[root] = ""
		queue := []string{root}

		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for _, next := range g.Neighbors(cur) {
				if !visited[next] {
					visited[next] = true
					parent[next] = cur
					queue = append(queue, next)
					continue
				}
				if next == parent[cur] || next < cur {
					// Tree edge back-reference, or a non-tree edge already
					// handled from its other endpoint.
					continue
				}
				if cycle := treeCycle(parent, cur, next); cycle != nil {
					cycles = append(cycles, cycle)
				}
			}
		}
	}
	return cycles
}

// treeCycle returns the cycle closed by the non-tree edge (u, v) given the
// spanning-tree parent map.
func treeCycle(parent map[string]string, u, v string) []string {
	depth := func(n string) int {
		d := 0
		for parent[n] != "" {
			n = parent[n]
			d++
		}
		return d
	}

	du, dv := depth(u), depth(v)
	var upper, lower []string
	a, b := u, v
	for du > dv {
		upper = append(upper, a)
		a = parent[a]
		du--
	}
	for dv > du {
		lower = append(lower, b)
		b = parent[b]
		dv--
	}
	for a != b {
		upper = append(upper, a)
		lower = append(lower, b)
		a = parent[a]
		b = parent[b]
	}

	cycle := make([]string, 0, len(upper)+len(lower)+1)
	cycle = append(cycle, upper...)
	cycle = append(cycle, a)
	for i := len(lower) - 1; i >= 0; i-- {
		cycle = append(cycle, lower[i])
	}
	if len(cycle) < 3 {
		return nil
	}
	return cycle
}
