package analysis

import (
	"fmt"

	"github.com/netfabrik/netsim/topology"
)

// Utilization thresholds for bottleneck classification.
const (
	bottleneckWarnPercent     = 80.0
	bottleneckCriticalPercent = 95.0

	// estimated traffic per attached link endpoint, in Mbps
	perDegreeTrafficMbps = 10.0
)

// LinkUtilization is the estimated load on one link.
type LinkUtilization struct {
	CapacityMbps         int     `json:"capacity_mbps"`
	EstimatedTrafficMbps float64 `json:"estimated_traffic_mbps"`
	UtilizationPercent   float64 `json:"utilization_percent"`
	LinkType             string  `json:"link_type"`
}

// Bottleneck flags a link whose estimated utilization exceeds the warning
// threshold.
type Bottleneck struct {
	Link               string  `json:"link"`
	UtilizationPercent float64 `json:"utilization_percent"`
	Severity           string  `json:"severity"`
}

// TrafficReport is the output of one traffic analysis pass.
type TrafficReport struct {
	LinkUtilization              map[string]LinkUtilization `json:"link_utilization"`
	Bottlenecks                  []Bottleneck               `json:"bottlenecks"`
	LoadBalancingRecommendations []string                   `json:"load_balancing_recommendations"`
}

// TrafficAnalyzer estimates per-link utilization from node degrees: each
// endpoint is assumed to push traffic proportional to its degree, compared
// against the link's configured capacity.
type TrafficAnalyzer struct {
	topo *topology.Graph
}

// NewTrafficAnalyzer constructs an analyzer over the given topology.
func NewTrafficAnalyzer(topo *topology.Graph) *TrafficAnalyzer {
	return &TrafficAnalyzer{topo: topo}
}

// Analyze produces utilization estimates, bottleneck flags, and load
// balancing recommendations for every active link.
func (a *TrafficAnalyzer) Analyze() *TrafficReport {
	report := &TrafficReport{
		LinkUtilization: make(map[string]LinkUtilization),
	}

	for _, edge := range a.topo.Edges() {
		capacity := edge.BandwidthMbps
		if capacity <= 0 {
			capacity = topology.DefaultBandwidthMbps
		}
		estimated := float64(a.topo.Degree(edge.U)+a.topo.Degree(edge.V)) * perDegreeTrafficMbps
		utilization := estimated * 100.0 / float64(capacity)
		if utilization > 100.0 {
			utilization = 100.0
		}

		key := fmt.Sprintf("%s-%s", edge.U, edge.V)
		linkType := edge.LinkType
		if linkType == "" {
			linkType = "unknown"
		}
		report.LinkUtilization[key] = LinkUtilization{
			CapacityMbps:         capacity,
			EstimatedTrafficMbps: estimated,
			UtilizationPercent:   utilization,
			LinkType:             linkType,
		}

		if utilization > bottleneckWarnPercent {
			severity := "warning"
			if utilization > bottleneckCriticalPercent {
				severity = "critical"
			}
			report.Bottlenecks = append(report.Bottlenecks, Bottleneck{
				Link:               key,
				UtilizationPercent: utilization,
				Severity:           severity,
			})
		}
	}

	for _, b := range report.Bottlenecks {
		report.LoadBalancingRecommendations = append(report.LoadBalancingRecommendations,
			fmt.Sprintf("Consider upgrade or ECMP for %s (util %.1f%%)", b.Link, b.UtilizationPercent))
	}
	return report
}
