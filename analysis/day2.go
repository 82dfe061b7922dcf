package analysis

import (
	"fmt"

	"github.com/netfabrik/netsim/topology"
)

// Day2Result is one pass/fail/warn entry from the day-2 test runner.
type Day2Result struct {
	Name    string `json:"name"`
	Result  string `json:"result"` // pass, fail, warn
	Message string `json:"msg"`
}

// Day2Report summarises a day-2 test run.
type Day2Report struct {
	Total    int          `json:"total"`
	Passed   int          `json:"passed"`
	Failed   int          `json:"failed"`
	Warnings int          `json:"warnings"`
	Details  []Day2Result `json:"details"`
}

// Day2Tester runs day-2 operational checks: configuration best practices,
// reachability between edge nodes, and MTU agreement on links.
type Day2Tester struct {
	configs topology.DeviceConfigs
	topo    *topology.Graph
}

// NewDay2Tester constructs a tester over the given configs and topology.
func NewDay2Tester(configs topology.DeviceConfigs, topo *topology.Graph) *Day2Tester {
	return &Day2Tester{configs: configs, topo: topo}
}

// RunAll executes every test group and tallies the outcomes.
func (d *Day2Tester) RunAll() *Day2Report {
	var results []Day2Result
	results = append(results, d.configBestPractices()...)
	results = append(results, d.reachabilityTests()...)
	results = append(results, d.mtuTests()...)

	report := &Day2Report{Total: len(results), Details: results}
	for _, r := range results {
		switch r.Result {
		case "pass":
			report.Passed++
		case "fail":
			report.Failed++
		case "warn":
			report.Warnings++
		}
	}
	return report
}

func (d *Day2Tester) configBestPractices() []Day2Result {
	var results []Day2Result
	for _, name := range d.configs.Names() {
		cfg := d.configs[name]
		if cfg == nil {
			cfg = &topology.DeviceConfig{}
		}
		if cfg.Hostname == "" {
			results = append(results, Day2Result{Name: name + "-hostname", Result: "fail", Message: "missing hostname"})
		} else {
			results = append(results, Day2Result{Name: name + "-hostname", Result: "pass", Message: "hostname present"})
		}
		if len(cfg.Interfaces) == 0 {
			results = append(results, Day2Result{Name: name + "-interfaces", Result: "fail", Message: "no interfaces configured"})
		} else {
			results = append(results, Day2Result{Name: name + "-interfaces", Result: "pass", Message: "interfaces present"})
		}
	}
	return results
}

// reachabilityTests checks that a path exists between the first and last node
// of the sorted node set.
func (d *Day2Tester) reachabilityTests() []Day2Result {
	nodes := d.topo.Nodes()
	if len(nodes) == 0 {
		return []Day2Result{{Name: "reachability-empty", Result: "fail", Message: "no nodes"}}
	}
	if len(nodes) < 2 {
		return nil
	}

	a, b := nodes[0], nodes[len(nodes)-1]
	name := fmt.Sprintf("reach-%s-%s", a, b)
	if pathExists(d.topo, a, b) {
		return []Day2Result{{Name: name, Result: "pass", Message: "path exists"}}
	}
	return []Day2Result{{Name: name, Result: "fail", Message: "no path"}}
}

func (d *Day2Tester) mtuTests() []Day2Result {
	var results []Day2Result
	for _, edge := range d.topo.Edges() {
		name := fmt.Sprintf("mtu-%s-%s", edge.U, edge.V)
		mtuU := d.configs.MaxMTU(edge.U)
		mtuV := d.configs.MaxMTU(edge.V)
		if mtuU != 0 && mtuV != 0 && mtuU != mtuV {
			results = append(results, Day2Result{
				Name:    name,
				Result:  "warn",
				Message: fmt.Sprintf("MTU mismatch %d!=%d", mtuU, mtuV),
			})
		} else {
			results = append(results, Day2Result{Name: name, Result: "pass", Message: "mtu ok"})
		}
	}
	return results
}

// pathExists runs a BFS over active edges.
func pathExists(g *topology.Graph, from, to string) bool {
	if from == to {
		return true
	}
	visited := map[string]bool{from: true}
	queue := []string{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range g.Neighbors(cur) {
			if next == to {
				return true
			}
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}
	return false
}
