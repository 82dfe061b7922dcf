package topology

import (
	"fmt"
	"strings"
)

// Layer names assigned by the builder's hierarchy heuristics.
const (
	LayerCore         = "core"
	LayerDistribution = "distribution"
	LayerAccess       = "access"
	LayerEndpoint     = "endpoint"
)

// BuildFromConfigs constructs a topology graph from parsed device
// configurations. Nodes carry device metadata; edges are inferred where two
// interfaces share a subnet or where an interface description names another
// device. Every edge gets a default bandwidth when none is known, and each
// node is assigned a hierarchical layer.
func BuildFromConfigs(configs DeviceConfigs) (*Graph, error) {
	g := NewGraph()

	for _, name := range configs.Names() {
		cfg := configs[name]
		if cfg == nil {
			cfg = &DeviceConfig{}
		}
		hostname := cfg.Hostname
		if hostname == "" {
			hostname = name
		}
		deviceType := strings.ToLower(cfg.DeviceType)
		if deviceType == "" {
			deviceType = "router"
		}
		if err := g.AddNode(name, &NodeAttrs{
			DeviceType: deviceType,
			Label:      hostname,
		}); err != nil {
			return nil, fmt.Errorf("add node %q: %w", name, err)
		}
	}

	addSubnetEdges(g, configs)
	addDescriptionEdges(g, configs)
	assignLayers(g, configs)

	return g, nil
}

// addSubnetEdges connects every pair of devices that have interfaces on the
// same IP subnet.
func addSubnetEdges(g *Graph, configs DeviceConfigs) {
	// subnet -> devices with an interface in it
	netMembers := make(map[string][]string)
	for _, name := range configs.Names() {
		cfg := configs[name]
		if cfg == nil {
			continue
		}
		seen := make(map[string]bool)
		for _, iface := range cfg.Interfaces {
			subnet, ok := iface.Subnet()
			if !ok || seen[subnet] {
				continue
			}
			seen[subnet] = true
			netMembers[subnet] = append(netMembers[subnet], name)
		}
	}

	for subnet, members := range netMembers {
		for i := 0; i < len(members); i++ {
			for j := i + 1; j < len(members); j++ {
				u, v := members[i], members[j]
				if u == v || g.HasEdge(u, v) {
					continue
				}
				_ = g.AddEdge(u, v, &LinkAttrs{
					BandwidthMbps: DefaultBandwidthMbps,
					LinkType:      "subnet",
					Subnet:        subnet,
				})
			}
		}
	}
}

// addDescriptionEdges connects a device to any other device whose name
// appears in one of its interface descriptions.
func addDescriptionEdges(g *Graph, configs DeviceConfigs) {
	names := configs.Names()
	for _, dev := range names {
		cfg := configs[dev]
		if cfg == nil {
			continue
		}
		for _, iface := range cfg.Interfaces {
			desc := strings.TrimSpace(iface.Description)
			if desc == "" {
				continue
			}
			for _, other := range names {
				if other == dev || !strings.Contains(desc, other) || g.HasEdge(dev, other) {
					continue
				}
				_ = g.AddEdge(dev, other, &LinkAttrs{
					BandwidthMbps: DefaultBandwidthMbps,
					LinkType:      "desc",
				})
			}
		}
	}
}

// assignLayers applies simple hierarchy heuristics: devices running BGP or
// with degree >= 4 are core, switches are access, PCs are endpoints, and
// everything else lands in distribution.
func assignLayers(g *Graph, configs DeviceConfigs) {
	for _, id := range g.Nodes() {
		attrs, _ := g.Node(id)
		deg := g.Degree(id)

		hasBGP := false
		if cfg, ok := configs[id]; ok && cfg != nil {
			hasBGP = cfg.Routing.BGP
		}

		var layer string
		switch {
		case hasBGP || deg >= 4:
			layer = LayerCore
		case attrs.DeviceType == "switch":
			layer = LayerAccess
		case attrs.DeviceType == "pc":
			layer = LayerEndpoint
		default:
			layer = LayerDistribution
		}
		_ = g.SetLayer(id, layer)
	}
}
