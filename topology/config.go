package topology

import (
	"fmt"
	"net"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// InterfaceConfig describes one configured interface on a device.
type InterfaceConfig struct {
	Name        string `yaml:"name"`
	IPAddress   string `yaml:"ip_address,omitempty"`
	SubnetMask  string `yaml:"subnet_mask,omitempty"`
	MTU         int    `yaml:"mtu,omitempty"`
	VLAN        int    `yaml:"vlan,omitempty"`
	Description string `yaml:"description,omitempty"`
	Gateway     string `yaml:"gateway,omitempty"`
}

// Subnet derives the canonical "network/bits" form of the subnet this
// interface sits on. IPv4 only; interfaces without a parseable address and
// mask report false.
func (i InterfaceConfig) Subnet() (string, bool) {
	if i.IPAddress == "" || i.SubnetMask == "" {
		return "", false
	}
	ip := net.ParseIP(i.IPAddress)
	maskIP := net.ParseIP(i.SubnetMask)
	if ip == nil || maskIP == nil {
		return "", false
	}
	ip4 := ip.To4()
	mask4 := maskIP.To4()
	if ip4 == nil || mask4 == nil {
		return "", false
	}
	mask := net.IPMask(mask4)
	ones, bits := mask.Size()
	if bits == 0 {
		return "", false
	}
	network := ip4.Mask(mask)
	return fmt.Sprintf("%s/%d", network, ones), true
}

// RoutingConfig captures the routing protocols configured on a device.
type RoutingConfig struct {
	BGP  bool `yaml:"bgp,omitempty"`
	OSPF bool `yaml:"ospf,omitempty"`
}

// DeviceConfig is the parsed configuration of one network device. It is the
// upstream input to the topology builder; the parser that produces it from
// raw configuration text lives outside this module.
type DeviceConfig struct {
	Hostname   string            `yaml:"hostname,omitempty"`
	DeviceType string            `yaml:"device_type,omitempty"`
	Interfaces []InterfaceConfig `yaml:"interfaces,omitempty"`
	Routing    RoutingConfig     `yaml:"routing,omitempty"`
}

// DeviceConfigs maps device name to its parsed configuration.
type DeviceConfigs map[string]*DeviceConfig

// LoadDeviceConfigs reads a YAML file mapping device names to configurations.
func LoadDeviceConfigs(path string) (DeviceConfigs, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read device configs: %w", err)
	}

	var configs DeviceConfigs
	if err := yaml.Unmarshal(data, &configs); err != nil {
		return nil, fmt.Errorf("parse device configs %q: %w", path, err)
	}
	return configs, nil
}

// Names returns the device names in sorted order.
func (c DeviceConfigs) Names() []string {
	out := make([]string, 0, len(c))
	for name := range c {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// MaxMTU returns the largest MTU configured on any interface of the named
// device, or 0 when no interface declares one.
func (c DeviceConfigs) MaxMTU(name string) int {
	cfg, ok := c[name]
	if !ok || cfg == nil {
		return 0
	}
	max := 0
	for _, iface := range cfg.Interfaces {
		if iface.MTU > max {
			max = iface.MTU
		}
	}
	return max
}
