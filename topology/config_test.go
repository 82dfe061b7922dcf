package topology

import (
	"os"
	"path/filepath"
	"testing"
)

func TestInterfaceSubnet(t *testing.T) {
	cases := []struct {
		name  string
		iface InterfaceConfig
		want  string
		ok    bool
	}{
		{
			name:  "slash24",
			iface: InterfaceConfig{IPAddress: "10.1.2.3", SubnetMask: "255.255.255.0"},
			want:  "10.1.2.0/24",
			ok:    true,
		},
		{
			name:  "slash30",
			iface: InterfaceConfig{IPAddress: "192.168.0.5", SubnetMask: "255.255.255.252"},
			want:  "192.168.0.4/30",
			ok:    true,
		},
		{
			name:  "missing mask",
			iface: InterfaceConfig{IPAddress: "10.1.2.3"},
			ok:    false,
		},
		{
			name:  "garbage address",
			iface: InterfaceConfig{IPAddress: "not-an-ip", SubnetMask: "255.255.255.0"},
			ok:    false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := tc.iface.Subnet()
			if ok != tc.ok {
				t.Fatalf("Subnet() ok = %v, want %v", ok, tc.ok)
			}
			if ok && got != tc.want {
				t.Fatalf("Subnet() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestLoadDeviceConfigs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devices.yaml")
	data := `
R1:
  hostname: core-r1
  device_type: router
  routing:
    bgp: true
  interfaces:
    - name: Gi0/0
      ip_address: 10.0.0.1
      subnet_mask: 255.255.255.0
      mtu: 9000
SW1:
  device_type: switch
  interfaces:
    - name: Vlan10
      ip_address: 10.0.0.2
      subnet_mask: 255.255.255.0
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	configs, err := LoadDeviceConfigs(path)
	if err != nil {
		t.Fatalf("LoadDeviceConfigs: %v", err)
	}

	if len(configs) != 2 {
		t.Fatalf("len(configs) = %d, want 2", len(configs))
	}
	r1 := configs["R1"]
	if r1 == nil || r1.Hostname != "core-r1" || !r1.Routing.BGP {
		t.Fatalf("R1 config = %+v", r1)
	}
	if got := configs.MaxMTU("R1"); got != 9000 {
		t.Fatalf("MaxMTU(R1) = %d, want 9000", got)
	}
	if got := configs.MaxMTU("SW1"); got != 0 {
		t.Fatalf("MaxMTU(SW1) = %d, want 0", got)
	}
}

func TestLoadDeviceConfigsMissingFile(t *testing.T) {
	if _, err := LoadDeviceConfigs(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
