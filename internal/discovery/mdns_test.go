package discovery

import (
	"net"
	"testing"
	"time"

	"github.com/grandcat/zeroconf"
)

func TestParseServiceEntry(t *testing.T) {
	tests := []struct {
		name        string
		entry       *zeroconf.ServiceEntry
		wantNil     bool
		wantName    string
		wantIP      string
		wantPort    int
		wantVersion string
	}{
		{
			name: "portal with IPv4",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "Fido"},
				HostName:      "Fido.local.",
				Port:          80,
				AddrIPv4:      []net.IP{net.ParseIP("192.168.4.1")},
				Text:          []string{"zoothing=1.2.0", "path=/"},
			},
			wantName:    "Fido",
			wantIP:      "192.168.4.1",
			wantPort:    80,
			wantVersion: "1.2.0",
		},
		{
			name: "custom port",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "Rex"},
				HostName:      "Rex.local.",
				Port:          8080,
				AddrIPv4:      []net.IP{net.ParseIP("192.168.4.1")},
				Text:          []string{"zoothing=dev"},
			},
			wantName:    "Rex",
			wantIP:      "192.168.4.1",
			wantPort:    8080,
			wantVersion: "dev",
		},
		{
			name: "no port defaults to 80",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "ZooPet"},
				HostName:      "ZooPet.local.",
				AddrIPv4:      []net.IP{net.ParseIP("192.168.4.1")},
				Text:          []string{"zoothing=dev"},
			},
			wantName:    "ZooPet",
			wantIP:      "192.168.4.1",
			wantPort:    80,
			wantVersion: "dev",
		},
		{
			name: "name falls back to hostname",
			entry: &zeroconf.ServiceEntry{
				HostName: "Fido.local.",
				Port:     80,
				AddrIPv4: []net.IP{net.ParseIP("10.0.0.5")},
				Text:     []string{"zoothing=dev"},
			},
			wantName:    "Fido",
			wantIP:      "10.0.0.5",
			wantPort:    80,
			wantVersion: "dev",
		},
		{
			name: "IPv4 preferred over IPv6",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "Fido"},
				Port:          80,
				AddrIPv4:      []net.IP{net.ParseIP("192.168.4.1")},
				AddrIPv6:      []net.IP{net.ParseIP("fe80::2")},
				Text:          []string{"zoothing=dev"},
			},
			wantName:    "Fido",
			wantIP:      "192.168.4.1",
			wantPort:    80,
			wantVersion: "dev",
		},
		{
			name: "IPv6 only",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "Fido"},
				Port:          80,
				AddrIPv6:      []net.IP{net.ParseIP("fe80::1")},
				Text:          []string{"zoothing=dev"},
			},
			wantName:    "Fido",
			wantIP:      "fe80::1",
			wantPort:    80,
			wantVersion: "dev",
		},
		{
			name: "other http service",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "printer"},
				HostName:      "printer.local.",
				Port:          80,
				AddrIPv4:      []net.IP{net.ParseIP("192.168.1.1")},
				Text:          []string{"path=/"},
			},
			wantNil: true,
		},
		{
			name: "no IP address",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "Fido"},
				Port:          80,
				Text:          []string{"zoothing=dev"},
			},
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			device := parseServiceEntry(tt.entry)

			if tt.wantNil {
				if device != nil {
					t.Errorf("parseServiceEntry() = %v, want nil", device)
				}
				return
			}

			if device == nil {
				t.Fatal("parseServiceEntry() = nil, want non-nil device")
			}
			if device.Name != tt.wantName {
				t.Errorf("device.Name = %v, want %v", device.Name, tt.wantName)
			}
			if device.IP != tt.wantIP {
				t.Errorf("device.IP = %v, want %v", device.IP, tt.wantIP)
			}
			if device.Port != tt.wantPort {
				t.Errorf("device.Port = %v, want %v", device.Port, tt.wantPort)
			}
			if device.Version != tt.wantVersion {
				t.Errorf("device.Version = %v, want %v", device.Version, tt.wantVersion)
			}
			if time.Since(device.DiscoveredAt) > time.Second {
				t.Errorf("device.DiscoveredAt is not recent: %v", device.DiscoveredAt)
			}
		})
	}
}

func TestParseText(t *testing.T) {
	got := parseText([]string{"zoothing=1.0", "path=/", "flag", "eq=a=b", ""})

	want := map[string]string{
		"zoothing": "1.0",
		"path":     "/",
		"flag":     "",
		"eq":       "a=b",
	}
	if len(got) != len(want) {
		t.Errorf("parseText() has %d entries, want %d: %v", len(got), len(want), got)
	}
	for key, value := range want {
		if got[key] != value {
			t.Errorf("parseText()[%q] = %q, want %q", key, got[key], value)
		}
	}
}

func TestAdvertisedTextRoundTrip(t *testing.T) {
	entry := &zeroconf.ServiceEntry{
		ServiceRecord: zeroconf.ServiceRecord{Instance: "Fido"},
		AddrIPv4:      []net.IP{net.ParseIP("192.168.4.1")},
		Port:          80,
		Text:          AdvertisedText("1.4.2"),
	}

	device := parseServiceEntry(entry)
	if device == nil {
		t.Fatal("advertised entry not recognised")
	}
	if device.Version != "1.4.2" || device.Metadata[TXTPathKey] != "/" {
		t.Errorf("device = %+v", device)
	}
}

func TestNewScanner(t *testing.T) {
	scanner := NewScanner()

	if scanner == nil {
		t.Fatal("NewScanner() = nil, want scanner")
	}

	if scanner.Timeout != DefaultScanTimeout {
		t.Errorf("scanner.Timeout = %v, want %v", scanner.Timeout, DefaultScanTimeout)
	}
}

func TestNilAdvertisementShutdown(t *testing.T) {
	var a *Advertisement
	a.Shutdown()
}
