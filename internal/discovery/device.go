package discovery

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// TXTPathKey is the TXT record carrying the portal form path
const TXTPathKey = "path"

// Device is a ZooThing whose configuration portal answered a browse.
type Device struct {
	Name         string            // mDNS instance, the device name (e.g., "Fido")
	Hostname     string            // mDNS hostname (e.g., "Fido.local.")
	IP           string            // Address on the AP network (e.g., "192.168.4.1")
	Port         int               // Portal HTTP port
	Version      string            // Firmware version from the "zoothing" TXT record
	Metadata     map[string]string // All TXT records
	DiscoveredAt time.Time
}

func (d *Device) String() string {
	v := d.Version
	if v == "" {
		v = "unknown"
	}
	return fmt.Sprintf("ZooThing %s (version %s) at %s", d.Name, v, d.hostPort())
}

// BaseURL is the portal root without a trailing slash, as portal.Client expects.
func (d *Device) BaseURL() string {
	return "http://" + d.hostPort()
}

// PortalURL is the settings form an operator opens in a browser.
func (d *Device) PortalURL() string {
	path := d.Metadata[TXTPathKey]
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return d.BaseURL() + path
}

func (d *Device) hostPort() string {
	return net.JoinHostPort(d.IP, strconv.Itoa(d.Port))
}
