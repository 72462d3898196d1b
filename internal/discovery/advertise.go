package discovery

import (
	"fmt"

	"github.com/grandcat/zeroconf"
)

// Advertisement is a running mDNS responder for a bound portal.
type Advertisement struct {
	server *zeroconf.Server
}

// AdvertisedText returns the TXT records announcing a portal of the given
// firmware version.
func AdvertisedText(version string) []string {
	return []string{TXTKey + "=" + version, TXTPathKey + "=/"}
}

// Advertise announces the portal of device name on port on all interfaces.
func Advertise(name string, port int, version string) (*Advertisement, error) {
	server, err := zeroconf.Register(name, ServiceType, ServiceDomain, port, AdvertisedText(version), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register mDNS service: %w", err)
	}
	return &Advertisement{server: server}, nil
}

// Shutdown withdraws the advertisement
func (a *Advertisement) Shutdown() {
	if a == nil || a.server == nil {
		return
	}
	a.server.Shutdown()
}
