// Package discovery finds ZooThing devices whose configuration portal is up.
//
// While a device runs its configuration access point, the portal advertises
// itself over multicast DNS as an "_http._tcp" service named after the device,
// with a "zoothing=<version>" TXT record. Scanner browses for those
// advertisements; Advertise publishes one.
//
// # Usage Example
//
//	devices, err := discovery.Scan(ctx, 5*time.Second)
//	if err != nil {
//	    return err
//	}
//	for _, device := range devices {
//	    fmt.Println(device)
//	}
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - The scanning host must be joined to the device AP network
// - Firewall must allow mDNS (UDP port 5353)
package discovery
