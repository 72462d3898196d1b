// Package wifi defines the network adapter the connection manager drives and
// provides two implementations.
//
// # NetworkManager
//
// NetworkManager talks to NetworkManager over the system D-Bus:
//   - Station connect: AddAndActivateConnection with an infrastructure profile,
//     then poll the active connection until it is ACTIVATED or DEACTIVATED
//   - Access point: a mode "ap" profile with ipv4.method "shared"; WPA2 uses
//     key-mgmt "wpa-psk" with proto "rsn"
//   - Hostname: Settings.SaveHostname
//   - Disconnect notification: Device.StateChanged leaving ACTIVATED while a
//     station link was up
//
// Profiles are created with autoconnect disabled so NetworkManager never races
// the connection manager's own retry policy.
//
// # Simulator
//
// Simulator is an in-memory adapter with scripted networks and failures. The
// CLI uses it for --simulate runs; tests use it to drive the state machine.
package wifi
