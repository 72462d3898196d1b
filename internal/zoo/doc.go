// Package zoo implements the ZooThing connection state machine.
//
// A Machine drives a wifi.Adapter through station connect, bounded reconnects
// and a timed configuration access point, one dispatcher message per tick.
// Blocking adapter calls run on their own goroutines and report back as
// ConnectResult and APResult messages, so handlers never block the loop.
//
// # States
//
//	Uninitialized -> Connecting -> Connected
//	Connecting    -> Disconnected -> Reconnecting -> Connecting
//	Reconnecting  -> StartingAP        (reconnect limit reached)
//	StartingAP    -> Configuring -> CoolingDown -> Connecting
//	Configuring   -> Halted            (unconfigured device, AP window expired)
//
// Messages that make no sense in the current state, such as APStop before any
// AP was started, are logged and dropped; see Legal.
//
// # Usage
//
//	m, err := zoo.New(zoo.Options{Adapter: adapter, Store: store, Portal: opener})
//	if err != nil {
//	    return err
//	}
//	m.Start(ctx, onConnect, onDisconnect)
//	defer m.Stop()
package zoo
